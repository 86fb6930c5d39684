package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
	reconciliationService "github.com/cmlabs-hris/attendance-reconciliation/internal/service/reconciliation"
	"github.com/urfave/cli/v3"
)

type rawPunch struct {
	Timestamp       string `json:"timestamp"`
	Kind            string `json:"kind"`
	SequenceOrdinal *int   `json:"sequence_ordinal,omitempty"`
}

func pairCommand() *cli.Command {
	return &cli.Command{
		Name:      "pair",
		Usage:     "pair punches from a JSON file without touching the database",
		ArgsUsage: "[file, default stdin]",
		Action:    runPair,
	}
}

func runPair(ctx context.Context, cmd *cli.Command) error {
	loc, err := time.LoadLocation(cmd.String("timezone"))
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	var in io.Reader = os.Stdin
	if path := cmd.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	punches, err := decodePunches(in)
	if err != nil {
		return err
	}

	result := reconciliationService.NewPairingEngine(calendar.InLocation(loc)).Pair(punches)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tSTART\tEND\tKINDS\tMINUTES")
	for _, iv := range result.Intervals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s→%s\t%d\n",
			iv.CalendarDay, iv.Start.In(loc).Format(time.TimeOnly), iv.End.In(loc).Format(time.TimeOnly), iv.StartKind, iv.EndKind, iv.DurationMinutes)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, gap := range result.Gaps() {
		for _, p := range gap.Punches {
			fmt.Printf("excluded %-22s %s %s\n", gap.Reason, p.Timestamp.In(loc).Format(time.RFC3339), p.Kind)
		}
	}
	if result.MismatchedKindPairs > 0 {
		fmt.Printf("%d pairs with unexpected kinds\n", result.MismatchedKindPairs)
	}
	return nil
}

func decodePunches(r io.Reader) ([]punch.Punch, error) {
	var raw []rawPunch
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode punches: %w", err)
	}

	punches := make([]punch.Punch, 0, len(raw))
	for i, p := range raw {
		ts, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("punch %d: %w", i, err)
		}
		punches = append(punches, punch.Punch{
			Timestamp:       ts.UTC(),
			Kind:            punch.Kind(p.Kind),
			SequenceOrdinal: p.SequenceOrdinal,
		})
	}
	return punches, nil
}
