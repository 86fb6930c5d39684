package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func punchesCommand() *cli.Command {
	return &cli.Command{
		Name:  "punches",
		Usage: "inspect and maintain raw punches",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list an employee's punches over a date range",
				Flags: append([]cli.Flag{
					companyFlag(),
					&cli.StringFlag{Name: "employee", Aliases: []string{"e"}, Usage: "employee id", Required: true},
					jsonFlag(),
				}, rangeFlags()...),
				Action: runPunchesList,
			},
			{
				Name:  "add",
				Usage: "record a punch by hand",
				Flags: []cli.Flag{
					companyFlag(),
					&cli.StringFlag{Name: "employee", Aliases: []string{"e"}, Usage: "employee id", Required: true},
					&cli.StringFlag{Name: "at", Usage: "RFC3339 timestamp", Required: true},
					&cli.StringFlag{Name: "kind", Usage: "entry, lunch_out, lunch_in or end", Required: true},
					&cli.StringFlag{Name: "note", Usage: "why the punch was entered by hand"},
				},
				Action: runPunchesAdd,
			},
			{
				Name:      "delete",
				Usage:     "delete a punch by id",
				ArgsUsage: "<punch-id>",
				Flags:     []cli.Flag{companyFlag()},
				Action:    runPunchesDelete,
			},
		},
	}
}

func runPunchesList(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	companyID := cmd.String("company")
	employeeID := cmd.String("employee")

	list, err := a.punches.List(ctx, punch.PunchFilter{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		StartDate:  cmd.String("from"),
		EndDate:    cmd.String("to"),
	})
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(os.Stdout, list)
	}

	// The response drops created_at, so read the raw records for the table.
	start, _ := calendar.ParseDay(list.StartDate)
	end, _ := calendar.ParseDay(list.EndDate)
	raw, err := a.punchRepo.FetchByEmployeeAndRange(ctx, employeeID, start.Start(a.loc), end.AddDays(1).Start(a.loc), companyID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTIME\tKIND\tORDINAL\tRECORDED\tNOTE")
	for _, p := range raw {
		local := p.Timestamp.In(a.loc)
		kind := string(p.Kind)
		if !p.Kind.IsCanonical() {
			kind += " (legacy)"
		}
		ordinal := "-"
		if p.SequenceOrdinal != nil {
			ordinal = fmt.Sprint(*p.SequenceOrdinal)
		}
		note := ""
		if p.Note != nil {
			note = *p.Note
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, local.Format(time.DateOnly), local.Format(time.TimeOnly), kind, ordinal, humanize.Time(p.CreatedAt), note)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%s punches\n", humanize.Comma(int64(len(raw))))
	return nil
}

func runPunchesAdd(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	req := punch.CreatePunchRequest{
		CompanyID:  cmd.String("company"),
		EmployeeID: cmd.String("employee"),
		Timestamp:  cmd.String("at"),
		Kind:       cmd.String("kind"),
	}
	if note := cmd.String("note"); note != "" {
		req.Note = &note
	}

	resp, err := a.punches.Record(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("recorded %s %s at %s\n", resp.ID, resp.Kind, resp.Timestamp)
	return nil
}

func runPunchesDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("punch id is required")
	}

	a, err := openApp(ctx, cmd, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.punches.Delete(ctx, id, cmd.String("company")); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", id)
	return nil
}
