package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/reconciliation"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "first day, YYYY-MM-DD", Required: true},
		&cli.StringFlag{Name: "to", Usage: "last day, YYYY-MM-DD", Required: true},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "worked time for one employee over a date range",
		Flags: append([]cli.Flag{
			companyFlag(),
			&cli.StringFlag{Name: "employee", Aliases: []string{"e"}, Usage: "employee id", Required: true},
			jsonFlag(),
		}, rangeFlags()...),
		Action: runReport,
	}
}

func runReport(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.reconciliation.GenerateEmployeeReport(ctx, reconciliation.EmployeeReportRequest{
		CompanyID:  cmd.String("company"),
		EmployeeID: cmd.String("employee"),
		StartDate:  cmd.String("from"),
		EndDate:    cmd.String("to"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return writeJSON(os.Stdout, report)
	}
	return printReport(os.Stdout, report)
}

func printReport(out io.Writer, r reconciliation.EmployeeReportResponse) error {
	fmt.Fprintf(out, "%s (%s) %s..%s schedule=%s\n\n", r.EmployeeName, r.EmployeeID, r.StartDate, r.EndDate, r.ScheduleFlag)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSTART\tEND\tKINDS\tDURATION")
	for _, iv := range r.Intervals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s→%s\t%s\n", iv.Date, iv.Start, iv.End, iv.StartKind, iv.EndKind, reconciliation.FormatMinutes(iv.DurationMinutes))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\ntotal      %s (%s min) over %d days, average %.1f min/day\n",
		r.TotalHours, humanize.Comma(int64(r.TotalMinutes)), r.DaysWorked, r.AverageMinutesPerDay)
	fmt.Fprintf(out, "target     %s (%d business days x %d min)\n", r.TargetHours, r.BusinessDaysInRange, r.DailyTargetMinutes)
	fmt.Fprintf(out, "balance    %s\n", r.BalanceHours)

	if r.ExcludedPunches > 0 || r.MismatchedKindPairs > 0 {
		fmt.Fprintf(out, "\n%d punches excluded (%d unmatched), %d pairs with unexpected kinds\n",
			r.ExcludedPunches, r.UnmatchedPunches, r.MismatchedKindPairs)
		for _, gap := range r.DataGaps {
			for _, p := range gap.Punches {
				fmt.Fprintf(out, "  %-22s %s %s\n", gap.Reason, p.Timestamp, p.Kind)
			}
		}
	}
	return nil
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "worked time for many employees (all active ones by default)",
		Flags: append([]cli.Flag{
			companyFlag(),
			&cli.StringSliceFlag{Name: "employee", Aliases: []string{"e"}, Usage: "employee id, repeatable"},
			&cli.IntFlag{Name: "workers", Usage: "employees reported concurrently", Value: 4},
			jsonFlag(),
		}, rangeFlags()...),
		Action: runBatch,
	}
}

func runBatch(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, int(cmd.Int("workers")))
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.reconciliation.GenerateBatchReport(ctx, reconciliation.BatchReportRequest{
		CompanyID:   cmd.String("company"),
		EmployeeIDs: cmd.StringSlice("employee"),
		StartDate:   cmd.String("from"),
		EndDate:     cmd.String("to"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return writeJSON(os.Stdout, batch)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMPLOYEE\tNAME\tSTATUS\tWORKED\tTARGET\tBALANCE\tEXCLUDED")
	for _, row := range batch.Rows {
		if row.Report == nil {
			fmt.Fprintf(w, "%s\t\t%s\t\t\t\t%s\n", row.EmployeeID, row.Status, row.Error)
			continue
		}
		r := row.Report
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			row.EmployeeID, r.EmployeeName, row.Status, r.TotalHours, r.TargetHours, r.BalanceHours, r.ExcludedPunches)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d of %d employees, %s min worked in total, generated %s\n",
		batch.Completed, batch.Requested, humanize.Comma(int64(batch.TotalMinutes)), batch.GeneratedAt)
	if batch.Cancelled {
		fmt.Println("batch was cancelled before every employee was reported")
	}
	return nil
}
