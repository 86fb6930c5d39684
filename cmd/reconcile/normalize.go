package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/reconciliation"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
	"github.com/urfave/cli/v3"
)

func normalizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "insert the canonical punches missing for a day",
		Flags: []cli.Flag{
			companyFlag(),
			&cli.StringFlag{Name: "employee", Aliases: []string{"e"}, Usage: "employee id; omit with --all"},
			&cli.BoolFlag{Name: "all", Usage: "normalize every active employee of the company"},
			&cli.StringFlag{Name: "date", Usage: "day to normalize, YYYY-MM-DD (default: previous business day)"},
			jsonFlag(),
		},
		Action: runNormalize,
	}
}

func runNormalize(ctx context.Context, cmd *cli.Command) error {
	employeeID := cmd.String("employee")
	all := cmd.Bool("all")
	if (employeeID == "") == !all {
		return fmt.Errorf("pass exactly one of --employee or --all")
	}

	a, err := openApp(ctx, cmd, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	date := cmd.String("date")
	if date == "" {
		date = calendar.PreviousBusinessDay(calendar.InLocation(a.loc)(time.Now())).String()
	}
	companyID := cmd.String("company")

	if !all {
		resp, err := a.reconciliation.NormalizeDay(ctx, reconciliation.NormalizeRequest{
			CompanyID:  companyID,
			EmployeeID: employeeID,
			Date:       date,
		})
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return writeJSON(os.Stdout, resp)
		}
		printInserted(resp.EmployeeID, resp.Inserted)
		return nil
	}

	day, err := calendar.ParseDay(date)
	if err != nil {
		return err
	}
	employees, err := a.employees.ListActive(ctx, companyID)
	if err != nil {
		return err
	}

	var results []reconciliation.NormalizeResponse
	failed := 0
	for _, emp := range employees {
		inserted, err := a.reconciliation.NormalizeEmployeeDay(ctx, emp, day)
		if err != nil {
			a.logger.Error("normalize failed", "employee_id", emp.ID, "error", err)
			failed++
			continue
		}
		resp := reconciliation.NormalizeResponse{EmployeeID: emp.ID, Date: day.String(), Inserted: []punch.PunchResponse{}}
		for _, p := range inserted {
			resp.Inserted = append(resp.Inserted, punch.ToResponse(p, a.loc))
		}
		results = append(results, resp)
	}

	if cmd.Bool("json") {
		if err := writeJSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printInserted(r.EmployeeID, r.Inserted)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d employees could not be normalized", failed, len(employees))
	}
	return nil
}

func printInserted(employeeID string, inserted []punch.PunchResponse) {
	if len(inserted) == 0 {
		fmt.Printf("%s: nothing to insert\n", employeeID)
		return
	}
	for _, p := range inserted {
		fmt.Printf("%s: inserted %-9s at %s\n", employeeID, p.Kind, p.Timestamp)
	}
}
