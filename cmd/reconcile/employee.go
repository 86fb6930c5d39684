package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/urfave/cli/v3"
)

func employeeCommand() *cli.Command {
	return &cli.Command{
		Name:  "employee",
		Usage: "manage the local employee directory",
		Commands: []*cli.Command{
			{
				Name:  "upsert",
				Usage: "create or update an employee",
				Flags: []cli.Flag{
					companyFlag(),
					&cli.StringFlag{Name: "id", Usage: "employee id", Required: true},
					&cli.StringFlag{Name: "name", Usage: "full name", Required: true},
					&cli.StringFlag{Name: "code", Usage: "employee code"},
					&cli.StringFlag{Name: "schedule", Usage: "schedule flag (standard, reduced)", Value: string(schedule.FlagStandard)},
					&cli.StringFlag{Name: "role", Usage: "owner, manager or employee", Value: string(employee.RoleEmployee)},
					&cli.StringFlag{Name: "status", Usage: "active, resigned or terminated", Value: string(employee.EmploymentStatusActive)},
				},
				Action: runEmployeeUpsert,
			},
			{
				Name:   "list",
				Usage:  "list active employees",
				Flags:  []cli.Flag{companyFlag()},
				Action: runEmployeeList,
			},
		},
	}
}

func runEmployeeUpsert(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	emp := employee.Employee{
		ID:               cmd.String("id"),
		CompanyID:        cmd.String("company"),
		EmployeeCode:     cmd.String("code"),
		FullName:         cmd.String("name"),
		Role:             employee.Role(cmd.String("role")),
		ScheduleFlag:     schedule.Flag(cmd.String("schedule")),
		EmploymentStatus: employee.EmploymentStatus(cmd.String("status")),
	}
	if emp.EmployeeCode == "" {
		emp.EmployeeCode = emp.ID
	}

	if err := a.employees.Upsert(ctx, emp); err != nil {
		return err
	}
	fmt.Printf("saved %s (%s, %s)\n", emp.ID, emp.FullName, emp.ScheduleFlag)
	return nil
}

func runEmployeeList(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx, cmd, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	employees, err := a.employees.ListActive(ctx, cmd.String("company"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tNAME\tROLE\tSCHEDULE")
	for _, emp := range employees {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", emp.ID, emp.EmployeeCode, emp.FullName, emp.Role, emp.ScheduleFlag)
	}
	return w.Flush()
}
