package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "reconcile",
		Usage: "attendance reconciliation operator tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "path to the sqlite database",
				Value:   "reconciliation.db",
				Sources: cli.EnvVars("SQLITE_PATH"),
			},
			&cli.StringFlag{
				Name:    "timezone",
				Usage:   "employee-local timezone used as the day boundary",
				Value:   "UTC",
				Sources: cli.EnvVars("RECON_TIMEZONE"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			reportCommand(),
			batchCommand(),
			normalizeCommand(),
			pairCommand(),
			punchesCommand(),
			employeeCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
