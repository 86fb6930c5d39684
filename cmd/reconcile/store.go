package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/reconciliation"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/repository/sqlite"
	punchService "github.com/cmlabs-hris/attendance-reconciliation/internal/service/punch"
	reconciliationService "github.com/cmlabs-hris/attendance-reconciliation/internal/service/reconciliation"
	"github.com/urfave/cli/v3"
)

// app bundles the services a command needs over the local sqlite store.
type app struct {
	db             *database.SQLiteDB
	loc            *time.Location
	logger         *slog.Logger
	employees      *sqlite.EmployeeRepository
	punchRepo      punch.PunchRepository
	punches        punch.PunchService
	reconciliation reconciliation.ReconciliationService
}

func openApp(ctx context.Context, cmd *cli.Command, workers int) (*app, error) {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	loc, err := time.LoadLocation(cmd.String("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	db, err := database.NewSQLiteDB(ctx, cmd.String("db"))
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	employees := sqlite.NewEmployeeRepository(db, database.DefaultRetryPolicy)
	punchRepo := sqlite.NewPunchRepository(db, database.DefaultRetryPolicy)

	return &app{
		db:        db,
		loc:       loc,
		logger:    logger,
		employees: employees,
		punchRepo: punchRepo,
		punches:   punchService.NewPunchService(punchRepo, employees, loc, nil),
		reconciliation: reconciliationService.NewReconciliationService(punchRepo, employees, schedule.DefaultResolver(), reconciliationService.Options{
			Location: loc,
			Workers:  workers,
			Logger:   logger,
		}),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func companyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "company",
		Aliases:  []string{"c"},
		Usage:    "company id",
		Required: true,
		Sources:  cli.EnvVars("RECON_COMPANY_ID"),
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "print JSON instead of a table",
	}
}
