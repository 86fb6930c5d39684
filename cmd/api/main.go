package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/config"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	appHTTP "github.com/cmlabs-hris/attendance-reconciliation/internal/handler/http"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/cache"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/metrics"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/repository/postgresql"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/repository/sqlite"
	punchService "github.com/cmlabs-hris/attendance-reconciliation/internal/service/punch"
	reconciliationService "github.com/cmlabs-hris/attendance-reconciliation/internal/service/reconciliation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := appHTTP.NewRequestLogger(os.Stdout, cfg.App.Env, cfg.SlogLevel())
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	retry := database.RetryPolicy{
		Attempts: cfg.Repository.RetryAttempts,
		Delay:    cfg.Repository.RetryDelay,
		MaxDelay: 10 * cfg.Repository.RetryDelay,
		OnRetry: func(op string, attempt uint, err error) {
			registry.IncRetry(op)
			logger.Warn("retrying repository operation",
				slog.String("op", op),
				slog.Uint64("attempt", uint64(attempt)),
				slog.Any("error", err),
			)
		},
	}

	punchRepo, employeeRepo, closeStore, err := openStore(ctx, cfg, retry)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer closeStore()

	if cfg.Reconciliation.EmployeeCacheTTL > 0 {
		cached, err := cache.NewEmployeeRepository(employeeRepo, cfg.Reconciliation.EmployeeCacheTTL)
		if err != nil {
			return fmt.Errorf("error creating employee cache: %w", err)
		}
		defer cached.Close()
		employeeRepo = cached
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub(cfg.App.EventBuffer)
	reconSvc := reconciliationService.NewReconciliationService(punchRepo, employeeRepo, schedule.DefaultResolver(), reconciliationService.Options{
		Location:      loc,
		Workers:       cfg.Reconciliation.Workers,
		NormalizeNote: cfg.Reconciliation.NormalizeNote,
		Metrics:       registry,
		Logger:        logger,
		Events:        hub,
	})
	punchSvc := punchService.NewPunchService(punchRepo, employeeRepo, loc, hub)

	if cfg.Reconciliation.AutoNormalize {
		scheduler := cron.NewScheduler(logger)
		cron.NewNormalizationJobs(reconSvc, employeeRepo, loc, logger).RegisterJobs(scheduler)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	router := appHTTP.NewRouter(
		JWTService,
		appHTTP.NewPunchHandler(punchSvc),
		appHTTP.NewReportHandler(reconSvc),
		appHTTP.NewEventHandler(hub),
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.CORSAllowedOrigins,
			Logger:         logger,
			Metrics:        registry.Handler(),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Cancel open event streams on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", slog.String("addr", server.Addr), slog.String("db_driver", cfg.Database.Driver))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore connects the configured driver and migrates its schema.
func openStore(ctx context.Context, cfg *config.Config, retry database.RetryPolicy) (punch.PunchRepository, employee.EmployeeRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return sqlite.NewPunchRepository(db, retry), sqlite.NewEmployeeRepository(db, retry), func() { db.Close() }, nil

	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.DefaultPoolConfig, retry)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgresql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return postgresql.NewPunchRepository(db, retry), postgresql.NewEmployeeRepository(db, retry), db.Close, nil
	}
}
