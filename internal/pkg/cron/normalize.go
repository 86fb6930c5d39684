package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
)

// DayNormalizer fills in missing canonical punches for one employee and day.
type DayNormalizer interface {
	NormalizeEmployeeDay(ctx context.Context, emp employee.Employee, day calendar.Day) ([]punch.Punch, error)
}

type NormalizationJobs struct {
	normalizer   DayNormalizer
	employeeRepo employee.EmployeeRepository
	dayOf        calendar.DayBoundary
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.Mutex
	lastRun calendar.Day
}

func NewNormalizationJobs(normalizer DayNormalizer, employeeRepo employee.EmployeeRepository, loc *time.Location, logger *slog.Logger) *NormalizationJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &NormalizationJobs{
		normalizer:   normalizer,
		employeeRepo: employeeRepo,
		dayOf:        calendar.InLocation(loc),
		logger:       logger,
		now:          time.Now,
	}
}

func (j *NormalizationJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("normalize_previous_business_day", 1*time.Hour, j.NormalizePreviousBusinessDay)
}

// NormalizePreviousBusinessDay normalizes the last business day before today
// for every active employee of every company. It runs hourly but does the work
// once per target day. A failing employee is logged and skipped.
func (j *NormalizationJobs) NormalizePreviousBusinessDay(ctx context.Context) error {
	target := calendar.PreviousBusinessDay(j.dayOf(j.now()))

	j.mu.Lock()
	done := j.lastRun == target
	j.mu.Unlock()
	if done {
		return nil
	}

	j.logger.Info("cron: normalizing previous business day", slog.String("day", target.String()))

	companyIDs, err := j.employeeRepo.ListActiveCompanyIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	var (
		inserted int
		failed   int
	)
	for _, companyID := range companyIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		employees, err := j.employeeRepo.ListActive(ctx, companyID)
		if err != nil {
			j.logger.Error("cron: failed to list employees",
				slog.String("company_id", companyID),
				slog.Any("error", err),
			)
			failed++
			continue
		}

		for _, emp := range employees {
			punches, err := j.normalizer.NormalizeEmployeeDay(ctx, emp, target)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				j.logger.Error("cron: failed to normalize employee day",
					slog.String("employee_id", emp.ID),
					slog.String("company_id", companyID),
					slog.String("day", target.String()),
					slog.Any("error", err),
				)
				failed++
				continue
			}
			inserted += len(punches)
		}
	}

	j.logger.Info("cron: normalization finished",
		slog.String("day", target.String()),
		slog.Int("inserted", inserted),
		slog.Int("failed", failed),
	)

	// Failed employees are retried on the next tick.
	if failed == 0 {
		j.mu.Lock()
		j.lastRun = target
		j.mu.Unlock()
	}
	return nil
}
