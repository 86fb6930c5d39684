package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/reconciliation"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/metrics"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/sse"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

type Options struct {
	// Location is the employee-local day boundary. Nil means UTC.
	Location *time.Location
	// Workers bounds concurrent employees in a batch report.
	Workers       int
	NormalizeNote string
	Metrics       *metrics.Registry
	Logger        *slog.Logger
	// Events receives a punches.normalized event per employee-day that
	// gained punches. Nil disables publishing.
	Events *sse.Hub
}

type ReconciliationServiceImpl struct {
	punch.PunchRepository
	employee.EmployeeRepository

	pairing    *PairingEngine
	normalizer *NormalizationEngine
	aggregator *ReportAggregator

	loc     *time.Location
	workers int
	metrics *metrics.Registry
	logger  *slog.Logger
	events  *sse.Hub
	now     func() time.Time
}

func NewReconciliationService(
	punchRepo punch.PunchRepository,
	employeeRepo employee.EmployeeRepository,
	resolver *schedule.Resolver,
	opts Options,
) reconciliation.ReconciliationService {
	return newReconciliationService(punchRepo, employeeRepo, resolver, opts)
}

func newReconciliationService(
	punchRepo punch.PunchRepository,
	employeeRepo employee.EmployeeRepository,
	resolver *schedule.Resolver,
	opts Options,
) *ReconciliationServiceImpl {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = schedule.DefaultResolver()
	}

	return &ReconciliationServiceImpl{
		PunchRepository:    punchRepo,
		EmployeeRepository: employeeRepo,
		pairing:            NewPairingEngine(calendar.InLocation(loc)),
		normalizer:         NewNormalizationEngine(resolver, loc, opts.NormalizeNote),
		aggregator:         NewReportAggregator(resolver),
		loc:                loc,
		workers:            workers,
		metrics:            opts.Metrics,
		logger:             logger,
		events:             opts.Events,
		now:                time.Now,
	}
}

// GenerateEmployeeReport implements reconciliation.ReconciliationService.
func (s *ReconciliationServiceImpl) GenerateEmployeeReport(ctx context.Context, req reconciliation.EmployeeReportRequest) (reconciliation.EmployeeReportResponse, error) {
	started := time.Now()

	if err := req.Validate(); err != nil {
		return reconciliation.EmployeeReportResponse{}, err
	}
	start, end, err := req.Range()
	if err != nil {
		return reconciliation.EmployeeReportResponse{}, err
	}

	report, err := s.buildReport(ctx, req.CompanyID, req.EmployeeID, start, end)
	s.metrics.ObserveReport(reportStatus(err), started)
	if err != nil {
		return reconciliation.EmployeeReportResponse{}, err
	}

	return reconciliation.NewEmployeeReportResponse(report, s.loc), nil
}

// GenerateBatchReport implements reconciliation.ReconciliationService.
// Employees are processed on a pool of at most s.workers goroutines. When ctx
// is cancelled no further employees are dispatched; rows already built are
// returned with Cancelled set.
func (s *ReconciliationServiceImpl) GenerateBatchReport(ctx context.Context, req reconciliation.BatchReportRequest) (reconciliation.BatchReportResponse, error) {
	started := time.Now()
	defer s.metrics.ObserveBatch(started)

	if err := req.Validate(); err != nil {
		return reconciliation.BatchReportResponse{}, err
	}
	start, end, err := req.Range()
	if err != nil {
		return reconciliation.BatchReportResponse{}, err
	}

	employeeIDs := req.EmployeeIDs
	if len(employeeIDs) == 0 {
		active, err := s.EmployeeRepository.ListActive(ctx, req.CompanyID)
		if err != nil {
			return reconciliation.BatchReportResponse{}, &reconciliation.RepositoryError{Op: "list active employees", Err: err}
		}
		employeeIDs = make([]string, 0, len(active))
		for _, e := range active {
			employeeIDs = append(employeeIDs, e.ID)
		}
	}

	// Each goroutine owns exactly one slot, so rows needs no lock.
	rows := make([]*reconciliation.BatchReportRow, len(employeeIDs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	cancelled := false
dispatch:
	for i, employeeID := range employeeIDs {
		select {
		case <-gCtx.Done():
			cancelled = true
			break dispatch
		default:
		}

		g.Go(func() error {
			rows[i] = s.batchRow(gCtx, req.CompanyID, employeeID, start, end, started)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		cancelled = true
	}

	resp := reconciliation.BatchReportResponse{
		StartDate:   start.String(),
		EndDate:     end.String(),
		GeneratedAt: s.now().In(s.loc).Format(time.RFC3339),
		Requested:   len(employeeIDs),
		Cancelled:   cancelled,
		Rows:        make([]reconciliation.BatchReportRow, 0, len(employeeIDs)),
	}

	for _, row := range rows {
		// A row cancelled mid-flight carries no result and is left out.
		if row == nil {
			continue
		}
		resp.Rows = append(resp.Rows, *row)
		resp.Completed++
		if row.Report != nil {
			resp.TotalMinutes += row.Report.TotalMinutes
		}
	}

	if cancelled {
		s.logger.Warn("batch report cancelled",
			slog.String("company_id", req.CompanyID),
			slog.Int("requested", resp.Requested),
			slog.Int("completed", resp.Completed),
		)
	}

	return resp, nil
}

func (s *ReconciliationServiceImpl) batchRow(ctx context.Context, companyID, employeeID string, start, end calendar.Day, started time.Time) *reconciliation.BatchReportRow {
	report, err := s.buildReport(ctx, companyID, employeeID, start, end)
	s.metrics.ObserveReport(reportStatus(err), started)

	row := &reconciliation.BatchReportRow{EmployeeID: employeeID}
	switch {
	case err == nil:
		resp := reconciliation.NewEmployeeReportResponse(report, s.loc)
		row.Status = reconciliation.BatchRowOK
		row.Report = &resp
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return nil
	case errors.Is(err, employee.ErrEmployeeNotFound):
		row.Status = reconciliation.BatchRowNotFound
		row.Error = err.Error()
	case errors.Is(err, reconciliation.ErrDataUnavailable):
		row.Status = reconciliation.BatchRowDataUnavailable
		row.Error = reconciliation.ErrDataUnavailable.Error()
		s.logger.Error("batch report row failed",
			slog.String("employee_id", employeeID),
			slog.String("error", err.Error()),
		)
	default:
		row.Status = reconciliation.BatchRowError
		row.Error = err.Error()
	}
	return row
}

// NormalizeDay implements reconciliation.ReconciliationService. Presence is
// recomputed from a fresh fetch on every call, so repeating it is a no-op.
func (s *ReconciliationServiceImpl) NormalizeDay(ctx context.Context, req reconciliation.NormalizeRequest) (reconciliation.NormalizeResponse, error) {
	if err := req.Validate(); err != nil {
		return reconciliation.NormalizeResponse{}, err
	}
	day, err := calendar.ParseDay(req.Date)
	if err != nil {
		return reconciliation.NormalizeResponse{}, err
	}

	emp, err := s.getEmployee(ctx, req.EmployeeID, req.CompanyID)
	if err != nil {
		return reconciliation.NormalizeResponse{}, err
	}

	inserted, err := s.NormalizeEmployeeDay(ctx, emp, day)
	if err != nil {
		return reconciliation.NormalizeResponse{}, err
	}

	return s.normalizeResponse(emp.ID, day, inserted), nil
}

func (s *ReconciliationServiceImpl) normalizeResponse(employeeID string, day calendar.Day, inserted []punch.Punch) reconciliation.NormalizeResponse {
	resp := reconciliation.NormalizeResponse{
		EmployeeID: employeeID,
		Date:       day.String(),
		Inserted:   make([]punch.PunchResponse, 0, len(inserted)),
	}
	for _, p := range inserted {
		resp.Inserted = append(resp.Inserted, punch.ToResponse(p, s.loc))
	}
	return resp
}

// NormalizeEmployeeDay implements reconciliation.ReconciliationService.
// The nightly job uses it to avoid a second employee lookup.
func (s *ReconciliationServiceImpl) NormalizeEmployeeDay(ctx context.Context, emp employee.Employee, day calendar.Day) ([]punch.Punch, error) {
	existing, err := s.PunchRepository.FetchByEmployeeAndRange(ctx, emp.ID, day.Start(s.loc), day.AddDays(1).Start(s.loc), emp.CompanyID)
	if err != nil {
		return nil, &reconciliation.RepositoryError{Op: "fetch punches", Err: err}
	}

	toInsert, err := s.normalizer.Normalize(emp, day, existing)
	if err != nil {
		return nil, err
	}
	if len(toInsert) == 0 {
		return nil, nil
	}

	inserted, err := s.PunchRepository.Insert(ctx, toInsert)
	if err != nil {
		return nil, &reconciliation.RepositoryError{Op: "insert punches", Err: err}
	}

	s.metrics.AddNormalized(len(inserted))
	s.logger.Info("normalized punches",
		slog.String("employee_id", emp.ID),
		slog.String("day", day.String()),
		slog.Int("count", len(inserted)),
	)
	s.events.Publish(emp.CompanyID, sse.Event{
		Event: sse.EventPunchesNormalized,
		Data:  s.normalizeResponse(emp.ID, day, inserted),
	})
	return inserted, nil
}

func (s *ReconciliationServiceImpl) buildReport(ctx context.Context, companyID, employeeID string, start, end calendar.Day) (reconciliation.EmployeeReport, error) {
	emp, err := s.getEmployee(ctx, employeeID, companyID)
	if err != nil {
		return reconciliation.EmployeeReport{}, err
	}

	punches, err := s.PunchRepository.FetchByEmployeeAndRange(ctx, emp.ID, start.Start(s.loc), end.AddDays(1).Start(s.loc), companyID)
	if err != nil {
		if ctx.Err() != nil {
			return reconciliation.EmployeeReport{}, ctx.Err()
		}
		return reconciliation.EmployeeReport{}, &reconciliation.RepositoryError{Op: "fetch punches", Err: err}
	}

	result := s.pairing.Pair(punches)
	report := WithPairingGaps(s.aggregator.Aggregate(emp, result.Intervals, start, end), result)

	for _, gap := range result.Gaps() {
		s.metrics.AddExcluded(string(gap.Reason), len(gap.Punches))
	}
	s.metrics.AddMismatched(result.MismatchedKindPairs)

	return report, nil
}

func (s *ReconciliationServiceImpl) getEmployee(ctx context.Context, id, companyID string) (employee.Employee, error) {
	emp, err := s.EmployeeRepository.GetByID(ctx, id, companyID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.Employee{}, err
		}
		if ctx.Err() != nil {
			return employee.Employee{}, ctx.Err()
		}
		return employee.Employee{}, &reconciliation.RepositoryError{Op: fmt.Sprintf("get employee %s", id), Err: err}
	}
	return emp, nil
}

func reportStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return "not_found"
	case errors.Is(err, reconciliation.ErrDataUnavailable):
		return "data_unavailable"
	default:
		return "error"
	}
}
