package reconciliation

import (
	"context"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
)

// ReconciliationService turns stored punches into worked-time reports and
// fills in missing canonical punches.
type ReconciliationService interface {
	// GenerateEmployeeReport pairs and aggregates one employee's punches over a date range
	GenerateEmployeeReport(ctx context.Context, req EmployeeReportRequest) (EmployeeReportResponse, error)

	// GenerateBatchReport builds reports for many employees on a bounded worker pool
	GenerateBatchReport(ctx context.Context, req BatchReportRequest) (BatchReportResponse, error)

	// NormalizeDay inserts the canonical punches missing for one employee and day
	NormalizeDay(ctx context.Context, req NormalizeRequest) (NormalizeResponse, error)

	// NormalizeEmployeeDay is NormalizeDay for an employee record already in hand
	NormalizeEmployeeDay(ctx context.Context, emp employee.Employee, day calendar.Day) ([]punch.Punch, error)
}
