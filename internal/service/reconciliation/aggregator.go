package reconciliation

import (
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/reconciliation"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
)

// ReportAggregator sums intervals against the employee's contractual target.
type ReportAggregator struct {
	resolver *schedule.Resolver
}

func NewReportAggregator(resolver *schedule.Resolver) *ReportAggregator {
	return &ReportAggregator{resolver: resolver}
}

// Aggregate builds the report for [rangeStart, rangeEnd]. Intervals whose
// calendar day falls outside the range are ignored. Inputs are not modified.
func (a *ReportAggregator) Aggregate(emp employee.Employee, intervals []reconciliation.WorkInterval, rangeStart, rangeEnd calendar.Day) reconciliation.EmployeeReport {
	tpl := a.resolver.Resolve(emp.ScheduleFlag)

	report := reconciliation.EmployeeReport{
		EmployeeID:         emp.ID,
		EmployeeName:       emp.FullName,
		ScheduleFlag:       tpl.Flag,
		RangeStart:         rangeStart,
		RangeEnd:           rangeEnd,
		Intervals:          make([]reconciliation.WorkInterval, 0, len(intervals)),
		DailyTargetMinutes: tpl.DailyTargetMinutes,
	}

	days := make(map[calendar.Day]struct{})
	for _, iv := range intervals {
		if !iv.CalendarDay.Within(rangeStart, rangeEnd) {
			continue
		}
		report.Intervals = append(report.Intervals, iv)
		report.TotalMinutes += iv.DurationMinutes
		days[iv.CalendarDay] = struct{}{}
	}

	report.DaysWorked = len(days)
	if report.DaysWorked > 0 {
		report.AverageMinutesPerDay = float64(report.TotalMinutes) / float64(report.DaysWorked)
	}

	report.BusinessDaysInRange = calendar.BusinessDaysBetween(rangeStart, rangeEnd)
	report.TargetMinutes = report.BusinessDaysInRange * tpl.DailyTargetMinutes
	report.BalanceMinutes = report.TargetMinutes - report.TotalMinutes

	return report
}

// WithPairingGaps copies the data-gap accounting of a pairing pass onto report.
func WithPairingGaps(report reconciliation.EmployeeReport, result reconciliation.PairingResult) reconciliation.EmployeeReport {
	report.UnmatchedPunches = len(result.Unmatched)
	report.ExcludedPunches = result.ExcludedPunches()
	report.DataGaps = result.Gaps()
	report.MismatchedKindPairs = result.MismatchedKindPairs
	return report
}
