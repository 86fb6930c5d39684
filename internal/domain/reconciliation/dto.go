package reconciliation

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/validator"
)

// ========================================
// EMPLOYEE REPORT
// ========================================

type EmployeeReportRequest struct {
	CompanyID  string `json:"-"`
	EmployeeID string `json:"employee_id"`
	StartDate  string `json:"start_date"` // YYYY-MM-DD
	EndDate    string `json:"end_date"`   // YYYY-MM-DD
}

func (r *EmployeeReportRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	errs = append(errs, validator.ValidateDateRange(r.StartDate, r.EndDate)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type EmployeeReportResponse struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	ScheduleFlag string `json:"schedule_flag"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`

	Intervals []WorkIntervalResponse `json:"intervals"`

	TotalMinutes         int     `json:"total_minutes"`
	TotalHours           string  `json:"total_hours"`
	DaysWorked           int     `json:"days_worked"`
	AverageMinutesPerDay float64 `json:"average_minutes_per_day"`
	BusinessDaysInRange  int     `json:"business_days_in_range"`
	DailyTargetMinutes   int     `json:"daily_target_minutes"`
	TargetMinutes        int     `json:"target_minutes"`
	TargetHours          string  `json:"target_hours"`
	BalanceMinutes       int     `json:"balance_minutes"`
	BalanceHours         string  `json:"balance_hours"`

	UnmatchedPunches    int               `json:"unmatched_punches"`
	ExcludedPunches     int               `json:"excluded_punches"`
	MismatchedKindPairs int               `json:"mismatched_kind_pairs"`
	DataGaps            []DataGapResponse `json:"data_gaps"`
}

type WorkIntervalResponse struct {
	Date            string `json:"date"`
	Start           string `json:"start"`
	End             string `json:"end"`
	StartKind       string `json:"start_kind"`
	EndKind         string `json:"end_kind"`
	DurationMinutes int    `json:"duration_minutes"`
}

type DataGapResponse struct {
	Reason  string                `json:"reason"`
	Punches []punch.PunchResponse `json:"punches"`
}

// ========================================
// BATCH REPORT
// ========================================

type BatchReportRequest struct {
	CompanyID string `json:"-"`
	// EmployeeIDs restricts the batch; empty means every active employee.
	EmployeeIDs []string `json:"employee_ids"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
}

func (r *BatchReportRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = append(errs, validator.ValidateDateRange(r.StartDate, r.EndDate)...)

	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{
				Field:   "employee_ids",
				Message: "employee_ids must not contain empty values",
			})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type BatchRowStatus string

const (
	BatchRowOK       BatchRowStatus = "ok"
	BatchRowError    BatchRowStatus = "error"
	BatchRowNotFound BatchRowStatus = "not_found"

	// BatchRowDataUnavailable marks a row whose punches or employee record could not be read.
	BatchRowDataUnavailable BatchRowStatus = "data_unavailable"
)

type BatchReportRow struct {
	EmployeeID string                  `json:"employee_id"`
	Status     BatchRowStatus          `json:"status"`
	Error      string                  `json:"error,omitempty"`
	Report     *EmployeeReportResponse `json:"report,omitempty"`
}

type BatchReportResponse struct {
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	GeneratedAt  string           `json:"generated_at"`
	Requested    int              `json:"requested"`
	Completed    int              `json:"completed"`
	Cancelled    bool             `json:"cancelled"`
	TotalMinutes int              `json:"total_minutes"`
	Rows         []BatchReportRow `json:"rows"`
}

// ========================================
// NORMALIZATION
// ========================================

type NormalizeRequest struct {
	CompanyID  string `json:"-"`
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"` // YYYY-MM-DD
}

func (r *NormalizeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if validator.IsEmpty(r.Date) {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date is required",
		})
	} else if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type NormalizeResponse struct {
	EmployeeID string                `json:"employee_id"`
	Date       string                `json:"date"`
	Inserted   []punch.PunchResponse `json:"inserted"`
}

// FormatMinutes renders minutes as HH:MM, keeping the sign of negative balances.
func FormatMinutes(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%02d:%02d", sign, minutes/60, minutes%60)
}

// NewEmployeeReportResponse renders r with instants shown in loc.
func NewEmployeeReportResponse(r EmployeeReport, loc *time.Location) EmployeeReportResponse {
	if loc == nil {
		loc = time.UTC
	}

	intervals := make([]WorkIntervalResponse, 0, len(r.Intervals))
	for _, iv := range r.Intervals {
		intervals = append(intervals, WorkIntervalResponse{
			Date:            iv.CalendarDay.String(),
			Start:           iv.Start.In(loc).Format(time.RFC3339),
			End:             iv.End.In(loc).Format(time.RFC3339),
			StartKind:       string(iv.StartKind),
			EndKind:         string(iv.EndKind),
			DurationMinutes: iv.DurationMinutes,
		})
	}

	gaps := make([]DataGapResponse, 0, len(r.DataGaps))
	for _, g := range r.DataGaps {
		punches := make([]punch.PunchResponse, 0, len(g.Punches))
		for _, p := range g.Punches {
			punches = append(punches, punch.ToResponse(p, loc))
		}
		gaps = append(gaps, DataGapResponse{Reason: string(g.Reason), Punches: punches})
	}

	return EmployeeReportResponse{
		EmployeeID:           r.EmployeeID,
		EmployeeName:         r.EmployeeName,
		ScheduleFlag:         string(r.ScheduleFlag),
		StartDate:            r.RangeStart.String(),
		EndDate:              r.RangeEnd.String(),
		Intervals:            intervals,
		TotalMinutes:         r.TotalMinutes,
		TotalHours:           FormatMinutes(r.TotalMinutes),
		DaysWorked:           r.DaysWorked,
		AverageMinutesPerDay: r.AverageMinutesPerDay,
		BusinessDaysInRange:  r.BusinessDaysInRange,
		DailyTargetMinutes:   r.DailyTargetMinutes,
		TargetMinutes:        r.TargetMinutes,
		TargetHours:          FormatMinutes(r.TargetMinutes),
		BalanceMinutes:       r.BalanceMinutes,
		BalanceHours:         FormatMinutes(r.BalanceMinutes),
		UnmatchedPunches:     r.UnmatchedPunches,
		ExcludedPunches:      r.ExcludedPunches,
		MismatchedKindPairs:  r.MismatchedKindPairs,
		DataGaps:             gaps,
	}
}

// parseRange is shared by request types that carry a validated date range.
func parseRange(start, end string) (calendar.Day, calendar.Day, error) {
	s, err := calendar.ParseDay(start)
	if err != nil {
		return calendar.Day{}, calendar.Day{}, err
	}
	e, err := calendar.ParseDay(end)
	if err != nil {
		return calendar.Day{}, calendar.Day{}, err
	}
	return s, e, nil
}

// Range returns the parsed, validated date range.
func (r *EmployeeReportRequest) Range() (calendar.Day, calendar.Day, error) {
	return parseRange(r.StartDate, r.EndDate)
}

// Range returns the parsed, validated date range.
func (r *BatchReportRequest) Range() (calendar.Day, calendar.Day, error) {
	return parseRange(r.StartDate, r.EndDate)
}
