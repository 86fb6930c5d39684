package punch

import (
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/validator"
)

// ========================================
// PUNCH DTOs
// ========================================

type CreatePunchRequest struct {
	CompanyID       string  `json:"-"`
	EmployeeID      string  `json:"employee_id"`
	Timestamp       string  `json:"timestamp"` // RFC3339
	Kind            string  `json:"kind"`
	SequenceOrdinal *int    `json:"sequence_ordinal,omitempty"`
	Note            *string `json:"note,omitempty"`

	ParsedTimestamp time.Time `json:"-"`
}

func (r *CreatePunchRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if validator.IsEmpty(r.Timestamp) {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp is required",
		})
	} else if ts, valid := validator.IsValidDateTime(r.Timestamp); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp must be an RFC3339 date-time with offset",
		})
	} else {
		r.ParsedTimestamp = ts.UTC()
	}

	// Manual entry only accepts the canonical kinds; legacy kinds are read-only.
	if !Kind(r.Kind).IsCanonical() {
		errs = append(errs, validator.ValidationError{
			Field:   "kind",
			Message: "kind must be one of: entry, lunch_out, lunch_in, end",
		})
	}

	if r.SequenceOrdinal != nil && *r.SequenceOrdinal < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "sequence_ordinal",
			Message: "sequence_ordinal must not be negative",
		})
	}

	if r.Note != nil && len(*r.Note) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "note",
			Message: "note must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type PunchFilter struct {
	CompanyID  string `json:"-"`
	EmployeeID string `json:"employee_id"`
	StartDate  string `json:"start_date"` // YYYY-MM-DD
	EndDate    string `json:"end_date"`   // YYYY-MM-DD
}

func (f *PunchFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	errs = append(errs, validator.ValidateDateRange(f.StartDate, f.EndDate)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type PunchResponse struct {
	ID              string  `json:"id,omitempty"`
	EmployeeID      string  `json:"employee_id"`
	Date            string  `json:"date"`
	Timestamp       string  `json:"timestamp"`
	Kind            string  `json:"kind"`
	SequenceOrdinal *int    `json:"sequence_ordinal,omitempty"`
	Note            *string `json:"note,omitempty"`
	IsLegacyKind    bool    `json:"is_legacy_kind"`
}

type ListPunchResponse struct {
	EmployeeID string          `json:"employee_id"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	TotalCount int             `json:"total_count"`
	Punches    []PunchResponse `json:"punches"`
}

// ToResponse renders p with its calendar date taken in loc.
func ToResponse(p Punch, loc *time.Location) PunchResponse {
	if loc == nil {
		loc = time.UTC
	}
	local := p.Timestamp.In(loc)
	return PunchResponse{
		ID:              p.ID,
		EmployeeID:      p.EmployeeID,
		Date:            local.Format("2006-01-02"),
		Timestamp:       local.Format(time.RFC3339),
		Kind:            string(p.Kind),
		SequenceOrdinal: p.SequenceOrdinal,
		Note:            p.Note,
		IsLegacyKind:    !p.Kind.IsCanonical(),
	}
}
