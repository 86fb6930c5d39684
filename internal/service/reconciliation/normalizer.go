package reconciliation

import (
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
)

// DefaultNormalizationNote tags every synthesized punch.
const DefaultNormalizationNote = "Automated normalization: punch synthesized from schedule template"

// NormalizationEngine decides which canonical punches are missing for a day.
// It performs no I/O; the caller persists what it returns.
type NormalizationEngine struct {
	resolver *schedule.Resolver
	loc      *time.Location
	note     string
}

func NewNormalizationEngine(resolver *schedule.Resolver, loc *time.Location, note string) *NormalizationEngine {
	if loc == nil {
		loc = time.UTC
	}
	if note == "" {
		note = DefaultNormalizationNote
	}
	return &NormalizationEngine{
		resolver: resolver,
		loc:      loc,
		note:     note,
	}
}

// Normalize returns the punches to insert so that emp has every canonical
// kind of its template on day. Presence is computed from existing only, so
// calling it again with existing plus the returned punches yields nothing.
// An employee whose flag has no registered template gets a ConfigurationError.
func (e *NormalizationEngine) Normalize(emp employee.Employee, day calendar.Day, existing []punch.Punch) ([]punch.Punch, error) {
	tpl, err := e.resolver.Lookup(emp.ID, emp.ScheduleFlag)
	if err != nil {
		return nil, err
	}

	present := make(map[punch.Kind]struct{}, len(existing))
	for _, p := range existing {
		if calendar.DayOf(p.Timestamp.In(e.loc)) != day {
			continue
		}
		present[p.Kind] = struct{}{}
	}

	has := func(k punch.Kind) bool {
		_, ok := present[k]
		return ok
	}

	var toInsert []punch.Punch
	for _, kind := range tpl.CanonicalKinds {
		if has(kind) {
			continue
		}

		if unit := tpl.UnitOf(kind); unit != nil {
			partial := false
			for _, member := range unit {
				if has(member) {
					partial = true
					break
				}
			}
			if partial {
				continue
			}
		}

		at := tpl.DefaultTimes[kind]
		note := e.note
		toInsert = append(toInsert, punch.Punch{
			EmployeeID: emp.ID,
			CompanyID:  emp.CompanyID,
			Timestamp:  day.At(at.Hour, at.Minute, e.loc).UTC(),
			Kind:       kind,
			Note:       &note,
		})
	}

	return toInsert, nil
}
