package reconciliation

import (
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
)

// WorkInterval is a paired start/end punch. Never persisted.
type WorkInterval struct {
	Start           time.Time
	End             time.Time
	DurationMinutes int
	CalendarDay     calendar.Day
	StartKind       punch.Kind
	EndKind         punch.Kind
}

type DataGapReason string

const (
	// GapUnmatchedPunch is a trailing punch left over by an odd count.
	GapUnmatchedPunch DataGapReason = "unmatched_punch"
	// GapNonPositiveDuration is a pair whose end is not after its start.
	GapNonPositiveDuration DataGapReason = "non_positive_duration"
	// GapExceedsDay is a pair spanning 24 hours or more.
	GapExceedsDay DataGapReason = "exceeds_24h"
)

// DataGap records punches excluded from totals. It is reported, never returned as an error.
type DataGap struct {
	Reason  DataGapReason
	Punches []punch.Punch
}

// PairingResult is the outcome of pairing one employee's punches.
type PairingResult struct {
	Intervals []WorkInterval
	// Unmatched holds the trailing punch of an odd-length sequence.
	Unmatched []punch.Punch
	// Discarded holds pairs rejected by the duration sanity window.
	Discarded []DataGap
	// MismatchedKindPairs counts valid intervals whose kinds do not read in→out.
	MismatchedKindPairs int
}

// ExcludedPunches is the number of punches that contributed nothing to totals.
func (r PairingResult) ExcludedPunches() int {
	n := len(r.Unmatched)
	for _, gap := range r.Discarded {
		n += len(gap.Punches)
	}
	return n
}

// Gaps returns every data gap, unmatched punches first.
func (r PairingResult) Gaps() []DataGap {
	gaps := make([]DataGap, 0, len(r.Unmatched)+len(r.Discarded))
	for _, p := range r.Unmatched {
		gaps = append(gaps, DataGap{Reason: GapUnmatchedPunch, Punches: []punch.Punch{p}})
	}
	return append(gaps, r.Discarded...)
}

type EmployeeReport struct {
	EmployeeID           string
	EmployeeName         string
	ScheduleFlag         schedule.Flag
	RangeStart           calendar.Day
	RangeEnd             calendar.Day
	Intervals            []WorkInterval
	TotalMinutes         int
	DaysWorked           int
	AverageMinutesPerDay float64
	BusinessDaysInRange  int
	DailyTargetMinutes   int
	TargetMinutes        int
	BalanceMinutes       int

	UnmatchedPunches    int
	ExcludedPunches     int
	DataGaps            []DataGap
	MismatchedKindPairs int
}
