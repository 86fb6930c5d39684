package reconciliation

import (
	"cmp"
	"slices"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/reconciliation"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
)

// maxIntervalDuration is the exclusive upper bound of a valid pair.
const maxIntervalDuration = 24 * time.Hour

// PairingEngine turns one employee's punches into work intervals.
type PairingEngine struct {
	dayOf calendar.DayBoundary
}

func NewPairingEngine(dayOf calendar.DayBoundary) *PairingEngine {
	if dayOf == nil {
		dayOf = calendar.InLocation(time.UTC)
	}
	return &PairingEngine{dayOf: dayOf}
}

// Pair groups punches positionally: (p0,p1), (p2,p3), ... after ordering.
// Kinds are not used to validate a pair; a pair is kept iff 0 < end-start < 24h.
// The input slice is not modified.
func (e *PairingEngine) Pair(punches []punch.Punch) reconciliation.PairingResult {
	var result reconciliation.PairingResult

	sorted := sortPunches(punches)

	i := 0
	for ; i+1 < len(sorted); i += 2 {
		start, end := sorted[i], sorted[i+1]
		diff := end.Timestamp.Sub(start.Timestamp)

		switch {
		case diff <= 0:
			result.Discarded = append(result.Discarded, reconciliation.DataGap{
				Reason:  reconciliation.GapNonPositiveDuration,
				Punches: []punch.Punch{start, end},
			})
			continue
		case diff >= maxIntervalDuration:
			result.Discarded = append(result.Discarded, reconciliation.DataGap{
				Reason:  reconciliation.GapExceedsDay,
				Punches: []punch.Punch{start, end},
			})
			continue
		}

		if kindsMismatch(start.Kind, end.Kind) {
			result.MismatchedKindPairs++
		}

		result.Intervals = append(result.Intervals, reconciliation.WorkInterval{
			Start:           start.Timestamp,
			End:             end.Timestamp,
			DurationMinutes: roundMinutes(diff),
			CalendarDay:     e.dayOf(start.Timestamp),
			StartKind:       start.Kind,
			EndKind:         end.Kind,
		})
	}

	if i < len(sorted) {
		result.Unmatched = append(result.Unmatched, sorted[i])
	}

	return result
}

// sortPunches orders by sequence ordinal when every punch carries one,
// otherwise by timestamp. Both sorts are stable.
func sortPunches(punches []punch.Punch) []punch.Punch {
	sorted := slices.Clone(punches)

	allOrdinal := len(sorted) > 0
	for _, p := range sorted {
		if p.SequenceOrdinal == nil {
			allOrdinal = false
			break
		}
	}

	if allOrdinal {
		slices.SortStableFunc(sorted, func(a, b punch.Punch) int {
			return cmp.Compare(*a.SequenceOrdinal, *b.SequenceOrdinal)
		})
		return sorted
	}

	slices.SortStableFunc(sorted, func(a, b punch.Punch) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return sorted
}

// roundMinutes converts a positive duration to whole minutes, rounding half up.
func roundMinutes(d time.Duration) int {
	return int((d + 30*time.Second) / time.Minute)
}

// kindsMismatch flags a pair of canonical kinds that does not read in→out.
// Legacy free-text kinds are never counted.
func kindsMismatch(start, end punch.Kind) bool {
	if !start.IsCanonical() || !end.IsCanonical() {
		return false
	}
	return start.Direction() != punch.DirectionIn || end.Direction() != punch.DirectionOut
}
