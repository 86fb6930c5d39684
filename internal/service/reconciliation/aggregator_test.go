package reconciliation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/reconciliation"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-reconciliation/internal/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interval(day calendar.Day, minutes int) reconciliation.WorkInterval {
	start := at(day, 8, 0)
	return reconciliation.WorkInterval{
		Start:           start,
		End:             start.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
		CalendarDay:     day,
	}
}

// A full standard day meets its one-day target exactly
func TestReportAggregator_Aggregate_StandardDay(t *testing.T) {
	resolver := schedule.DefaultResolver()
	pairing := NewPairingEngine(nil)
	aggregator := NewReportAggregator(resolver)
	emp := testEmployee("emp-1", schedule.FlagStandard)

	result := pairing.Pair(standardDay(testMonday))
	report := aggregator.Aggregate(emp, result.Intervals, testMonday, testMonday)

	assert.Equal(t, 525, report.TotalMinutes)
	assert.Equal(t, 1, report.DaysWorked)
	assert.Equal(t, 525.0, report.AverageMinutesPerDay)
	assert.Equal(t, 1, report.BusinessDaysInRange)
	assert.Equal(t, 525, report.TargetMinutes)
	assert.Equal(t, 0, report.BalanceMinutes)
	assert.Equal(t, schedule.FlagStandard, report.ScheduleFlag)
	assert.Len(t, report.Intervals, 2)
}

// A weekend-only range has no target regardless of the template
func TestReportAggregator_Aggregate_WeekendRange(t *testing.T) {
	aggregator := NewReportAggregator(schedule.DefaultResolver())
	saturday := testMonday.AddDays(-2)
	sunday := testMonday.AddDays(-1)

	for _, flag := range []schedule.Flag{schedule.FlagStandard, schedule.FlagReduced} {
		report := aggregator.Aggregate(testEmployee("emp-1", flag), []reconciliation.WorkInterval{interval(saturday, 120)}, saturday, sunday)

		assert.Equal(t, 0, report.BusinessDaysInRange)
		assert.Equal(t, 0, report.TargetMinutes)
		assert.Equal(t, 120, report.TotalMinutes)
		assert.Equal(t, -120, report.BalanceMinutes)
	}
}

func TestReportAggregator_Aggregate_NoIntervals(t *testing.T) {
	aggregator := NewReportAggregator(schedule.DefaultResolver())

	report := aggregator.Aggregate(testEmployee("emp-1", schedule.FlagReduced), nil, testMonday, testMonday.AddDays(4))

	assert.Equal(t, 0, report.TotalMinutes)
	assert.Equal(t, 0, report.DaysWorked)
	assert.Equal(t, 0.0, report.AverageMinutesPerDay)
	assert.Equal(t, 5, report.BusinessDaysInRange)
	assert.Equal(t, 1800, report.TargetMinutes)
	assert.Equal(t, 1800, report.BalanceMinutes)
	assert.NotNil(t, report.Intervals)
}

func TestReportAggregator_Aggregate_IgnoresIntervalsOutsideRange(t *testing.T) {
	aggregator := NewReportAggregator(schedule.DefaultResolver())
	intervals := []reconciliation.WorkInterval{
		interval(testMonday.AddDays(-1), 60),
		interval(testMonday, 240),
		interval(testMonday, 200),
		interval(testMonday.AddDays(1), 100),
		interval(testMonday.AddDays(2), 500),
	}

	report := aggregator.Aggregate(testEmployee("emp-1", schedule.FlagStandard), intervals, testMonday, testMonday.AddDays(1))

	assert.Equal(t, 540, report.TotalMinutes)
	assert.Equal(t, 2, report.DaysWorked)
	assert.Equal(t, 270.0, report.AverageMinutesPerDay)
	assert.Len(t, report.Intervals, 3)
	assert.Equal(t, 1050, report.TargetMinutes)
	assert.Equal(t, 510, report.BalanceMinutes)
}

func TestReportAggregator_Aggregate_UnknownFlagUsesStandardTarget(t *testing.T) {
	aggregator := NewReportAggregator(schedule.DefaultResolver())

	report := aggregator.Aggregate(testEmployee("emp-1", "contractor"), nil, testMonday, testMonday)

	assert.Equal(t, schedule.FlagStandard, report.ScheduleFlag)
	assert.Equal(t, 525, report.DailyTargetMinutes)
	assert.Equal(t, 525, report.TargetMinutes)
}

func TestReportAggregator_Aggregate_DoesNotMutateInput(t *testing.T) {
	aggregator := NewReportAggregator(schedule.DefaultResolver())
	intervals := []reconciliation.WorkInterval{interval(testMonday, 60), interval(testMonday.AddDays(-7), 30)}
	original := append([]reconciliation.WorkInterval(nil), intervals...)

	aggregator.Aggregate(testEmployee("emp-1", schedule.FlagStandard), intervals, testMonday, testMonday)

	assert.Equal(t, original, intervals)
}

// balance = target - total for arbitrary fixtures
func TestReportAggregator_Aggregate_BalanceIdentity(t *testing.T) {
	aggregator := NewReportAggregator(schedule.DefaultResolver())
	rng := rand.New(rand.NewSource(99))
	flags := []schedule.Flag{schedule.FlagStandard, schedule.FlagReduced, ""}

	for iter := 0; iter < 200; iter++ {
		start := testMonday.AddDays(rng.Intn(60) - 30)
		end := start.AddDays(rng.Intn(40) - 5)

		var intervals []reconciliation.WorkInterval
		n := rng.Intn(30)
		for i := 0; i < n; i++ {
			intervals = append(intervals, interval(start.AddDays(rng.Intn(45)-2), 1+rng.Intn(600)))
		}

		report := aggregator.Aggregate(testEmployee("emp-1", flags[rng.Intn(len(flags))]), intervals, start, end)

		require.Equal(t, report.TargetMinutes-report.TotalMinutes, report.BalanceMinutes)
		require.Equal(t, report.BusinessDaysInRange*report.DailyTargetMinutes, report.TargetMinutes)
	}
}

func TestWithPairingGaps(t *testing.T) {
	pairing := NewPairingEngine(nil)
	aggregator := NewReportAggregator(schedule.DefaultResolver())
	emp := testEmployee("emp-1", schedule.FlagStandard)

	punches := standardDay(testMonday)
	// Tuesday: a >24h pair followed by a lone punch.
	tuesday := testMonday.AddDays(1)
	punches = append(punches,
		newPunch(punch.KindEntry, at(tuesday, 7, 0)),
		newPunch(punch.KindEnd, at(tuesday.AddDays(1), 8, 0)),
		newPunch(punch.KindEntry, at(tuesday.AddDays(2), 7, 0)),
	)

	result := pairing.Pair(punches)
	report := WithPairingGaps(aggregator.Aggregate(emp, result.Intervals, testMonday, tuesday.AddDays(2)), result)

	assert.Equal(t, 525, report.TotalMinutes)
	assert.Equal(t, 1, report.UnmatchedPunches)
	assert.Equal(t, 3, report.ExcludedPunches)
	require.Len(t, report.DataGaps, 2)
	assert.Equal(t, reconciliation.GapUnmatchedPunch, report.DataGaps[0].Reason)
	assert.Equal(t, reconciliation.GapExceedsDay, report.DataGaps[1].Reason)
}
