package calendar

import "time"

// IsBusinessDay reports whether d falls on Monday through Friday.
// No holiday calendar is applied.
func IsBusinessDay(d Day) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// BusinessDaysBetween counts business days in the inclusive range [start, end].
// A range with start after end is empty.
func BusinessDaysBetween(start, end Day) int {
	if start.After(end) {
		return 0
	}

	total := start.DaysUntil(end) + 1
	count := (total / 7) * 5

	// Whole weeks always contain five business days; walk the remainder.
	d := start.AddDays((total / 7) * 7)
	for i := 0; i < total%7; i++ {
		if IsBusinessDay(d) {
			count++
		}
		d = d.AddDays(1)
	}

	return count
}

// BusinessDays enumerates the business days in [start, end] in ascending order.
func BusinessDays(start, end Day) []Day {
	var days []Day
	for d := start; !d.After(end); d = d.AddDays(1) {
		if IsBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// PreviousBusinessDay returns the closest business day strictly before d.
func PreviousBusinessDay(d Day) Day {
	prev := d.AddDays(-1)
	for !IsBusinessDay(prev) {
		prev = prev.AddDays(-1)
	}
	return prev
}
