package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Day is a civil calendar date with no time-of-day and no location.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a "YYYY-MM-DD" string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DayOf(t), nil
}

func (d Day) String() string {
	return d.midnightUTC().Format(dateLayout)
}

func (d Day) IsZero() bool {
	return d == Day{}
}

// Start returns the first instant of d in loc.
func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At returns the instant at hour:minute of d in loc.
func (d Day) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// AddDays returns d shifted by n days; n may be negative.
func (d Day) AddDays(n int) Day {
	return DayOf(d.midnightUTC().AddDate(0, 0, n))
}

func (d Day) Weekday() time.Weekday {
	return d.midnightUTC().Weekday()
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after u.
func (d Day) Compare(u Day) int {
	return d.midnightUTC().Compare(u.midnightUTC())
}

func (d Day) Before(u Day) bool { return d.Compare(u) < 0 }
func (d Day) After(u Day) bool  { return d.Compare(u) > 0 }

// Within reports whether d lies in the inclusive range [start, end].
func (d Day) Within(start, end Day) bool {
	return !d.Before(start) && !d.After(end)
}

// DaysUntil returns the number of days from d to u (negative when u is before d).
func (d Day) DaysUntil(u Day) int {
	return int(u.midnightUTC().Sub(d.midnightUTC()) / (24 * time.Hour))
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Day) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DayBoundary maps an absolute instant to the employee-local calendar day it belongs to.
type DayBoundary func(t time.Time) Day

// InLocation buckets instants by their calendar date in loc.
func InLocation(loc *time.Location) DayBoundary {
	if loc == nil {
		loc = time.UTC
	}
	return func(t time.Time) Day {
		return DayOf(t.In(loc))
	}
}
