package schedule

import (
	"fmt"

	"github.com/cmlabs-hris/attendance-reconciliation/internal/domain/punch"
)

// Flag selects an employee's schedule template.
type Flag string

const (
	FlagStandard Flag = "standard"
	FlagReduced  Flag = "reduced" // interns and other shortened contracts
)

var FlagValues = []string{
	string(FlagStandard),
	string(FlagReduced),
}

// ClockTime is a time of day in the employee-local zone.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Template describes a full working day for one schedule flag.
type Template struct {
	Flag               Flag
	CanonicalKinds     []punch.Kind
	DefaultTimes       map[punch.Kind]ClockTime
	DailyTargetMinutes int

	// Units lists groups of kinds that are only ever synthesized together:
	// if any member already exists for the day, none of the group is created.
	Units [][]punch.Kind
}

// UnitOf returns the synthesis unit containing kind, or nil.
func (t Template) UnitOf(kind punch.Kind) []punch.Kind {
	for _, unit := range t.Units {
		for _, k := range unit {
			if k == kind {
				return unit
			}
		}
	}
	return nil
}

var (
	Standard = Template{
		Flag: FlagStandard,
		CanonicalKinds: []punch.Kind{
			punch.KindEntry,
			punch.KindLunchOut,
			punch.KindLunchIn,
			punch.KindEnd,
		},
		DefaultTimes: map[punch.Kind]ClockTime{
			punch.KindEntry:    {Hour: 7, Minute: 0},
			punch.KindLunchOut: {Hour: 12, Minute: 0},
			punch.KindLunchIn:  {Hour: 13, Minute: 15},
			punch.KindEnd:      {Hour: 17, Minute: 0},
		},
		DailyTargetMinutes: 525, // 8h45m
		Units: [][]punch.Kind{
			{punch.KindLunchOut, punch.KindLunchIn},
		},
	}

	Reduced = Template{
		Flag: FlagReduced,
		CanonicalKinds: []punch.Kind{
			punch.KindEntry,
			punch.KindEnd,
		},
		DefaultTimes: map[punch.Kind]ClockTime{
			punch.KindEntry: {Hour: 8, Minute: 0},
			punch.KindEnd:   {Hour: 14, Minute: 0},
		},
		DailyTargetMinutes: 360, // 6h
	}
)
