package punch

import (
	"time"
)

// Kind identifies what a punch marks in the working day. Values outside the
// canonical set come from legacy data and are kept verbatim for display.
type Kind string

const (
	KindEntry    Kind = "entry"
	KindLunchOut Kind = "lunch_out"
	KindLunchIn  Kind = "lunch_in"
	KindEnd      Kind = "end"
)

var canonicalKinds = []Kind{KindEntry, KindLunchOut, KindLunchIn, KindEnd}

// CanonicalKinds returns every kind the engine understands, in day order.
func CanonicalKinds() []Kind {
	out := make([]Kind, len(canonicalKinds))
	copy(out, canonicalKinds)
	return out
}

func (k Kind) IsCanonical() bool {
	for _, c := range canonicalKinds {
		if k == c {
			return true
		}
	}
	return false
}

// Direction tells whether a punch opens or closes a stretch of work.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionIn
	DirectionOut
)

func (k Kind) Direction() Direction {
	switch k {
	case KindEntry, KindLunchIn:
		return DirectionIn
	case KindLunchOut, KindEnd:
		return DirectionOut
	default:
		return DirectionUnknown
	}
}

type Punch struct {
	ID              string
	EmployeeID      string
	CompanyID       string
	Timestamp       time.Time
	Kind            Kind
	SequenceOrdinal *int
	Note            *string
	CreatedAt       time.Time
}

// IsPersisted reports whether the store has assigned an id to p.
func (p Punch) IsPersisted() bool {
	return p.ID != ""
}
