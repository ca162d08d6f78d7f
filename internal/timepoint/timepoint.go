// Package timepoint implements the dual time model shared by every
// scheduling record: a TimePoint is either an absolute instant or a
// discrete (day, hour) round. Both representations may be persisted
// side by side; this package only converts between them for scheduler
// arithmetic, it never coerces one into the other implicitly.
package timepoint

import (
	"time"

	"github.com/kittclouds/mnemokit/internal/kgerrors"
)

// Kind distinguishes which variant of TimePoint is populated.
type Kind int

const (
	KindAbsolute Kind = iota
	KindRound
)

// TimePoint is a tagged union: either an absolute instant or a
// (day, hour) round. Exactly one of the two representations is
// authoritative per value; Day/Hour are meaningless when Kind is
// KindAbsolute and vice versa.
type TimePoint struct {
	Kind   Kind
	At     time.Time
	Day    uint32
	Hour   uint32
}

// Absolute builds a TimePoint from a wall-clock instant.
func Absolute(at time.Time) TimePoint {
	return TimePoint{Kind: KindAbsolute, At: at}
}

// Round builds a TimePoint from a (day, hour) tuple. Day must be >= 1
// and Hour in [0,23]; use Validate to check before relying on it.
func Round(day, hour uint32) TimePoint {
	return TimePoint{Kind: KindRound, Day: day, Hour: hour}
}

// Validate enforces the boundary rules from spec.md §8 property 12:
// (day, hour) = (1, 0) is accepted; day 0 is rejected.
func (t TimePoint) Validate() error {
	if t.Kind != KindRound {
		return nil
	}
	if t.Day < 1 {
		return kgerrors.InvalidInput("day", "must be >= 1")
	}
	if t.Hour > 23 {
		return kgerrors.InvalidInput("hour", "must be in [0,23]")
	}
	return nil
}

// FractionalDays converts a round into day + hour/24, the form the
// scheduler uses for all elapsed-time arithmetic.
func (t TimePoint) FractionalDays() float64 {
	return float64(t.Day) + float64(t.Hour)/24.0
}

// ElapsedDays computes the non-negative elapsed time between a prior
// review point (t) and the current point (now), in fractional days.
// Mixing representations is permitted: whichever representation is
// populated on BOTH endpoints is used; if both are populated the round
// representation wins, since it is what scenario S1 requires (§9
// Design Notes: never silently coerce rounds to arbitrary absolute
// instants). A non-monotonic clock (now before t) yields 0, not an
// error, per spec.md §4.1 failure modes.
func ElapsedDays(now, t TimePoint) float64 {
	var delta float64
	switch {
	case now.Kind == KindRound && t.Kind == KindRound:
		delta = now.FractionalDays() - t.FractionalDays()
	case now.Kind == KindAbsolute && t.Kind == KindAbsolute:
		delta = now.At.Sub(t.At).Hours() / 24.0
	case now.Kind == KindRound:
		delta = now.FractionalDays() - t.FractionalDays()
	default:
		delta = now.FractionalDays() - t.FractionalDays()
	}
	if delta < 0 {
		return 0
	}
	return delta
}

// IsZero reports whether a TimePoint was never set.
func (t TimePoint) IsZero() bool {
	return t.Kind == KindAbsolute && t.At.IsZero() && t.Day == 0 && t.Hour == 0
}
