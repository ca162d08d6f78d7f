// Package scheduler implements the per-entity spaced-repetition memory
// scheduler: a pure, side-effect-free transformer from (stability,
// difficulty, last review, repetition count, state) plus a rating and
// a time point to the next such state. It has no I/O and no package
// state; every caller supplies its own Params.
package scheduler

import (
	"math"

	"github.com/kittclouds/mnemokit/internal/kgerrors"
	"github.com/kittclouds/mnemokit/internal/timepoint"
)

// Rating is the caller's recall judgment for a review.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

func (r Rating) valid() bool { return r >= Again && r <= Easy }

// State is the coarse lifecycle stage of a scheduled entity.
type State int

const (
	New State = iota
	Learning
	Reviewing
)

// Card is the scheduling state carried per node. Reps = 0 means New
// regardless of the State field, matching spec.md's "reps = 0 implies
// New" rule; State is retained so Learning/Review can be reported
// back to callers without recomputation.
type Card struct {
	Stability  float64
	Difficulty float64
	LastReview timepoint.TimePoint
	Reps       int
	State      State
}

// Params holds the twenty-one tunable FSRS-style weights. Values are a
// construction-time option, never package globals.
type Params struct {
	P [21]float64
}

// DefaultParams returns the default weight vector from the design
// notes, required for reproducible scheduling across implementations.
func DefaultParams() Params {
	return Params{P: [21]float64{
		0.212, 1.2931, 2.3065, 8.2956, 6.4133, 0.8334, 3.0194, 0.001,
		1.8722, 0.1666, 0.796, 1.4835, 0.0614, 0.2629, 1.6483, 0.6014,
		1.8729, 0.5425, 0.0912, 0.0658, 0.1542,
	}}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Review advances a card given a rating observed at time point now.
// It validates the rating and the input card before doing any
// arithmetic, and never returns a non-finite Stability/Difficulty.
func Review(params Params, card Card, rating Rating, now timepoint.TimePoint) (Card, error) {
	if !rating.valid() {
		return Card{}, kgerrors.InvalidInput("rating", "must be in [1,4]")
	}
	if err := now.Validate(); err != nil {
		return Card{}, err
	}
	if card.Reps > 0 {
		if math.IsNaN(card.Stability) || math.IsInf(card.Stability, 0) || card.Stability < 0 {
			return Card{}, kgerrors.InvalidInput("stability", "must be a non-negative finite number")
		}
		if math.IsNaN(card.Difficulty) || math.IsInf(card.Difficulty, 0) || card.Difficulty < 1 || card.Difficulty > 10 {
			return Card{}, kgerrors.InvalidInput("difficulty", "must be in [1,10]")
		}
	}

	p := params.P

	if card.Reps == 0 {
		sNew := p[rating-1]
		dNew := clamp(p[4]-math.Exp(p[5]*float64(rating-1))+1, 1, 10)
		return Card{
			Stability:  math.Max(sNew, 0.1),
			Difficulty: dNew,
			LastReview: now,
			Reps:       1,
			State:      Learning,
		}, nil
	}

	delta := timepoint.ElapsedDays(now, card.LastReview)

	w := p[20]
	factor := math.Pow(0.9, -1/w) - 1
	r := math.Pow(1+factor*delta/card.Stability, -w)

	d0Four := clamp(p[4]-math.Exp(3*p[5])+1, 1, 10)
	deltaD := -p[6] * (float64(rating) - 3)
	dPrime := card.Difficulty + deltaD*(10-card.Difficulty)/9
	dNew := clamp(p[7]*d0Four+(1-p[7])*dPrime, 1, 10)

	var sNew float64
	var stateNew State

	switch {
	case delta < 1:
		sNew = card.Stability * math.Exp(p[17]*(float64(rating)-3+p[18])) * math.Pow(card.Stability, -p[19])
		stateNew = card.State
		if rating == Again {
			stateNew = Learning
		} else {
			stateNew = Reviewing
		}
	case rating == Again:
		sNew = p[11] * math.Pow(dNew, -p[12]) * (math.Pow(card.Stability+1, p[13]) - 1) * math.Exp((1-r)*p[14])
		stateNew = Learning
	default:
		pen := 1.0
		if rating == Hard {
			pen = p[15]
		}
		bon := 1.0
		if rating == Easy {
			bon = p[16]
		}
		mult := 1 + math.Exp(p[8])*(11-dNew)*math.Pow(card.Stability, -p[9])*(math.Exp((1-r)*p[10])-1)*pen*bon
		sNew = card.Stability * mult
		stateNew = Reviewing
	}

	if math.IsNaN(sNew) || math.IsInf(sNew, 0) {
		sNew = card.Stability
	}
	sNew = math.Max(sNew, 0.1)
	if rating >= Hard && delta >= 1 && sNew < card.Stability {
		sNew = card.Stability
	}

	return Card{
		Stability:  sNew,
		Difficulty: dNew,
		LastReview: now,
		Reps:       card.Reps + 1,
		State:      stateNew,
	}, nil
}

// Retrievability computes R at elapsed time delta (in days) since a
// card's last review, using the same anchor curve Review uses
// internally. Exposed so callers can rank or decay-weight context
// rows without re-deriving the formula.
func Retrievability(params Params, card Card, delta float64) float64 {
	if card.Stability <= 0 {
		return 0
	}
	w := params.P[20]
	factor := math.Pow(0.9, -1/w) - 1
	return math.Pow(1+factor*delta/card.Stability, -w)
}
