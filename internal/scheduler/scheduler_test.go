package scheduler

import (
	"math"
	"testing"

	"github.com/kittclouds/mnemokit/internal/timepoint"
)

func TestReviewNewCardS1(t *testing.T) {
	params := DefaultParams()
	now := timepoint.Round(1, 9)

	card, err := Review(params, Card{}, Easy, now)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if math.Abs(card.Stability-8.2956) > 1e-9 {
		t.Fatalf("Stability = %v, want 8.2956", card.Stability)
	}
	wantD := clamp(params.P[4]-math.Exp(3*params.P[5])+1, 1, 10)
	if math.Abs(card.Difficulty-wantD) > 1e-9 {
		t.Fatalf("Difficulty = %v, want %v", card.Difficulty, wantD)
	}
	if card.Reps != 1 || card.State != Learning {
		t.Fatalf("Reps/State = %v/%v, want 1/Learning", card.Reps, card.State)
	}
}

func TestReviewReinforcementIncreasesStability(t *testing.T) {
	params := DefaultParams()
	t1 := timepoint.Round(1, 9)
	card, err := Review(params, Card{}, Easy, t1)
	if err != nil {
		t.Fatal(err)
	}

	t2 := timepoint.Round(2, 9)
	next, err := Review(params, card, Good, t2)
	if err != nil {
		t.Fatal(err)
	}
	if next.Stability <= card.Stability {
		t.Fatalf("Stability did not increase: %v -> %v", card.Stability, next.Stability)
	}
	if next.Reps != 2 || next.State != Reviewing {
		t.Fatalf("Reps/State = %v/%v, want 2/Review", next.Reps, next.State)
	}
}

func TestReviewFailureReducesStability(t *testing.T) {
	params := DefaultParams()
	t1 := timepoint.Round(1, 9)
	card, _ := Review(params, Card{}, Easy, t1)
	t2 := timepoint.Round(2, 9)
	card, _ = Review(params, card, Good, t2)

	t3 := timepoint.Round(12, 9)
	next, err := Review(params, card, Again, t3)
	if err != nil {
		t.Fatal(err)
	}
	if next.Stability >= card.Stability {
		t.Fatalf("Stability did not decrease on Again: %v -> %v", card.Stability, next.Stability)
	}
	if next.State != Learning {
		t.Fatalf("State = %v, want Learning", next.State)
	}
}

func TestReviewRetrievabilityAnchor(t *testing.T) {
	params := DefaultParams()
	t1 := timepoint.Round(1, 0)
	card, _ := Review(params, Card{}, Good, t1)

	delta := card.Stability
	r := Retrievability(params, card, delta)
	if math.Abs(r-0.9) > 1e-9 {
		t.Fatalf("Retrievability at delta=S = %v, want 0.9", r)
	}
}

func TestReviewInvalidRating(t *testing.T) {
	params := DefaultParams()
	_, err := Review(params, Card{}, Rating(0), timepoint.Round(1, 0))
	if err == nil {
		t.Fatal("expected error for rating 0")
	}
	_, err = Review(params, Card{}, Rating(5), timepoint.Round(1, 0))
	if err == nil {
		t.Fatal("expected error for rating 5")
	}
}

func TestReviewGuaranteesBounds(t *testing.T) {
	params := DefaultParams()
	now := timepoint.Round(1, 0)
	for r := Again; r <= Easy; r++ {
		card, err := Review(params, Card{}, r, now)
		if err != nil {
			t.Fatal(err)
		}
		if card.Stability < 0.1 {
			t.Fatalf("Stability = %v, want >= 0.1", card.Stability)
		}
		if card.Difficulty < 1 || card.Difficulty > 10 {
			t.Fatalf("Difficulty = %v, want in [1,10]", card.Difficulty)
		}
	}
}

func TestReviewNonMonotonicClockTreatsDeltaZero(t *testing.T) {
	params := DefaultParams()
	card, _ := Review(params, Card{}, Good, timepoint.Round(10, 0))
	next, err := Review(params, card, Good, timepoint.Round(2, 0))
	if err != nil {
		t.Fatalf("non-monotonic clock should not error: %v", err)
	}
	if next.Reps != card.Reps+1 {
		t.Fatalf("Reps = %v, want %v", next.Reps, card.Reps+1)
	}
}
