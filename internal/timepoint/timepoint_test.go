package timepoint

import (
	"testing"
	"time"
)

func TestValidateRound(t *testing.T) {
	cases := []struct {
		name    string
		tp      TimePoint
		wantErr bool
	}{
		{"day1hour0 accepted", Round(1, 0), false},
		{"day0 rejected", Round(0, 9), true},
		{"hour24 rejected", Round(1, 24), true},
		{"absolute always valid", Absolute(time.Now()), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.tp.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestElapsedDaysRound(t *testing.T) {
	prev := Round(1, 9)
	now := Round(2, 9)
	if got := ElapsedDays(now, prev); got != 1 {
		t.Fatalf("ElapsedDays = %v, want 1", got)
	}
}

func TestElapsedDaysNonMonotonic(t *testing.T) {
	prev := Round(5, 0)
	now := Round(2, 0)
	if got := ElapsedDays(now, prev); got != 0 {
		t.Fatalf("ElapsedDays = %v, want 0 for non-monotonic clock", got)
	}
}

func TestElapsedDaysAbsolute(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := Absolute(base)
	now := Absolute(base.Add(36 * time.Hour))
	got := ElapsedDays(now, prev)
	if got != 1.5 {
		t.Fatalf("ElapsedDays = %v, want 1.5", got)
	}
}

func TestFractionalDays(t *testing.T) {
	tp := Round(3, 12)
	if got := tp.FractionalDays(); got != 3.5 {
		t.Fatalf("FractionalDays = %v, want 3.5", got)
	}
}
