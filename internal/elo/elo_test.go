package elo

import (
	"errors"
	"math"
	"testing"
)

func TestExpected(t *testing.T) {
	tests := []struct {
		name     string
		own, opp float64
		want     float64
	}{
		{"Equal", 1500, 1500, 0.5},
		{"FourHundredAbove", 1900, 1500, 10.0 / 11.0},
		{"FourHundredBelow", 1500, 1900, 1.0 / 11.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expected(tt.own, tt.opp); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Expected(%v, %v) = %v, want %v", tt.own, tt.opp, got, tt.want)
			}
		})
	}
}

func TestUpdateEqualRatings(t *testing.T) {
	win, err := Update(InitialRating, InitialRating, true)
	if err != nil {
		t.Fatal(err)
	}
	if win != 1516 {
		t.Errorf("winner rating = %v, want 1516", win)
	}

	loss, err := Update(InitialRating, InitialRating, false)
	if err != nil {
		t.Fatal(err)
	}
	if loss != 1484 {
		t.Errorf("loser rating = %v, want 1484", loss)
	}
}

func TestUpdateZeroSum(t *testing.T) {
	pairs := [][2]float64{
		{1500, 1500},
		{1720.5, 1388.25},
		{1200, 2100},
		{2050, 2049},
	}

	for _, p := range pairs {
		ra, rb := p[0], p[1]
		for _, aWins := range []bool{true, false} {
			ra2, err := Update(ra, rb, aWins)
			if err != nil {
				t.Fatal(err)
			}
			rb2, err := Update(rb, ra, !aWins)
			if err != nil {
				t.Fatal(err)
			}
			if delta := (ra2 - ra) + (rb2 - rb); math.Abs(delta) > 1e-9 {
				t.Errorf("ratings %v/%v aWins=%v: net change %v, want 0", ra, rb, aWins, delta)
			}
		}
	}
}

func TestUpdateNonFinite(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := Update(bad, InitialRating, true); !errors.Is(err, ErrNonFiniteRating) {
			t.Errorf("Update(%v, ...) err = %v, want ErrNonFiniteRating", bad, err)
		}
		if _, err := Update(InitialRating, bad, true); !errors.Is(err, ErrNonFiniteRating) {
			t.Errorf("Update(..., %v) err = %v, want ErrNonFiniteRating", bad, err)
		}
	}
}
