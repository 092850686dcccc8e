// Package elo implements the logistic Elo rating model used for both the
// overall and the per-surface player ratings.
package elo

import (
	"errors"
	"math"
)

const (
	// K is the update step applied to every rated match.
	K = 32.0
	// InitialRating is assigned to players without rated history.
	InitialRating = 1500.0
)

// ErrNonFiniteRating is returned when a NaN or infinite rating reaches the
// engine. It indicates corrupted state, never bad input data.
var ErrNonFiniteRating = errors.New("elo: non-finite rating")

// Expected returns the probability that a player rated own beats a player
// rated opponent.
func Expected(own, opponent float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponent-own)/400))
}

// Update returns own's rating after a match against opponent. Both ratings
// must be the values from before the match.
func Update(own, opponent float64, won bool) (float64, error) {
	if !finite(own) || !finite(opponent) {
		return own, ErrNonFiniteRating
	}
	actual := 0.0
	if won {
		actual = 1.0
	}
	return own + K*(actual-Expected(own, opponent)), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
