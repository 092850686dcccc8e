package model

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyMatrix is returned when fitting on a nil matrix or one with no rows.
var ErrEmptyMatrix = errors.New("model: empty feature matrix")

// FitScaler computes per-column means and population standard deviations.
// Constant columns get a scale of 1 so they standardize to 0.
func FitScaler(x mat.Matrix) (Scaler, error) {
	if d, ok := x.(*mat.Dense); x == nil || (ok && d == nil) {
		return Scaler{}, ErrEmptyMatrix
	}
	rows, cols := x.Dims()
	if rows == 0 {
		return Scaler{}, ErrEmptyMatrix
	}

	s := Scaler{Mean: make([]float64, cols), Scale: make([]float64, cols)}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)

		mean, err := stats.Mean(col)
		if err != nil {
			return Scaler{}, fmt.Errorf("column %d mean: %w", j, err)
		}
		sd, err := stats.StandardDeviation(col)
		if err != nil {
			return Scaler{}, fmt.Errorf("column %d std dev: %w", j, err)
		}
		if sd == 0 {
			sd = 1
		}
		s.Mean[j], s.Scale[j] = mean, sd
	}
	return s, nil
}

// Transform returns a standardized copy of x.
func (s Scaler) Transform(x mat.Matrix) *mat.Dense {
	rows, cols := x.Dims()
	if rows == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		if s.Scale[j] == 0 {
			return 0
		}
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return out
}
