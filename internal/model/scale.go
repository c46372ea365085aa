package model

import "math"

// StandardScaler centres each column on its mean and divides by its
// population standard deviation. Constant columns keep a unit scale.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes column statistics of X. X must be non-empty.
func FitScaler(X [][]float64) *StandardScaler {
	r, c := len(X), len(X[0])
	s := &StandardScaler{Mean: make([]float64, c), Std: make([]float64, c)}
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			s.Mean[j] += X[i][j]
		}
		s.Mean[j] /= float64(r)
		v := 0.0
		for i := 0; i < r; i++ {
			d := X[i][j] - s.Mean[j]
			v += d * d
		}
		s.Std[j] = math.Sqrt(v / float64(r))
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s
}

// Transform scales one row into a new slice.
func (s *StandardScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}
