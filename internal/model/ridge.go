// Package model fits the density model used to price a tenant category at
// a given location: a ridge regression of log1p(sales density) on scaled
// location features, the sub-category (one-hot) and its share of the mall.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientData is returned when there are too few samples to fit.
var ErrInsufficientData = errors.New("not enough training samples")

// Sample is one training observation.
type Sample struct {
	Location    []float64
	SubCategory string
	Share       float64
	// Target is log1p(sales density).
	Target float64
}

// Ridge is a fitted model. The intercept is not penalised.
type Ridge struct {
	Lambda float64

	scaler   *StandardScaler
	vocab    []string
	catIndex map[string]int
	nLoc     int
	coef     []float64 // intercept, location..., share, one-hot...
}

// Categories returns the sub-categories seen during fitting, sorted.
func (m *Ridge) Categories() []string {
	return append([]string(nil), m.vocab...)
}

// Knows reports whether subCat was seen during fitting.
func (m *Ridge) Knows(subCat string) bool {
	_, ok := m.catIndex[subCat]
	return ok
}

// NumFeatures is the width of the design row, intercept included.
func (m *Ridge) NumFeatures() int { return len(m.coef) }

// Predict returns the predicted log1p density for subCat at a location with
// the given mall share. ok is false for an unseen sub-category or a
// location of the wrong width.
func (m *Ridge) Predict(location []float64, subCat string, share float64) (float64, bool) {
	if !m.Knows(subCat) || len(location) != m.nLoc {
		return math.NaN(), false
	}
	return m.predict(location, subCat, share), true
}

// predict scores a row, treating an unseen sub-category as the baseline.
func (m *Ridge) predict(location []float64, subCat string, share float64) float64 {
	row := m.design(location, subCat, share)
	y := 0.0
	for j, v := range row {
		y += m.coef[j] * v
	}
	return y
}

func (m *Ridge) design(location []float64, subCat string, share float64) []float64 {
	row := make([]float64, 1+m.nLoc+1+len(m.vocab))
	row[0] = 1
	copy(row[1:], m.scaler.Transform(location))
	row[1+m.nLoc] = share
	if i, ok := m.catIndex[subCat]; ok {
		row[2+m.nLoc+i] = 1
	}
	return row
}

// FitRidge fits a ridge regression with penalty lambda on samples.
func FitRidge(samples []Sample, lambda float64) (*Ridge, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: have %d, need at least 2", ErrInsufficientData, len(samples))
	}
	if lambda <= 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return nil, fmt.Errorf("ridge penalty must be positive and finite, got %g", lambda)
	}
	nLoc := len(samples[0].Location)
	locs := make([][]float64, len(samples))
	seen := map[string]struct{}{}
	for i, s := range samples {
		if len(s.Location) != nLoc {
			return nil, fmt.Errorf("sample %d has %d location features, want %d", i, len(s.Location), nLoc)
		}
		locs[i] = s.Location
		seen[s.SubCategory] = struct{}{}
	}
	vocab := make([]string, 0, len(seen))
	for c := range seen {
		vocab = append(vocab, c)
	}
	sort.Strings(vocab)
	catIndex := make(map[string]int, len(vocab))
	for i, c := range vocab {
		catIndex[c] = i
	}

	m := &Ridge{
		Lambda:   lambda,
		scaler:   FitScaler(locs),
		vocab:    vocab,
		catIndex: catIndex,
		nLoc:     nLoc,
	}

	p := 1 + nLoc + 1 + len(vocab)
	x := mat.NewDense(len(samples), p, nil)
	y := mat.NewVecDense(len(samples), nil)
	for i, s := range samples {
		x.SetRow(i, m.design(s.Location, s.SubCategory, s.Share))
		y.SetVec(i, s.Target)
	}

	var a mat.Dense
	a.Mul(x.T(), x)
	for j := 1; j < p; j++ {
		a.Set(j, j, a.At(j, j)+lambda)
	}
	var b mat.VecDense
	b.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&a, &b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("solving ridge system: %w", err)
		}
	}
	m.coef = make([]float64, p)
	for j := range m.coef {
		v := beta.AtVec(j)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("solving ridge system: coefficient %d is not finite", j)
		}
		m.coef[j] = v
	}
	return m, nil
}
