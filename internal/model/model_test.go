package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic builds samples where the target is 5 for Cafe, 7 for Shoes and
// 6 for Books, plus a small location effect.
func synthetic(n int) []Sample {
	cats := []string{"Books", "Cafe", "Shoes"}
	base := map[string]float64{"Books": 6, "Cafe": 5, "Shoes": 7}
	out := make([]Sample, n)
	for i := range out {
		c := cats[i%len(cats)]
		x := float64(i%7) - 3
		out[i] = Sample{
			Location:    []float64{x, float64(i % 2)},
			SubCategory: c,
			Share:       0.1,
			Target:      base[c] + 0.2*x,
		}
	}
	return out
}

func TestFitRidge_OrdersCategories(t *testing.T) {
	m, err := FitRidge(synthetic(60), 0.1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Books", "Cafe", "Shoes"}, m.Categories())

	loc := []float64{0, 0}
	cafe, ok := m.Predict(loc, "Cafe", 0.1)
	require.True(t, ok)
	shoes, _ := m.Predict(loc, "Shoes", 0.1)
	books, _ := m.Predict(loc, "Books", 0.1)
	assert.Greater(t, shoes, books)
	assert.Greater(t, books, cafe)
	assert.InDelta(t, 5, cafe, 0.2)
}

func TestFitRidge_LocationEffect(t *testing.T) {
	m, err := FitRidge(synthetic(60), 0.1)
	require.NoError(t, err)
	lo, _ := m.Predict([]float64{-3, 0}, "Cafe", 0.1)
	hi, _ := m.Predict([]float64{3, 0}, "Cafe", 0.1)
	assert.Greater(t, hi, lo)
}

func TestPredict_UnknownCategory(t *testing.T) {
	m, err := FitRidge(synthetic(12), 1)
	require.NoError(t, err)
	v, ok := m.Predict([]float64{0, 0}, "Jewellery", 0.1)
	assert.False(t, ok)
	assert.True(t, math.IsNaN(v))
	_, ok = m.Predict([]float64{0}, "Cafe", 0.1)
	assert.False(t, ok, "wrong location width")
}

func TestFitRidge_InsufficientData(t *testing.T) {
	_, err := FitRidge(synthetic(1), 1)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestFitRidge_RejectsNonPositivePenalty(t *testing.T) {
	_, err := FitRidge(synthetic(10), 0)
	assert.Error(t, err)
}

func TestFitRidge_SingleCategoryConstantLocation(t *testing.T) {
	samples := []Sample{
		{Location: []float64{1}, SubCategory: "Cafe", Target: 4},
		{Location: []float64{1}, SubCategory: "Cafe", Target: 6},
	}
	m, err := FitRidge(samples, 1)
	require.NoError(t, err)
	v, ok := m.Predict([]float64{1}, "Cafe", 0)
	require.True(t, ok)
	assert.False(t, math.IsNaN(v))
}

func TestSelect_Deterministic(t *testing.T) {
	opt := Options{Seed: 42, Folds: 5, Lambdas: []float64{0.1, 1, 10}}
	a, err := Select(synthetic(60), opt)
	require.NoError(t, err)
	b, err := Select(synthetic(60), opt)
	require.NoError(t, err)

	assert.True(t, a.CrossValidated)
	assert.Equal(t, a.Model.Lambda, b.Model.Lambda)
	assert.Equal(t, a.CVRMSE, b.CVRMSE)
	assert.Equal(t, a.Model.coef, b.Model.coef)
	assert.Greater(t, a.TrainR2, 0.9)
}

func TestSelect_PrefersSmallPenaltyOnCleanData(t *testing.T) {
	fit, err := Select(synthetic(60), Options{Seed: 1, Folds: 3, Lambdas: []float64{1000, 0.01}})
	require.NoError(t, err)
	assert.Equal(t, 0.01, fit.Model.Lambda)
}

func TestSelect_TooFewForFolds(t *testing.T) {
	fit, err := Select(synthetic(6), Options{Seed: 42, Folds: 5, Lambdas: []float64{3, 1}})
	require.NoError(t, err)
	assert.False(t, fit.CrossValidated)
	assert.Equal(t, 3.0, fit.Model.Lambda)
	assert.Zero(t, fit.CVRMSE)
}

func TestSelect_BadOptions(t *testing.T) {
	_, err := Select(synthetic(20), Options{Folds: 5})
	assert.Error(t, err)
	_, err = Select(synthetic(20), Options{Folds: 1, Lambdas: []float64{1}})
	assert.Error(t, err)
}

func TestAssignFolds_Balanced(t *testing.T) {
	folds := assignFolds(23, 5, 42)
	counts := make([]int, 5)
	for _, f := range folds {
		counts[f]++
	}
	for f, c := range counts {
		assert.True(t, c == 4 || c == 5, "fold %d has %d samples", f, c)
	}
	assert.Equal(t, folds, assignFolds(23, 5, 42))
}

func TestMetrics(t *testing.T) {
	y := []float64{1, 2, 3}
	assert.Zero(t, RMSE(y, y))
	assert.Equal(t, 1.0, R2(y, y))
	assert.Equal(t, 0.0, R2([]float64{2, 2}, []float64{1, 3}))
	assert.InDelta(t, 1, RMSE([]float64{0, 0}, []float64{1, -1}), 1e-12)
}
