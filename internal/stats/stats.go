// Package stats holds the small descriptive statistics the feature and
// scoring stages share. All functions leave their input untouched.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean computes the average of a slice; zero when empty.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// SampleVariance computes the n-1 variance. ok is false for fewer than two values.
func SampleVariance(x []float64) (v float64, ok bool) {
	if len(x) < 2 {
		return 0, false
	}
	return stat.Variance(x, nil), true
}

// Median returns the median value of the slice (allocates a copy).
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	cp := sorted(x)
	mid := n >> 1
	if n&1 == 0 {
		return (cp[mid-1] + cp[mid]) * 0.5
	}
	return cp[mid]
}

// Percentile returns the p-th percentile (0 <= p <= 100) using linear
// interpolation between closest ranks.
func Percentile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	cp := sorted(x)
	if p <= 0 {
		return cp[0]
	}
	if p >= 100 {
		return cp[n-1]
	}
	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

// PercentRank returns where v sits within x on a 0-100 scale, counting
// ties as half: 100 * (less + 0.5*equal) / n.
func PercentRank(x []float64, v float64) float64 {
	if len(x) == 0 {
		return 0
	}
	less, equal := 0, 0
	for _, xi := range x {
		switch {
		case xi < v:
			less++
		case xi == v:
			equal++
		}
	}
	return 100 * (float64(less) + 0.5*float64(equal)) / float64(len(x))
}

// Aggregate applies the named central statistic ("median" or "mean").
func Aggregate(strategy string, x []float64) float64 {
	if strategy == "mean" {
		return Mean(x)
	}
	return Median(x)
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sorted(x []float64) []float64 {
	cp := make([]float64, len(x))
	copy(cp, x)
	sort.Float64s(cp)
	return cp
}
