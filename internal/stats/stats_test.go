package stats

import (
	"math"
	"testing"
)

func TestMedian_OddEven(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("Median odd = %g, want 2", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("Median even = %g, want 2.5", got)
	}
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil) = %g, want 0", got)
	}
}

func TestMedian_DoesNotMutate(t *testing.T) {
	x := []float64{3, 1, 2}
	Median(x)
	if x[0] != 3 || x[1] != 1 || x[2] != 2 {
		t.Errorf("input mutated: %v", x)
	}
}

func TestPercentile_Interpolates(t *testing.T) {
	x := []float64{10, 20, 30, 40, 50}
	cases := []struct {
		p, want float64
	}{
		{0, 10},
		{25, 20},
		{20, 18},
		{50, 30},
		{100, 50},
	}
	for _, c := range cases {
		if got := Percentile(x, c.p); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Percentile(%g) = %g, want %g", c.p, got, c.want)
		}
	}
}

func TestPercentile_Empty(t *testing.T) {
	if got := Percentile(nil, 50); !math.IsNaN(got) {
		t.Errorf("Percentile(nil) = %g, want NaN", got)
	}
}

func TestPercentile_SingleValue(t *testing.T) {
	if got := Percentile([]float64{7}, 20); got != 7 {
		t.Errorf("Percentile single = %g, want 7", got)
	}
}

func TestPercentRank(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	if got := PercentRank(x, 1); got != 12.5 {
		t.Errorf("PercentRank(1) = %g, want 12.5", got)
	}
	if got := PercentRank(x, 4); got != 87.5 {
		t.Errorf("PercentRank(4) = %g, want 87.5", got)
	}
	if got := PercentRank(nil, 4); got != 0 {
		t.Errorf("PercentRank(nil) = %g, want 0", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{2, 4, 4, 4, 5, 5, 7, 9}); got != 5 {
		t.Errorf("Mean = %g, want 5", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %g, want 0", got)
	}
}

func TestSampleVariance(t *testing.T) {
	v, ok := SampleVariance([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !ok {
		t.Fatal("expected variance to be available")
	}
	if math.Abs(v-32.0/7.0) > 1e-9 {
		t.Errorf("SampleVariance = %g, want %g", v, 32.0/7.0)
	}
	if _, ok := SampleVariance([]float64{1}); ok {
		t.Error("variance of a single value should be unavailable")
	}
}

func TestAggregate(t *testing.T) {
	x := []float64{1, 2, 9}
	if got := Aggregate("mean", x); got != 4 {
		t.Errorf("Aggregate mean = %g, want 4", got)
	}
	if got := Aggregate("median", x); got != 2 {
		t.Errorf("Aggregate median = %g, want 2", got)
	}
}
