package model

import (
	"fmt"
	"math"
	"math/rand"
)

// Options controls penalty selection.
type Options struct {
	Seed    int64
	Folds   int
	Lambdas []float64
}

// Fit is the outcome of model selection.
type Fit struct {
	Model *Ridge
	// CrossValidated is false when there were too few samples for k folds
	// and the first penalty was used as is.
	CrossValidated bool
	CVRMSE         float64
	TrainRMSE      float64
	TrainR2        float64
}

// Select picks the ridge penalty by k-fold cross-validation and refits on
// all samples. Folds are assigned from a permutation drawn with Seed, so
// the choice is reproducible. Equal CV errors favour the larger penalty.
func Select(samples []Sample, opt Options) (*Fit, error) {
	if len(opt.Lambdas) == 0 {
		return nil, fmt.Errorf("no ridge penalties to choose from")
	}
	if opt.Folds < 2 {
		return nil, fmt.Errorf("cross-validation needs at least 2 folds, got %d", opt.Folds)
	}

	res := &Fit{}
	lambda := opt.Lambdas[0]
	if len(samples) >= 2*opt.Folds {
		folds := assignFolds(len(samples), opt.Folds, opt.Seed)
		best := math.Inf(1)
		for _, l := range opt.Lambdas {
			rmse, err := crossValidate(samples, folds, opt.Folds, l)
			if err != nil {
				return nil, err
			}
			if rmse < best || (rmse == best && l > lambda) {
				best, lambda = rmse, l
			}
		}
		res.CrossValidated = true
		res.CVRMSE = best
	}

	m, err := FitRidge(samples, lambda)
	if err != nil {
		return nil, err
	}
	res.Model = m

	y := make([]float64, len(samples))
	yhat := make([]float64, len(samples))
	for i, s := range samples {
		y[i] = s.Target
		yhat[i] = m.predict(s.Location, s.SubCategory, s.Share)
	}
	res.TrainRMSE = RMSE(y, yhat)
	res.TrainR2 = R2(y, yhat)
	return res, nil
}

// assignFolds maps each sample index to a fold.
func assignFolds(n, k int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	folds := make([]int, n)
	for i, idx := range rng.Perm(n) {
		folds[idx] = i % k
	}
	return folds
}

// crossValidate returns the pooled out-of-fold RMSE for one penalty.
func crossValidate(samples []Sample, folds []int, k int, lambda float64) (float64, error) {
	var y, yhat []float64
	for f := 0; f < k; f++ {
		var train, test []Sample
		for i, s := range samples {
			if folds[i] == f {
				test = append(test, s)
			} else {
				train = append(train, s)
			}
		}
		m, err := FitRidge(train, lambda)
		if err != nil {
			return 0, fmt.Errorf("fold %d, lambda %g: %w", f, lambda, err)
		}
		for _, s := range test {
			y = append(y, s.Target)
			yhat = append(yhat, m.predict(s.Location, s.SubCategory, s.Share))
		}
	}
	return RMSE(y, yhat), nil
}
