// Package score classifies stores against their peers and ranks
// replacement tenant categories for the underperforming ones.
package score

import (
	"fmt"
	"math"
	"sort"

	"github.com/dshills/tenantmix/internal/diag"
	"github.com/dshills/tenantmix/internal/feature"
	"github.com/dshills/tenantmix/internal/logging"
	"github.com/dshills/tenantmix/internal/model"
	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/stats"
)

// Options are the scoring knobs. All of them are externally settable.
type Options struct {
	// ThresholdPercentile is the peer percentile (0-100) below which a
	// store is underperforming.
	ThresholdPercentile float64
	PeerGroup           schema.PeerGroup
	// MaxCandidates caps recommendations per store; 0 keeps all.
	MaxCandidates int
	// MinUplift drops candidates with a smaller uplift. Negative values are
	// treated as 0.
	MinUplift float64
	// MinCategorySupport is the number of observed stores a sub-category
	// needs before it is proposed.
	MinCategorySupport int
	Model              model.Options
}

// Result is the engine's output.
type Result struct {
	// Scores is aligned with the feature table rows.
	Scores []schema.StoreScore
	// Categories holds the priors of every modelled sub-category, by name.
	Categories []schema.TenantCategory
	Model      diag.ModelReport
	Events     []diag.Event

	index map[string]int
}

// Store returns the score of one store.
func (r *Result) Store(code string) (schema.StoreScore, bool) {
	i, ok := r.index[code]
	if !ok {
		return schema.StoreScore{}, false
	}
	return r.Scores[i], true
}

// Flagged returns the number of underperforming stores.
func (r *Result) Flagged() int {
	n := 0
	for _, s := range r.Scores {
		if s.Underperforming {
			n++
		}
	}
	return n
}

// Recommendations returns the total number of ranked candidates.
func (r *Result) Recommendations() int {
	n := 0
	for _, s := range r.Scores {
		n += len(s.Recommendations)
	}
	return n
}

func (o Options) check() error {
	if o.ThresholdPercentile < 0 || o.ThresholdPercentile > 100 || math.IsNaN(o.ThresholdPercentile) {
		return fmt.Errorf("threshold percentile must be within 0-100, got %g", o.ThresholdPercentile)
	}
	if o.MaxCandidates < 0 {
		return fmt.Errorf("max candidates must not be negative, got %d", o.MaxCandidates)
	}
	if math.IsNaN(o.MinUplift) || math.IsInf(o.MinUplift, 0) {
		return fmt.Errorf("min uplift must be finite, got %g", o.MinUplift)
	}
	return nil
}

// Score classifies every store of t and ranks candidates for the flagged
// ones. Per-store failures are reported as events; only invalid options
// produce an error.
func Score(t *feature.Table, opt Options) (*Result, error) {
	if err := opt.check(); err != nil {
		return nil, err
	}
	if opt.MinCategorySupport < 1 {
		opt.MinCategorySupport = 1
	}
	peers, err := feature.PeerDensities(t.Rows, opt.PeerGroup)
	if err != nil {
		return nil, err
	}
	thresholds := make(map[string]float64, len(peers))
	for key, densities := range peers {
		thresholds[key] = stats.Percentile(densities, opt.ThresholdPercentile)
	}

	samples, training := trainingSet(t.Rows)
	priors := Priors(training)
	res := &Result{
		Scores:     make([]schema.StoreScore, len(t.Rows)),
		Categories: priors,
		index:      make(map[string]int, len(t.Rows)),
	}

	fit, fitErr := model.Select(samples, opt.Model)
	res.Model = modelReport(fit, fitErr, len(samples), opt.Model)
	if fitErr != nil {
		logging.Warn().Err(fitErr).Int("training_rows", len(samples)).Msg("density model unavailable, flagged stores will not be scored")
	}

	eng := &engine{opt: opt, table: t, priors: priorIndex(priors)}
	if fit != nil {
		eng.model = fit.Model
	}

	for i, r := range t.Rows {
		key, _ := feature.PeerKey(r, opt.PeerGroup)
		threshold := thresholds[key]
		s := schema.StoreScore{
			StoreCode:       r.StoreCode,
			PeerThreshold:   threshold,
			PeerPercentile:  stats.PercentRank(peers[key], r.SalesDensity),
			Underperforming: r.SalesDensity < threshold,
		}
		s.LocationPotential, s.HasPotential = eng.potential(r)
		if s.Underperforming {
			s.Recommendations = eng.recommend(r, s, &res.Events)
		}
		res.Scores[i] = s
		res.index[r.StoreCode] = i
	}
	return res, nil
}

// trainingSet returns the model samples and the rows they came from:
// every store with an observed density and a known sub-category.
func trainingSet(rows []schema.FeatureRow) ([]model.Sample, []schema.FeatureRow) {
	var (
		samples  []model.Sample
		training []schema.FeatureRow
	)
	for _, r := range rows {
		if !r.DensityObserved || r.SubCategory == "" {
			continue
		}
		samples = append(samples, model.Sample{
			Location:    feature.Location(r),
			SubCategory: r.SubCategory,
			Share:       r.SubCategoryShare,
			Target:      math.Log1p(r.SalesDensity),
		})
		training = append(training, r)
	}
	return samples, training
}

func modelReport(fit *model.Fit, err error, rows int, opt model.Options) diag.ModelReport {
	rep := diag.ModelReport{
		TrainingRows: rows,
		Lambdas:      append([]float64{}, opt.Lambdas...),
		Seed:         opt.Seed,
	}
	if err != nil {
		rep.Reason = err.Error()
		return rep
	}
	rep.Available = true
	rep.Features = fit.Model.NumFeatures()
	rep.Lambda = fit.Model.Lambda
	rep.TrainRMSE = fit.TrainRMSE
	rep.TrainR2 = fit.TrainR2
	if fit.CrossValidated {
		rep.CVRMSE = fit.CVRMSE
		rep.Folds = opt.Folds
	}
	return rep
}

// predictor is the part of a fitted model the engine scores with. Predict
// returns log1p of a density.
type predictor interface {
	Categories() []string
	Knows(subCategory string) bool
	Predict(location []float64, subCategory string, share float64) (float64, bool)
}

type engine struct {
	opt    Options
	table  *feature.Table
	model  predictor
	priors map[string]schema.TenantCategory
}

// potential is the modelled density of the store's own sub-category at its
// location.
func (e *engine) potential(r schema.FeatureRow) (float64, bool) {
	if e.model == nil {
		return 0, false
	}
	y, ok := e.model.Predict(feature.Location(r), r.SubCategory, r.SubCategoryShare)
	if !ok {
		return 0, false
	}
	v := math.Expm1(y)
	if !stats.Finite(v) {
		return 0, false
	}
	return v, true
}

// recommend ranks candidates for a flagged store.
func (e *engine) recommend(r schema.FeatureRow, s schema.StoreScore, events *[]diag.Event) []schema.Recommendation {
	if !r.DensityObserved {
		*events = append(*events, diag.Event{
			Kind:   schema.KindMissingFeature,
			Table:  schema.TableStores,
			ID:     r.StoreCode,
			Detail: "sales density not observed",
		})
		logging.Debug().Str("store", r.StoreCode).Msg("skipping flagged store without observed density")
		return nil
	}
	if reason := e.unscorable(r, s); reason != "" {
		*events = append(*events, diag.Event{
			Kind:   schema.KindModelPredictionFailure,
			Table:  schema.TableStores,
			ID:     r.StoreCode,
			Detail: reason,
		})
		logging.Debug().Str("store", r.StoreCode).Str("reason", reason).Msg("skipping flagged store")
		return nil
	}

	minUplift := math.Max(e.opt.MinUplift, 0)
	mix := e.table.Mix[r.MallID]
	location := feature.Location(r)

	var recs []schema.Recommendation
	for _, c := range e.model.Categories() {
		prior, ok := e.priors[c]
		if !ok || c == "" || c == r.SubCategory || prior.Count < e.opt.MinCategorySupport {
			continue
		}
		share := float64(mix.BySubCat[c]+1) / float64(mix.Stores)
		y, _ := e.model.Predict(location, c, share)
		projected := math.Expm1(y)
		uplift := projected - r.SalesDensity
		if !stats.Finite(uplift) {
			*events = append(*events, diag.Event{
				Kind:   schema.KindNonFiniteUplift,
				Table:  schema.TableStores,
				ID:     r.StoreCode,
				Detail: c,
			})
			logging.Debug().Str("store", r.StoreCode).Str("candidate", c).Msg("excluding candidate with non-finite uplift")
			continue
		}
		if uplift < minUplift {
			*events = append(*events, diag.Event{
				Kind:   schema.KindBelowMinUplift,
				Table:  schema.TableStores,
				ID:     r.StoreCode,
				Detail: fmt.Sprintf("%s uplift=%.4g", c, uplift),
			})
			continue
		}
		recs = append(recs, schema.Recommendation{
			StoreCode:      r.StoreCode,
			SubCategory:    c,
			Category:       prior.Group,
			ProjectedSales: projected,
			Uplift:         uplift,
		})
	}

	Rank(recs, e.priors)
	if e.opt.MaxCandidates > 0 && len(recs) > e.opt.MaxCandidates {
		recs = recs[:e.opt.MaxCandidates]
	}
	return recs
}

// unscorable returns why the model cannot score a store, or "".
func (e *engine) unscorable(r schema.FeatureRow, s schema.StoreScore) string {
	switch {
	case e.model == nil:
		return "model unavailable"
	case !e.model.Knows(r.SubCategory):
		return fmt.Sprintf("sub-category %q not modelled", r.SubCategory)
	case !s.HasPotential:
		return "location potential not finite"
	}
	return ""
}

// Rank orders recs by descending uplift, then by ascending category
// variance (unknown variance last), then by sub-category name, and numbers
// them from 1.
func Rank(recs []schema.Recommendation, priors map[string]schema.TenantCategory) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Uplift != b.Uplift {
			return a.Uplift > b.Uplift
		}
		pa, pb := priors[a.SubCategory], priors[b.SubCategory]
		if pa.HasVariance != pb.HasVariance {
			return pa.HasVariance
		}
		if pa.HasVariance && pa.Variance != pb.Variance {
			return pa.Variance < pb.Variance
		}
		return a.SubCategory < b.SubCategory
	})
	for i := range recs {
		recs[i].Rank = i + 1
	}
}
