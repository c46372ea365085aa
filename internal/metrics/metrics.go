// Package metrics exports the outcome of a pipeline run in the Prometheus
// text format, for a node-exporter textfile collector to pick up after the
// batch job exits.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dshills/tenantmix/internal/diag"
	"github.com/dshills/tenantmix/internal/schema"
)

// Recorder holds the metrics of a single run on its own registry.
type Recorder struct {
	reg *prometheus.Registry

	Diagnostics     *prometheus.CounterVec
	Stores          prometheus.Counter
	Flagged         prometheus.Counter
	Recommendations prometheus.Counter
	Duration        prometheus.Gauge
	CVRMSE          prometheus.Gauge
	ModelAvailable  prometheus.Gauge
	LastSuccess     prometheus.Gauge
}

// New creates a Recorder with every metric registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantmix_diagnostics_total",
			Help: "Recoverable conditions recorded during the run, by kind.",
		}, []string{"kind"}),
		Stores: f.NewCounter(prometheus.CounterOpts{
			Name: "tenantmix_stores_total",
			Help: "Stores in the feature table.",
		}),
		Flagged: f.NewCounter(prometheus.CounterOpts{
			Name: "tenantmix_flagged_stores_total",
			Help: "Stores flagged as underperforming against their peers.",
		}),
		Recommendations: f.NewCounter(prometheus.CounterOpts{
			Name: "tenantmix_recommendations_total",
			Help: "Ranked recommendations written to the artifact.",
		}),
		Duration: f.NewGauge(prometheus.GaugeOpts{
			Name: "tenantmix_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		CVRMSE: f.NewGauge(prometheus.GaugeOpts{
			Name: "tenantmix_model_cv_rmse",
			Help: "Cross-validated RMSE of the selected model on log1p density.",
		}),
		ModelAvailable: f.NewGauge(prometheus.GaugeOpts{
			Name: "tenantmix_model_available",
			Help: "1 when the recommendation model was fitted, 0 otherwise.",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "tenantmix_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}
}

// Observe records a finished run.
func (r *Recorder) Observe(s *diag.Summary) {
	for _, k := range schema.Kinds {
		// Touch every kind so absent ones export as 0.
		r.Diagnostics.WithLabelValues(string(k)).Add(float64(s.Count(k)))
	}
	r.Stores.Add(float64(s.Totals.Stores))
	r.Flagged.Add(float64(s.Totals.Flagged))
	r.Recommendations.Add(float64(s.Totals.Recommendations))
	r.Duration.Set(s.FinishedAt.Sub(s.StartedAt).Seconds())
	if s.Model.Available {
		r.ModelAvailable.Set(1)
		r.CVRMSE.Set(s.Model.CVRMSE)
	}
}

// MarkSuccess stamps the last-success gauge.
func (r *Recorder) MarkSuccess(t time.Time) {
	r.LastSuccess.Set(float64(t.Unix()))
}

// WriteFile writes the registry to path in the text exposition format.
// The write goes through a temporary file and a rename.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
