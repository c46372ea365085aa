package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tenantmix/internal/diag"
	"github.com/dshills/tenantmix/internal/schema"
)

func summary() *diag.Summary {
	s := diag.NewSummary("run-1")
	s.StartedAt = time.Unix(1000, 0)
	s.FinishedAt = time.Unix(1002, 500_000_000)
	s.Totals = diag.Totals{Stores: 60, Flagged: 12, Recommendations: 30}
	s.Model = diag.ModelReport{Available: true, CVRMSE: 0.25}
	s.Add(
		diag.Event{Kind: schema.KindMissingIdentifier, Table: schema.TableStores},
		diag.Event{Kind: schema.KindMissingIdentifier, Table: schema.TableStores},
		diag.Event{Kind: schema.KindBelowMinUplift, ID: "M1-03"},
	)
	return s
}

func TestObserve(t *testing.T) {
	r := New()
	r.Observe(summary())

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Diagnostics.WithLabelValues(string(schema.KindMissingIdentifier))))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Diagnostics.WithLabelValues(string(schema.KindOrphanStore))))
	assert.Equal(t, 60.0, testutil.ToFloat64(r.Stores))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.Flagged))
	assert.Equal(t, 30.0, testutil.ToFloat64(r.Recommendations))
	assert.InDelta(t, 2.5, testutil.ToFloat64(r.Duration), 1e-9)
	assert.Equal(t, 0.25, testutil.ToFloat64(r.CVRMSE))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ModelAvailable))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Observe(summary())
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Stores))
}

func TestWriteFile(t *testing.T) {
	r := New()
	r.Observe(summary())
	r.MarkSuccess(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "tenantmix.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `tenantmix_diagnostics_total{kind="MISSING_IDENTIFIER"} 2`)
	assert.Contains(t, out, "tenantmix_stores_total 60")
	assert.Contains(t, out, "tenantmix_last_success_timestamp_seconds ")
}

func TestWriteFile_BadDirectory(t *testing.T) {
	err := New().WriteFile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
