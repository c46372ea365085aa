// Package diag aggregates the recoverable conditions of a pipeline run
// into a single summary instead of raising them one by one.
package diag

import (
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/dshills/tenantmix/internal/schema"
)

// Event is one recoverable condition.
type Event struct {
	Kind   schema.Kind `json:"kind"`
	Table  string      `json:"table,omitempty"`
	Line   int         `json:"line,omitempty"`
	ID     string      `json:"id,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

// SourceFile records the identity of one input table.
type SourceFile struct {
	Table string `json:"table"`
	Path  string `json:"path"`
	Hash  string `json:"hash"` // "sha256:<hex>"
	Rows  int    `json:"rows"`
}

// ModelReport describes the fitted recommendation model.
type ModelReport struct {
	Available    bool      `json:"available"`
	Reason       string    `json:"reason,omitempty"`
	TrainingRows int       `json:"training_rows"`
	Features     int       `json:"features"`
	Lambda       float64   `json:"lambda"`
	Lambdas      []float64 `json:"lambdas_tried"`
	CVRMSE       float64   `json:"cv_rmse"`
	TrainRMSE    float64   `json:"train_rmse"`
	TrainR2      float64   `json:"train_r2"`
	Folds        int       `json:"folds"`
	Seed         int64     `json:"seed"`
}

// Totals are the headline counts of a run.
type Totals struct {
	Malls           int `json:"malls"`
	Stores          int `json:"stores"`
	SalesRows       int `json:"sales_rows"`
	Flagged         int `json:"flagged"`
	Scored          int `json:"scored"`
	Recommendations int `json:"recommendations"`
	ArtifactRows    int `json:"artifact_rows"`
}

// Summary is the run summary written next to the artifact.
type Summary struct {
	RunID         string         `json:"run_id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	SchemaVersion string         `json:"artifact_schema_version"`
	ArtifactPath  string         `json:"artifact_path"`
	Sources       []SourceFile   `json:"sources"`
	Totals        Totals         `json:"totals"`
	Counts        map[string]int `json:"counts"`
	Model         ModelReport    `json:"model"`
	Events        []Event        `json:"events"`
	Options       map[string]any `json:"options,omitempty"`
}

// NewSummary returns an empty summary for the given run id.
func NewSummary(runID string) *Summary {
	return &Summary{
		RunID:         runID,
		SchemaVersion: schema.ArtifactSchemaVersion,
		Counts:        map[string]int{},
		Events:        []Event{},
	}
}

// Add records events and bumps their per-kind counts.
func (s *Summary) Add(events ...Event) {
	for _, e := range events {
		s.Events = append(s.Events, e)
		s.Counts[string(e.Kind)]++
	}
}

// Count returns how many events of kind k were recorded.
func (s *Summary) Count(k schema.Kind) int {
	return s.Counts[string(k)]
}

// CountTable returns how many events of kind k concern table.
func (s *Summary) CountTable(k schema.Kind, table string) int {
	n := 0
	for _, e := range s.Events {
		if e.Kind == k && e.Table == table {
			n++
		}
	}
	return n
}

// Dropped returns the number of input rows excluded before feature building.
func (s *Summary) Dropped() int {
	return s.Count(schema.KindMissingIdentifier) +
		s.Count(schema.KindDuplicateIdentifier) +
		s.Count(schema.KindMissingCategory) +
		s.Count(schema.KindOrphanStore)
}

// Skipped returns the number of flagged stores left without scoring.
func (s *Summary) Skipped() int {
	return s.Count(schema.KindMissingFeature) + s.Count(schema.KindModelPredictionFailure)
}

// KindCount is one (kind, count) pair.
type KindCount struct {
	Kind  schema.Kind
	Count int
}

// NonZero returns the recorded kinds with their counts in reporting order.
func (s *Summary) NonZero() []KindCount {
	out := make([]KindCount, 0, len(schema.Kinds))
	for _, k := range schema.Kinds {
		if n := s.Count(k); n > 0 {
			out = append(out, KindCount{Kind: k, Count: n})
		}
	}
	return out
}

// IDs returns the sorted distinct ids recorded under kind k.
func (s *Summary) IDs(k schema.Kind) []string {
	seen := map[string]struct{}{}
	for _, e := range s.Events {
		if e.Kind == k && e.ID != "" {
			seen[e.ID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MarshalIndent renders the summary as indented JSON.
func (s *Summary) MarshalIndent() ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding run summary: %w", err)
	}
	return append(b, '\n'), nil
}
