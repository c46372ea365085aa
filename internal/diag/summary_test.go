package diag

import (
	"encoding/json"
	"testing"

	"github.com/dshills/tenantmix/internal/schema"
)

func TestAdd_CountsPerKind(t *testing.T) {
	s := NewSummary("run-1")
	s.Add(
		Event{Kind: schema.KindMissingIdentifier, Table: schema.TableStores, Line: 4},
		Event{Kind: schema.KindMissingIdentifier, Table: schema.TableSales, Line: 9},
		Event{Kind: schema.KindMissingFeature, ID: "S-2"},
	)
	if got := s.Count(schema.KindMissingIdentifier); got != 2 {
		t.Errorf("Count(MissingIdentifier) = %d, want 2", got)
	}
	if got := s.CountTable(schema.KindMissingIdentifier, schema.TableStores); got != 1 {
		t.Errorf("CountTable(stores) = %d, want 1", got)
	}
	if got := s.Skipped(); got != 1 {
		t.Errorf("Skipped = %d, want 1", got)
	}
	if got := s.Dropped(); got != 2 {
		t.Errorf("Dropped = %d, want 2", got)
	}
}

func TestNonZero_ReportingOrder(t *testing.T) {
	s := NewSummary("run-1")
	s.Add(
		Event{Kind: schema.KindBelowMinUplift},
		Event{Kind: schema.KindOrphanStore},
		Event{Kind: schema.KindBelowMinUplift},
	)
	got := s.NonZero()
	if len(got) != 2 {
		t.Fatalf("NonZero len = %d, want 2", len(got))
	}
	if got[0].Kind != schema.KindOrphanStore || got[1].Kind != schema.KindBelowMinUplift {
		t.Errorf("NonZero order = %v", got)
	}
	if got[1].Count != 2 {
		t.Errorf("BelowMinUplift count = %d, want 2", got[1].Count)
	}
}

func TestIDs_SortedDistinct(t *testing.T) {
	s := NewSummary("run-1")
	s.Add(
		Event{Kind: schema.KindModelPredictionFailure, ID: "B"},
		Event{Kind: schema.KindModelPredictionFailure, ID: "A"},
		Event{Kind: schema.KindModelPredictionFailure, ID: "B"},
	)
	ids := s.IDs(schema.KindModelPredictionFailure)
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Errorf("IDs = %v, want [A B]", ids)
	}
}

func TestMarshalIndent_ValidJSON(t *testing.T) {
	s := NewSummary("run-1")
	s.Add(Event{Kind: schema.KindInvalidNumeric, ID: "S-1", Detail: "area_sqm"})
	out, err := s.MarshalIndent()
	if err != nil {
		t.Fatalf("MarshalIndent: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("summary is not valid JSON: %v\n%s", err, out)
	}
	if decoded["artifact_schema_version"] != schema.ArtifactSchemaVersion {
		t.Errorf("schema version = %v", decoded["artifact_schema_version"])
	}
}
