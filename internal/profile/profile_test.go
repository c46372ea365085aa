package profile

import (
	"strings"
	"testing"
)

func TestGet_AllNamedProfiles(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := Get(name)
			if err != nil {
				t.Fatalf("Get(%q): %v", name, err)
			}
			if p.Name != name {
				t.Errorf("Name = %q, want %q", p.Name, name)
			}
			if p.ThresholdPercentile <= 0 || p.ThresholdPercentile >= 100 {
				t.Errorf("threshold %g outside (0, 100)", p.ThresholdPercentile)
			}
			if p.MinCategorySupport < 1 {
				t.Errorf("min category support %d < 1", p.MinCategorySupport)
			}
		})
	}
}

func TestGet_EmptyNameReturnsBalanced(t *testing.T) {
	p, err := Get("")
	if err != nil {
		t.Fatalf("Get(''): %v", err)
	}
	if p.Name != "balanced" || p.ThresholdPercentile != 20 || p.MaxCandidates != 3 {
		t.Errorf("unexpected default profile: %+v", p)
	}
}

func TestGet_CaseInsensitive(t *testing.T) {
	p, err := Get("Conservative")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name != "conservative" {
		t.Errorf("Name = %q", p.Name)
	}
}

func TestGet_UnknownName(t *testing.T) {
	_, err := Get("nonexistent-profile")
	if err == nil {
		t.Fatal("expected error for unknown profile, got nil")
	}
	if !strings.Contains(err.Error(), "balanced") {
		t.Errorf("error should list valid profiles: %v", err)
	}
}

func TestProfiles_OrderedByEagerness(t *testing.T) {
	c, _ := Get("conservative")
	b, _ := Get("balanced")
	a, _ := Get("aggressive")
	if !(c.ThresholdPercentile < b.ThresholdPercentile && b.ThresholdPercentile < a.ThresholdPercentile) {
		t.Errorf("thresholds not ordered: %g %g %g", c.ThresholdPercentile, b.ThresholdPercentile, a.ThresholdPercentile)
	}
}

func TestDescribe(t *testing.T) {
	p, _ := Get("aggressive")
	d := p.Describe()
	if !strings.Contains(d, "aggressive") || !strings.Contains(d, "every qualifying category") {
		t.Errorf("unexpected description: %q", d)
	}
}
