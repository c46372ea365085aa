// Package profile holds named scoring presets. A preset tunes how eagerly
// stores are flagged and how many replacement categories are proposed, so
// the same engine can be tuned per market without editing every knob.
package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Profile is one named set of scoring values.
type Profile struct {
	Name        string
	Description string

	ThresholdPercentile float64
	MaxCandidates       int
	MinUplift           float64
	MinCategorySupport  int
}

var builtin = map[string]func() *Profile{
	"balanced":     balanced,
	"conservative": conservative,
	"aggressive":   aggressive,
}

// Get returns the built-in profile for the given name.
func Get(name string) (*Profile, error) {
	if name == "" {
		return balanced(), nil
	}
	mk, ok := builtin[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q: valid profiles are %s", name, strings.Join(Names(), ", "))
	}
	return mk(), nil
}

// Names lists the built-in profiles alphabetically.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe renders the profile as a short multi-line summary for --help
// style output.
func (p *Profile) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Profile: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&sb, "%s\n", p.Description)
	}
	fmt.Fprintf(&sb, "- flag below the %gth peer percentile\n", p.ThresholdPercentile)
	if p.MaxCandidates > 0 {
		fmt.Fprintf(&sb, "- propose up to %d categories per store\n", p.MaxCandidates)
	} else {
		sb.WriteString("- propose every qualifying category\n")
	}
	fmt.Fprintf(&sb, "- require an uplift of at least %g per m²\n", p.MinUplift)
	fmt.Fprintf(&sb, "- require %d observed store(s) per proposed category\n", p.MinCategorySupport)
	return sb.String()
}
