// Package dashboard aggregates an artifact into what the dashboard shows
// per mall: headline KPIs, the ranked opportunity table and the scenario
// comparison for each store.
package dashboard

import (
	"fmt"
	"sort"

	"github.com/dshills/tenantmix/internal/schema"
)

// DefaultAvgStoreSize is the unit size, in m², used to turn a density
// uplift into a revenue estimate.
const DefaultAvgStoreSize = 200.0

// Options selects what to report.
type Options struct {
	// MallID restricts the report to one mall; empty means all malls.
	MallID       string
	AvgStoreSize float64
}

// Opportunity is the best recommendation of one store.
type Opportunity struct {
	StoreCode      string   `json:"store_code"`
	CurrentSubCat  string   `json:"current_sub_category"`
	RecSubCat      string   `json:"recommended_sub_category"`
	RecCategory    string   `json:"recommended_category"`
	CurrentDensity float64  `json:"current_density"`
	Projected      float64  `json:"projected_density"`
	Uplift         float64  `json:"uplift"`
	Alternatives   int      `json:"alternatives"`
	Scenario       Scenario `json:"scenario"`
}

// Scenario compares the store as it trades, what its location should
// yield with its current tenant, and the optimised tenant.
type Scenario struct {
	Current           float64  `json:"current"`
	LocationPotential *float64 `json:"location_potential"`
	Optimised         float64  `json:"optimised"`
}

// Mall is the report for one mall.
type Mall struct {
	MallID          string        `json:"mall_id"`
	Stores          int           `json:"stores"`
	Underperforming int           `json:"underperforming"`
	Opportunities   int           `json:"opportunities"`
	AvgUplift       float64       `json:"avg_density_uplift"`
	RevenueUnlock   float64       `json:"revenue_unlock"`
	Table           []Opportunity `json:"opportunities_table"`
}

// Report is the full dashboard view of an artifact.
type Report struct {
	SchemaVersion string  `json:"artifact_schema_version"`
	AvgStoreSize  float64 `json:"avg_store_size_sqm"`
	Malls         []Mall  `json:"malls"`
}

// UnknownMallError is returned when the requested mall is not in the artifact.
type UnknownMallError struct{ MallID string }

func (e *UnknownMallError) Error() string {
	return fmt.Sprintf("mall %q is not in the artifact", e.MallID)
}

// Build aggregates rows into a report. Rows are expected to be valid
// artifact rows in any order.
func Build(rows []schema.ArtifactRow, opt Options) (*Report, error) {
	size := opt.AvgStoreSize
	if size <= 0 {
		size = DefaultAvgStoreSize
	}

	type storeKey struct{ mall, store string }
	malls := map[string]*Mall{}
	seen := map[storeKey]bool{}
	flagged := map[storeKey]bool{}
	alternatives := map[storeKey]int{}
	best := map[storeKey]schema.ArtifactRow{}

	for _, r := range rows {
		if opt.MallID != "" && r.MallID != opt.MallID {
			continue
		}
		m, ok := malls[r.MallID]
		if !ok {
			m = &Mall{MallID: r.MallID}
			malls[r.MallID] = m
		}
		k := storeKey{r.MallID, r.StoreCode}
		if !seen[k] {
			seen[k] = true
			m.Stores++
		}
		if r.Underperforming && !flagged[k] {
			flagged[k] = true
			m.Underperforming++
		}
		if r.HasRecommendation {
			alternatives[k]++
			if r.Rank == 1 {
				best[k] = r
			}
		}
	}
	if opt.MallID != "" && len(malls) == 0 {
		return nil, &UnknownMallError{MallID: opt.MallID}
	}

	for k, r := range best {
		m := malls[k.mall]
		o := Opportunity{
			StoreCode:      r.StoreCode,
			CurrentSubCat:  r.CurrentSubCat,
			RecSubCat:      r.RecSubCat,
			RecCategory:    r.RecCategory,
			CurrentDensity: r.SalesDensity,
			Projected:      r.RecProjected,
			Uplift:         r.Uplift,
			Alternatives:   alternatives[k] - 1,
			Scenario:       Scenario{Current: r.SalesDensity, Optimised: r.RecProjected},
		}
		if r.HasPotential {
			v := r.LocationPotential
			o.Scenario.LocationPotential = &v
		}
		m.Table = append(m.Table, o)
	}

	rep := &Report{SchemaVersion: schema.ArtifactSchemaVersion, AvgStoreSize: size}
	for _, m := range malls {
		sort.Slice(m.Table, func(i, j int) bool {
			a, b := m.Table[i], m.Table[j]
			if a.Uplift != b.Uplift {
				return a.Uplift > b.Uplift
			}
			return a.StoreCode < b.StoreCode
		})
		sum := 0.0
		for _, o := range m.Table {
			sum += o.Uplift
		}
		m.Opportunities = len(m.Table)
		if m.Opportunities > 0 {
			m.AvgUplift = sum / float64(m.Opportunities)
		}
		m.RevenueUnlock = sum * size
		if m.Table == nil {
			m.Table = []Opportunity{}
		}
		rep.Malls = append(rep.Malls, *m)
	}
	sort.Slice(rep.Malls, func(i, j int) bool { return rep.Malls[i].MallID < rep.Malls[j].MallID })
	if rep.Malls == nil {
		rep.Malls = []Mall{}
	}
	return rep, nil
}

// Totals sums the KPIs across every mall of the report.
func (r *Report) Totals() (opportunities int, revenueUnlock float64) {
	for _, m := range r.Malls {
		opportunities += m.Opportunities
		revenueUnlock += m.RevenueUnlock
	}
	return opportunities, revenueUnlock
}
