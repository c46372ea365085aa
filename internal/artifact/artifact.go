// Package artifact writes and reads the dashboard artifact, the flat CSV
// that is the only contract between the pipeline and the dashboard.
package artifact

import (
	"sort"

	"github.com/dshills/tenantmix/internal/feature"
	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/score"
)

// BuildRows joins feature rows with their scores. A store with
// recommendations gets one row per candidate; other stores get a single
// row only when includeAll is set. Rows are ordered by mall, store, rank.
func BuildRows(t *feature.Table, res *score.Result, includeAll bool) []schema.ArtifactRow {
	var rows []schema.ArtifactRow
	for i, r := range t.Rows {
		s := res.Scores[i]
		base := schema.ArtifactRow{
			MallID:            r.MallID,
			StoreCode:         r.StoreCode,
			CurrentCategory:   r.Category,
			CurrentSubCat:     r.SubCategory,
			SalesDensity:      r.SalesDensity,
			DensityPercentile: s.PeerPercentile,
			DensityImputed:    !r.DensityObserved,
			Underperforming:   s.Underperforming,
			PeerThreshold:     s.PeerThreshold,
			LocationPotential: s.LocationPotential,
			HasPotential:      s.HasPotential,
		}
		if len(s.Recommendations) == 0 {
			if includeAll {
				rows = append(rows, base)
			}
			continue
		}
		for _, rec := range s.Recommendations {
			row := base
			row.HasRecommendation = true
			row.RecCategory = rec.Category
			row.RecSubCat = rec.SubCategory
			row.RecProjected = rec.ProjectedSales
			row.Uplift = rec.Uplift
			row.Rank = rec.Rank
			rows = append(rows, row)
		}
	}
	Sort(rows)
	return rows
}

// Sort orders rows by mall, store and rank.
func Sort(rows []schema.ArtifactRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.MallID != b.MallID {
			return a.MallID < b.MallID
		}
		if a.StoreCode != b.StoreCode {
			return a.StoreCode < b.StoreCode
		}
		return a.Rank < b.Rank
	})
}
