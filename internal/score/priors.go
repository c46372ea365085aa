package score

import (
	"sort"

	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/stats"
)

// Priors summarises the observed densities of each sub-category. The
// parent group is the most frequent category label, ties alphabetical.
func Priors(rows []schema.FeatureRow) []schema.TenantCategory {
	densities := map[string][]float64{}
	groups := map[string]map[string]int{}
	for _, r := range rows {
		densities[r.SubCategory] = append(densities[r.SubCategory], r.SalesDensity)
		if groups[r.SubCategory] == nil {
			groups[r.SubCategory] = map[string]int{}
		}
		groups[r.SubCategory][r.Category]++
	}

	out := make([]schema.TenantCategory, 0, len(densities))
	for name, d := range densities {
		v, ok := stats.SampleVariance(d)
		out = append(out, schema.TenantCategory{
			Name:        name,
			Group:       majority(groups[name]),
			Count:       len(d),
			MeanDensity: stats.Mean(d),
			Variance:    v,
			HasVariance: ok,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func majority(counts map[string]int) string {
	best, bestN := "", -1
	for label, n := range counts {
		if n > bestN || (n == bestN && label < best) {
			best, bestN = label, n
		}
	}
	return best
}

func priorIndex(priors []schema.TenantCategory) map[string]schema.TenantCategory {
	out := make(map[string]schema.TenantCategory, len(priors))
	for _, p := range priors {
		out[p.Name] = p
	}
	return out
}
