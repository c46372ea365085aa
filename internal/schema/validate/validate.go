package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dshills/tenantmix/internal/schema"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// structValidator returns the shared validator instance.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Header checks that every required column appears in header and returns
// the index of each known column keyed by its normalized name.
func Header(table string, header []string, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeColumn(h)
		if name == "" {
			continue
		}
		if _, dup := idx[name]; dup {
			return nil, schema.Mismatch(table, "column %q appears more than once", name)
		}
		idx[name] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, schema.Mismatch(table, "missing required column(s): %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// NormalizeColumn lower-cases and trims a header cell, dropping a UTF-8 BOM.
func NormalizeColumn(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// FeatureTable checks the Feature Builder's output guarantees: non-empty
// keys, one row per store, finite numeric features.
func FeatureTable(rows []schema.FeatureRow) error {
	seen := make(map[string]struct{}, len(rows))
	for i, r := range rows {
		prefix := fmt.Sprintf("feature[%d]", i)
		if r.StoreCode == "" {
			return schema.Mismatch("features", "%s: store code is empty", prefix)
		}
		if r.MallID == "" {
			return schema.Mismatch("features", "%s (%s): mall id is empty", prefix, r.StoreCode)
		}
		if _, dup := seen[r.StoreCode]; dup {
			return schema.Mismatch("features", "%s: duplicate store code %q", prefix, r.StoreCode)
		}
		seen[r.StoreCode] = struct{}{}
		for name, v := range map[string]float64{
			"sales_density":         r.SalesDensity,
			"area_sqm":              r.AreaSqm,
			"density_pct_mall":      r.DensityPctInMall,
			"density_pct_category":  r.DensityPctInCategory,
			"sub_category_share":    r.SubCategoryShare,
			"category_share":        r.CategoryShare,
			"rent_per_sqm":          r.RentPerSqm,
			"floor":                 r.Floor,
			"tenant_changes":        r.TenantChanges,
			"vacant_months":         r.VacantMonths,
			"mall_footfall_density": r.MallFootfallDensity,
			"mall_sales_density":    r.MallSalesDensity,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return schema.Mismatch("features", "%s (%s): %s is not finite", prefix, r.StoreCode, name)
			}
		}
	}
	return nil
}

// ArtifactHeader checks that header is exactly the v1 column list.
func ArtifactHeader(header []string) error {
	if len(header) != len(schema.Columns) {
		return schema.Mismatch("artifact", "expected %d columns, got %d", len(schema.Columns), len(header))
	}
	for i, col := range schema.Columns {
		got := strings.TrimPrefix(header[i], "\ufeff")
		if got != col {
			return schema.Mismatch("artifact", "column %d is %q, want %q", i+1, got, col)
		}
	}
	return nil
}

// ArtifactRows validates every row and the ranking invariants per store:
// ranks run 1..k in order, uplift never increases with rank, and the
// recommended category differs from the current one.
func ArtifactRows(rows []schema.ArtifactRow) error {
	v := structValidator()
	var (
		lastStore  string
		lastRank   int
		lastUplift float64
	)
	for i, r := range rows {
		prefix := fmt.Sprintf("row[%d] (%s)", i, r.StoreCode)
		if err := v.Struct(r); err != nil {
			return schema.Mismatch("artifact", "%s: %s", prefix, describe(err))
		}
		for name, f := range map[string]float64{
			"sales density":      r.SalesDensity,
			"peer threshold":     r.PeerThreshold,
			"projected sales":    r.RecProjected,
			"uplift":             r.Uplift,
			"location potential": r.LocationPotential,
		} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return schema.Mismatch("artifact", "%s: %s is not finite", prefix, name)
			}
		}

		if r.StoreCode != lastStore {
			lastStore, lastRank, lastUplift = r.StoreCode, 0, math.Inf(1)
		} else if !r.HasRecommendation || lastRank == 0 {
			return schema.Mismatch("artifact", "%s: store appears on more than one row without ranked recommendations", prefix)
		}

		if !r.HasRecommendation {
			if r.Rank != 0 || r.RecSubCat != "" {
				return schema.Mismatch("artifact", "%s: recommendation fields set without a recommendation", prefix)
			}
			continue
		}
		if !r.Underperforming {
			return schema.Mismatch("artifact", "%s: recommendation for a store that is not underperforming", prefix)
		}
		if r.RecSubCat == "" {
			return schema.Mismatch("artifact", "%s: recommended category is empty", prefix)
		}
		if r.RecSubCat == r.CurrentSubCat {
			return schema.Mismatch("artifact", "%s: recommended category equals current category %q", prefix, r.CurrentSubCat)
		}
		if r.Rank != lastRank+1 {
			return schema.Mismatch("artifact", "%s: rank %d follows rank %d", prefix, r.Rank, lastRank)
		}
		if r.Uplift > lastUplift {
			return schema.Mismatch("artifact", "%s: uplift %g exceeds the previous rank's %g", prefix, r.Uplift, lastUplift)
		}
		lastRank, lastUplift = r.Rank, r.Uplift
	}
	return nil
}

// describe flattens validator field errors into one line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
