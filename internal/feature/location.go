package feature

import (
	"math"

	"github.com/dshills/tenantmix/internal/schema"
)

// LocationNames labels the columns returned by Location, in order.
var LocationNames = []string{
	"log_area",
	"log_mall_footfall_density",
	"rent_per_sqm",
	"floor",
	"tenant_changes",
	"vacant_months",
	"log_mall_sales_density",
}

// Location returns the numeric location features of a row. They describe
// the unit and its mall, not the tenant, so they stay fixed when a
// different sub-category is scored at the same location.
func Location(r schema.FeatureRow) []float64 {
	return []float64{
		math.Log1p(r.AreaSqm),
		math.Log1p(r.MallFootfallDensity),
		r.RentPerSqm,
		r.Floor,
		r.TenantChanges,
		r.VacantMonths,
		math.Log1p(r.MallSalesDensity),
	}
}
