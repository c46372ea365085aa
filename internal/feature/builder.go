// Package feature turns the raw mall, store and sales tables into one
// feature row per store. Build never mutates its input.
package feature

import (
	"fmt"
	"sort"

	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/schema/validate"
	"github.com/dshills/tenantmix/internal/source"
	"github.com/dshills/tenantmix/internal/stats"
)

// Names of imputed fields as listed on FeatureRow.Imputed.
const (
	FieldArea          = "area_sqm"
	FieldRentPerSqm    = "rent_per_sqm"
	FieldFloor         = "floor"
	FieldTenantChanges = "tenant_changes"
	FieldVacantMonths  = "vacant_months"
	FieldSalesDensity  = "sales_density"
	FieldMallGLA       = "mall_gla_sqm"
	FieldMallFootfall  = "mall_annual_footfall"
)

// Options controls imputation.
type Options struct {
	// Imputation is the central statistic used for missing numbers:
	// "median" (default) or "mean".
	Imputation string
}

// Table is the Feature Builder's output.
type Table struct {
	// Rows holds one row per store, sorted by store code.
	Rows []schema.FeatureRow
	// Mix holds the sub-category mix of every mall, keyed by mall id.
	Mix map[string]schema.MallMix
	// Malls is the mall table keyed by id.
	Malls map[string]schema.Mall

	index map[string]int
}

// Row returns the feature row of a store.
func (t *Table) Row(code string) (schema.FeatureRow, bool) {
	i, ok := t.index[code]
	if !ok {
		return schema.FeatureRow{}, false
	}
	return t.Rows[i], true
}

// MallIDs returns the ids of malls with at least one store, sorted.
func (t *Table) MallIDs() []string {
	ids := make([]string, 0, len(t.Mix))
	for id := range t.Mix {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// mallFeatures are the derived per-mall values.
type mallFeatures struct {
	footfallDensity float64
	imputed         []string
}

// storeSales is the revenue aggregate of one store.
type storeSales struct {
	total float64
	rows  int
	years map[string]struct{}
}

// Build derives the feature table. Stores are expected to reference loaded
// malls (source.Load guarantees it); a dangling reference is a schema error.
func Build(t *source.Tables, opt Options) (*Table, error) {
	strategy := opt.Imputation
	if strategy == "" {
		strategy = "median"
	}

	malls := make(map[string]schema.Mall, len(t.Malls))
	for _, m := range t.Malls {
		malls[m.ID] = m
	}
	mallFeat := buildMallFeatures(t.Malls, strategy)

	sales := aggregateSales(t.Sales)

	stores := make([]schema.Store, len(t.Stores))
	copy(stores, t.Stores)
	sort.Slice(stores, func(i, j int) bool { return stores[i].Code < stores[j].Code })

	rows := make([]schema.FeatureRow, len(stores))
	for i, s := range stores {
		if _, ok := malls[s.MallID]; !ok {
			return nil, schema.Mismatch("features", "store %q references unknown mall %q", s.Code, s.MallID)
		}
		mf := mallFeat[s.MallID]
		rows[i] = schema.FeatureRow{
			StoreCode:           s.Code,
			MallID:              s.MallID,
			Category:            s.Category,
			SubCategory:         s.SubCategory,
			MallFootfallDensity: mf.footfallDensity,
			Imputed:             append([]string(nil), mf.imputed...),
		}
	}

	imputeStoreAttributes(rows, stores, strategy)
	applyDensity(rows, stores, sales, t.HasYear, strategy)
	applyMallDensity(rows)
	mix := applyMix(rows)
	applyPercentiles(rows)

	for i := range rows {
		sort.Strings(rows[i].Imputed)
	}

	if err := validate.FeatureTable(rows); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(rows))
	for i, r := range rows {
		index[r.StoreCode] = i
	}
	return &Table{Rows: rows, Mix: mix, Malls: malls, index: index}, nil
}

// buildMallFeatures imputes GLA and footfall across malls and derives the
// footfall density.
func buildMallFeatures(malls []schema.Mall, strategy string) map[string]mallFeatures {
	var glas, footfalls []float64
	for _, m := range malls {
		if m.GLASqm.Valid && m.GLASqm.V > 0 {
			glas = append(glas, m.GLASqm.V)
		}
		if m.AnnualFootfall.Valid && m.AnnualFootfall.V >= 0 {
			footfalls = append(footfalls, m.AnnualFootfall.V)
		}
	}
	defaultGLA := fallback(strategy, glas)
	defaultFootfall := fallback(strategy, footfalls)

	out := make(map[string]mallFeatures, len(malls))
	for _, m := range malls {
		var mf mallFeatures
		gla, footfall := m.GLASqm.V, m.AnnualFootfall.V
		if !m.GLASqm.Valid || gla <= 0 {
			gla = defaultGLA
			mf.imputed = append(mf.imputed, FieldMallGLA)
		}
		if !m.AnnualFootfall.Valid || footfall < 0 {
			footfall = defaultFootfall
			mf.imputed = append(mf.imputed, FieldMallFootfall)
		}
		if gla > 0 {
			mf.footfallDensity = footfall / gla
		}
		out[m.ID] = mf
	}
	return out
}

// aggregateSales sums revenue per store, remembering the distinct years.
func aggregateSales(records []schema.SalesRecord) map[string]*storeSales {
	out := map[string]*storeSales{}
	for _, r := range records {
		if !r.Revenue.Valid {
			continue
		}
		ss, ok := out[r.StoreCode]
		if !ok {
			ss = &storeSales{years: map[string]struct{}{}}
			out[r.StoreCode] = ss
		}
		ss.total += r.Revenue.V
		ss.rows++
		if r.Year != "" {
			ss.years[r.Year] = struct{}{}
		}
	}
	return out
}

// annualRevenue averages revenue over the distinct years when the sales
// table is yearly, and sums it otherwise.
func (ss *storeSales) annualRevenue(hasYear bool) float64 {
	if hasYear && len(ss.years) > 0 {
		return ss.total / float64(len(ss.years))
	}
	return ss.total
}

// imputeStoreAttributes fills area, rent density, floor and turnover
// indicators from sub-category statistics.
func imputeStoreAttributes(rows []schema.FeatureRow, stores []schema.Store, strategy string) {
	area := newImputer(strategy)
	rent := newImputer(strategy)
	floor := newImputer(strategy)
	changes := newImputer(strategy)
	vacant := newImputer(strategy)

	for _, s := range stores {
		if s.AreaSqm.Valid && s.AreaSqm.V > 0 {
			area.add(s.SubCategory, s.AreaSqm.V)
			if s.AnnualRent.Valid && s.AnnualRent.V >= 0 {
				rent.add(s.SubCategory, s.AnnualRent.V/s.AreaSqm.V)
			}
		}
		if s.Floor.Valid {
			floor.add(s.SubCategory, s.Floor.V)
		}
		if s.TenantChanges.Valid && s.TenantChanges.V >= 0 {
			changes.add(s.SubCategory, s.TenantChanges.V)
		}
		if s.VacantMonths.Valid && s.VacantMonths.V >= 0 {
			vacant.add(s.SubCategory, s.VacantMonths.V)
		}
	}

	for i, s := range stores {
		r := &rows[i]
		areaOK := s.AreaSqm.Valid && s.AreaSqm.V > 0
		r.AreaSqm = pick(r, areaOK, s.AreaSqm.V, area, s.SubCategory, FieldArea)

		rentOK := areaOK && s.AnnualRent.Valid && s.AnnualRent.V >= 0
		var rentPerSqm float64
		if rentOK {
			rentPerSqm = s.AnnualRent.V / s.AreaSqm.V
		}
		r.RentPerSqm = pick(r, rentOK, rentPerSqm, rent, s.SubCategory, FieldRentPerSqm)

		r.Floor = pick(r, s.Floor.Valid, s.Floor.V, floor, s.SubCategory, FieldFloor)
		r.TenantChanges = pick(r, s.TenantChanges.Valid && s.TenantChanges.V >= 0, s.TenantChanges.V, changes, s.SubCategory, FieldTenantChanges)
		r.VacantMonths = pick(r, s.VacantMonths.Valid && s.VacantMonths.V >= 0, s.VacantMonths.V, vacant, s.SubCategory, FieldVacantMonths)
	}
}

// applyDensity sets annual revenue and sales density. Density is observed
// only with revenue and a positive observed area; otherwise it is imputed
// from the sub-category's observed densities.
func applyDensity(rows []schema.FeatureRow, stores []schema.Store, sales map[string]*storeSales, hasYear bool, strategy string) {
	density := newImputer(strategy)
	for i, s := range stores {
		r := &rows[i]
		ss, ok := sales[s.Code]
		if !ok {
			continue
		}
		r.AnnualRevenue = ss.annualRevenue(hasYear)
		if s.AreaSqm.Valid && s.AreaSqm.V > 0 && r.AnnualRevenue >= 0 {
			r.SalesDensity = r.AnnualRevenue / s.AreaSqm.V
			r.DensityObserved = true
			density.add(s.SubCategory, r.SalesDensity)
		}
	}
	for i := range rows {
		r := &rows[i]
		if r.DensityObserved {
			continue
		}
		r.SalesDensity = density.value(r.SubCategory)
		r.Imputed = append(r.Imputed, FieldSalesDensity)
	}
}

// applyMallDensity sets each mall's aggregate density: observed revenue
// over the area of the stores it was observed for.
func applyMallDensity(rows []schema.FeatureRow) {
	revenue := map[string]float64{}
	area := map[string]float64{}
	for _, r := range rows {
		if !r.DensityObserved {
			continue
		}
		revenue[r.MallID] += r.AnnualRevenue
		area[r.MallID] += r.AreaSqm
	}
	for i := range rows {
		r := &rows[i]
		if a := area[r.MallID]; a > 0 {
			r.MallSalesDensity = revenue[r.MallID] / a
		}
	}
}

// applyMix sets the sub-category and category shares and returns the mix
// of every mall.
func applyMix(rows []schema.FeatureRow) map[string]schema.MallMix {
	mix := map[string]schema.MallMix{}
	byCategory := map[string]map[string]int{}
	for _, r := range rows {
		m, ok := mix[r.MallID]
		if !ok {
			m = schema.MallMix{MallID: r.MallID, BySubCat: map[string]int{}}
			byCategory[r.MallID] = map[string]int{}
		}
		m.Stores++
		m.BySubCat[r.SubCategory]++
		mix[r.MallID] = m
		byCategory[r.MallID][r.Category]++
	}
	for i := range rows {
		r := &rows[i]
		m := mix[r.MallID]
		r.SubCategoryShare = float64(m.BySubCat[r.SubCategory]) / float64(m.Stores)
		r.CategoryShare = float64(byCategory[r.MallID][r.Category]) / float64(m.Stores)
	}
	return mix
}

// applyPercentiles ranks every store's density within its mall and its
// sub-category.
func applyPercentiles(rows []schema.FeatureRow) {
	byMall := map[string][]float64{}
	bySub := map[string][]float64{}
	for _, r := range rows {
		byMall[r.MallID] = append(byMall[r.MallID], r.SalesDensity)
		bySub[r.SubCategory] = append(bySub[r.SubCategory], r.SalesDensity)
	}
	for i := range rows {
		r := &rows[i]
		r.DensityPctInMall = stats.PercentRank(byMall[r.MallID], r.SalesDensity)
		r.DensityPctInCategory = stats.PercentRank(bySub[r.SubCategory], r.SalesDensity)
	}
}

// PeerDensities groups densities by the chosen peer key.
func PeerDensities(rows []schema.FeatureRow, group schema.PeerGroup) (map[string][]float64, error) {
	out := map[string][]float64{}
	for _, r := range rows {
		key, err := PeerKey(r, group)
		if err != nil {
			return nil, err
		}
		out[key] = append(out[key], r.SalesDensity)
	}
	return out, nil
}

// PeerKey returns the peer group a row belongs to.
func PeerKey(r schema.FeatureRow, group schema.PeerGroup) (string, error) {
	switch group {
	case schema.PeerGroupMall, "":
		return r.MallID, nil
	case schema.PeerGroupCategory:
		return r.SubCategory, nil
	default:
		return "", fmt.Errorf("unknown peer group %q: valid groups are mall, category", group)
	}
}

// pick returns the observed value or the imputed default, recording the
// imputation on the row.
func pick(r *schema.FeatureRow, ok bool, v float64, im *imputer, group, field string) float64 {
	if ok {
		return v
	}
	r.Imputed = append(r.Imputed, field)
	return im.value(group)
}

// fallback is the default for a column: its central statistic, or 0 when
// nothing was observed.
func fallback(strategy string, x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stats.Aggregate(strategy, x)
}

// imputer computes group-then-global defaults for one column.
type imputer struct {
	strategy string
	byGroup  map[string][]float64
	all      []float64
}

func newImputer(strategy string) *imputer {
	return &imputer{strategy: strategy, byGroup: map[string][]float64{}}
}

func (im *imputer) add(group string, v float64) {
	im.byGroup[group] = append(im.byGroup[group], v)
	im.all = append(im.all, v)
}

// value returns the group statistic, then the global statistic, then 0.
func (im *imputer) value(group string) float64 {
	if x := im.byGroup[group]; len(x) > 0 {
		return stats.Aggregate(im.strategy, x)
	}
	return fallback(im.strategy, im.all)
}
