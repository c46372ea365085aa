package schema

// Mall is one shopping centre from the mall source table.
type Mall struct {
	ID             string
	Name           string
	Country        string
	City           string
	GLASqm         Value // gross leasable area
	AnnualFootfall Value
}

// Store is one leased unit. MallID always references a loaded Mall.
type Store struct {
	Code          string
	MallID        string
	Category      string // parent taxonomy label, e.g. "Fashion"
	SubCategory   string // tenant category, the unit of recommendation
	AreaSqm       Value
	AnnualRent    Value
	Floor         Value
	TenantChanges Value
	VacantMonths  Value
}

// SalesRecord is one revenue observation for a store.
type SalesRecord struct {
	StoreCode string
	Year      string
	Revenue   Value
}

// Value is a numeric cell that may be missing.
type Value struct {
	V     float64
	Valid bool
}

// Num returns a present Value.
func Num(v float64) Value { return Value{V: v, Valid: true} }

// TenantCategory carries the historical statistics of one sub-category,
// used as priors for scoring and for the ranking tie-break.
type TenantCategory struct {
	Name        string
	Group       string // parent category
	Count       int
	MeanDensity float64
	// Variance is the sample variance of observed densities; HasVariance is
	// false when fewer than two observations exist.
	Variance    float64
	HasVariance bool
}

// FeatureRow is the Feature Builder's output for one store.
type FeatureRow struct {
	StoreCode   string
	MallID      string
	Category    string
	SubCategory string

	AreaSqm         float64
	AnnualRevenue   float64
	SalesDensity    float64
	DensityObserved bool

	DensityPctInMall     float64
	DensityPctInCategory float64

	SubCategoryShare float64 // share of the mall's stores in the same sub-category
	CategoryShare    float64 // share of the mall's stores in the same parent category

	RentPerSqm    float64
	Floor         float64
	TenantChanges float64
	VacantMonths  float64

	MallFootfallDensity float64 // annual footfall per m² of GLA
	MallSalesDensity    float64

	// Imputed lists the fields filled with a default instead of an observation.
	Imputed []string
}

// MallMix is the store count per sub-category within one mall.
type MallMix struct {
	MallID   string
	Stores   int
	BySubCat map[string]int
}

// Recommendation is a ranked replacement candidate for a flagged store.
type Recommendation struct {
	StoreCode      string
	SubCategory    string
	Category       string
	ProjectedSales float64
	Uplift         float64
	Rank           int
}

// StoreScore is the scoring engine's verdict for one store.
type StoreScore struct {
	StoreCode         string
	Underperforming   bool
	PeerThreshold     float64
	PeerPercentile    float64
	LocationPotential float64
	HasPotential      bool
	Recommendations   []Recommendation
}
