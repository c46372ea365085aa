package schema

// Kind classifies a recoverable condition aggregated into the run summary.
type Kind string

const (
	KindMissingIdentifier      Kind = "MISSING_IDENTIFIER"
	KindDuplicateIdentifier    Kind = "DUPLICATE_IDENTIFIER"
	KindMissingCategory        Kind = "MISSING_CATEGORY"
	KindOrphanStore            Kind = "ORPHAN_STORE"
	KindUnknownSalesStore      Kind = "UNKNOWN_SALES_STORE"
	KindInvalidNumeric         Kind = "INVALID_NUMERIC"
	KindMissingFeature         Kind = "MISSING_FEATURE"
	KindModelPredictionFailure Kind = "MODEL_PREDICTION_FAILURE"
	KindNonFiniteUplift        Kind = "NON_FINITE_UPLIFT"
	KindBelowMinUplift         Kind = "BELOW_MIN_UPLIFT"
)

// Kinds lists every diagnostic kind in reporting order.
var Kinds = []Kind{
	KindMissingIdentifier,
	KindDuplicateIdentifier,
	KindMissingCategory,
	KindOrphanStore,
	KindUnknownSalesStore,
	KindInvalidNumeric,
	KindMissingFeature,
	KindModelPredictionFailure,
	KindNonFiniteUplift,
	KindBelowMinUplift,
}

// IsValidKind reports whether k is a defined diagnostic kind.
func IsValidKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Table names used in diagnostics and errors.
const (
	TableMalls  = "malls"
	TableStores = "stores"
	TableSales  = "sales"
)

// PeerGroup selects the population a store's density is compared against.
type PeerGroup string

const (
	PeerGroupMall     PeerGroup = "mall"
	PeerGroupCategory PeerGroup = "category"
)
