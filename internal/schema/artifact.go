package schema

import (
	"errors"
	"fmt"
)

// ArtifactSchemaVersion identifies the column layout below. Any change to
// Columns is a breaking change and must bump it.
const ArtifactSchemaVersion = "1"

// DefaultArtifactName is the file the dashboard looks for.
const DefaultArtifactName = "urw_dashboard_data.csv"

// Artifact column names, schema v1.
const (
	ColMallID            = "Mall_ID"
	ColStoreCode         = "Store_Code"
	ColCurrentCategory   = "Current_Category"
	ColCurrentSubCat     = "Current_SubCat"
	ColCurrentDensity    = "Current_Sales_Density"
	ColDensityPercentile = "Density_Percentile"
	ColDensityImputed    = "Density_Imputed"
	ColUnderperforming   = "Underperforming"
	ColPeerThreshold     = "Peer_Threshold"
	ColRecCategory       = "Rec_Category"
	ColRecSubCat         = "Rec_SubCat"
	ColRecProjected      = "Rec_Projected_Sales"
	ColLocationPotential = "Model_Location_Potential"
	ColRevenueUplift     = "Revenue_Uplift"
	ColRank              = "Rank"
)

// Columns is the ordered header of a v1 artifact.
var Columns = []string{
	ColMallID,
	ColStoreCode,
	ColCurrentCategory,
	ColCurrentSubCat,
	ColCurrentDensity,
	ColDensityPercentile,
	ColDensityImputed,
	ColUnderperforming,
	ColPeerThreshold,
	ColRecCategory,
	ColRecSubCat,
	ColRecProjected,
	ColLocationPotential,
	ColRevenueUplift,
	ColRank,
}

// ArtifactRow is one line of the dashboard artifact. Recommendation fields
// are zero and HasRecommendation is false for stores without a candidate.
type ArtifactRow struct {
	MallID            string `validate:"required"`
	StoreCode         string `validate:"required"`
	CurrentCategory   string
	CurrentSubCat     string  `validate:"required"`
	SalesDensity      float64 `validate:"gte=0"`
	DensityPercentile float64 `validate:"gte=0,lte=100"`
	DensityImputed    bool
	Underperforming   bool
	PeerThreshold     float64

	HasRecommendation bool
	RecCategory       string
	RecSubCat         string
	RecProjected      float64 `validate:"gte=0"`
	Uplift            float64 `validate:"gte=0"`
	Rank              int     `validate:"gte=0"`

	LocationPotential float64
	HasPotential      bool
}

// ErrSchemaMismatch marks a structural violation of a table or artifact
// schema. It is always fatal.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaError reports where a schema violation was detected.
type SchemaError struct {
	Stage  string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrSchemaMismatch, e.Stage, e.Detail)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }

// Mismatch builds a SchemaError for the given stage.
func Mismatch(stage, format string, args ...any) error {
	return &SchemaError{Stage: stage, Detail: fmt.Sprintf(format, args...)}
}
