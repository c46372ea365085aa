package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/renameio/v2"

	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/schema/validate"
)

// ErrWriteFailed marks a failure to put the artifact in place. The previous
// artifact, if any, is left untouched.
var ErrWriteFailed = errors.New("artifact write failed")

// DefaultPrecision is the number of decimals written for floats.
const DefaultPrecision = 2

// Write validates rows and atomically replaces the artifact at path. A
// reader opening path sees either the previous file or the new one.
func Write(path string, rows []schema.ArtifactRow, precision int) error {
	if err := validate.ArtifactRows(rows); err != nil {
		return err
	}
	return writeAtomic(path, func(w io.Writer) error {
		return Encode(w, rows, precision)
	})
}

// writeAtomic streams into a pending file next to path and renames it into
// place only when encode succeeds.
func writeAtomic(path string, encode func(io.Writer) error) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	defer pf.Cleanup() //nolint:errcheck // no-op after a successful replace

	if err := encode(pf); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	return nil
}

// Encode writes the header and rows as CSV. Floats use fixed notation with
// the given number of decimals so identical inputs give identical bytes.
func Encode(w io.Writer, rows []schema.ArtifactRow, precision int) error {
	if precision < 0 {
		precision = DefaultPrecision
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(record(r, precision)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(r schema.ArtifactRow, precision int) []string {
	f := func(v float64) string { return formatFloat(v, precision) }
	rec := []string{
		r.MallID,
		r.StoreCode,
		r.CurrentCategory,
		r.CurrentSubCat,
		f(r.SalesDensity),
		f(r.DensityPercentile),
		strconv.FormatBool(r.DensityImputed),
		strconv.FormatBool(r.Underperforming),
		f(r.PeerThreshold),
		"", "", "", "", "", "",
	}
	if r.HasPotential {
		rec[12] = f(r.LocationPotential)
	}
	if r.HasRecommendation {
		rec[9] = r.RecCategory
		rec[10] = r.RecSubCat
		rec[11] = f(r.RecProjected)
		rec[13] = f(r.Uplift)
		rec[14] = strconv.Itoa(r.Rank)
	}
	return rec
}

// formatFloat renders v with fixed decimals, folding negative zero.
func formatFloat(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if s[0] == '-' {
		if z, err := strconv.ParseFloat(s, 64); err == nil && z == 0 {
			return s[1:]
		}
	}
	return s
}
