package artifact

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/schema/validate"
)

// ErrArtifactNotFound is returned when no artifact exists at the path.
var ErrArtifactNotFound = errors.New("artifact not found")

// Read loads an artifact. A missing file yields ErrArtifactNotFound with a
// message telling the user how to produce it; a header or cell that does
// not match schema v1 is a schema mismatch.
func Read(path string) ([]schema.ArtifactRow, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist; run `tenantmix run` to generate it", ErrArtifactNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses artifact bytes.
func Decode(data []byte) ([]schema.ArtifactRow, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(schema.Columns)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, schema.Mismatch("artifact", "file is empty")
	}
	if err != nil {
		return nil, schema.Mismatch("artifact", "reading header: %v", err)
	}
	if err := validate.ArtifactHeader(header); err != nil {
		return nil, err
	}

	var rows []schema.ArtifactRow
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, schema.Mismatch("artifact", "%v", err)
		}
		line, _ := r.FieldPos(0)
		row, err := parseRecord(rec)
		if err != nil {
			return nil, schema.Mismatch("artifact", "line %d: %v", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Check reads an artifact and validates every row.
func Check(path string) ([]schema.ArtifactRow, error) {
	rows, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := validate.ArtifactRows(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseRecord(rec []string) (schema.ArtifactRow, error) {
	p := &cellParser{rec: rec}
	row := schema.ArtifactRow{
		MallID:            rec[0],
		StoreCode:         rec[1],
		CurrentCategory:   rec[2],
		CurrentSubCat:     rec[3],
		SalesDensity:      p.float(4),
		DensityPercentile: p.float(5),
		DensityImputed:    p.bool(6),
		Underperforming:   p.bool(7),
		PeerThreshold:     p.float(8),
		RecCategory:       rec[9],
		RecSubCat:         rec[10],
	}
	if rec[12] != "" {
		row.LocationPotential = p.float(12)
		row.HasPotential = true
	}
	if rec[14] != "" {
		row.HasRecommendation = true
		row.RecProjected = p.float(11)
		row.Uplift = p.float(13)
		row.Rank = p.int(14)
	}
	return row, p.err
}

// cellParser keeps the first conversion error.
type cellParser struct {
	rec []string
	err error
}

func (p *cellParser) float(i int) float64 {
	v, err := strconv.ParseFloat(p.rec[i], 64)
	p.fail(i, err)
	return v
}

func (p *cellParser) bool(i int) bool {
	v, err := strconv.ParseBool(p.rec[i])
	p.fail(i, err)
	return v
}

func (p *cellParser) int(i int) int {
	v, err := strconv.Atoi(p.rec[i])
	p.fail(i, err)
	return v
}

func (p *cellParser) fail(i int, err error) {
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %q is not valid", schema.Columns[i], p.rec[i])
	}
}
