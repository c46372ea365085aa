package source

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/tenantmix/internal/diag"
	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/schema/validate"
)

// Column names of the source tables.
const (
	ColMallID         = "mall_id"
	ColMallName       = "name"
	ColCountry        = "country"
	ColCity           = "city"
	ColGLASqm         = "gla_sqm"
	ColAnnualFootfall = "annual_footfall"

	ColStoreCode     = "store_code"
	ColCategory      = "category"
	ColSubCategory   = "sub_category"
	ColAreaSqm       = "area_sqm"
	ColAnnualRent    = "annual_rent"
	ColFloor         = "floor"
	ColTenantChanges = "tenant_changes"
	ColVacantMonths  = "vacant_months"

	ColYear    = "year"
	ColRevenue = "revenue"
)

var (
	requiredMalls  = []string{ColMallID}
	requiredStores = []string{ColStoreCode, ColMallID, ColSubCategory, ColAreaSqm}
	requiredSales  = []string{ColStoreCode, ColRevenue}
)

// Paths locates the three source tables.
type Paths struct {
	Malls  string
	Stores string
	Sales  string
}

// Tables holds the validated source rows in file order.
type Tables struct {
	Malls  []schema.Mall
	Stores []schema.Store
	Sales  []schema.SalesRecord
	// HasYear is true when the sales table carries a year column.
	HasYear bool
	Files   []diag.SourceFile
}

// Load reads, hashes and parses the three tables. Row-level problems come
// back as events; an unreadable file or a missing required column is an error.
func Load(p Paths) (*Tables, []diag.Event, error) {
	var (
		t      Tables
		events []diag.Event
	)

	mallData, err := readFile(schema.TableMalls, p.Malls, &t)
	if err != nil {
		return nil, nil, err
	}
	storeData, err := readFile(schema.TableStores, p.Stores, &t)
	if err != nil {
		return nil, nil, err
	}
	salesData, err := readFile(schema.TableSales, p.Sales, &t)
	if err != nil {
		return nil, nil, err
	}

	malls, ev, err := ParseMalls(mallData)
	if err != nil {
		return nil, nil, err
	}
	events = append(events, ev...)

	stores, ev, err := ParseStores(storeData)
	if err != nil {
		return nil, nil, err
	}
	events = append(events, ev...)

	sales, hasYear, ev, err := ParseSales(salesData)
	if err != nil {
		return nil, nil, err
	}
	events = append(events, ev...)

	t.Malls = malls
	t.Stores, ev = linkStores(stores, malls)
	events = append(events, ev...)
	t.Sales, ev = linkSales(sales, t.Stores)
	events = append(events, ev...)
	t.HasYear = hasYear

	return &t, events, nil
}

// readFile reads a table from disk and records its hash.
func readFile(table, path string, t *Tables) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("reading %s table: no path configured", table)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s table: %w", table, err)
	}
	sum := sha256.Sum256(data)
	t.Files = append(t.Files, diag.SourceFile{
		Table: table,
		Path:  path,
		Hash:  fmt.Sprintf("sha256:%x", sum),
		Rows:  countRows(data),
	})
	return data, nil
}

// countRows returns the number of non-empty lines after the header.
func countRows(data []byte) int {
	n := 0
	for i, line := range bytes.Split(data, []byte("\n")) {
		if i == 0 {
			continue
		}
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}

// table is a parsed CSV with its column index.
type table struct {
	name    string
	columns map[string]int
	records [][]string
	lines   []int
}

func parseTable(name string, data []byte, required []string) (*table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, schema.Mismatch(name, "table is empty (no header row)")
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", name, err)
	}
	columns, err := validate.Header(name, header, required)
	if err != nil {
		return nil, err
	}
	t := &table{name: name, columns: columns}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s rows: %w", name, err)
		}
		line, _ := r.FieldPos(0)
		t.records = append(t.records, rec)
		t.lines = append(t.lines, line)
	}
	return t, nil
}

// cell returns the trimmed value of col in rec, or "" when absent.
func (t *table) cell(rec []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (t *table) has(col string) bool {
	_, ok := t.columns[col]
	return ok
}

// num parses a numeric cell. Missing markers yield an invalid Value; text
// that is not a number also yields an event.
func (t *table) num(rec []string, col string, line int, id string, events *[]diag.Event) schema.Value {
	s := t.cell(rec, col)
	if isMissing(s) {
		return schema.Value{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*events = append(*events, diag.Event{
			Kind:   schema.KindInvalidNumeric,
			Table:  t.name,
			Line:   line,
			ID:     id,
			Detail: fmt.Sprintf("%s=%q", col, s),
		})
		return schema.Value{}
	}
	return schema.Num(v)
}

// isMissing reports whether s is one of the recognised missing markers.
func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}

// blank reports whether every cell of rec is empty.
func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseMalls parses the mall table, dropping rows without an id and
// repeated ids.
func ParseMalls(data []byte) ([]schema.Mall, []diag.Event, error) {
	t, err := parseTable(schema.TableMalls, data, requiredMalls)
	if err != nil {
		return nil, nil, err
	}
	var (
		malls  []schema.Mall
		events []diag.Event
		seen   = map[string]struct{}{}
	)
	for i, rec := range t.records {
		if blank(rec) {
			continue
		}
		line := t.lines[i]
		id := t.cell(rec, ColMallID)
		if isMissing(id) {
			events = append(events, diag.Event{Kind: schema.KindMissingIdentifier, Table: t.name, Line: line, Detail: ColMallID})
			continue
		}
		if _, dup := seen[id]; dup {
			events = append(events, diag.Event{Kind: schema.KindDuplicateIdentifier, Table: t.name, Line: line, ID: id})
			continue
		}
		seen[id] = struct{}{}
		malls = append(malls, schema.Mall{
			ID:             id,
			Name:           t.cell(rec, ColMallName),
			Country:        t.cell(rec, ColCountry),
			City:           t.cell(rec, ColCity),
			GLASqm:         t.num(rec, ColGLASqm, line, id, &events),
			AnnualFootfall: t.num(rec, ColAnnualFootfall, line, id, &events),
		})
	}
	return malls, events, nil
}

// ParseStores parses the store table, dropping rows without a store code,
// repeated codes and rows without a sub-category. Mall references are
// checked by Load.
func ParseStores(data []byte) ([]schema.Store, []diag.Event, error) {
	t, err := parseTable(schema.TableStores, data, requiredStores)
	if err != nil {
		return nil, nil, err
	}
	var (
		stores []schema.Store
		events []diag.Event
		seen   = map[string]struct{}{}
	)
	for i, rec := range t.records {
		if blank(rec) {
			continue
		}
		line := t.lines[i]
		code := t.cell(rec, ColStoreCode)
		if isMissing(code) {
			events = append(events, diag.Event{Kind: schema.KindMissingIdentifier, Table: t.name, Line: line, Detail: ColStoreCode})
			continue
		}
		if _, dup := seen[code]; dup {
			events = append(events, diag.Event{Kind: schema.KindDuplicateIdentifier, Table: t.name, Line: line, ID: code})
			continue
		}
		seen[code] = struct{}{}
		subCat := t.cell(rec, ColSubCategory)
		if isMissing(subCat) {
			events = append(events, diag.Event{Kind: schema.KindMissingCategory, Table: t.name, Line: line, ID: code, Detail: ColSubCategory})
			continue
		}
		stores = append(stores, schema.Store{
			Code:          code,
			MallID:        t.cell(rec, ColMallID),
			Category:      t.cell(rec, ColCategory),
			SubCategory:   subCat,
			AreaSqm:       t.num(rec, ColAreaSqm, line, code, &events),
			AnnualRent:    t.num(rec, ColAnnualRent, line, code, &events),
			Floor:         t.num(rec, ColFloor, line, code, &events),
			TenantChanges: t.num(rec, ColTenantChanges, line, code, &events),
			VacantMonths:  t.num(rec, ColVacantMonths, line, code, &events),
		})
	}
	return stores, events, nil
}

// ParseSales parses the sales table, dropping rows without a store code.
func ParseSales(data []byte) ([]schema.SalesRecord, bool, []diag.Event, error) {
	t, err := parseTable(schema.TableSales, data, requiredSales)
	if err != nil {
		return nil, false, nil, err
	}
	var (
		sales  []schema.SalesRecord
		events []diag.Event
	)
	for i, rec := range t.records {
		if blank(rec) {
			continue
		}
		line := t.lines[i]
		code := t.cell(rec, ColStoreCode)
		if isMissing(code) {
			events = append(events, diag.Event{Kind: schema.KindMissingIdentifier, Table: t.name, Line: line, Detail: ColStoreCode})
			continue
		}
		sales = append(sales, schema.SalesRecord{
			StoreCode: code,
			Year:      t.cell(rec, ColYear),
			Revenue:   t.num(rec, ColRevenue, line, code, &events),
		})
	}
	return sales, t.has(ColYear), events, nil
}

// linkStores drops stores whose mall is missing from the mall table.
func linkStores(stores []schema.Store, malls []schema.Mall) ([]schema.Store, []diag.Event) {
	known := make(map[string]struct{}, len(malls))
	for _, m := range malls {
		known[m.ID] = struct{}{}
	}
	var (
		kept   = make([]schema.Store, 0, len(stores))
		events []diag.Event
	)
	for _, s := range stores {
		if _, ok := known[s.MallID]; !ok {
			events = append(events, diag.Event{
				Kind:   schema.KindOrphanStore,
				Table:  schema.TableStores,
				ID:     s.Code,
				Detail: fmt.Sprintf("mall_id=%q", s.MallID),
			})
			continue
		}
		kept = append(kept, s)
	}
	return kept, events
}

// linkSales drops sales rows for stores that were not loaded.
func linkSales(sales []schema.SalesRecord, stores []schema.Store) ([]schema.SalesRecord, []diag.Event) {
	known := make(map[string]struct{}, len(stores))
	for _, s := range stores {
		known[s.Code] = struct{}{}
	}
	var (
		kept   = make([]schema.SalesRecord, 0, len(sales))
		events []diag.Event
	)
	for _, r := range sales {
		if _, ok := known[r.StoreCode]; !ok {
			events = append(events, diag.Event{Kind: schema.KindUnknownSalesStore, Table: schema.TableSales, ID: r.StoreCode})
			continue
		}
		kept = append(kept, r)
	}
	return kept, events
}
