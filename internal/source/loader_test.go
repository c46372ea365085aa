package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/tenantmix/internal/schema"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const (
	mallsCSV = "mall_id,name,gla_sqm,annual_footfall\n" +
		"M1,North,50000,12000000\n" +
		"M2,South,NA,8000000\n"
	storesCSV = "store_code,mall_id,category,sub_category,area_sqm,annual_rent\n" +
		"S1,M1,Fashion,Fast Fashion,200,80000\n" +
		"S2,M1,Electronics,Electronics,150,abc\n" +
		",M1,Fashion,Shoes,100,40000\n" +
		"S3,M9,Food,Cafe,80,30000\n" +
		"S1,M2,Fashion,Shoes,120,50000\n" +
		"S4,M2,Food,Cafe,90,35000\n"
	salesCSV = "store_code,year,revenue\n" +
		"S1,2023,1000000\n" +
		"S1,2024,1200000\n" +
		"S2,2024,900000\n" +
		",2024,5\n" +
		"S3,2024,100\n"
)

func loadFixture(t *testing.T) (*Tables, []string) {
	t.Helper()
	tables, events, err := Load(Paths{
		Malls:  writeTemp(t, "malls.csv", mallsCSV),
		Stores: writeTemp(t, "stores.csv", storesCSV),
		Sales:  writeTemp(t, "sales.csv", salesCSV),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = string(e.Kind) + ":" + e.Table
	}
	return tables, kinds
}

func TestLoad_DropsAndLinks(t *testing.T) {
	tables, kinds := loadFixture(t)

	if len(tables.Malls) != 2 {
		t.Errorf("malls = %d, want 2", len(tables.Malls))
	}
	codes := make([]string, len(tables.Stores))
	for i, s := range tables.Stores {
		codes[i] = s.Code
	}
	if strings.Join(codes, ",") != "S1,S2,S4" {
		t.Errorf("stores = %v, want [S1 S2 S4]", codes)
	}
	if len(tables.Sales) != 3 {
		t.Errorf("sales rows = %d, want 3 (S3 is orphaned, one row has no id)", len(tables.Sales))
	}
	if !tables.HasYear {
		t.Error("HasYear = false, want true")
	}

	want := map[string]int{
		"MISSING_IDENTIFIER:stores":   1,
		"MISSING_IDENTIFIER:sales":    1,
		"DUPLICATE_IDENTIFIER:stores": 1,
		"ORPHAN_STORE:stores":         1,
		"UNKNOWN_SALES_STORE:sales":   1,
		"INVALID_NUMERIC:stores":      1,
	}
	got := map[string]int{}
	for _, k := range kinds {
		got[k]++
	}
	for k, n := range want {
		if got[k] != n {
			t.Errorf("%s = %d, want %d (all: %v)", k, got[k], n, kinds)
		}
	}
}

func TestLoad_MissingValues(t *testing.T) {
	tables, _ := loadFixture(t)
	if tables.Malls[1].GLASqm.Valid {
		t.Error("NA gla_sqm should be invalid")
	}
	if !tables.Malls[0].GLASqm.Valid || tables.Malls[0].GLASqm.V != 50000 {
		t.Errorf("M1 gla = %+v", tables.Malls[0].GLASqm)
	}
	if tables.Stores[1].AnnualRent.Valid {
		t.Error("non-numeric rent should be invalid")
	}
	if tables.Stores[0].Floor.Valid {
		t.Error("absent floor column should be invalid")
	}
}

func TestLoad_HashesSources(t *testing.T) {
	tables, _ := loadFixture(t)
	if len(tables.Files) != 3 {
		t.Fatalf("files = %d, want 3", len(tables.Files))
	}
	for _, f := range tables.Files {
		if !strings.HasPrefix(f.Hash, "sha256:") {
			t.Errorf("%s hash missing sha256 prefix: %q", f.Table, f.Hash)
		}
	}
	if tables.Files[1].Rows != 6 {
		t.Errorf("stores rows = %d, want 6", tables.Files[1].Rows)
	}
}

func TestLoad_MissingRequiredColumn(t *testing.T) {
	_, _, err := Load(Paths{
		Malls:  writeTemp(t, "malls.csv", mallsCSV),
		Stores: writeTemp(t, "stores.csv", "store_code,mall_id,area_sqm\nS1,M1,100\n"),
		Sales:  writeTemp(t, "sales.csv", salesCSV),
	})
	if !errors.Is(err, schema.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want schema mismatch", err)
	}
	if !strings.Contains(err.Error(), "sub_category") {
		t.Errorf("error does not name the missing column: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(Paths{
		Malls:  "/nonexistent/malls.csv",
		Stores: "/nonexistent/stores.csv",
		Sales:  "/nonexistent/sales.csv",
	})
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if errors.Is(err, schema.ErrSchemaMismatch) {
		t.Errorf("missing file should not be a schema mismatch: %v", err)
	}
}

func TestParseStores_HeaderCaseInsensitive(t *testing.T) {
	stores, events, err := ParseStores([]byte("\ufeffStore_Code, MALL_ID ,Sub_Category,Area_SQM\nS1,M1,Cafe,80\n"))
	if err != nil {
		t.Fatalf("ParseStores: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("unexpected events: %v", events)
	}
	if len(stores) != 1 || stores[0].MallID != "M1" || stores[0].AreaSqm.V != 80 {
		t.Errorf("stores = %+v", stores)
	}
}

func TestParseStores_BlankSubCategoryDropped(t *testing.T) {
	stores, events, err := ParseStores([]byte("store_code,mall_id,sub_category,area_sqm\nS1,M1,Cafe,80\nS2,M1,,90\nS3,M1,NA,70\n"))
	if err != nil {
		t.Fatalf("ParseStores: %v", err)
	}
	if len(stores) != 1 || stores[0].Code != "S1" {
		t.Errorf("stores = %+v, want only S1", stores)
	}
	if len(events) != 2 {
		t.Fatalf("events = %v, want 2", events)
	}
	for i, want := range []string{"S2", "S3"} {
		e := events[i]
		if e.Kind != schema.KindMissingCategory || e.ID != want || e.Detail != ColSubCategory {
			t.Errorf("events[%d] = %+v, want MISSING_CATEGORY for %s", i, e, want)
		}
	}
}

func TestParseSales_NoYearColumn(t *testing.T) {
	_, hasYear, _, err := ParseSales([]byte("store_code,revenue\nS1,10\n"))
	if err != nil {
		t.Fatalf("ParseSales: %v", err)
	}
	if hasYear {
		t.Error("HasYear = true without a year column")
	}
}

func TestParseMalls_EmptyTable(t *testing.T) {
	_, _, err := ParseMalls(nil)
	if !errors.Is(err, schema.ErrSchemaMismatch) {
		t.Errorf("err = %v, want schema mismatch", err)
	}
}
