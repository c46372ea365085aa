// Package testutil builds synthetic mall portfolios for tests.
package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/dshills/tenantmix/internal/schema"
	"github.com/dshills/tenantmix/internal/source"
)

// SubCategories are the tenant categories of a synthetic portfolio, with
// their base density and parent category.
var SubCategories = []struct {
	Name    string
	Parent  string
	Density float64
}{
	{"Cafe", "Food", 400},
	{"Shoes", "Fashion", 1000},
	{"Electronics", "Tech", 2000},
}

// LowStore is the store trading far below the rest of its mall.
const LowStore = "M1-00"

// Portfolio builds malls×perMall stores with one year of sales each. Store
// M1-00 is a Cafe at density 100, the weakest store of M1.
func Portfolio(malls, perMall int) *source.Tables {
	t := &source.Tables{HasYear: true}
	for m := 1; m <= malls; m++ {
		mallID := fmt.Sprintf("M%d", m)
		t.Malls = append(t.Malls, schema.Mall{
			ID:             mallID,
			Name:           "Mall " + mallID,
			GLASqm:         schema.Num(40000),
			AnnualFootfall: schema.Num(float64(m) * 5e6),
		})
		for i := 0; i < perMall; i++ {
			code := fmt.Sprintf("%s-%02d", mallID, i)
			sc := SubCategories[i%len(SubCategories)]
			area := 100 + 10*float64(i)
			density := sc.Density * (1 + 0.02*float64(i%5))
			if code == LowStore {
				density = 100
			}
			t.Stores = append(t.Stores, schema.Store{
				Code:          code,
				MallID:        mallID,
				Category:      sc.Parent,
				SubCategory:   sc.Name,
				AreaSqm:       schema.Num(area),
				AnnualRent:    schema.Num(area * 300),
				Floor:         schema.Num(float64(i % 3)),
				TenantChanges: schema.Num(float64(i % 4)),
				VacantMonths:  schema.Num(0),
			})
			t.Sales = append(t.Sales, schema.SalesRecord{
				StoreCode: code,
				Year:      "2024",
				Revenue:   schema.Num(density * area),
			})
		}
	}
	return t
}

// WriteCSV writes t as the three source tables under dir.
func WriteCSV(tb testing.TB, dir string, t *source.Tables) source.Paths {
	tb.Helper()
	p := source.Paths{
		Malls:  filepath.Join(dir, "malls.csv"),
		Stores: filepath.Join(dir, "stores.csv"),
		Sales:  filepath.Join(dir, "sales.csv"),
	}

	malls := [][]string{{"mall_id", "name", "gla_sqm", "annual_footfall"}}
	for _, m := range t.Malls {
		malls = append(malls, []string{m.ID, m.Name, num(m.GLASqm), num(m.AnnualFootfall)})
	}
	stores := [][]string{{"store_code", "mall_id", "category", "sub_category", "area_sqm", "annual_rent", "floor", "tenant_changes", "vacant_months"}}
	for _, s := range t.Stores {
		stores = append(stores, []string{
			s.Code, s.MallID, s.Category, s.SubCategory,
			num(s.AreaSqm), num(s.AnnualRent), num(s.Floor), num(s.TenantChanges), num(s.VacantMonths),
		})
	}
	sales := [][]string{{"store_code", "year", "revenue"}}
	for _, r := range t.Sales {
		sales = append(sales, []string{r.StoreCode, r.Year, num(r.Revenue)})
	}

	writeCSV(tb, p.Malls, malls)
	writeCSV(tb, p.Stores, stores)
	writeCSV(tb, p.Sales, sales)
	return p
}

func num(v schema.Value) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.V, 'f', -1, 64)
}

func writeCSV(tb testing.TB, path string, records [][]string) {
	tb.Helper()
	f, err := os.Create(path)
	if err != nil {
		tb.Fatal(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		tb.Fatal(err)
	}
}
