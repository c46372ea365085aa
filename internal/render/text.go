package render

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/dshills/tenantmix/internal/dashboard"
)

type textRenderer struct{}

func (r *textRenderer) Render(report *dashboard.Report) ([]byte, error) {
	var buf bytes.Buffer
	for i, m := range report.Malls {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "Mall %s: %d stores, %d underperforming, %d opportunities\n",
			m.MallID, m.Stores, m.Underperforming, m.Opportunities)
		fmt.Fprintf(&buf, "  avg uplift %.2f /m2, revenue unlock %.2f\n", m.AvgUplift, m.RevenueUnlock)
		if len(m.Table) == 0 {
			continue
		}
		tw := tabwriter.NewWriter(&buf, 2, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "  STORE\tCURRENT\tRECOMMENDED\tDENSITY\tPROJECTED\tUPLIFT\t")
		for _, o := range m.Table {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%.2f\t%.2f\t%.2f\t\n",
				o.StoreCode, o.CurrentSubCat, o.RecSubCat, o.CurrentDensity, o.Projected, o.Uplift)
		}
		if err := tw.Flush(); err != nil {
			return nil, fmt.Errorf("rendering text: %w", err)
		}
	}
	switch n := len(report.Malls); {
	case n == 0:
		buf.WriteString("No stores in the artifact.\n")
	case n > 1:
		opps, unlock := report.Totals()
		fmt.Fprintf(&buf, "\nPortfolio: %d malls, %d opportunities, revenue unlock %.2f\n", n, opps, unlock)
	}
	return buf.Bytes(), nil
}
