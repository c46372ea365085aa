package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dshills/tenantmix/internal/dashboard"
)

type markdownRenderer struct{}

type portfolio struct {
	Opportunities int
	RevenueUnlock float64
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"totals": func(r *dashboard.Report) portfolio {
		opps, unlock := r.Totals()
		return portfolio{Opportunities: opps, RevenueUnlock: unlock}
	},
	"potential": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", *v)
	},
}

var mdTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`# Tenant Mix Opportunities

**Artifact schema:** v{{ .SchemaVersion }} | **Average store size:** {{ money .AvgStoreSize }} m²
{{ range .Malls }}
---

## Mall {{ .MallID }}

**Stores:** {{ .Stores }} | **Underperforming:** {{ .Underperforming }} | **Identified opportunities:** {{ .Opportunities }}
**Avg density uplift:** {{ money .AvgUplift }} /m² | **Total revenue unlock:** {{ money .RevenueUnlock }}
{{ if .Table }}
| Store | Current | Recommended | Current density | Projected density | Uplift |
|---|---|---|---:|---:|---:|
{{ range .Table }}| {{ .StoreCode }} | {{ .CurrentSubCat }} | {{ .RecSubCat }} | {{ money .CurrentDensity }} | {{ money .Projected }} | {{ money .Uplift }} |
{{ end }}
### Scenarios
{{ range .Table }}
- **{{ .StoreCode }}**: current {{ money .Scenario.Current }}, location potential {{ potential .Scenario.LocationPotential }}, optimised {{ money .Scenario.Optimised }} ({{ .RecSubCat }})
{{- end }}
{{ else }}
No opportunities above the minimum uplift.
{{ end }}{{ end }}{{ if gt (len .Malls) 1 }}{{ with totals . }}
---

**Portfolio:** {{ .Opportunities }} opportunities | **Total revenue unlock:** {{ money .RevenueUnlock }}
{{ end }}{{ end }}`))

func (r *markdownRenderer) Render(report *dashboard.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
