package render

import (
	"github.com/goccy/go-json"

	"github.com/dshills/tenantmix/internal/dashboard"
)

type jsonRenderer struct{}

func (r *jsonRenderer) Render(report *dashboard.Report) ([]byte, error) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
