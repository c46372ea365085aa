package render

import (
	"fmt"
	"strings"

	"github.com/dshills/tenantmix/internal/dashboard"
)

// Renderer formats a dashboard Report into bytes for output.
type Renderer interface {
	Render(report *dashboard.Report) ([]byte, error)
}

// Formats lists the accepted format names.
var Formats = []string{"json", "md", "text"}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "json", "md", "text" (default).
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json":
		return &jsonRenderer{}, nil
	case "md":
		return &markdownRenderer{}, nil
	case "text", "":
		return &textRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are %s", format, strings.Join(Formats, ", "))
	}
}
