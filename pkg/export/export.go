package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
)

// Supported export formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatYAML  = "yaml"
	FormatText  = "text"
)

// Formats lists every supported format.
var Formats = []string{FormatJSON, FormatJSONL, FormatCSV, FormatYAML, FormatText}

// Exporter writes checks to w in one format.
type Exporter interface {
	Export(ctx context.Context, checks []*check.ContentSecurityCheck, w io.Writer) error
}

// New returns the exporter for cfg.Format.
func New(cfg *config.OutputConfig) (Exporter, error) {
	switch cfg.Format {
	case FormatJSON, "":
		return NewJSONExporter(cfg.Pretty), nil
	case FormatJSONL:
		return NewJSONLExporter(), nil
	case FormatCSV:
		return NewCSVExporter(cfg.CSVHeader, cfg.CSVSeparator), nil
	case FormatYAML:
		return NewYAMLExporter(), nil
	case FormatText:
		return NewTextExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", cfg.Format)
	}
}
