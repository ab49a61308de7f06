package export

import (
	"context"
	"io"

	"mercator-hq/csmlog/pkg/csm/check"

	"gopkg.in/yaml.v3"
)

// YAMLExporter exports checks as a YAML sequence.
type YAMLExporter struct {
	// Indent is the number of spaces per nesting level.
	Indent int
}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter() *YAMLExporter {
	return &YAMLExporter{Indent: 2}
}

// Export writes checks to w as one YAML document.
func (e *YAMLExporter) Export(ctx context.Context, checks []*check.ContentSecurityCheck, w io.Writer) error {
	if checks == nil {
		checks = []*check.ContentSecurityCheck{}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(e.Indent)
	if err := enc.Encode(checks); err != nil {
		return NewExportError(FormatYAML, len(checks), err)
	}
	if err := enc.Close(); err != nil {
		return NewExportError(FormatYAML, len(checks), err)
	}
	return nil
}
