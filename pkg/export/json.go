package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/csmlog/pkg/csm/check"
)

// JSONExporter exports checks as one JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes checks to w as a JSON array followed by a newline. An empty
// input is written as "[]".
func (e *JSONExporter) Export(ctx context.Context, checks []*check.ContentSecurityCheck, w io.Writer) error {
	if checks == nil {
		checks = []*check.ContentSecurityCheck{}
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(checks, "", "  ")
	} else {
		data, err = json.Marshal(checks)
	}
	if err != nil {
		return NewExportError(FormatJSON, len(checks), err)
	}

	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return NewExportError(FormatJSON, len(checks), err)
	}
	return nil
}

// JSONLExporter exports one JSON object per line.
type JSONLExporter struct{}

// NewJSONLExporter creates a new JSON Lines exporter.
func NewJSONLExporter() *JSONLExporter {
	return &JSONLExporter{}
}

// Export writes each check as a single JSON line.
func (e *JSONLExporter) Export(ctx context.Context, checks []*check.ContentSecurityCheck, w io.Writer) error {
	enc := json.NewEncoder(w)
	for i, c := range checks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(c); err != nil {
			return NewExportError(FormatJSONL, i, err)
		}
	}
	return nil
}
