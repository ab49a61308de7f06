// Package export writes content security checks in machine- and
// human-readable formats.
//
// # Formats
//
//   - json: one array, optionally indented
//   - jsonl: one object per line
//   - csv: one row per check; list fields are joined with a separator
//   - yaml: one sequence document
//   - text: colorized two-line summaries for terminals
//
// # Usage
//
//	exporter, err := export.New(&cfg.Output)
//	if err != nil {
//		return err
//	}
//	if err := exporter.Export(ctx, checks, os.Stdout); err != nil {
//		return err
//	}
//
// Absent values follow the record model: absent principals, HTTP methods,
// redirect chains and CSP lists are null in JSON and YAML and empty cells
// in CSV.
package export
