// Package telemetry groups the observability packages used by csmlog.
//
//   - logging: log/slog setup with console, text and JSON output and URL redaction
//   - metrics: Prometheus collector for scans, diagnostics, store and sink
//   - tracing: OpenTelemetry tracer exporting over OTLP/gRPC
//   - health: liveness and readiness endpoints for watch mode
//
// Every component accepts nil telemetry and falls back to slog.Default(), no
// metrics and no spans.
package telemetry
