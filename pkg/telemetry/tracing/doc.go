// Package tracing provides OpenTelemetry tracing for csmlog.
//
// Each extraction runs inside a "csmlog.extract" span carrying the input name
// and scan statistics. Store writes and Kafka publishes create child spans.
// Spans are exported over OTLP gRPC.
//
// # Sampling Strategies
//
// Three sampling strategies are supported:
//   - always: Sample all traces
//   - never: Sample no traces
//   - ratio: Sample a percentage of traces
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "csmlog.extract")
//	defer span.End()
//
// When tracing is disabled, New returns a tracer backed by the noop provider.
package tracing
