package csm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"mercator-hq/csmlog/pkg/csm/check"
	csmerrors "mercator-hq/csmlog/pkg/csm/errors"
	"mercator-hq/csmlog/pkg/csm/scanner"
	"mercator-hq/csmlog/pkg/telemetry/metrics"
	"mercator-hq/csmlog/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
)

// StdinSource is the source name that reads standard input.
const StdinSource = "-"

// Options configures an Extractor. Every field is optional.
type Options struct {
	// MaxLineSize is the longest log line accepted.
	MaxLineSize int

	// Decoder overrides the block decoder.
	Decoder scanner.BlockDecoder

	// Logger receives scan progress and diagnostics.
	Logger *slog.Logger

	// Metrics records scan statistics.
	Metrics *metrics.Collector

	// Tracer wraps each extraction in a span.
	Tracer *tracing.Tracer
}

// Extractor runs the scanner over log inputs and reports to the configured
// telemetry. It is safe for concurrent use; every call gets its own scanner.
type Extractor struct {
	opts   Options
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		opts:   opts,
		logger: logger.With("component", "csm.extractor"),
	}
}

// Extract scans r, naming it source in diagnostics and on every check.
//
// The returned error is non-nil only when r cannot be read or ctx is
// cancelled. The partial result is returned alongside it.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, source string) (*scanner.Result, error) {
	if e.opts.Tracer != nil {
		var span trace.Span
		ctx, span = e.opts.Tracer.Start(ctx, "csmlog.extract")
		defer span.End()
	}

	start := time.Now()
	s := scanner.New(scanner.Options{
		Source:      source,
		MaxLineSize: e.opts.MaxLineSize,
		Decoder:     e.opts.Decoder,
		Logger:      e.opts.Logger,
	})
	result, err := s.Scan(ctx, r)
	elapsed := time.Since(start)

	e.report(ctx, source, result, elapsed, err)
	return result, err
}

// ExtractFile opens path and extracts from it. StdinSource reads stdin.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*scanner.Result, error) {
	if path == StdinSource || path == "" {
		return e.Extract(ctx, os.Stdin, StdinSource)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &csmerrors.Error{
			Type:     csmerrors.ErrorTypeIO,
			Message:  fmt.Sprintf("opening input: %v", err),
			Location: csmerrors.Location{Source: path},
			Cause:    err,
		}
	}
	defer f.Close()

	return e.Extract(ctx, f, path)
}

func (e *Extractor) report(ctx context.Context, source string, result *scanner.Result, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	tracing.SetSourceAttribute(span, source)
	tracing.SetScanAttributes(span, tracing.ScanCounts(result.Stats))
	tracing.SetError(span, err)
	tracing.SetStatus(span, err)

	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordScan(result.Stats, elapsed, err)
		e.opts.Metrics.RecordDiagnostics(result)
		e.opts.Metrics.RecordChecks(result.Checks)
	}

	attrs := []any{
		"source", source,
		"lines", result.Stats.Lines,
		"checks", len(result.Checks),
		"failed", result.Stats.Failed,
		"unterminated", result.Stats.Unterminated,
		"oversized", result.Stats.Oversized,
		"duration", elapsed,
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "extraction aborted", append(attrs, "error", err)...)
		return
	}
	if result.Stats.Lines == 0 {
		e.logger.WarnContext(ctx, "input is empty", "source", source)
	}
	e.logger.InfoContext(ctx, "extraction complete", attrs...)
}

// Extract scans text with default options and returns the decoded checks in
// input order. Diagnostics are discarded; use an Extractor to inspect them.
func Extract(text string) []*check.ContentSecurityCheck {
	s := scanner.New(scanner.Options{
		Logger: slog.New(slog.DiscardHandler),
	})
	result, _ := s.Scan(context.Background(), strings.NewReader(text))
	return result.Checks
}
