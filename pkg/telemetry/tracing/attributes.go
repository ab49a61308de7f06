package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on csmlog spans. Custom keys use the "csmlog.*"
// namespace.
const (
	AttrSource = "csmlog.source"

	AttrLines        = "csmlog.scan.lines"
	AttrBlocks       = "csmlog.scan.blocks"
	AttrDecoded      = "csmlog.scan.decoded"
	AttrFailed       = "csmlog.scan.failed"
	AttrUnterminated = "csmlog.scan.unterminated"
	AttrUnclassified = "csmlog.scan.unclassified"

	AttrRecords     = "csmlog.records"
	AttrSinkTopic   = "messaging.destination.name"
	AttrSinkSystem  = "messaging.system"
	AttrStoreDriver = "db.system"
)

// ScanCounts is the subset of scan statistics recorded on a span.
type ScanCounts struct {
	Lines        int
	Blocks       int
	Decoded      int
	Failed       int
	Unterminated int
	Unclassified int
}

// SetScanAttributes records scan statistics on a span.
func SetScanAttributes(span trace.Span, counts ScanCounts) {
	span.SetAttributes(
		attribute.Int(AttrLines, counts.Lines),
		attribute.Int(AttrBlocks, counts.Blocks),
		attribute.Int(AttrDecoded, counts.Decoded),
		attribute.Int(AttrFailed, counts.Failed),
		attribute.Int(AttrUnterminated, counts.Unterminated),
		attribute.Int(AttrUnclassified, counts.Unclassified),
	)
}

// SetSourceAttribute records the input name on a span.
func SetSourceAttribute(span trace.Span, source string) {
	span.SetAttributes(attribute.String(AttrSource, source))
}

// SetSinkAttributes records messaging attributes for a publish span.
func SetSinkAttributes(span trace.Span, system, topic string, records int) {
	span.SetAttributes(
		attribute.String(AttrSinkSystem, system),
		attribute.String(AttrSinkTopic, topic),
		attribute.Int(AttrRecords, records),
	)
}
