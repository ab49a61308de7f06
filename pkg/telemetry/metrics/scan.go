package metrics

import (
	"time"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/scanner"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics tracks log scanning.
//
// Metrics:
//   - csmlog_scans_total: Inputs scanned by status
//   - csmlog_scan_duration_seconds: Scan duration histogram
//   - csmlog_lines_total: Log lines read
//   - csmlog_blocks_total: Blocks by outcome (decoded, failed, unterminated)
//   - csmlog_diagnostics_total: Diagnostics by type
//   - csmlog_checks_total: Decoded checks by process and external policy type
type ScanMetrics struct {
	scansTotal       *prometheus.CounterVec
	scanDuration     prometheus.Histogram
	linesTotal       prometheus.Counter
	blocksTotal      *prometheus.CounterVec
	diagnosticsTotal *prometheus.CounterVec
	checksTotal      *prometheus.CounterVec
}

// NewScanMetrics creates and registers scan metrics with the provided registry.
func NewScanMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ScanMetrics {
	sm := &ScanMetrics{
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "scans_total",
				Help:      "Total number of log inputs scanned",
			},
			[]string{"status"},
		),

		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "scan_duration_seconds",
				Help:      "Duration of a single input scan in seconds",
				Buckets:   cfg.ScanDurationBuckets,
			},
		),

		linesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "lines_total",
				Help:      "Total number of log lines read",
			},
		),

		blocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "blocks_total",
				Help:      "Total number of check blocks by outcome",
			},
			[]string{"outcome"},
		),

		diagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "diagnostics_total",
				Help:      "Total number of scan diagnostics by type",
			},
			[]string{"type"},
		),

		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "checks_total",
				Help:      "Total number of decoded content security checks",
			},
			[]string{"process", "external_type"},
		),
	}

	registry.MustRegister(
		sm.scansTotal,
		sm.scanDuration,
		sm.linesTotal,
		sm.blocksTotal,
		sm.diagnosticsTotal,
		sm.checksTotal,
	)

	return sm
}

// RecordScan records a completed scan.
func (sm *ScanMetrics) RecordScan(status string, stats scanner.Stats, duration time.Duration) {
	sm.scansTotal.WithLabelValues(status).Inc()
	sm.scanDuration.Observe(duration.Seconds())
	sm.linesTotal.Add(float64(stats.Lines))
	sm.blocksTotal.WithLabelValues("decoded").Add(float64(stats.Decoded))
	sm.blocksTotal.WithLabelValues("failed").Add(float64(stats.Failed))
	sm.blocksTotal.WithLabelValues("unterminated").Add(float64(stats.Unterminated))
}

// RecordDiagnostic counts one diagnostic.
func (sm *ScanMetrics) RecordDiagnostic(errType string) {
	sm.diagnosticsTotal.WithLabelValues(errType).Inc()
}

// RecordCheck counts one decoded check.
func (sm *ScanMetrics) RecordCheck(process, externalType string) {
	sm.checksTotal.WithLabelValues(process, externalType).Inc()
}
