package metrics

import (
	"time"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/scanner"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector is the main orchestrator for all Prometheus metrics in csmlog.
// It owns a registry and exposes one Record method per event.
//
// Every Record method is a no-op when metrics are disabled, so callers never
// need to check.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	scanMetrics   *ScanMetrics
	outputMetrics *OutputMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "csmlog"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.ScanDurationBuckets) == 0 {
		cfg.ScanDurationBuckets = append([]float64(nil), config.DefaultScanDurationBuckets...)
	}

	return &Collector{
		config:        cfg,
		registry:      registry,
		scanMetrics:   NewScanMetrics(cfg, registry),
		outputMetrics: NewOutputMetrics(cfg, registry),
	}
}

// RecordScan records a finished scan of one input.
//
// Parameters:
//   - stats: counters reported by the scanner
//   - duration: wall time of the scan
//   - err: the fatal scan error, if any
func (c *Collector) RecordScan(stats scanner.Stats, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}

	status := StatusOK
	if err != nil {
		status = StatusError
	}
	c.scanMetrics.RecordScan(status, stats, duration)
}

// RecordDiagnostics counts the diagnostics of a scan by type.
func (c *Collector) RecordDiagnostics(result *scanner.Result) {
	if !c.config.Enabled || result == nil || result.Diagnostics == nil {
		return
	}

	for _, diag := range result.Diagnostics.Errors {
		c.scanMetrics.RecordDiagnostic(string(diag.Type))
	}
}

// RecordChecks counts decoded checks by process type and external content
// policy type. Both label sets are bounded by the policy type registry.
func (c *Collector) RecordChecks(checks []*check.ContentSecurityCheck) {
	if !c.config.Enabled {
		return
	}

	for _, chk := range checks {
		c.scanMetrics.RecordCheck(chk.ProcessType.String(), chk.ExternalContentPolicyType.String())
	}
}

// RecordStoreWrite records the outcome of persisting a batch.
//
// Parameters:
//   - inserted: rows written
//   - skipped: rows dropped as duplicates
//   - err: write error, if any
func (c *Collector) RecordStoreWrite(inserted, skipped int, err error) {
	if !c.config.Enabled {
		return
	}

	c.outputMetrics.RecordStoreWrite(inserted, skipped, err)
}

// SetStoredRecords sets the current number of stored records.
func (c *Collector) SetStoredRecords(count int64) {
	if !c.config.Enabled {
		return
	}

	c.outputMetrics.SetStoredRecords(count)
}

// RecordPruned records records removed by retention.
func (c *Collector) RecordPruned(count int64) {
	if !c.config.Enabled {
		return
	}

	c.outputMetrics.RecordPruned(count)
}

// RecordPublish records the outcome of publishing a batch to a sink.
func (c *Collector) RecordPublish(sink string, messages int, err error) {
	if !c.config.Enabled {
		return
	}

	c.outputMetrics.RecordPublish(sink, messages, err)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metrics are recorded.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}
