package metrics

import (
	"mercator-hq/csmlog/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OutputMetrics tracks where extracted checks go.
//
// Metrics:
//   - csmlog_store_writes_total: Rows written to the store by result
//   - csmlog_store_records: Records currently stored
//   - csmlog_store_pruned_total: Records removed by retention
//   - csmlog_sink_messages_total: Messages published by sink and status
type OutputMetrics struct {
	storeWrites   *prometheus.CounterVec
	storeRecords  prometheus.Gauge
	storePruned   prometheus.Counter
	sinkMessages  *prometheus.CounterVec
	storeFailures prometheus.Counter
}

// NewOutputMetrics creates and registers output metrics with the provided registry.
func NewOutputMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *OutputMetrics {
	om := &OutputMetrics{
		storeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "store",
				Name:      "writes_total",
				Help:      "Total number of rows handled by the store",
			},
			[]string{"result"},
		),

		storeRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "store",
				Name:      "records",
				Help:      "Number of records currently stored",
			},
		),

		storePruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "store",
				Name:      "pruned_total",
				Help:      "Total number of records removed by retention",
			},
		),

		storeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "store",
				Name:      "write_failures_total",
				Help:      "Total number of failed store batches",
			},
		),

		sinkMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "sink",
				Name:      "messages_total",
				Help:      "Total number of messages published",
			},
			[]string{"sink", "status"},
		),
	}

	registry.MustRegister(
		om.storeWrites,
		om.storeRecords,
		om.storePruned,
		om.storeFailures,
		om.sinkMessages,
	)

	return om
}

// RecordStoreWrite records a persisted batch.
func (om *OutputMetrics) RecordStoreWrite(inserted, skipped int, err error) {
	if err != nil {
		om.storeFailures.Inc()
		return
	}
	om.storeWrites.WithLabelValues("inserted").Add(float64(inserted))
	om.storeWrites.WithLabelValues("duplicate").Add(float64(skipped))
}

// SetStoredRecords sets the stored record gauge.
func (om *OutputMetrics) SetStoredRecords(count int64) {
	om.storeRecords.Set(float64(count))
}

// RecordPruned counts pruned records.
func (om *OutputMetrics) RecordPruned(count int64) {
	om.storePruned.Add(float64(count))
}

// RecordPublish counts published messages.
func (om *OutputMetrics) RecordPublish(sink string, messages int, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	om.sinkMessages.WithLabelValues(sink, status).Add(float64(messages))
}
