// Package metrics provides Prometheus metrics collection for csmlog.
//
// # Metrics Categories
//
//   - Scan Metrics: inputs scanned, scan duration, lines, blocks by outcome,
//     diagnostics by type, checks by process and external policy type
//   - Output Metrics: store writes, stored records, retention pruning and
//     sink publishes
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordScan(result.Stats, time.Since(start), err)
//	collector.RecordChecks(result.Checks)
//
// Watch mode serves the registry over HTTP:
//
//	mux.Handle("/metrics", collector.Handler())
//
// One-shot extraction can write a node_exporter textfile instead:
//
//	collector.WriteToTextfile("/var/lib/node_exporter/csmlog.prom")
//
// All label values come from closed sets (statuses, diagnostic types,
// process tags and policy type names), so cardinality stays bounded.
package metrics
