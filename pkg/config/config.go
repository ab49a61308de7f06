package config

import "time"

// Config is the root configuration structure for csmlog.
// It contains all configuration sections for scanning, output, persistence,
// publishing, watch mode and telemetry.
type Config struct {
	// Scanner contains block scanner settings.
	Scanner ScannerConfig `yaml:"scanner"`

	// Input controls how input paths are discovered and processed.
	Input InputConfig `yaml:"input"`

	// Output contains settings for rendering extracted checks.
	Output OutputConfig `yaml:"output"`

	// Filter contains default record filters.
	Filter FilterConfig `yaml:"filter"`

	// Store contains SQLite persistence configuration including retention.
	Store StoreConfig `yaml:"store"`

	// Kafka contains configuration for publishing checks to Kafka.
	Kafka KafkaConfig `yaml:"kafka"`

	// Watch contains configuration for the watch command.
	Watch WatchConfig `yaml:"watch"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ScannerConfig contains block scanner settings.
type ScannerConfig struct {
	// MaxLineSize is the longest log line accepted, in bytes.
	// Default: 1048576 (1MB)
	MaxLineSize int `yaml:"max_line_size"`

	// Strict makes the CLI exit non-zero when any block failed to decode.
	// Default: false
	Strict bool `yaml:"strict"`
}

// InputConfig controls input discovery.
type InputConfig struct {
	// Extensions lists the file extensions picked up when a directory is
	// given as input.
	// Default: [".log", ".txt", ".moz_log"]
	Extensions []string `yaml:"extensions"`

	// Jobs is the number of input files processed concurrently.
	// Default: 1
	Jobs int `yaml:"jobs"`
}

// OutputConfig contains settings for rendering extracted checks.
type OutputConfig struct {
	// Format is the output format.
	// Options: "json", "jsonl", "csv", "yaml", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// Path is the output file; "" or "-" writes to stdout.
	Path string `yaml:"path"`

	// Pretty enables indented JSON.
	// Default: true
	Pretty bool `yaml:"pretty"`

	// CSVHeader writes a header row in CSV output.
	// Default: true
	CSVHeader bool `yaml:"csv_header"`

	// CSVSeparator joins list fields inside a CSV cell.
	// Default: "|"
	CSVSeparator string `yaml:"csv_separator"`
}

// FilterConfig contains record filters applied by default.
type FilterConfig struct {
	// Names lists the filters applied to every extraction.
	// Options: "system-data", "parent", "child"
	Names []string `yaml:"names"`

	// ExemptPrefixes lists channel URI prefixes ignored by the
	// "system-data" filter.
	ExemptPrefixes []string `yaml:"exempt_prefixes"`
}

// StoreConfig contains SQLite persistence configuration.
type StoreConfig struct {
	// Enabled controls whether extracted checks are persisted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/csmlog.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// Dedupe skips records whose canonical digest is already stored.
	// Default: true
	Dedupe bool `yaml:"dedupe"`

	// Retention contains record retention settings.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains retention policy settings.
type RetentionConfig struct {
	// Days is the number of days to keep records (0 = keep forever).
	// Default: 30
	Days int `yaml:"days"`

	// Schedule is the cron expression for pruning.
	// Default: "0 3 * * *" (daily at 03:00)
	Schedule string `yaml:"schedule"`

	// MaxRecords caps the number of stored records (0 = unlimited).
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// ArchivePath is a directory receiving a JSON export of every pruned
	// batch. Empty disables archiving.
	ArchivePath string `yaml:"archive_path"`
}

// KafkaConfig contains configuration for the Kafka sink.
type KafkaConfig struct {
	// Enabled controls whether checks are published.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Brokers lists the bootstrap brokers ("host:port").
	Brokers []string `yaml:"brokers"`

	// Topic is the destination topic.
	// Default: "csmlog.checks"
	Topic string `yaml:"topic"`

	// BatchSize is the maximum number of messages per batch.
	// Default: 100
	BatchSize int `yaml:"batch_size"`

	// BatchTimeout bounds how long a partial batch waits.
	// Default: 1s
	BatchTimeout time.Duration `yaml:"batch_timeout"`

	// WriteTimeout bounds a single write.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RequiredAcks is the acknowledgement level.
	// Options: "none", "one", "all"
	// Default: "one"
	RequiredAcks string `yaml:"required_acks"`
}

// WatchConfig contains configuration for the watch command.
type WatchConfig struct {
	// Debounce coalesces bursts of file events.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce"`

	// Recursive also watches subdirectories.
	// Default: false
	Recursive bool `yaml:"recursive"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "console"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactURLs strips credentials and query strings from URLs in logs.
	// Default: true
	RedactURLs bool `yaml:"redact_urls"`

	// RedactPatterns contains custom redaction patterns.
	// Each pattern has a name, regex, and replacement string.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is where watch mode serves the metrics endpoint.
	// Empty disables the listener.
	// Default: ""
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "csmlog"
	Namespace string `yaml:"namespace"`

	// TextfilePath writes metrics in the node_exporter textfile format
	// after a one-shot extraction. Empty disables it.
	TextfilePath string `yaml:"textfile_path"`

	// ScanDurationBuckets defines histogram buckets for scan duration (seconds).
	// Default: [0.001, 0.01, 0.1, 0.5, 1, 5, 30]
	ScanDurationBuckets []float64 `yaml:"scan_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "csmlog"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
