package config

import "time"

// Default values for configuration fields.
const (
	// Scanner defaults
	DefaultMaxLineSize = 1 << 20

	// Input defaults
	DefaultJobs = 1

	// Output defaults
	DefaultOutputFormat = "json"
	DefaultOutputPretty = true
	DefaultCSVHeader    = true
	DefaultCSVSeparator = "|"

	// Store defaults
	DefaultStoreDriver       = "sqlite"
	DefaultStorePath         = "data/csmlog.db"
	DefaultStoreMaxOpenConns = 4
	DefaultStoreWALMode      = true
	DefaultStoreBusyTimeout  = 5 * time.Second
	DefaultStoreDedupe       = true
	DefaultRetentionDays     = 30
	DefaultRetentionSchedule = "0 3 * * *"

	// Kafka defaults
	DefaultKafkaTopic        = "csmlog.checks"
	DefaultKafkaBatchSize    = 100
	DefaultKafkaBatchTimeout = time.Second
	DefaultKafkaWriteTimeout = 10 * time.Second
	DefaultKafkaRequiredAcks = "one"

	// Watch defaults
	DefaultWatchDebounce = 500 * time.Millisecond

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "console"
	DefaultLoggingRedactURLs  = true
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "csmlog"
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "csmlog"
	DefaultTracingInsecure    = true
	DefaultTracingTimeout     = 10 * time.Second
)

// DefaultExtensions are the file extensions read from input directories.
var DefaultExtensions = []string{".log", ".txt", ".moz_log"}

// DefaultScanDurationBuckets are the scan duration histogram buckets.
var DefaultScanDurationBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30}

// Default returns a configuration with every default applied, including
// boolean fields whose default is true. Files are decoded on top of it so
// an explicit "false" survives.
func Default() *Config {
	cfg := &Config{
		Output: OutputConfig{
			Pretty:    DefaultOutputPretty,
			CSVHeader: DefaultCSVHeader,
		},
		Store: StoreConfig{
			WALMode: DefaultStoreWALMode,
			Dedupe:  DefaultStoreDedupe,
			Retention: RetentionConfig{
				Days: DefaultRetentionDays,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactURLs: DefaultLoggingRedactURLs},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{Insecure: DefaultTracingInsecure},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Scanner defaults
	if cfg.Scanner.MaxLineSize == 0 {
		cfg.Scanner.MaxLineSize = DefaultMaxLineSize
	}

	// Input defaults
	if len(cfg.Input.Extensions) == 0 {
		cfg.Input.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Input.Jobs == 0 {
		cfg.Input.Jobs = DefaultJobs
	}

	// Output defaults
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultOutputFormat
	}
	if cfg.Output.CSVSeparator == "" {
		cfg.Output.CSVSeparator = DefaultCSVSeparator
	}

	// Store defaults
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DefaultStoreDriver
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.MaxOpenConns == 0 {
		cfg.Store.MaxOpenConns = DefaultStoreMaxOpenConns
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = DefaultStoreBusyTimeout
	}
	if cfg.Store.Retention.Schedule == "" {
		cfg.Store.Retention.Schedule = DefaultRetentionSchedule
	}

	// Kafka defaults
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}
	if cfg.Kafka.RequiredAcks == "" {
		cfg.Kafka.RequiredAcks = DefaultKafkaRequiredAcks
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.ScanDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.ScanDurationBuckets = append([]float64(nil), DefaultScanDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
}
