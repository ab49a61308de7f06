package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "CSMLOG_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default(), so omitted fields keep their
// defaults. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CSMLOG_SECTION_FIELD (e.g., CSMLOG_STORE_PATH).
// Environment variables always take precedence over file-based configuration.
//
// An empty path or a missing file is not an error: defaults are used.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := LoadConfig(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
			// defaults
		default:
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Scanner overrides
	envInt("SCANNER_MAX_LINE_SIZE", &cfg.Scanner.MaxLineSize)
	envBool("SCANNER_STRICT", &cfg.Scanner.Strict)

	// Input overrides
	envList("INPUT_EXTENSIONS", &cfg.Input.Extensions)
	envInt("INPUT_JOBS", &cfg.Input.Jobs)

	// Output overrides
	envString("OUTPUT_FORMAT", &cfg.Output.Format)
	envString("OUTPUT_PATH", &cfg.Output.Path)
	envBool("OUTPUT_PRETTY", &cfg.Output.Pretty)

	// Filter overrides
	envList("FILTER_NAMES", &cfg.Filter.Names)
	envList("FILTER_EXEMPT_PREFIXES", &cfg.Filter.ExemptPrefixes)

	// Store overrides
	envBool("STORE_ENABLED", &cfg.Store.Enabled)
	envString("STORE_DRIVER", &cfg.Store.Driver)
	envString("STORE_PATH", &cfg.Store.Path)
	envBool("STORE_DEDUPE", &cfg.Store.Dedupe)
	envInt("STORE_RETENTION_DAYS", &cfg.Store.Retention.Days)
	envString("STORE_RETENTION_SCHEDULE", &cfg.Store.Retention.Schedule)
	envString("STORE_RETENTION_ARCHIVE_PATH", &cfg.Store.Retention.ArchivePath)

	// Kafka overrides
	envBool("KAFKA_ENABLED", &cfg.Kafka.Enabled)
	envList("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	envString("KAFKA_TOPIC", &cfg.Kafka.Topic)
	envString("KAFKA_REQUIRED_ACKS", &cfg.Kafka.RequiredAcks)

	// Watch overrides
	envDuration("WATCH_DEBOUNCE", &cfg.Watch.Debounce)
	envBool("WATCH_RECURSIVE", &cfg.Watch.Recursive)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_URLS", &cfg.Telemetry.Logging.RedactURLs)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envString("TELEMETRY_METRICS_TEXTFILE_PATH", &cfg.Telemetry.Metrics.TextfilePath)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envList(name string, dst *[]string) {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
