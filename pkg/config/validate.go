package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "store.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Output formats accepted by output.format.
var validOutputFormats = map[string]bool{
	"json": true, "jsonl": true, "csv": true, "yaml": true, "text": true,
}

// Filter names accepted by filter.names.
var validFilterNames = map[string]bool{
	"system-data": true, "parent": true, "child": true,
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateScanner(&cfg.Scanner)...)
	errs = append(errs, validateInput(&cfg.Input)...)
	errs = append(errs, validateOutput(&cfg.Output)...)
	errs = append(errs, validateFilter(&cfg.Filter)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateKafka(&cfg.Kafka)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateScanner(cfg *ScannerConfig) []FieldError {
	var errs []FieldError
	if cfg.MaxLineSize < 256 {
		errs = append(errs, FieldError{
			Field:   "scanner.max_line_size",
			Message: "max line size must be at least 256 bytes",
		})
	}
	return errs
}

func validateInput(cfg *InputConfig) []FieldError {
	var errs []FieldError
	if cfg.Jobs < 1 {
		errs = append(errs, FieldError{
			Field:   "input.jobs",
			Message: "jobs must be at least 1",
		})
	}
	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("input.extensions[%d]", i),
				Message: fmt.Sprintf("extension %q must start with '.'", ext),
			})
		}
	}
	return errs
}

func validateOutput(cfg *OutputConfig) []FieldError {
	var errs []FieldError
	if !validOutputFormats[cfg.Format] {
		errs = append(errs, FieldError{
			Field:   "output.format",
			Message: fmt.Sprintf("invalid output format %q: must be 'json', 'jsonl', 'csv', 'yaml', or 'text'", cfg.Format),
		})
	}
	return errs
}

func validateFilter(cfg *FilterConfig) []FieldError {
	var errs []FieldError
	for i, name := range cfg.Names {
		if !validFilterNames[name] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("filter.names[%d]", i),
				Message: fmt.Sprintf("unknown filter %q", name),
			})
		}
	}
	return errs
}

// validateStore validates store and retention configuration.
func validateStore(cfg *StoreConfig) []FieldError {
	var errs []FieldError

	if cfg.Driver != "sqlite" && cfg.Driver != "sqlite3" {
		errs = append(errs, FieldError{
			Field:   "store.driver",
			Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.Driver),
		})
	}
	if cfg.Enabled && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "store.path",
			Message: "store path is required when the store is enabled",
		})
	}
	if cfg.MaxOpenConns < 1 {
		errs = append(errs, FieldError{
			Field:   "store.max_open_conns",
			Message: "max open connections must be at least 1",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "store.busy_timeout",
			Message: "busy timeout must be positive",
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "store.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "store.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "store.retention.schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.Schedule, err),
		})
	}

	return errs
}

func validateKafka(cfg *KafkaConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return errs
	}

	if len(cfg.Brokers) == 0 {
		errs = append(errs, FieldError{
			Field:   "kafka.brokers",
			Message: "at least one broker is required when kafka is enabled",
		})
	}
	for i, broker := range cfg.Brokers {
		if _, _, err := net.SplitHostPort(broker); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("kafka.brokers[%d]", i),
				Message: fmt.Sprintf("invalid broker address %q: %v", broker, err),
			})
		}
	}
	if cfg.Topic == "" {
		errs = append(errs, FieldError{
			Field:   "kafka.topic",
			Message: "topic is required when kafka is enabled",
		})
	}
	switch cfg.RequiredAcks {
	case "none", "one", "all":
	default:
		errs = append(errs, FieldError{
			Field:   "kafka.required_acks",
			Message: fmt.Sprintf("invalid required acks %q: must be 'none', 'one', or 'all'", cfg.RequiredAcks),
		})
	}
	if cfg.BatchSize < 1 {
		errs = append(errs, FieldError{
			Field:   "kafka.batch_size",
			Message: "batch size must be at least 1",
		})
	}
	return errs
}

func validateWatch(cfg *WatchConfig) []FieldError {
	var errs []FieldError
	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{
			Field:   "watch.debounce",
			Message: "debounce must be positive",
		})
	}
	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	// Validate metrics prometheus path
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
