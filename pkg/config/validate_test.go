package config

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
}

func TestApplyDefaultsIdempotent(t *testing.T) {
	cfg := Default()
	ApplyDefaults(cfg)
	if len(cfg.Input.Extensions) != len(DefaultExtensions) {
		t.Errorf("Input.Extensions = %v, want %v", cfg.Input.Extensions, DefaultExtensions)
	}
	if cfg.Store.Retention.Days != DefaultRetentionDays {
		t.Errorf("Retention.Days = %d, want %d", cfg.Store.Retention.Days, DefaultRetentionDays)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"small line size", func(c *Config) { c.Scanner.MaxLineSize = 10 }, "scanner.max_line_size"},
		{"zero jobs", func(c *Config) { c.Input.Jobs = 0 }, "input.jobs"},
		{"extension without dot", func(c *Config) { c.Input.Extensions = []string{"log"} }, "input.extensions[0]"},
		{"unknown filter", func(c *Config) { c.Filter.Names = []string{"parent", "weird"} }, "filter.names[1]"},
		{"bad driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"negative retention", func(c *Config) { c.Store.Retention.Days = -1 }, "store.retention.days"},
		{"bad broker", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = []string{"localhost"}
		}, "kafka.brokers[0]"},
		{"bad acks", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = []string{"localhost:9092"}
			c.Kafka.RequiredAcks = "some"
		}, "kafka.required_acks"},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"bad redact pattern", func(c *Config) {
			c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "x", Pattern: "("}}
		}, "telemetry.logging.redact_patterns[0].pattern"},
		{"metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
		{"tracing endpoint", func(c *Config) { c.Telemetry.Tracing.Enabled = true }, "telemetry.tracing.endpoint"},
		{"sample ratio", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 2 }, "telemetry.tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() errors = %v, want field %q", verr.Errors, tt.wantField)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got, want := single.Error(), "configuration validation failed: a: bad"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}}
	got := multi.Error()
	if !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: worse") {
		t.Errorf("Error() = %q", got)
	}
}
