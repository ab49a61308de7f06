// Package config provides configuration management for csmlog.
//
// Configuration is read from an optional YAML file, completed with defaults,
// overridden from the environment and validated.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("csmlog.yaml")
//
// An empty path or a missing file yields the defaults. A file that exists but
// fails to parse or validate is an error.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CSMLOG_SECTION_FIELD.
// For example:
//
//   - CSMLOG_STORE_PATH overrides store.path
//   - CSMLOG_KAFKA_BROKERS overrides kafka.brokers (comma separated)
//   - CSMLOG_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Command-line flags are applied by the CLI on top of the loaded value.
//
// # Example Configuration
//
//	output:
//	  format: jsonl
//	filter:
//	  names: [system-data]
//	  exempt_prefixes: ["data:text/css,%0A"]
//	store:
//	  enabled: true
//	  path: data/csmlog.db
//	  retention:
//	    days: 14
//	telemetry:
//	  logging:
//	    level: debug
package config
