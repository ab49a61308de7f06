package cli

import (
	"errors"
	"fmt"
)

// Exit codes returned by the csmlog binary.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitDiagnostics = 2
)

// ConfigError represents an error in configuration or flags.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// DiagnosticsError is returned in strict mode when blocks could not be
// decoded. Extraction itself completed.
type DiagnosticsError struct {
	Failed       int
	Unterminated int
}

func (e *DiagnosticsError) Error() string {
	return fmt.Sprintf("%d block(s) failed to decode, %d unterminated", e.Failed, e.Unterminated)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var de *DiagnosticsError
	if errors.As(err, &de) {
		return ExitDiagnostics
	}
	return ExitError
}
