package errors

import (
	"fmt"
	"strings"
)

// ErrorType categorizes a diagnostic raised while extracting checks.
type ErrorType string

const (
	ErrorTypeUnclassifiedLine  ErrorType = "unclassified_line"  // Line inside a block without the CSMLog tag
	ErrorTypeUnterminatedBlock ErrorType = "unterminated_block" // Begin marker without matching end marker
	ErrorTypeSyntax            ErrorType = "syntax"             // Block markup is malformed
	ErrorTypeStructural        ErrorType = "structural"         // Unknown, duplicate or mistyped field
	ErrorTypePrincipal         ErrorType = "principal"          // Principal value failed to parse
	ErrorTypeIO                ErrorType = "io"                 // Input could not be read
)

// IsBlockDecode reports whether the type causes a block to be skipped
// during decoding.
func (t ErrorType) IsBlockDecode() bool {
	switch t {
	case ErrorTypeSyntax, ErrorTypeStructural, ErrorTypePrincipal:
		return true
	}
	return false
}

// Location is a position in the scanned input.
type Location struct {
	Source string // File name, or "-" for stdin
	Line   int    // Line number (1-based)
}

// String returns "source:line".
func (l Location) String() string {
	source := l.Source
	if source == "" {
		source = "<input>"
	}
	if l.Line <= 0 {
		return source
	}
	return fmt.Sprintf("%s:%d", source, l.Line)
}

// IsValid returns true if the location has line information.
func (l Location) IsValid() bool {
	return l.Line > 0
}

// Error is a diagnostic with location, raw block context and an optional
// suggestion.
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Error message
	Location   Location  // Input location
	Context    string    // Raw block lines with line numbers
	Suggestion string    // Suggested fix (optional)
	Cause      error     // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] %s\n", e.Type, e.Message)

	if e.Location.IsValid() {
		fmt.Fprintf(&sb, "  --> %s\n", e.Location)
	}

	if e.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Context)
		sb.WriteString("  |\n")
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "  = suggestion: %s\n", e.Suggestion)
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Summary returns the message prefixed with the location, on one line.
func (e *Error) Summary() string {
	if e.Location.IsValid() {
		return fmt.Sprintf("%s: %s", e.Location, e.Message)
	}
	return e.Message
}

// ErrorList accumulates diagnostics instead of stopping at the first one.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, location Location) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Location: location,
	})
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d error(s):\n\n", el.Count())

	for i, err := range el.Errors {
		fmt.Fprintf(&sb, "Error %d:\n", i+1)
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil if the error list is empty, otherwise returns the error list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the error list contains at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}
