// Package errors provides the diagnostic types raised while extracting
// content security checks from a log.
//
// Diagnostics carry the input location, a dump of the raw block they refer
// to and, for unknown field names, a suggestion.
//
// # Error Types
//
// ErrorTypeUnclassifiedLine: a line inside a block lacks the CSMLog tag and was dropped
//
// ErrorTypeUnterminatedBlock: a block was still open at end of input or at the next begin marker
//
// ErrorTypeSyntax, ErrorTypeStructural, ErrorTypePrincipal: the block failed to decode and was skipped
//
// ErrorTypeIO: the input could not be read
//
// # Basic Usage
//
//	list := errors.NewErrorList()
//	list.Add(&errors.Error{
//	    Type:     errors.ErrorTypeStructural,
//	    Message:  "unknown field 'channelUri'",
//	    Location: errors.Location{Source: "firefox.log", Line: 42},
//	    Suggestion: errors.SuggestFieldName("channelUri", fields),
//	})
//
// Only ErrorTypeIO aborts a scan; every other type is recorded and the scan
// continues with the next block.
package errors
