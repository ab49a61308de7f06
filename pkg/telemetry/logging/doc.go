// Package logging provides structured logging for csmlog.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON, text and colorized console output
//   - Redaction of URL credentials and query strings
//   - Context fields for the command and input being processed
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:      "info",
//	    Format:     "console",
//	    RedactURLs: true,
//	})
//
//	logger.Info("scan complete", "source", "firefox.log", "checks", 12)
//
//	// Components accept a plain *slog.Logger
//	s := scanner.New(scanner.Options{Logger: logger.Slog()})
//
// Redaction is installed as a handler ReplaceAttr hook, so it also applies
// to records written through Slog().
package logging
