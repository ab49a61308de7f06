package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/csmlog/pkg/config"
)

// Redactor rewrites sensitive parts of string log attributes. Channel URIs
// and redirect chains frequently carry session tokens in their query
// strings.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternURLCredentials = "url_credentials"
	PatternURLQuery       = "url_query"
)

var urlPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternURLCredentials, `(\b[a-zA-Z][a-zA-Z0-9+.-]*://)[^/\s@]+@`, "${1}***@"},
	{PatternURLQuery, `(\b[a-zA-Z][a-zA-Z0-9+.-]*://[^\s?#]*)\?[^\s#"']*`, "${1}?***"},
}

// NewRedactor creates a Redactor. urls enables the built-in URL patterns;
// custom patterns are applied after them in order.
func NewRedactor(urls bool, custom []config.RedactPattern) (*Redactor, error) {
	r := &Redactor{}

	if urls {
		for _, p := range urlPatterns {
			r.patterns = append(r.patterns, &redactPattern{
				name:        p.name,
				regex:       regexp.MustCompile(p.regex),
				replacement: p.replacement,
			})
		}
	}

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p.Name, err)
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r, nil
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, "***")
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	}
	return a
}

// isSensitiveKey checks if a key name indicates secret material.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range []string{"password", "secret", "token", "sasl"} {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}
