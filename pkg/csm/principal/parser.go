package principal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// ErrInvalidPrincipal is returned (wrapped) when text matches none of the
// principal forms.
var ErrInvalidPrincipal = errors.New("invalid principal")

// ParseError describes why a principal could not be parsed.
type ParseError struct {
	Input  string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("invalid principal %q: %s", e.Input, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns ErrInvalidPrincipal so callers can use errors.Is.
func (e *ParseError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidPrincipal, e.Cause}
	}
	return []error{ErrInvalidPrincipal}
}

// Parse parses a principal in log syntax:
//
//	SystemPrincipal | NullPrincipal | nullptr
//	[Expanded Principal [<principal> <principal> ...]]
//	<absolute URL>
//
// Expanded principals may nest. Brackets inside URLs are kept as part of the
// URL.
func Parse(text string) (Principal, error) {
	switch text {
	case SystemLiteral:
		return System(), nil
	case NullLiteral:
		return Null(), nil
	case NullPtrLiteral:
		return NullPtr(), nil
	case "":
		return Principal{}, &ParseError{Input: text, Reason: "empty"}
	}

	if strings.HasPrefix(text, expandedPrefix) {
		return parseExpanded(text)
	}
	return parseContent(text)
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(text string) Principal {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

func parseExpanded(text string) (Principal, error) {
	if !strings.HasSuffix(text, expandedSuffix) || len(text) < len(expandedPrefix)+len(expandedSuffix) {
		return Principal{}, &ParseError{Input: text, Reason: "unterminated expanded principal"}
	}
	inner := text[len(expandedPrefix) : len(text)-len(expandedSuffix)]
	if inner == "" {
		return Expanded(), nil
	}

	p := &expandedParser{s: inner}
	var result Principal
	ok := p.list(0, 0, func(children []Principal, _ int) bool {
		result = Expanded(children...)
		return true
	})
	if !ok {
		return Principal{}, &ParseError{Input: text, Reason: "malformed expanded principal", Cause: p.leafErr}
	}
	return result, nil
}

// expandedParser parses the children of an expanded principal.
//
// Only the expanded prefix and its closing "]]" are structure; any other
// bracket belongs to a URL. A URL ending in "]" is ambiguous with the
// closers that may follow it, so the parser backtracks and prefers the
// reading that leaves the brackets in the URL.
type expandedParser struct {
	s       string
	leafErr error // last leaf that failed to parse
}

// list parses space separated principals starting at pos. depth counts the
// expanded principals opened inside s; at depth zero the list runs to the
// end of s, otherwise it ends with "]]". done receives the children and the
// position after the list and reports whether the caller accepts them.
func (p *expandedParser) list(pos, depth int, done func(children []Principal, end int) bool) bool {
	return p.child(pos, depth, func(c Principal, rest int) bool {
		if depth == 0 && rest == len(p.s) && done([]Principal{c}, rest) {
			return true
		}
		if depth > 0 && strings.HasPrefix(p.s[rest:], expandedSuffix) && done([]Principal{c}, rest+len(expandedSuffix)) {
			return true
		}
		if rest < len(p.s) && p.s[rest] == ' ' {
			return p.list(rest+1, depth, func(more []Principal, end int) bool {
				return done(append([]Principal{c}, more...), end)
			})
		}
		return false
	})
}

// child parses one principal at pos and passes it with the position after
// it to next.
func (p *expandedParser) child(pos, depth int, next func(c Principal, rest int) bool) bool {
	if strings.HasPrefix(p.s[pos:], expandedPrefix) {
		start := pos + len(expandedPrefix)
		if strings.HasPrefix(p.s[start:], expandedSuffix) && next(Expanded(), start+len(expandedSuffix)) {
			return true
		}
		return p.list(start, depth+1, func(children []Principal, end int) bool {
			return next(Expanded(children...), end)
		})
	}

	tokEnd := strings.IndexByte(p.s[pos:], ' ')
	if tokEnd < 0 {
		tokEnd = len(p.s)
	} else {
		tokEnd += pos
	}

	// Try the whole token first, then give up to depth trailing "]]" pairs
	// to the enclosing lists.
	end := tokEnd
	for closers := 0; closers <= depth && end > pos; closers++ {
		if closers > 0 {
			end -= len(expandedSuffix)
			if end <= pos || p.s[end:end+len(expandedSuffix)] != expandedSuffix {
				break
			}
		}
		leaf, err := Parse(p.s[pos:end])
		if err != nil {
			p.leafErr = err
			continue
		}
		if next(leaf, end) {
			return true
		}
	}
	return false
}

func parseContent(text string) (Principal, error) {
	if strings.IndexFunc(text, unicode.IsSpace) >= 0 {
		return Principal{}, &ParseError{Input: text, Reason: "URL contains whitespace"}
	}
	u, err := url.Parse(text)
	if err != nil {
		return Principal{}, &ParseError{Input: text, Reason: "not a URL", Cause: err}
	}
	if u.Scheme == "" {
		return Principal{}, &ParseError{Input: text, Reason: "URL has no scheme"}
	}
	return Content(text), nil
}
