// Package logline classifies raw Firefox debug log lines carrying the CSMLog tag.
package logline

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ProcessTag marks which process emitted a line.
type ProcessTag int

const (
	Unknown ProcessTag = iota
	Parent
	Child
)

// String returns "Parent", "Child" or "Unknown".
func (p ProcessTag) String() string {
	switch p {
	case Parent:
		return "Parent"
	case Child:
		return "Child"
	default:
		return "Unknown"
	}
}

// ParseProcessTag maps the captured tag text to a ProcessTag.
func ParseProcessTag(s string) ProcessTag {
	switch s {
	case "Parent":
		return Parent
	case "Child":
		return Child
	default:
		return Unknown
	}
}

// MarshalText encodes the tag as its name.
func (p ProcessTag) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a tag name; anything unrecognised becomes Unknown.
func (p *ProcessTag) UnmarshalText(text []byte) error {
	*p = ParseProcessTag(string(text))
	return nil
}

// MarshalJSON encodes the tag as a JSON string.
func (p ProcessTag) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// pattern matches "[Parent 1234: Main Thread]: D/CSMLog payload".
var pattern = regexp.MustCompile(`^\[(Parent|Child) (\d+): Main Thread\]: ([VD])/CSMLog (.*)$`)

// Line is a classified log line.
type Line struct {
	Number   int        // 1-based line number in the input
	Raw      string     // Line text without trailing newline
	Tag      ProcessTag // Emitting process
	ThreadID string     // Thread id as printed
	Level    string     // "V" or "D"
	Payload  string     // Text after "CSMLog "
}

// Classify matches raw against the CSMLog tag format. The second result is
// false when the line does not carry the tag.
func Classify(raw string) (Line, bool) {
	raw = strings.TrimSuffix(raw, "\r")
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return Line{Raw: raw}, false
	}
	return Line{
		Raw:      raw,
		Tag:      ParseProcessTag(m[1]),
		ThreadID: m[2],
		Level:    m[3],
		Payload:  m[4],
	}, true
}

// Format renders a tagged line; it is the inverse of Classify for lines
// with a known tag.
func Format(tag ProcessTag, threadID, level, payload string) string {
	return "[" + tag.String() + " " + threadID + ": Main Thread]: " + level + "/CSMLog " + payload
}
