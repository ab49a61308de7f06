package principal

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the variant of a Principal.
type Kind int

const (
	// KindAbsent is the zero Kind and marks a principal that was not logged.
	KindAbsent Kind = iota
	KindContent
	KindExpanded
	KindSystem
	KindNull
	KindNullPtr
)

// Literal forms of the non-URL principals.
const (
	SystemLiteral  = "SystemPrincipal"
	NullLiteral    = "NullPrincipal"
	NullPtrLiteral = "nullptr"
)

const (
	expandedPrefix = "[Expanded Principal ["
	expandedSuffix = "]]"
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindExpanded:
		return "expanded"
	case KindSystem:
		return "system"
	case KindNull:
		return "null"
	case KindNullPtr:
		return "nullptr"
	default:
		return "absent"
	}
}

// Principal is the security identity attached to a load.
//
// URL is set only for KindContent. Children is set only for KindExpanded and
// its order is significant.
type Principal struct {
	Kind     Kind
	URL      string
	Children []Principal
}

// Content returns a URL-backed content principal. The URL is kept verbatim.
func Content(url string) Principal {
	return Principal{Kind: KindContent, URL: url}
}

// Expanded returns an expanded principal grouping children in order.
func Expanded(children ...Principal) Principal {
	if children == nil {
		children = []Principal{}
	}
	return Principal{Kind: KindExpanded, Children: children}
}

// System returns the system principal.
func System() Principal { return Principal{Kind: KindSystem} }

// Null returns the null principal.
func Null() Principal { return Principal{Kind: KindNull} }

// NullPtr returns the principal logged as "nullptr".
func NullPtr() Principal { return Principal{Kind: KindNullPtr} }

// IsAbsent reports whether the principal was never set.
func (p Principal) IsAbsent() bool {
	return p.Kind == KindAbsent
}

// IsSystem reports whether p is the system principal.
func (p Principal) IsSystem() bool {
	return p.Kind == KindSystem
}

// Equal reports whether p and other are structurally identical.
func (p Principal) Equal(other Principal) bool {
	if p.Kind != other.Kind {
		return false
	}
	switch p.Kind {
	case KindContent:
		return p.URL == other.URL
	case KindExpanded:
		if len(p.Children) != len(other.Children) {
			return false
		}
		for i := range p.Children {
			if !p.Children[i].Equal(other.Children[i]) {
				return false
			}
		}
	}
	return true
}

// String formats the principal in log syntax. It is the inverse of Parse.
func (p Principal) String() string {
	var sb strings.Builder
	p.format(&sb)
	return sb.String()
}

func (p Principal) format(sb *strings.Builder) {
	switch p.Kind {
	case KindSystem:
		sb.WriteString(SystemLiteral)
	case KindNull:
		sb.WriteString(NullLiteral)
	case KindNullPtr:
		sb.WriteString(NullPtrLiteral)
	case KindContent:
		sb.WriteString(p.URL)
	case KindExpanded:
		sb.WriteString(expandedPrefix)
		for i, child := range p.Children {
			if i > 0 {
				sb.WriteByte(' ')
			}
			child.format(sb)
		}
		sb.WriteString(expandedSuffix)
	}
}

// Format returns the log syntax of p.
func Format(p Principal) string {
	return p.String()
}

// MarshalText encodes the principal in log syntax.
func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses log syntax. Empty text decodes to an absent principal.
func (p *Principal) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Principal{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalJSON encodes the principal as a string, or null when absent.
func (p Principal) MarshalJSON() ([]byte, error) {
	if p.IsAbsent() {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a string or null.
func (p *Principal) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Principal{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}

// MarshalYAML encodes the principal as a string, or null when absent.
func (p Principal) MarshalYAML() (interface{}, error) {
	if p.IsAbsent() {
		return nil, nil
	}
	return p.String(), nil
}

// UnmarshalYAML decodes a scalar in log syntax.
func (p *Principal) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return &ParseError{Input: node.Value, Reason: "principal must be a scalar"}
	}
	if node.Tag == "!!null" {
		*p = Principal{}
		return nil
	}
	return p.UnmarshalText([]byte(node.Value))
}
