package policytype

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type is a content policy type as defined by nsIContentPolicy.
// The underlying value is the legacy integer code; Unknown is a sentinel
// outside the code space.
type Type int

const (
	// Unknown marks a code or name that is not in the registry.
	Unknown Type = -1

	// Invalid is the unset policy type and the default for absent fields.
	Invalid Type = 0
)

// unknownName is the canonical name of Unknown.
const unknownName = "TYPE_UNKNOWN"

// table maps codes to canonical names. Empty slots are retired codes.
var table = [...]string{
	0:  "TYPE_INVALID",
	1:  "TYPE_OTHER",
	2:  "TYPE_SCRIPT",
	3:  "TYPE_IMAGE",
	4:  "TYPE_STYLESHEET",
	5:  "TYPE_OBJECT",
	6:  "TYPE_DOCUMENT",
	7:  "TYPE_SUBDOCUMENT",
	10: "TYPE_PING",
	11: "TYPE_XMLHTTPREQUEST",
	12: "TYPE_OBJECT_SUBREQUEST",
	13: "TYPE_DTD",
	14: "TYPE_FONT",
	15: "TYPE_MEDIA",
	16: "TYPE_WEBSOCKET",
	17: "TYPE_CSP_REPORT",
	18: "TYPE_XSLT",
	19: "TYPE_BEACON",
	20: "TYPE_FETCH",
	21: "TYPE_IMAGESET",
	22: "TYPE_WEB_MANIFEST",
	23: "TYPE_INTERNAL_SCRIPT",
	24: "TYPE_INTERNAL_WORKER",
	25: "TYPE_INTERNAL_SHARED_WORKER",
	26: "TYPE_INTERNAL_EMBED",
	27: "TYPE_INTERNAL_OBJECT",
	28: "TYPE_INTERNAL_FRAME",
	29: "TYPE_INTERNAL_IFRAME",
	30: "TYPE_INTERNAL_AUDIO",
	31: "TYPE_INTERNAL_VIDEO",
	32: "TYPE_INTERNAL_TRACK",
	33: "TYPE_INTERNAL_XMLHTTPREQUEST",
	34: "TYPE_INTERNAL_EVENTSOURCE",
	35: "TYPE_INTERNAL_SERVICE_WORKER",
	36: "TYPE_INTERNAL_SCRIPT_PRELOAD",
	37: "TYPE_INTERNAL_IMAGE",
	38: "TYPE_INTERNAL_IMAGE_PRELOAD",
	39: "TYPE_INTERNAL_STYLESHEET",
	40: "TYPE_INTERNAL_STYLESHEET_PRELOAD",
	41: "TYPE_INTERNAL_IMAGE_FAVICON",
	42: "TYPE_INTERNAL_WORKER_IMPORT_SCRIPTS",
	43: "TYPE_SAVEAS_DOWNLOAD",
	44: "TYPE_SPECULATIVE",
	45: "TYPE_INTERNAL_MODULE",
	46: "TYPE_INTERNAL_MODULE_PRELOAD",
	47: "TYPE_INTERNAL_DTD",
	48: "TYPE_INTERNAL_FORCE_ALLOWED_DTD",
	49: "TYPE_INTERNAL_AUDIOWORKLET",
	50: "TYPE_INTERNAL_PAINTWORKLET",
	51: "TYPE_INTERNAL_FONT_PRELOAD",
	52: "TYPE_INTERNAL_CHROMEUTILS_COMPILED_SCRIPT",
	53: "TYPE_INTERNAL_FRAME_MESSAGEMANAGER_SCRIPT",
	54: "TYPE_INTERNAL_FETCH_PRELOAD",
}

// byName is the reverse index of table, built once at package init.
var byName = func() map[string]Type {
	m := make(map[string]Type, len(table))
	for code, name := range table {
		if name != "" {
			m[name] = Type(code)
		}
	}
	return m
}()

// Frequently referenced types.
const (
	Other                     Type = 1
	Script                    Type = 2
	Image                     Type = 3
	Stylesheet                Type = 4
	Document                  Type = 6
	Subdocument               Type = 7
	XMLHTTPRequest            Type = 11
	Fetch                     Type = 20
	InternalScript            Type = 23
	InternalXMLHTTPRequest    Type = 33
	InternalScriptPreload     Type = 36
	InternalStylesheet        Type = 39
	InternalStylesheetPreload Type = 40
)

// ByCode returns the type registered under code, or Unknown when the code is
// out of range or retired.
func ByCode(code int) Type {
	if code < 0 || code >= len(table) || table[code] == "" {
		return Unknown
	}
	return Type(code)
}

// ByName returns the type with the exact canonical name, or Unknown.
func ByName(name string) Type {
	if t, ok := byName[name]; ok {
		return t
	}
	return Unknown
}

// Parse resolves a raw field value. Numeric values are looked up by code,
// anything else by name. It never fails; unrecognised input yields Unknown.
func Parse(s string) Type {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	if code, err := strconv.Atoi(s); err == nil {
		return ByCode(code)
	}
	return ByName(s)
}

// All returns every registered type in code order.
func All() []Type {
	types := make([]Type, 0, len(byName))
	for code, name := range table {
		if name != "" {
			types = append(types, Type(code))
		}
	}
	return types
}

// Known reports whether t is a registered type.
func (t Type) Known() bool {
	return t >= 0 && int(t) < len(table) && table[t] != ""
}

// Code returns the legacy integer code, or -1 for Unknown.
func (t Type) Code() int {
	if !t.Known() {
		return -1
	}
	return int(t)
}

// String returns the canonical TYPE_* name.
func (t Type) String() string {
	if !t.Known() {
		return unknownName
	}
	return table[t]
}

// MarshalText encodes the type as its canonical name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a name or numeric code. Unrecognised values decode
// to Unknown rather than failing.
func (t *Type) UnmarshalText(text []byte) error {
	*t = Parse(string(text))
	return nil
}

// MarshalYAML encodes the type as its canonical name.
func (t Type) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML decodes a scalar name or code.
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: policy type must be a scalar", node.Line)
	}
	*t = Parse(node.Value)
	return nil
}
