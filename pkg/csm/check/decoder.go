package check

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	csmerrors "mercator-hq/csmlog/pkg/csm/errors"
	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/csm/principal"
)

// RootKey is the key Firefox logs as the first line of a block. It is
// prepended when the block omits it.
const RootKey = "doContentSecurityCheck"

// Decoder turns the payload lines of one block into fields.
//
// Blocks are a YAML sequence of single-key mappings under RootKey. Unknown
// and duplicate keys fail the block, as does a principal that does not
// parse. Policy types never fail; unrecognised values become
// policytype.Unknown.
type Decoder struct{}

// NewDecoder creates a new decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeCheck decodes a block and assembles the result.
func (d *Decoder) DecodeCheck(lines []string, lineNumbers []int, tag logline.ProcessTag) (*ContentSecurityCheck, error) {
	fields, err := d.Decode(lines, lineNumbers)
	if err != nil {
		return nil, err
	}
	return Assemble(fields, tag), nil
}

// Decode decodes the payload lines of one block. lineNumbers[i] is the input
// line of lines[i] and is used for diagnostics; it may be nil.
//
// Errors are *csmerrors.Error values carrying a dump of the block.
func (d *Decoder) Decode(lines []string, lineNumbers []int) ([]Field, error) {
	st := &decodeState{lines: lines, numbers: lineNumbers}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(st.document()), &doc); err != nil {
		return nil, st.syntaxError(err)
	}

	items, err := st.entries(&doc)
	if err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(Keys))
	seen := make(map[string]int, len(Keys))
	for _, item := range items {
		if item.Kind != yaml.MappingNode {
			return nil, st.errorf(csmerrors.ErrorTypeStructural, item, "entry %q is not a key: value pair", item.Value)
		}

		for i := 0; i+1 < len(item.Content); i += 2 {
			key, value := item.Content[i], item.Content[i+1]

			if key.Value == "-" {
				// "-: url" lines continue the list field logged before them.
				if len(fields) == 0 {
					return nil, st.errorf(csmerrors.ErrorTypeStructural, key, "list item outside of a list field")
				}
				extended, ok := appendItem(fields[len(fields)-1], value)
				if !ok {
					return nil, st.errorf(csmerrors.ErrorTypeStructural, key, "list item after non-list field %q", fields[len(fields)-1].Key())
				}
				fields[len(fields)-1] = extended
				continue
			}

			if prev, dup := seen[key.Value]; dup {
				e := st.errorf(csmerrors.ErrorTypeStructural, key, "duplicate field %q", key.Value)
				e.Suggestion = fmt.Sprintf("first logged at line %d", prev)
				return nil, e
			}

			f, err := st.field(key, value)
			if err != nil {
				return nil, err
			}
			seen[key.Value] = st.lineFor(key.Line)
			fields = append(fields, f)
		}
	}

	return fields, nil
}

// decodeState holds the block being decoded.
type decodeState struct {
	lines   []string
	numbers []int
	offset  int // synthetic lines prepended to the document
}

func (st *decodeState) document() string {
	var sb strings.Builder

	first := ""
	for _, line := range st.lines {
		if strings.TrimSpace(line) != "" {
			first = strings.TrimSpace(line)
			break
		}
	}
	if first != RootKey+":" {
		sb.WriteString(RootKey + ":\n")
		st.offset = 1
	}

	for _, line := range st.lines {
		sb.WriteString(quoteLine(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// entries returns the sequence items under the root key.
func (st *decodeState) entries(doc *yaml.Node) ([]*yaml.Node, error) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode || len(root.Content) != 2 || root.Content[0].Value != RootKey {
		return nil, st.errorf(csmerrors.ErrorTypeStructural, root, "block must be a single %q mapping", RootKey)
	}

	body := root.Content[1]
	switch {
	case isNull(body):
		return nil, nil
	case body.Kind == yaml.SequenceNode:
		return body.Content, nil
	default:
		return nil, st.errorf(csmerrors.ErrorTypeStructural, body, "%q must hold a list of fields", RootKey)
	}
}

func (st *decodeState) field(key, value *yaml.Node) (Field, error) {
	switch key.Value {
	case KeyChannelURI:
		s, err := st.requiredScalar(key, value)
		if err != nil {
			return nil, err
		}
		return ChannelURI{Value: s}, nil

	case KeyHTTPMethod:
		if isNull(value) {
			return HTTPMethod{}, nil
		}
		s, err := st.requiredScalar(key, value)
		if err != nil {
			return nil, err
		}
		return HTTPMethod{Value: &s}, nil

	case KeyLoadingPrincipal, KeyTriggeringPrincipal, KeyPrincipalToInherit:
		s, err := st.requiredScalar(key, value)
		if err != nil {
			return nil, err
		}
		p, err := principal.Parse(s)
		if err != nil {
			e := st.errorf(csmerrors.ErrorTypePrincipal, value, "field %q: %v", key.Value, err)
			e.Cause = err
			return nil, e
		}
		switch key.Value {
		case KeyLoadingPrincipal:
			return LoadingPrincipal{Value: p}, nil
		case KeyTriggeringPrincipal:
			return TriggeringPrincipal{Value: p}, nil
		default:
			return PrincipalToInherit{Value: p}, nil
		}

	case KeyInternalContentPolicyType, KeyExternalContentPolicyType:
		s, err := st.requiredScalar(key, value)
		if err != nil {
			return nil, err
		}
		t := policytype.Parse(s)
		if key.Value == KeyInternalContentPolicyType {
			return InternalContentPolicyType{Value: t}, nil
		}
		return ExternalContentPolicyType{Value: t}, nil

	case KeyUpgradeInsecureRequests, KeyInitialSecurityChecksDone, KeyAllowDeprecatedSystemRequests:
		b, err := st.boolean(key, value)
		if err != nil {
			return nil, err
		}
		switch key.Value {
		case KeyUpgradeInsecureRequests:
			return UpgradeInsecureRequests{Value: b}, nil
		case KeyInitialSecurityChecksDone:
			return InitialSecurityChecksDone{Value: b}, nil
		default:
			return AllowDeprecatedSystemRequests{Value: b}, nil
		}

	case KeyRedirectChain, KeyCSP, KeySecurityFlags:
		items, err := st.list(key, value)
		if err != nil {
			return nil, err
		}
		switch key.Value {
		case KeyRedirectChain:
			return RedirectChain{Items: items}, nil
		case KeyCSP:
			return CSP{Items: items}, nil
		default:
			return SecurityFlags{Items: items}, nil
		}
	}

	e := st.errorf(csmerrors.ErrorTypeStructural, key, "unknown field %q", key.Value)
	e.Suggestion = csmerrors.SuggestFieldName(key.Value, Keys)
	return nil, e
}

func (st *decodeState) requiredScalar(key, value *yaml.Node) (string, error) {
	if value.Kind != yaml.ScalarNode {
		return "", st.errorf(csmerrors.ErrorTypeStructural, value, "field %q must be a single value", key.Value)
	}
	if isNull(value) {
		return "", st.errorf(csmerrors.ErrorTypeStructural, key, "field %q has no value", key.Value)
	}
	return value.Value, nil
}

func (st *decodeState) boolean(key, value *yaml.Node) (bool, error) {
	if value.Kind != yaml.ScalarNode || value.Tag != "!!bool" {
		return false, st.errorf(csmerrors.ErrorTypeStructural, value, "field %q must be true or false, got %q", key.Value, value.Value)
	}
	var b bool
	if err := value.Decode(&b); err != nil {
		return false, st.errorf(csmerrors.ErrorTypeStructural, value, "field %q: %v", key.Value, err)
	}
	return b, nil
}

// list decodes an array field. Items may be logged as a YAML sequence, as
// "-: value" pairs, or be missing entirely.
func (st *decodeState) list(key, value *yaml.Node) ([]string, error) {
	items := []string{}

	switch value.Kind {
	case yaml.ScalarNode:
		if !isNull(value) {
			items = append(items, value.Value)
		}
	case yaml.SequenceNode:
		for _, item := range value.Content {
			more, err := st.listItem(key, item)
			if err != nil {
				return nil, err
			}
			items = append(items, more...)
		}
	case yaml.MappingNode:
		more, err := st.listItem(key, value)
		if err != nil {
			return nil, err
		}
		items = append(items, more...)
	default:
		return nil, st.errorf(csmerrors.ErrorTypeStructural, value, "field %q must be a list", key.Value)
	}

	return items, nil
}

func (st *decodeState) listItem(key, item *yaml.Node) ([]string, error) {
	switch item.Kind {
	case yaml.ScalarNode:
		if isNull(item) {
			return nil, st.errorf(csmerrors.ErrorTypeStructural, item, "empty item in field %q", key.Value)
		}
		return []string{item.Value}, nil
	case yaml.MappingNode:
		var items []string
		for i := 0; i+1 < len(item.Content); i += 2 {
			k, v := item.Content[i], item.Content[i+1]
			if k.Value != "-" || v.Kind != yaml.ScalarNode || isNull(v) {
				return nil, st.errorf(csmerrors.ErrorTypeStructural, k, "malformed item in field %q", key.Value)
			}
			items = append(items, v.Value)
		}
		return items, nil
	}
	return nil, st.errorf(csmerrors.ErrorTypeStructural, item, "malformed item in field %q", key.Value)
}

// appendItem adds a "-: value" item to a list field.
func appendItem(f Field, value *yaml.Node) (Field, bool) {
	if value.Kind != yaml.ScalarNode || isNull(value) {
		return f, false
	}
	switch f := f.(type) {
	case RedirectChain:
		return RedirectChain{Items: append(f.Items, value.Value)}, true
	case CSP:
		return CSP{Items: append(f.Items, value.Value)}, true
	case SecurityFlags:
		return SecurityFlags{Items: append(f.Items, value.Value)}, true
	}
	return f, false
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// lineFor maps a document line to an input line number.
func (st *decodeState) lineFor(docLine int) int {
	idx := docLine - 1 - st.offset
	if idx < 0 || idx >= len(st.lines) {
		return 0
	}
	if st.numbers == nil || idx >= len(st.numbers) {
		return idx + 1
	}
	return st.numbers[idx]
}

func (st *decodeState) errorf(typ csmerrors.ErrorType, node *yaml.Node, format string, args ...interface{}) *csmerrors.Error {
	line := 0
	if node != nil {
		line = st.lineFor(node.Line)
	}
	return st.withContext(&csmerrors.Error{
		Type:     typ,
		Message:  fmt.Sprintf(format, args...),
		Location: csmerrors.Location{Line: line},
	})
}

var yamlLine = regexp.MustCompile(`line (\d+):`)

func (st *decodeState) syntaxError(err error) *csmerrors.Error {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	line := 0
	if m := yamlLine.FindStringSubmatch(msg); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			line = st.lineFor(n)
		}
		msg = strings.TrimSpace(yamlLine.ReplaceAllString(msg, ""))
	}
	return st.withContext(&csmerrors.Error{
		Type:     csmerrors.ErrorTypeSyntax,
		Message:  "malformed block: " + msg,
		Location: csmerrors.Location{Line: line},
		Cause:    err,
	})
}

func (st *decodeState) withContext(e *csmerrors.Error) *csmerrors.Error {
	numbers := st.numbers
	if numbers == nil {
		numbers = make([]int, len(st.lines))
		for i := range numbers {
			numbers[i] = i + 1
		}
	}
	return csmerrors.WithContext(e, st.lines, numbers)
}

var (
	// scalarLine matches single-valued string fields whose value may need
	// quoting before it is handed to the YAML parser.
	scalarLine = regexp.MustCompile(`^(\s*-\s+)(channelURI|httpMethod|loadingPrincipal|triggeringPrincipal|principalToInherit):[ \t]+(.+?)\s*$`)

	// pairItemLine matches "-: value" list items as logged for redirect chains.
	pairItemLine = regexp.MustCompile(`^(\s*-:[ \t]+)(.+?)\s*$`)

	// seqItemLine matches "- value" list items. Entries shaped like
	// "- key: value" are fields and matched by keyedLine instead.
	seqItemLine = regexp.MustCompile(`^(\s*-[ \t]+)(.+?)\s*$`)
	keyedLine   = regexp.MustCompile(`^\s*-[ \t]+[A-Za-z][A-Za-z0-9_]*:(\s|$)`)
)

// quoteLine single-quotes values that YAML would otherwise read as flow
// collections, anchors, tags, comments or nested mappings.
func quoteLine(line string) string {
	if m := pairItemLine.FindStringSubmatch(line); m != nil {
		return quoteValue(line, m[1], m[2])
	}
	if keyedLine.MatchString(line) {
		return quoteScalarLine(line)
	}
	if m := seqItemLine.FindStringSubmatch(line); m != nil {
		return quoteValue(line, m[1], m[2])
	}
	return line
}

// quoteScalarLine quotes the value of a single-valued field entry, e.g. an
// expanded principal.
func quoteScalarLine(line string) string {
	m := scalarLine.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	return quoteValue(line, m[1]+m[2]+": ", m[3])
}

// quoteValue returns prefix and the quoted v, or line unchanged when v is
// safe as a plain scalar.
func quoteValue(line, prefix, v string) string {
	if !needsQuoting(v) {
		return line
	}
	return prefix + "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func needsQuoting(v string) bool {
	switch v[0] {
	case '"', '\'':
		return false
	case '[', ']', '{', '}', '&', '*', '!', '|', '>', '%', '@', '`', '#', ',', '?':
		return true
	}
	return strings.Contains(v, " #") || strings.Contains(v, ": ") || strings.HasSuffix(v, ":")
}
