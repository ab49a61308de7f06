package filter

import (
	"fmt"
	"strings"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/csm/principal"
)

// Predicate reports whether a check should be kept.
type Predicate func(c *check.ContentSecurityCheck) bool

// Filter names accepted by ByName.
const (
	NameSystemData = "system-data"
	NameParent     = "parent"
	NameChild      = "child"
)

// Names lists every filter name ByName resolves.
var Names = []string{NameSystemData, NameParent, NameChild}

// All matches when every predicate matches. All() matches everything.
func All(preds ...Predicate) Predicate {
	return func(c *check.ContentSecurityCheck) bool {
		for _, p := range preds {
			if !p(c) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one predicate matches. Any() matches nothing.
func Any(preds ...Predicate) Predicate {
	return func(c *check.ContentSecurityCheck) bool {
		for _, p := range preds {
			if p(c) {
				return true
			}
		}
		return false
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(c *check.ContentSecurityCheck) bool {
		return !p(c)
	}
}

// Apply returns the checks matching p, preserving order. The input slice is
// not modified.
func Apply(checks []*check.ContentSecurityCheck, p Predicate) []*check.ContentSecurityCheck {
	out := make([]*check.ContentSecurityCheck, 0, len(checks))
	for _, c := range checks {
		if c != nil && p(c) {
			out = append(out, c)
		}
	}
	return out
}

// ProcessIs matches checks logged by the given process type.
func ProcessIs(tag logline.ProcessTag) Predicate {
	return func(c *check.ContentSecurityCheck) bool {
		return c.ProcessType == tag
	}
}

// ExternalTypeIs matches checks whose external content policy type is one
// of types.
func ExternalTypeIs(types ...policytype.Type) Predicate {
	return func(c *check.ContentSecurityCheck) bool {
		for _, t := range types {
			if c.ExternalContentPolicyType == t {
				return true
			}
		}
		return false
	}
}

// PrincipalKindIs matches checks whose loading or triggering principal has
// the given kind.
func PrincipalKindIs(kind principal.Kind) Predicate {
	return func(c *check.ContentSecurityCheck) bool {
		return c.LoadingPrincipal.Kind == kind || c.TriggeringPrincipal.Kind == kind
	}
}

// SchemeIs matches checks whose channel URI has the given scheme. The
// comparison ignores case and a trailing colon.
func SchemeIs(scheme string) Predicate {
	scheme = strings.ToLower(strings.TrimSuffix(scheme, ":"))
	return func(c *check.ContentSecurityCheck) bool {
		return c.Scheme() == scheme
	}
}

// HasPrefix matches checks whose channel URI starts with any of prefixes.
func HasPrefix(prefixes ...string) Predicate {
	return func(c *check.ContentSecurityCheck) bool {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(c.ChannelURI, p) {
				return true
			}
		}
		return false
	}
}

// SystemPrincipalDataLoad matches scripts and stylesheets loaded from data:
// URIs on behalf of the system principal. URIs starting with an exempt
// prefix are skipped.
func SystemPrincipalDataLoad(exempt []string) Predicate {
	return All(
		PrincipalKindIs(principal.KindSystem),
		SchemeIs("data"),
		ExternalTypeIs(policytype.Script, policytype.Stylesheet),
		Not(HasPrefix(exempt...)),
	)
}

// ByName resolves a filter name. cfg supplies the exempt prefixes for
// "system-data" and may be nil.
func ByName(name string, cfg *config.FilterConfig) (Predicate, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameSystemData:
		var exempt []string
		if cfg != nil {
			exempt = cfg.ExemptPrefixes
		}
		return SystemPrincipalDataLoad(exempt), nil
	case NameParent:
		return ProcessIs(logline.Parent), nil
	case NameChild:
		return ProcessIs(logline.Child), nil
	default:
		return nil, &UnknownFilterError{Name: name}
	}
}

// FromNames resolves every name and combines them with All. An empty list
// yields a predicate matching everything.
func FromNames(names []string, cfg *config.FilterConfig) (Predicate, error) {
	preds := make([]Predicate, 0, len(names))
	for _, name := range names {
		p, err := ByName(name, cfg)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return All(preds...), nil
}

// UnknownFilterError is returned by ByName for names it does not know.
type UnknownFilterError struct {
	Name string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unknown filter %q (valid: %s)", e.Name, strings.Join(Names, ", "))
}
