package check

import (
	"net/url"
	"strings"

	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/csm/principal"
)

// ContentSecurityCheck is one decoded content security check.
//
// Absent fields keep their zero value: an empty ChannelURI, absent
// principals, nil HTTPMethod, RedirectChain and CSP, an empty SecurityFlags
// slice, policytype.Invalid and false. RedirectChain and CSP are non-nil
// but empty when the key was logged without items.
type ContentSecurityCheck struct {
	ProcessType                   logline.ProcessTag  `json:"process_type" yaml:"process_type"`
	ChannelURI                    string              `json:"channel_uri" yaml:"channel_uri"`
	HTTPMethod                    *string             `json:"http_method" yaml:"http_method"`
	LoadingPrincipal              principal.Principal `json:"loading_principal" yaml:"loading_principal"`
	TriggeringPrincipal           principal.Principal `json:"triggering_principal" yaml:"triggering_principal"`
	PrincipalToInherit            principal.Principal `json:"principal_to_inherit" yaml:"principal_to_inherit"`
	RedirectChain                 []string            `json:"redirect_chain" yaml:"redirect_chain"`
	InternalContentPolicyType     policytype.Type     `json:"internal_content_policy_type" yaml:"internal_content_policy_type"`
	ExternalContentPolicyType     policytype.Type     `json:"external_content_policy_type" yaml:"external_content_policy_type"`
	UpgradeInsecureRequests       bool                `json:"upgrade_insecure_requests" yaml:"upgrade_insecure_requests"`
	InitialSecurityChecksDone     bool                `json:"initial_security_checks_done" yaml:"initial_security_checks_done"`
	AllowDeprecatedSystemRequests bool                `json:"allow_deprecated_system_requests" yaml:"allow_deprecated_system_requests"`
	CSP                           []string            `json:"csp" yaml:"csp"`
	SecurityFlags                 []string            `json:"security_flags" yaml:"security_flags"`

	// Source and Line locate the begin marker of the block in the input.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Assemble folds decoded fields into a check. Later fields overwrite
// earlier ones with the same key; the decoder never produces duplicates.
func Assemble(fields []Field, tag logline.ProcessTag) *ContentSecurityCheck {
	c := &ContentSecurityCheck{
		ProcessType:               tag,
		InternalContentPolicyType: policytype.Invalid,
		ExternalContentPolicyType: policytype.Invalid,
		SecurityFlags:             []string{},
	}

	for _, f := range fields {
		switch f := f.(type) {
		case ChannelURI:
			c.ChannelURI = f.Value
		case HTTPMethod:
			c.HTTPMethod = f.Value
		case LoadingPrincipal:
			c.LoadingPrincipal = f.Value
		case TriggeringPrincipal:
			c.TriggeringPrincipal = f.Value
		case PrincipalToInherit:
			c.PrincipalToInherit = f.Value
		case RedirectChain:
			c.RedirectChain = nonNil(f.Items)
		case InternalContentPolicyType:
			c.InternalContentPolicyType = f.Value
		case ExternalContentPolicyType:
			c.ExternalContentPolicyType = f.Value
		case UpgradeInsecureRequests:
			c.UpgradeInsecureRequests = f.Value
		case InitialSecurityChecksDone:
			c.InitialSecurityChecksDone = f.Value
		case AllowDeprecatedSystemRequests:
			c.AllowDeprecatedSystemRequests = f.Value
		case CSP:
			c.CSP = nonNil(f.Items)
		case SecurityFlags:
			c.SecurityFlags = nonNil(f.Items)
		}
	}

	return c
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// HasChannelURI reports whether the block logged a channel URI.
func (c *ContentSecurityCheck) HasChannelURI() bool {
	return c.ChannelURI != ""
}

// Method returns the HTTP method, or "" when none was logged.
func (c *ContentSecurityCheck) Method() string {
	if c.HTTPMethod == nil {
		return ""
	}
	return *c.HTTPMethod
}

// Scheme returns the lower-cased scheme of the channel URI, or "" when it
// has none.
func (c *ContentSecurityCheck) Scheme() string {
	if c.ChannelURI == "" {
		return ""
	}
	u, err := url.Parse(c.ChannelURI)
	if err == nil {
		return strings.ToLower(u.Scheme)
	}
	// data: URIs with unusual payloads may not parse; fall back to the prefix.
	if i := strings.IndexByte(c.ChannelURI, ':'); i > 0 {
		return strings.ToLower(c.ChannelURI[:i])
	}
	return ""
}

// HasSecurityFlag reports whether flag is among the security flags.
func (c *ContentSecurityCheck) HasSecurityFlag(flag string) bool {
	for _, f := range c.SecurityFlags {
		if f == flag {
			return true
		}
	}
	return false
}
