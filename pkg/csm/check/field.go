package check

import (
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/csm/principal"
)

// Field keys as they appear in a block.
const (
	KeyChannelURI                    = "channelURI"
	KeyHTTPMethod                    = "httpMethod"
	KeyLoadingPrincipal              = "loadingPrincipal"
	KeyTriggeringPrincipal           = "triggeringPrincipal"
	KeyPrincipalToInherit            = "principalToInherit"
	KeyRedirectChain                 = "redirectChain"
	KeyInternalContentPolicyType     = "internalContentPolicyType"
	KeyExternalContentPolicyType     = "externalContentPolicyType"
	KeyUpgradeInsecureRequests       = "upgradeInsecureRequests"
	KeyInitialSecurityChecksDone     = "initialSecurityChecksDone"
	KeyAllowDeprecatedSystemRequests = "allowDeprecatedSystemRequests"
	KeyCSP                           = "CSP"
	KeySecurityFlags                 = "securityFlags"
)

// Keys lists every recognised field key in logging order.
var Keys = []string{
	KeyChannelURI,
	KeyHTTPMethod,
	KeyLoadingPrincipal,
	KeyTriggeringPrincipal,
	KeyPrincipalToInherit,
	KeyRedirectChain,
	KeyInternalContentPolicyType,
	KeyExternalContentPolicyType,
	KeyUpgradeInsecureRequests,
	KeyInitialSecurityChecksDone,
	KeyAllowDeprecatedSystemRequests,
	KeyCSP,
	KeySecurityFlags,
}

// Field is one decoded entry of a block. The concrete types below are the
// only implementations.
type Field interface {
	Key() string
	field()
}

// ChannelURI is the URI of the channel being checked.
type ChannelURI struct{ Value string }

// HTTPMethod is the request method. Value is nil when the key was logged
// without a value.
type HTTPMethod struct{ Value *string }

// LoadingPrincipal is the principal of the loading context.
type LoadingPrincipal struct{ Value principal.Principal }

// TriggeringPrincipal is the principal that triggered the load.
type TriggeringPrincipal struct{ Value principal.Principal }

// PrincipalToInherit is the principal a new document inherits.
type PrincipalToInherit struct{ Value principal.Principal }

// RedirectChain lists redirect URLs in order. Items is non-nil.
type RedirectChain struct{ Items []string }

// InternalContentPolicyType is the internal content policy type.
type InternalContentPolicyType struct{ Value policytype.Type }

// ExternalContentPolicyType is the content policy type exposed to policies.
type ExternalContentPolicyType struct{ Value policytype.Type }

// UpgradeInsecureRequests reports whether upgrade-insecure-requests applied.
type UpgradeInsecureRequests struct{ Value bool }

// InitialSecurityChecksDone reports whether the initial checks had run.
type InitialSecurityChecksDone struct{ Value bool }

// AllowDeprecatedSystemRequests reports the deprecated system request flag.
type AllowDeprecatedSystemRequests struct{ Value bool }

// CSP lists the serialized policies of the loading document. Items is non-nil.
type CSP struct{ Items []string }

// SecurityFlags lists the SEC_* flags of the load. Items is non-nil.
type SecurityFlags struct{ Items []string }

func (ChannelURI) Key() string                    { return KeyChannelURI }
func (HTTPMethod) Key() string                    { return KeyHTTPMethod }
func (LoadingPrincipal) Key() string              { return KeyLoadingPrincipal }
func (TriggeringPrincipal) Key() string           { return KeyTriggeringPrincipal }
func (PrincipalToInherit) Key() string            { return KeyPrincipalToInherit }
func (RedirectChain) Key() string                 { return KeyRedirectChain }
func (InternalContentPolicyType) Key() string     { return KeyInternalContentPolicyType }
func (ExternalContentPolicyType) Key() string     { return KeyExternalContentPolicyType }
func (UpgradeInsecureRequests) Key() string       { return KeyUpgradeInsecureRequests }
func (InitialSecurityChecksDone) Key() string     { return KeyInitialSecurityChecksDone }
func (AllowDeprecatedSystemRequests) Key() string { return KeyAllowDeprecatedSystemRequests }
func (CSP) Key() string                           { return KeyCSP }
func (SecurityFlags) Key() string                 { return KeySecurityFlags }

func (ChannelURI) field()                    {}
func (HTTPMethod) field()                    {}
func (LoadingPrincipal) field()              {}
func (TriggeringPrincipal) field()           {}
func (PrincipalToInherit) field()            {}
func (RedirectChain) field()                 {}
func (InternalContentPolicyType) field()     {}
func (ExternalContentPolicyType) field()     {}
func (UpgradeInsecureRequests) field()       {}
func (InitialSecurityChecksDone) field()     {}
func (AllowDeprecatedSystemRequests) field() {}
func (CSP) field()                           {}
func (SecurityFlags) field()                 {}
