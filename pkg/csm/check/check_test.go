package check

import (
	"encoding/json"
	"testing"

	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/csm/principal"
)

func TestAssemble_Defaults(t *testing.T) {
	c := Assemble(nil, logline.Unknown)

	if c.HasChannelURI() {
		t.Errorf("ChannelURI = %q, want absent", c.ChannelURI)
	}
	if c.HTTPMethod != nil || c.RedirectChain != nil || c.CSP != nil {
		t.Error("optional fields should be nil")
	}
	if c.SecurityFlags == nil || len(c.SecurityFlags) != 0 {
		t.Errorf("SecurityFlags = %#v, want empty", c.SecurityFlags)
	}
	if c.InternalContentPolicyType != policytype.Invalid {
		t.Errorf("InternalContentPolicyType = %v, want TYPE_INVALID", c.InternalContentPolicyType)
	}
	if c.UpgradeInsecureRequests || c.InitialSecurityChecksDone || c.AllowDeprecatedSystemRequests {
		t.Error("booleans should default to false")
	}
}

func TestAssemble_Fields(t *testing.T) {
	method := "GET"
	fields := []Field{
		ChannelURI{Value: "https://example.com/app.js"},
		HTTPMethod{Value: &method},
		LoadingPrincipal{Value: principal.Content("https://example.com/")},
		TriggeringPrincipal{Value: principal.System()},
		PrincipalToInherit{Value: principal.Null()},
		RedirectChain{},
		InternalContentPolicyType{Value: policytype.InternalScript},
		ExternalContentPolicyType{Value: policytype.Script},
		UpgradeInsecureRequests{Value: true},
		InitialSecurityChecksDone{Value: true},
		AllowDeprecatedSystemRequests{Value: true},
		CSP{Items: []string{"default-src 'self'"}},
		SecurityFlags{Items: []string{"SEC_ALLOW_CHROME"}},
	}

	c := Assemble(fields, logline.Child)

	if c.ChannelURI != "https://example.com/app.js" || c.Method() != "GET" {
		t.Errorf("ChannelURI/HTTPMethod = %q/%q", c.ChannelURI, c.Method())
	}
	if !c.TriggeringPrincipal.IsSystem() || c.PrincipalToInherit.Kind != principal.KindNull {
		t.Errorf("principals = %v/%v", c.TriggeringPrincipal, c.PrincipalToInherit)
	}
	if c.RedirectChain == nil || len(c.RedirectChain) != 0 {
		t.Errorf("RedirectChain = %#v, want present but empty", c.RedirectChain)
	}
	if c.ExternalContentPolicyType != policytype.Script {
		t.Errorf("ExternalContentPolicyType = %v", c.ExternalContentPolicyType)
	}
	if !c.UpgradeInsecureRequests || !c.InitialSecurityChecksDone || !c.AllowDeprecatedSystemRequests {
		t.Error("booleans should be true")
	}
	if len(c.CSP) != 1 || !c.HasSecurityFlag("SEC_ALLOW_CHROME") {
		t.Errorf("CSP/SecurityFlags = %q/%q", c.CSP, c.SecurityFlags)
	}
	if c.ProcessType != logline.Child {
		t.Errorf("ProcessType = %v, want Child", c.ProcessType)
	}
}

func TestFieldKeys(t *testing.T) {
	fields := []Field{
		ChannelURI{}, HTTPMethod{}, LoadingPrincipal{}, TriggeringPrincipal{},
		PrincipalToInherit{}, RedirectChain{}, InternalContentPolicyType{},
		ExternalContentPolicyType{}, UpgradeInsecureRequests{}, InitialSecurityChecksDone{},
		AllowDeprecatedSystemRequests{}, CSP{}, SecurityFlags{},
	}
	if len(fields) != len(Keys) {
		t.Fatalf("len(fields) = %d, len(Keys) = %d", len(fields), len(Keys))
	}
	for i, f := range fields {
		if f.Key() != Keys[i] {
			t.Errorf("fields[%d].Key() = %q, want %q", i, f.Key(), Keys[i])
		}
	}
}

func TestScheme(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"https://example.com/", "https"},
		{"DATA:text/javascript,alert(1)", "data"},
		{"data:text/css,%zz", "data"},
		{"about:blank", "about"},
		{"", ""},
		{"no-scheme", ""},
	}

	for _, tt := range tests {
		c := &ContentSecurityCheck{ChannelURI: tt.uri}
		if got := c.Scheme(); got != tt.want {
			t.Errorf("Scheme(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestContentSecurityCheck_JSON(t *testing.T) {
	c := decodeBlock(t, sampleBlock)

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	checks := map[string]interface{}{
		"process_type":                 "Parent",
		"http_method":                  "POST",
		"loading_principal":            "SystemPrincipal",
		"principal_to_inherit":         "nullptr",
		"external_content_policy_type": "TYPE_XMLHTTPREQUEST",
		"upgrade_insecure_requests":    false,
	}
	for key, want := range checks {
		if out[key] != want {
			t.Errorf("%s = %v, want %v", key, out[key], want)
		}
	}
	if flags, ok := out["security_flags"].([]interface{}); !ok || len(flags) != 4 {
		t.Errorf("security_flags = %v, want 4 entries", out["security_flags"])
	}
	if rc, ok := out["redirect_chain"].([]interface{}); !ok || len(rc) != 0 {
		t.Errorf("redirect_chain = %v, want []", out["redirect_chain"])
	}
}
