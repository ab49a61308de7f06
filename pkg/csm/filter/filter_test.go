package filter

import (
	"errors"
	"testing"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/csm/principal"
)

func dataLoad(uri string, typ policytype.Type, loading principal.Principal) *check.ContentSecurityCheck {
	return &check.ContentSecurityCheck{
		ProcessType:               logline.Parent,
		ChannelURI:                uri,
		LoadingPrincipal:          loading,
		TriggeringPrincipal:       principal.Content("https://example.org/"),
		ExternalContentPolicyType: typ,
		SecurityFlags:             []string{},
	}
}

func TestSystemPrincipalDataLoad(t *testing.T) {
	exempt := []string{"data:text/css,allowed"}

	tests := []struct {
		name  string
		check *check.ContentSecurityCheck
		want  bool
	}{
		{
			name:  "system script from data",
			check: dataLoad("data:text/javascript,alert(1)", policytype.Script, principal.System()),
			want:  true,
		},
		{
			name:  "system stylesheet from data upper-case scheme",
			check: dataLoad("DATA:text/css,body{}", policytype.Stylesheet, principal.System()),
			want:  true,
		},
		{
			name: "triggering principal is system",
			check: &check.ContentSecurityCheck{
				ChannelURI:                "data:text/css,x",
				LoadingPrincipal:          principal.Content("https://example.org/"),
				TriggeringPrincipal:       principal.System(),
				ExternalContentPolicyType: policytype.Stylesheet,
			},
			want: true,
		},
		{
			name:  "exempt prefix",
			check: dataLoad("data:text/css,allowed{}", policytype.Stylesheet, principal.System()),
			want:  false,
		},
		{
			name:  "image is not flagged",
			check: dataLoad("data:image/png;base64,AAAA", policytype.Image, principal.System()),
			want:  false,
		},
		{
			name:  "https scheme",
			check: dataLoad("https://example.org/app.js", policytype.Script, principal.System()),
			want:  false,
		},
		{
			name:  "content principal",
			check: dataLoad("data:text/javascript,1", policytype.Script, principal.Content("https://example.org/")),
			want:  false,
		},
		{
			name:  "absent channel URI",
			check: dataLoad("", policytype.Script, principal.System()),
			want:  false,
		},
	}

	p := SystemPrincipalDataLoad(exempt)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p(tt.check); got != tt.want {
				t.Errorf("SystemPrincipalDataLoad() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCombinators(t *testing.T) {
	c := dataLoad("data:,x", policytype.Script, principal.System())
	yes := func(*check.ContentSecurityCheck) bool { return true }
	no := func(*check.ContentSecurityCheck) bool { return false }

	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"All empty", All(), true},
		{"All mixed", All(yes, no), false},
		{"Any empty", Any(), false},
		{"Any mixed", Any(no, yes), true},
		{"Not", Not(yes), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p(c); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestApply_PreservesOrder(t *testing.T) {
	checks := []*check.ContentSecurityCheck{
		{ProcessType: logline.Parent, Line: 1},
		{ProcessType: logline.Child, Line: 2},
		nil,
		{ProcessType: logline.Parent, Line: 3},
	}

	got := Apply(checks, ProcessIs(logline.Parent))
	if len(got) != 2 || got[0].Line != 1 || got[1].Line != 3 {
		t.Errorf("Apply() kept lines %v, want [1 3]", lines(got))
	}
	if len(checks) != 4 {
		t.Error("Apply() modified its input")
	}
}

func lines(checks []*check.ContentSecurityCheck) []int {
	out := make([]int, len(checks))
	for i, c := range checks {
		out[i] = c.Line
	}
	return out
}

func TestByName(t *testing.T) {
	cfg := &config.FilterConfig{ExemptPrefixes: []string{"data:text/css,ok"}}
	exempted := dataLoad("data:text/css,ok{}", policytype.Stylesheet, principal.System())
	child := &check.ContentSecurityCheck{ProcessType: logline.Child}

	p, err := ByName("system-data", cfg)
	if err != nil {
		t.Fatalf("ByName(system-data) error = %v", err)
	}
	if p(exempted) {
		t.Error("system-data ignored configured exempt prefixes")
	}

	p, err = ByName(" Child ", nil)
	if err != nil {
		t.Fatalf("ByName(child) error = %v", err)
	}
	if !p(child) {
		t.Error("child filter rejected a child check")
	}

	_, err = ByName("everything", nil)
	var unknown *UnknownFilterError
	if !errors.As(err, &unknown) || unknown.Name != "everything" {
		t.Errorf("ByName(everything) error = %v, want UnknownFilterError", err)
	}
}

func TestFromNames(t *testing.T) {
	all, err := FromNames(nil, nil)
	if err != nil {
		t.Fatalf("FromNames(nil) error = %v", err)
	}
	if !all(&check.ContentSecurityCheck{}) {
		t.Error("empty filter list should match everything")
	}

	p, err := FromNames([]string{"parent", "system-data"}, nil)
	if err != nil {
		t.Fatalf("FromNames() error = %v", err)
	}
	flagged := dataLoad("data:text/javascript,1", policytype.Script, principal.System())
	if !p(flagged) {
		t.Error("parent+system-data rejected a parent system data load")
	}
	flagged.ProcessType = logline.Child
	if p(flagged) {
		t.Error("parent+system-data accepted a child check")
	}

	if _, err := FromNames([]string{"parent", "bogus"}, nil); err == nil {
		t.Error("FromNames() with unknown name should fail")
	}
}
