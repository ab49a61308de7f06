package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeStructural,
		Message:    "unknown field 'channelUri'",
		Location:   Location{Source: "firefox.log", Line: 12},
		Context:    "-> 12 | - channelUri: https://example.com/\n",
		Suggestion: "Did you mean 'channelURI'?",
	}

	got := err.Error()
	for _, want := range []string{
		"[structural] unknown field 'channelUri'",
		"--> firefox.log:12",
		"-> 12 | - channelUri",
		"= suggestion: Did you mean 'channelURI'?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}

	if got := err.Summary(); got != "firefox.log:12: unknown field 'channelUri'" {
		t.Errorf("Summary() = %q", got)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := &Error{Type: ErrorTypeIO, Message: "read failed", Cause: cause}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestErrorType_IsBlockDecode(t *testing.T) {
	tests := []struct {
		typ  ErrorType
		want bool
	}{
		{ErrorTypeSyntax, true},
		{ErrorTypeStructural, true},
		{ErrorTypePrincipal, true},
		{ErrorTypeUnclassifiedLine, false},
		{ErrorTypeUnterminatedBlock, false},
		{ErrorTypeIO, false},
	}

	for _, tt := range tests {
		if got := tt.typ.IsBlockDecode(); got != tt.want {
			t.Errorf("%s.IsBlockDecode() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestErrorList(t *testing.T) {
	list := NewErrorList()
	if list.ToError() != nil {
		t.Error("ToError() on empty list should be nil")
	}

	list.AddError(ErrorTypeUnclassifiedLine, "dropped line", Location{Line: 3})
	list.AddError(ErrorTypeSyntax, "bad markup", Location{Line: 9})
	list.AddError(ErrorTypeUnclassifiedLine, "dropped line", Location{Line: 10})

	if list.Count() != 3 {
		t.Errorf("Count() = %d, want 3", list.Count())
	}
	if got := len(list.ByType(ErrorTypeUnclassifiedLine)); got != 2 {
		t.Errorf("len(ByType(unclassified_line)) = %d, want 2", got)
	}
	if list.HasErrorType(ErrorTypePrincipal) {
		t.Error("HasErrorType(principal) = true, want false")
	}
	if !strings.HasPrefix(list.Error(), "Found 3 error(s)") {
		t.Errorf("Error() = %q", list.Error())
	}
}

func TestSuggestFieldName(t *testing.T) {
	fields := []string{"channelURI", "httpMethod", "loadingPrincipal", "securityFlags"}

	tests := []struct {
		unknown string
		want    string
	}{
		{"channelUri", "Did you mean 'channelURI'?"},
		{"securityFlag", "Did you mean 'securityFlags'?"},
		{"zzzzzzzzzzzzzzzz", "Valid fields: channelURI, httpMethod, loadingPrincipal, securityFlags"},
	}

	for _, tt := range tests {
		if got := SuggestFieldName(tt.unknown, fields); got != tt.want {
			t.Errorf("SuggestFieldName(%q) = %q, want %q", tt.unknown, got, tt.want)
		}
	}
}

func TestBlockContext(t *testing.T) {
	got := BlockContext(
		[]string{"- channelURI: x", "- bogus: y"},
		[]int{9, 10},
		10,
	)
	want := "    9 | - channelURI: x\n-> 10 | - bogus: y\n"
	if got != want {
		t.Errorf("BlockContext() = %q, want %q", got, want)
	}
}
