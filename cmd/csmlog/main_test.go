package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/csmlog/pkg/cli"
	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/store"
)

const fixture = "../../pkg/csm/testdata/firefox.log"

// resetFlags points the commands at defaults and a quiet logger.
func resetFlags(t *testing.T) {
	t.Helper()
	cfgFile = filepath.Join(t.TempDir(), "absent.yaml")
	verbose = false
	logLevel = "error"
	logFormat = "text"

	extractFlags = struct {
		output       string
		format       string
		filters      []string
		store        string
		kafkaBrokers []string
		kafkaTopic   string
		metricsFile  string
		jobs         int
		strict       bool
		exts         []string
		compact      bool
		progress     bool
	}{}
	queryFlags.store = ""
	queryFlags.source = ""
	queryFlags.process = ""
	queryFlags.externalTypes = nil
	queryFlags.uriPrefix = ""
	queryFlags.since = ""
	queryFlags.until = ""
	queryFlags.limit = 0
	queryFlags.offset = 0
	queryFlags.format = ""
	queryFlags.output = ""
	queryFlags.count = false
}

func readChecks(t *testing.T, path string) []check.ContentSecurityCheck {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var checks []check.ContentSecurityCheck
	if err := json.Unmarshal(data, &checks); err != nil {
		t.Fatalf("output is not a JSON array of checks: %v\n%s", err, data)
	}
	return checks
}

func TestRunExtract_JSONAndStore(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	extractFlags.output = filepath.Join(dir, "checks.json")
	extractFlags.store = filepath.Join(dir, "csmlog.db")
	extractFlags.metricsFile = filepath.Join(dir, "csmlog.prom")

	if err := runExtract(nil, []string{fixture}); err != nil {
		t.Fatalf("runExtract() error = %v", err)
	}

	checks := readChecks(t, extractFlags.output)
	if len(checks) != 3 {
		t.Fatalf("len(checks) = %d, want 3", len(checks))
	}
	if checks[0].Line != 2 || checks[2].ProcessType != logline.Child {
		t.Errorf("checks out of order: first line %d, last process %v", checks[0].Line, checks[2].ProcessType)
	}

	st, err := store.Open(&config.StoreConfig{
		Driver:       config.DefaultStoreDriver,
		Path:         extractFlags.store,
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()
	n, err := st.Count(context.Background(), &store.Filter{})
	if err != nil || n != 3 {
		t.Errorf("stored records = %d, %v, want 3", n, err)
	}

	prom, err := os.ReadFile(extractFlags.metricsFile)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	if !strings.Contains(string(prom), "csmlog_") {
		t.Errorf("metrics textfile has no csmlog metrics:\n%s", prom)
	}
}

func TestRunExtract_Filter(t *testing.T) {
	resetFlags(t)
	extractFlags.output = filepath.Join(t.TempDir(), "checks.json")
	extractFlags.filters = []string{"system-data"}

	if err := runExtract(nil, []string{fixture}); err != nil {
		t.Fatalf("runExtract() error = %v", err)
	}

	checks := readChecks(t, extractFlags.output)
	if len(checks) != 1 {
		t.Fatalf("len(checks) = %d, want 1", len(checks))
	}
	if checks[0].ExternalContentPolicyType != policytype.Stylesheet {
		t.Errorf("ExternalContentPolicyType = %v, want TYPE_STYLESHEET", checks[0].ExternalContentPolicyType)
	}
}

func TestRunExtract_Strict(t *testing.T) {
	resetFlags(t)
	extractFlags.output = filepath.Join(t.TempDir(), "checks.json")
	extractFlags.strict = true

	err := runExtract(nil, []string{fixture})
	var de *cli.DiagnosticsError
	if !errors.As(err, &de) {
		t.Fatalf("runExtract() error = %v, want DiagnosticsError", err)
	}
	if de.Failed != 1 || de.Unterminated != 1 {
		t.Errorf("DiagnosticsError = %+v, want 1 failed and 1 unterminated", de)
	}
	if cli.ExitCode(err) != cli.ExitDiagnostics {
		t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitDiagnostics)
	}

	// Output is still written in strict mode.
	if got := len(readChecks(t, extractFlags.output)); got != 3 {
		t.Errorf("len(checks) = %d, want 3", got)
	}
}

func TestRunExtract_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func()
		args  []string
	}{
		{"unknown filter", func() { extractFlags.filters = []string{"nope"} }, []string{fixture}},
		{"unknown format", func() { extractFlags.format = "xml" }, []string{fixture}},
		{"missing input", func() {}, []string{"testdata/absent.log"}},
		{"invalid broker", func() { extractFlags.kafkaBrokers = []string{"no-port"} }, []string{fixture}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			extractFlags.output = filepath.Join(t.TempDir(), "checks.json")
			tt.setup()

			err := runExtract(nil, tt.args)
			if err == nil {
				t.Fatal("runExtract() expected error")
			}
			if cli.ExitCode(err) != cli.ExitError {
				t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitError)
			}
		})
	}
}

func TestRunQuery(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "csmlog.db")
	extractFlags.output = filepath.Join(dir, "extract.json")
	extractFlags.store = db
	if err := runExtract(nil, []string{fixture}); err != nil {
		t.Fatalf("runExtract() error = %v", err)
	}

	resetFlags(t)
	queryFlags.store = db
	queryFlags.process = "child"
	queryFlags.output = filepath.Join(dir, "query.json")
	if err := runQuery(nil, nil); err != nil {
		t.Fatalf("runQuery() error = %v", err)
	}
	checks := readChecks(t, queryFlags.output)
	if len(checks) != 1 || checks[0].ProcessType != logline.Child {
		t.Errorf("query returned %d checks, want the single child check", len(checks))
	}

	resetFlags(t)
	queryFlags.store = db
	queryFlags.count = true
	queryFlags.externalTypes = []string{"TYPE_XMLHTTPREQUEST"}
	queryFlags.output = filepath.Join(dir, "count.txt")
	if err := runQuery(nil, nil); err != nil {
		t.Fatalf("runQuery(--count) error = %v", err)
	}
	data, _ := os.ReadFile(queryFlags.output)
	if strings.TrimSpace(string(data)) != "1" {
		t.Errorf("count output = %q, want 1", data)
	}
}

func TestBuildQueryFilter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	resetFlags(t)
	queryFlags.since = "24h"
	queryFlags.until = "2026-03-01T10:00:00Z"
	queryFlags.externalTypes = []string{"2", "TYPE_STYLESHEET"}
	f, err := buildQueryFilter(now)
	if err != nil {
		t.Fatalf("buildQueryFilter() error = %v", err)
	}
	if want := now.Add(-24 * time.Hour); f.Since == nil || !f.Since.Equal(want) {
		t.Errorf("Since = %v, want %v", f.Since, want)
	}
	if f.Until == nil || f.Until.Hour() != 10 {
		t.Errorf("Until = %v", f.Until)
	}
	if len(f.ExternalTypes) != 2 || f.ExternalTypes[0] != policytype.Script {
		t.Errorf("ExternalTypes = %v", f.ExternalTypes)
	}

	bad := []func(){
		func() { queryFlags.process = "gpu" },
		func() { queryFlags.externalTypes = []string{"blergh"} },
		func() { queryFlags.since = "yesterday" },
	}
	for i, setup := range bad {
		resetFlags(t)
		setup()
		if _, err := buildQueryFilter(now); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestGroupBySource(t *testing.T) {
	checks := []*check.ContentSecurityCheck{
		{Source: "a.log", Line: 1},
		{Source: "b.log", Line: 1},
		{Source: "a.log", Line: 9},
	}

	groups := groupBySource(checks)
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if groups[0].source != "a.log" || len(groups[0].checks) != 2 || groups[0].checks[1].Line != 9 {
		t.Errorf("groups[0] = %+v", groups[0])
	}
	if groups[1].source != "b.log" || len(groups[1].checks) != 1 {
		t.Errorf("groups[1] = %+v", groups[1])
	}
}

type recordingSink struct {
	fail  error
	calls [][]int
}

func (s *recordingSink) Publish(_ context.Context, _ string, checks []*check.ContentSecurityCheck) error {
	lines := make([]int, len(checks))
	for i, c := range checks {
		lines[i] = c.Line
	}
	s.calls = append(s.calls, lines)
	return s.fail
}

func (s *recordingSink) Close() error { return nil }

func checksAt(lines ...int) []*check.ContentSecurityCheck {
	out := make([]*check.ContentSecurityCheck, len(lines))
	for i, l := range lines {
		out[i] = &check.ContentSecurityCheck{Source: "f.log", Line: l}
	}
	return out
}

func TestWatchPipeline_Publish(t *testing.T) {
	ctx := context.Background()
	rs := &recordingSink{}
	w := &watchPipeline{sink: rs}

	if err := w.publish(ctx, "f.log", checksAt(2, 21)); err != nil {
		t.Fatalf("publish() error = %v", err)
	}
	if err := w.publish(ctx, "f.log", checksAt(2, 21, 38)); err != nil {
		t.Fatalf("publish() error = %v", err)
	}
	if err := w.publish(ctx, "f.log", checksAt(2, 21, 38)); err != nil {
		t.Fatalf("publish() error = %v", err)
	}
	if err := w.publish(ctx, "f.log", checksAt(2)); err != nil {
		t.Fatalf("publish() error = %v", err)
	}

	want := [][]int{{2, 21}, {38}, {2}}
	if len(rs.calls) != len(want) {
		t.Fatalf("Publish calls = %v, want %v", rs.calls, want)
	}
	for i := range want {
		if len(rs.calls[i]) != len(want[i]) || rs.calls[i][0] != want[i][0] {
			t.Errorf("call %d = %v, want %v", i, rs.calls[i], want[i])
		}
	}
}

func TestWatchPipeline_PublishRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	rs := &recordingSink{fail: errors.New("broker unavailable")}
	w := &watchPipeline{sink: rs}

	if err := w.publish(ctx, "f.log", checksAt(2, 21)); err == nil {
		t.Fatal("publish() succeeded, want error")
	}

	rs.fail = nil
	if err := w.publish(ctx, "f.log", checksAt(2, 21, 38)); err != nil {
		t.Fatalf("publish() error = %v", err)
	}
	if len(rs.calls) != 2 || len(rs.calls[1]) != 3 {
		t.Errorf("Publish calls = %v, want the failed checks sent again with line 38", rs.calls)
	}
	if got := w.unpublished("f.log", checksAt(2, 21, 38)); len(got) != 0 {
		t.Errorf("unpublished() after success = %d checks, want 0", len(got))
	}
}

func TestWatchPipeline_NoSink(t *testing.T) {
	w := &watchPipeline{}
	if err := w.publish(context.Background(), "f.log", checksAt(2)); err != nil {
		t.Errorf("publish() without sink error = %v", err)
	}
}

func TestPolicyTypesFormats(t *testing.T) {
	list := listPolicyTypes()
	if len(list) == 0 || list[0].Name != "TYPE_INVALID" || list[0].Code != 0 {
		t.Fatalf("listPolicyTypes()[0] = %+v", list[0])
	}

	text := list.String()
	if !strings.HasPrefix(text, "CODE  NAME") || !strings.Contains(text, "   2  TYPE_SCRIPT") {
		t.Errorf("text listing = %q", text)
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)
	policyTypesFlags.format = "json"
	defer func() { policyTypesFlags.format = "text" }()
	if err := runPolicyTypes(policyTypesCmd, nil); err != nil {
		t.Fatalf("runPolicyTypes() error = %v", err)
	}
	var decoded []policyTypeEntry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output: %v", err)
	}
	if len(decoded) != len(list) {
		t.Errorf("json entries = %d, want %d", len(decoded), len(list))
	}
}

func TestVersionCommand(t *testing.T) {
	if versionCmd.Use != "version" || versionCmd.Run == nil {
		t.Fatal("version command not initialized")
	}

	var buf bytes.Buffer
	printVersion(&buf)
	if !strings.HasPrefix(buf.String(), "csmlog "+Version+"\n") {
		t.Errorf("printVersion() = %q", buf.String())
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := normalizeExtensions([]string{"log", " .TXT ", ""})
	if len(got) != 2 || got[0] != ".log" || got[1] != ".txt" {
		t.Errorf("normalizeExtensions() = %v", got)
	}
}
