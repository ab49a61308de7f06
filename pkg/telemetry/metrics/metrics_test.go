package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	csmerrors "mercator-hq/csmlog/pkg/csm/errors"
	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/csm/scanner"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:             true,
		Namespace:           "test",
		ScanDurationBuckets: []float64{0.01, 0.1, 1},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, config.DefaultMetricsNamespace)
	}
	if len(cfg.ScanDurationBuckets) == 0 {
		t.Error("ScanDurationBuckets not defaulted")
	}
}

func TestCollector_RecordScan(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	stats := scanner.Stats{Lines: 40, Blocks: 4, Decoded: 2, Failed: 1, Unterminated: 1}

	collector.RecordScan(stats, 20*time.Millisecond, nil)
	collector.RecordScan(scanner.Stats{Lines: 5}, time.Millisecond, errors.New("read failed"))

	sm := collector.scanMetrics
	if got := testutil.ToFloat64(sm.scansTotal.WithLabelValues(StatusOK)); got != 1 {
		t.Errorf("scans_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sm.scansTotal.WithLabelValues(StatusError)); got != 1 {
		t.Errorf("scans_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sm.linesTotal); got != 45 {
		t.Errorf("lines_total = %v, want 45", got)
	}
	for outcome, want := range map[string]float64{"decoded": 2, "failed": 1, "unterminated": 1} {
		if got := testutil.ToFloat64(sm.blocksTotal.WithLabelValues(outcome)); got != want {
			t.Errorf("blocks_total{%s} = %v, want %v", outcome, got, want)
		}
	}
	if got := testutil.CollectAndCount(sm.scanDuration); got != 1 {
		t.Errorf("scan_duration_seconds series = %d, want 1", got)
	}
}

func TestCollector_RecordDiagnosticsAndChecks(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	diags := csmerrors.NewErrorList()
	diags.AddError(csmerrors.ErrorTypeUnclassifiedLine, "noise", csmerrors.Location{Line: 3})
	diags.AddError(csmerrors.ErrorTypeUnclassifiedLine, "noise", csmerrors.Location{Line: 4})
	diags.AddError(csmerrors.ErrorTypeSyntax, "bad", csmerrors.Location{Line: 9})
	collector.RecordDiagnostics(&scanner.Result{Diagnostics: diags})
	collector.RecordDiagnostics(nil)

	collector.RecordChecks([]*check.ContentSecurityCheck{
		{ProcessType: logline.Parent, ExternalContentPolicyType: policytype.Script},
		{ProcessType: logline.Parent, ExternalContentPolicyType: policytype.Script},
		{ProcessType: logline.Child, ExternalContentPolicyType: policytype.Image},
	})

	sm := collector.scanMetrics
	if got := testutil.ToFloat64(sm.diagnosticsTotal.WithLabelValues("unclassified_line")); got != 2 {
		t.Errorf("diagnostics_total{unclassified_line} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(sm.diagnosticsTotal.WithLabelValues("syntax")); got != 1 {
		t.Errorf("diagnostics_total{syntax} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sm.checksTotal.WithLabelValues("Parent", "TYPE_SCRIPT")); got != 2 {
		t.Errorf("checks_total{Parent,TYPE_SCRIPT} = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(sm.checksTotal); got != 2 {
		t.Errorf("checks_total series = %d, want 2", got)
	}
}

func TestCollector_Output(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordStoreWrite(3, 1, nil)
	collector.RecordStoreWrite(0, 0, errors.New("disk full"))
	collector.SetStoredRecords(42)
	collector.RecordPruned(7)
	collector.RecordPublish("kafka", 3, nil)
	collector.RecordPublish("kafka", 2, errors.New("broker down"))

	om := collector.outputMetrics
	if got := testutil.ToFloat64(om.storeWrites.WithLabelValues("inserted")); got != 3 {
		t.Errorf("store_writes_total{inserted} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(om.storeWrites.WithLabelValues("duplicate")); got != 1 {
		t.Errorf("store_writes_total{duplicate} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(om.storeFailures); got != 1 {
		t.Errorf("store_write_failures_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(om.storeRecords); got != 42 {
		t.Errorf("store_records = %v, want 42", got)
	}
	if got := testutil.ToFloat64(om.storePruned); got != 7 {
		t.Errorf("store_pruned_total = %v, want 7", got)
	}
	if got := testutil.ToFloat64(om.sinkMessages.WithLabelValues("kafka", StatusError)); got != 2 {
		t.Errorf("sink_messages_total{kafka,error} = %v, want 2", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordScan(scanner.Stats{Lines: 10}, time.Second, nil)
	collector.RecordPruned(5)

	if got := testutil.ToFloat64(collector.scanMetrics.linesTotal); got != 0 {
		t.Errorf("lines_total = %v, want 0 when disabled", got)
	}
	if collector.Enabled() {
		t.Error("Enabled() = true, want false")
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordScan(scanner.Stats{Lines: 12}, time.Millisecond, nil)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "test_lines_total 12") {
		t.Errorf("body missing test_lines_total 12:\n%s", body)
	}
}

func TestCollector_WriteToTextfile(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordScan(scanner.Stats{Lines: 3}, time.Millisecond, nil)

	path := filepath.Join(t.TempDir(), "csmlog.prom")
	if err := collector.WriteToTextfile(path); err != nil {
		t.Fatalf("WriteToTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "test_lines_total 3") {
		t.Errorf("textfile missing test_lines_total 3:\n%s", data)
	}

	if err := collector.WriteToTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("WriteToTextfile() into a missing directory should fail")
	}
}
