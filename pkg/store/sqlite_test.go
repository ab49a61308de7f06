package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/csm/principal"
	"mercator-hq/csmlog/pkg/telemetry/metrics"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func testStoreConfig(t *testing.T) *config.StoreConfig {
	t.Helper()
	return &config.StoreConfig{
		Enabled:      true,
		Driver:       DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "nested", "checks.db"),
		MaxOpenConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
		Dedupe:       true,
	}
}

// openTestStore opens a store in a temporary directory.
func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	st, err := Open(testStoreConfig(t), opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testChecks() []*check.ContentSecurityCheck {
	post := "POST"
	return []*check.ContentSecurityCheck{
		{
			ProcessType:               logline.Parent,
			ChannelURI:                "https://incoming.telemetry.mozilla.org/submit",
			HTTPMethod:                &post,
			LoadingPrincipal:          principal.System(),
			TriggeringPrincipal:       principal.System(),
			PrincipalToInherit:        principal.NullPtr(),
			RedirectChain:             []string{},
			InternalContentPolicyType: policytype.InternalXMLHTTPRequest,
			ExternalContentPolicyType: policytype.XMLHTTPRequest,
			CSP:                       []string{},
			SecurityFlags:             []string{"SEC_COOKIES_INCLUDE"},
			Source:                    "firefox.log",
			Line:                      2,
		},
		{
			ProcessType: logline.Child,
			ChannelURI:  "https://www.raspberrypi.org/app.js",
			LoadingPrincipal: principal.Expanded(
				principal.Content("https://a.example/"),
				principal.Content("moz-extension://1234/"),
			),
			RedirectChain:             []string{"http://www.raspberrypi.org/app.js"},
			InternalContentPolicyType: policytype.InternalScript,
			ExternalContentPolicyType: policytype.Script,
			UpgradeInsecureRequests:   true,
			SecurityFlags:             []string{},
			Source:                    "firefox.log",
			Line:                      38,
		},
		{
			ProcessType:               logline.Child,
			InternalContentPolicyType: policytype.Invalid,
			ExternalContentPolicyType: policytype.Unknown,
			SecurityFlags:             []string{},
			Source:                    "other.log",
			Line:                      7,
		},
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	cfg := testStoreConfig(t)
	cfg.Driver = "postgres"

	_, err := Open(cfg)
	var storageErr *StorageError
	if !errors.As(err, &storageErr) || storageErr.Operation != "open" {
		t.Fatalf("Open() error = %v, want open StorageError", err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	in := testChecks()
	res, err := st.Store(ctx, in)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if res.Inserted != 3 || res.Skipped != 0 {
		t.Errorf("Store() = %+v, want 3 inserted", res)
	}

	records, err := st.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(Query()) = %d, want 3", len(records))
	}

	for i, rec := range records {
		want, err := Digest(in[i])
		if err != nil {
			t.Fatalf("Digest() error = %v", err)
		}
		got, err := Digest(rec.Check)
		if err != nil {
			t.Fatalf("Digest() error = %v", err)
		}
		if got != want || rec.Digest != want {
			t.Errorf("record %d does not round-trip: stored %s, reloaded %s, want %s", i, rec.Digest, got, want)
		}
		if rec.ID == "" {
			t.Errorf("record %d has no ID", i)
		}
	}

	absent := records[2].Check
	if absent.HTTPMethod != nil || absent.RedirectChain != nil || absent.CSP != nil {
		t.Errorf("absent fields reloaded as %v %v %v, want nil", absent.HTTPMethod, absent.RedirectChain, absent.CSP)
	}
	if !absent.LoadingPrincipal.IsAbsent() || absent.HasChannelURI() {
		t.Error("absent principal or channel URI reloaded as present")
	}
	if records[0].Check.RedirectChain == nil || len(records[0].Check.RedirectChain) != 0 {
		t.Errorf("empty redirect chain reloaded as %#v", records[0].Check.RedirectChain)
	}
}

func TestStore_Dedupe(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "t"}, nil)
	st := openTestStore(t, WithMetrics(collector))
	ctx := context.Background()

	if _, err := st.Store(ctx, testChecks()); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	again := testChecks()
	again[2].Line = 8
	res, err := st.Store(ctx, again)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if res.Inserted != 1 || res.Skipped != 2 {
		t.Errorf("second Store() = %+v, want 1 inserted 2 skipped", res)
	}

	count, err := st.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 4 {
		t.Errorf("Count() = %d, want 4", count)
	}

	if got := collectorGauge(t, collector); got != 4 {
		t.Errorf("t_store_records = %v, want 4", got)
	}
}

func collectorGauge(t *testing.T, c *metrics.Collector) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "t_store_records" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("t_store_records not registered")
	return 0
}

func TestStore_DedupeDisabled(t *testing.T) {
	cfg := testStoreConfig(t)
	cfg.Dedupe = false
	st, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := st.Store(ctx, testChecks()); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
	if n, _ := st.Count(ctx, nil); n != 6 {
		t.Errorf("Count() = %d, want 6", n)
	}
}

func TestStore_QueryFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, err := st.Store(ctx, testChecks()); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	tests := []struct {
		name   string
		filter *Filter
		lines  []int
	}{
		{"all", &Filter{}, []int{2, 38, 7}},
		{"source", &Filter{Source: "other.log"}, []int{7}},
		{"child", &Filter{Process: logline.Child}, []int{38, 7}},
		{"external type", &Filter{ExternalTypes: []policytype.Type{policytype.Script, policytype.Image}}, []int{38}},
		{"unknown type", &Filter{ExternalTypes: []policytype.Type{policytype.Unknown}}, []int{7}},
		{"prefix", &Filter{ChannelURIPrefix: "https://incoming."}, []int{2}},
		{"limit offset", &Filter{Limit: 1, Offset: 1}, []int{38}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := st.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			got := make([]int, len(records))
			for i, r := range records {
				got[i] = r.Check.Line
			}
			if len(got) != len(tt.lines) {
				t.Fatalf("lines = %v, want %v", got, tt.lines)
			}
			for i := range got {
				if got[i] != tt.lines[i] {
					t.Errorf("lines = %v, want %v", got, tt.lines)
					break
				}
			}
		})
	}
}

func TestStore_QueryInvalidFilter(t *testing.T) {
	st := openTestStore(t)

	_, err := st.Query(context.Background(), &Filter{Offset: 3})
	var queryErr *QueryError
	if !errors.As(err, &queryErr) {
		t.Errorf("Query() error = %v, want QueryError", err)
	}
}

func TestStore_DeleteBeforeAndOldest(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	st := openTestStore(t, WithClock(clock.now))
	ctx := context.Background()

	checks := testChecks()
	for i, c := range checks {
		clock.t = clock.t.Add(time.Hour)
		if _, err := st.Store(ctx, checks[i:i+1]); err != nil {
			t.Fatalf("Store(%d) error = %v", c.Line, err)
		}
	}

	since := time.Date(2026, 1, 1, 1, 30, 0, 0, time.UTC)
	recent, err := st.Query(ctx, &Filter{Since: &since})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("records since 01:30 = %d, want 2", len(recent))
	}

	deleted, err := st.DeleteBefore(ctx, since)
	if err != nil {
		t.Fatalf("DeleteBefore() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteBefore() = %d, want 1", deleted)
	}

	deleted, err = st.DeleteOldest(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteOldest() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteOldest() = %d, want 1", deleted)
	}

	records, _ := st.Query(ctx, nil)
	if len(records) != 1 || records[0].Check.Line != 7 {
		t.Errorf("remaining records = %d, want only line 7", len(records))
	}
	if !records[0].RecordedAt.Equal(time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)) {
		t.Errorf("RecordedAt = %v, want 03:00", records[0].RecordedAt)
	}
}

func TestDigest_StableAcrossFieldOrder(t *testing.T) {
	a := testChecks()[0]
	b := *a
	b.SecurityFlags = append([]string(nil), a.SecurityFlags...)

	da, err := Digest(a)
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	db, _ := Digest(&b)
	if da != db {
		t.Errorf("equal checks have different digests: %s != %s", da, db)
	}

	b.Line++
	if dc, _ := Digest(&b); dc == da {
		t.Error("checks at different lines share a digest")
	}
	if len(da) != 64 {
		t.Errorf("len(digest) = %d, want 64 hex chars", len(da))
	}
}

func TestOpen_Memory(t *testing.T) {
	st, err := Open(&config.StoreConfig{Driver: DriverSQLite, Path: MemoryPath, Dedupe: true})
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	defer st.Close()

	if _, err := st.Store(context.Background(), testChecks()); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if n, _ := st.Count(context.Background(), nil); n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}
