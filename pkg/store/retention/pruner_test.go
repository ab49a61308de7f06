package retention

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/store"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// seedStore stores one check per age, oldest first. Ages are in days
// before epoch.
func seedStore(t *testing.T, ages ...int) *store.Store {
	t.Helper()

	var current time.Time
	st, err := store.Open(
		&config.StoreConfig{Driver: store.DriverSQLite, Path: store.MemoryPath, Dedupe: true},
		store.WithClock(func() time.Time { return current }),
	)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	for i, age := range ages {
		current = epoch.AddDate(0, 0, -age)
		c := &check.ContentSecurityCheck{Source: "seed.log", Line: i + 1, SecurityFlags: []string{}}
		if _, err := st.Store(context.Background(), []*check.ContentSecurityCheck{c}); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
	return st
}

func newTestPruner(st Storage, cfg *config.RetentionConfig) *Pruner {
	p := NewPruner(st, cfg, nil)
	p.now = func() time.Time { return epoch }
	return p
}

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.RetentionConfig
		wantDeleted int64
		wantLeft    int64
	}{
		{"age only", config.RetentionConfig{Days: 30}, 2, 3},
		{"count only", config.RetentionConfig{MaxRecords: 2}, 3, 2},
		{"age and count", config.RetentionConfig{Days: 30, MaxRecords: 1}, 4, 1},
		{"disabled", config.RetentionConfig{}, 0, 5},
		{"count within limit", config.RetentionConfig{MaxRecords: 10}, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := seedStore(t, 90, 45, 20, 5, 0)
			cfg := tt.cfg

			deleted, err := newTestPruner(st, &cfg).Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("Prune() = %d, want %d", deleted, tt.wantDeleted)
			}
			if left, _ := st.Count(context.Background(), nil); left != tt.wantLeft {
				t.Errorf("remaining = %d, want %d", left, tt.wantLeft)
			}
		})
	}
}

func TestPruner_CountKeepsNewest(t *testing.T) {
	st := seedStore(t, 3, 2, 1)

	if _, err := newTestPruner(st, &config.RetentionConfig{MaxRecords: 1}).Prune(context.Background()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	records, err := st.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(records) != 1 || records[0].Check.Line != 3 {
		t.Errorf("kept %d records, want only the newest (line 3)", len(records))
	}
}

func TestPruner_Archive(t *testing.T) {
	st := seedStore(t, 60, 40, 1)
	dir := filepath.Join(t.TempDir(), "archive")

	p := newTestPruner(st, &config.RetentionConfig{Days: 30, ArchivePath: dir})
	if _, err := p.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "checks-age-*.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("archive files = %v (err %v), want 1", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var archived []check.ContentSecurityCheck
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("archive is not a JSON array: %v", err)
	}
	if len(archived) != 2 || archived[0].Line != 1 || archived[1].Line != 2 {
		t.Errorf("archived %d checks, want lines 1 and 2", len(archived))
	}
}

type failingStorage struct{ Storage }

func (failingStorage) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestPruner_DeleteFailure(t *testing.T) {
	p := newTestPruner(failingStorage{}, &config.RetentionConfig{Days: 7})

	_, err := p.Prune(context.Background())
	var retErr *Error
	if !errors.As(err, &retErr) || retErr.RetentionDays != 7 {
		t.Fatalf("Prune() error = %v, want retention Error", err)
	}
}
