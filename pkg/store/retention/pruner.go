package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/export"
	"mercator-hq/csmlog/pkg/store"
	"mercator-hq/csmlog/pkg/telemetry/metrics"
)

// Storage is the part of store.Store the pruner needs.
type Storage interface {
	Query(ctx context.Context, f *store.Filter) ([]*store.Record, error)
	Count(ctx context.Context, f *store.Filter) (int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOldest(ctx context.Context, keep int64) (int64, error)
}

// Error represents an error during retention policy enforcement.
type Error struct {
	RetentionDays int   // Configured retention period
	Cause         error // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Pruner enforces retention policies on stored checks.
type Pruner struct {
	storage   Storage
	config    *config.RetentionConfig
	logger    *slog.Logger
	metrics   *metrics.Collector
	now       func() time.Time
	scheduler *Scheduler
}

// NewPruner creates a new retention pruner. collector may be nil.
func NewPruner(storage Storage, cfg *config.RetentionConfig, collector *metrics.Collector) *Pruner {
	if cfg == nil {
		cfg = &config.Default().Store.Retention
	}

	pruner := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "store.retention"),
		metrics: collector,
		now:     time.Now,
	}
	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// Prune deletes records older than the retention period or exceeding the
// max record count.
//
// Pruning happens in two phases:
// 1. Age-based: Delete records older than Days
// 2. Count-based: If total records > MaxRecords, delete oldest
//
// Returns the total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.Days > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if p.metrics != nil {
		p.metrics.RecordPruned(totalDeleted)
	}

	if totalDeleted == 0 {
		p.logger.Debug("no records pruned",
			"retention_days", p.config.Days,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("check pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.Days,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

// pruneByAge deletes records older than the retention period.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.Days)

	p.logger.Debug("pruning by age",
		"cutoff_time", cutoff,
		"retention_days", p.config.Days,
	)

	if p.config.ArchivePath != "" {
		if err := p.archive(ctx, &store.Filter{Until: &cutoff}, "age"); err != nil {
			return 0, &Error{RetentionDays: p.config.Days, Cause: err}
		}
	}

	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, &Error{RetentionDays: p.config.Days, Cause: err}
	}
	return deleted, nil
}

// pruneByCount deletes the oldest records if the total exceeds MaxRecords.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	if count <= p.config.MaxRecords {
		p.logger.Debug("record count within limit",
			"current", count,
			"max", p.config.MaxRecords,
		)
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", toDelete,
	)

	if p.config.ArchivePath != "" {
		if err := p.archive(ctx, &store.Filter{Limit: int(toDelete)}, "count"); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	deleted, err := p.storage.DeleteOldest(ctx, p.config.MaxRecords)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

// archive exports the records matching f to a JSON file before deletion.
func (p *Pruner) archive(ctx context.Context, f *store.Filter, reason string) error {
	records, err := p.storage.Query(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to query records for archiving: %w", err)
	}
	if len(records) == 0 {
		p.logger.Debug("no records to archive")
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("checks-%s-%s.json", reason, p.now().Format("2006-01-02-150405"))
	archiveFile := filepath.Join(p.config.ArchivePath, name)
	out, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	checks := make([]*check.ContentSecurityCheck, len(records))
	for i, r := range records {
		checks[i] = r.Check
	}

	if err := export.NewJSONExporter(true).Export(ctx, checks, out); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}

	p.logger.Info("checks archived",
		"archive_file", archiveFile,
		"record_count", len(records),
	)
	return nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
