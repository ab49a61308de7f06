package retention

import (
	"context"
	"testing"

	"mercator-hq/csmlog/pkg/config"
)

func TestScheduler_Lifecycle(t *testing.T) {
	st := seedStore(t)
	p := newTestPruner(st, &config.RetentionConfig{Days: 30, Schedule: "@every 1h"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.scheduler.IsRunning() {
		t.Error("scheduler not running after Start()")
	}
	if p.NextPruning() == nil {
		t.Error("NextPruning() = nil, want a scheduled time")
	}

	p.Stop()
	if p.scheduler.IsRunning() {
		t.Error("scheduler still running after Stop()")
	}
}

func TestScheduler_EmptySchedule(t *testing.T) {
	p := newTestPruner(seedStore(t), &config.RetentionConfig{Days: 30})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.scheduler.IsRunning() {
		t.Error("scheduler running without a schedule")
	}
	if p.NextPruning() != nil {
		t.Error("NextPruning() should be nil without a schedule")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	p := newTestPruner(seedStore(t), &config.RetentionConfig{Schedule: "every day"})

	if err := p.Start(context.Background()); err == nil {
		p.Stop()
		t.Fatal("Start() with invalid schedule should fail")
	}
}
