package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mercator-hq/csmlog/pkg/cli"
	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm"
	"mercator-hq/csmlog/pkg/csm/filter"
	"mercator-hq/csmlog/pkg/sink"
	"mercator-hq/csmlog/pkg/store"
	"mercator-hq/csmlog/pkg/telemetry/logging"
	"mercator-hq/csmlog/pkg/telemetry/metrics"
	"mercator-hq/csmlog/pkg/telemetry/tracing"
)

// app holds the configuration and telemetry shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// loadConfig reads the config file, applies environment variables and then
// the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Telemetry.Logging.Format = logFormat
	}
	return cfg, nil
}

// newApp initializes logging, metrics and tracing from cfg.
func newApp(cfg *config.Config) (*app, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}

	lc := cfg.Telemetry.Logging
	logger, err := logging.New(logging.Config{
		Level:          lc.Level,
		Format:         lc.Format,
		AddSource:      lc.AddSource,
		RedactURLs:     lc.RedactURLs,
		RedactPatterns: lc.RedactPatterns,
		Writer:         os.Stderr,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithVersion(Version))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	return &app{
		cfg:     cfg,
		logger:  logger.Slog(),
		metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		tracer:  tracer,
	}, nil
}

func (a *app) close() {
	if err := a.tracer.Shutdown(context.Background()); err != nil {
		a.logger.Warn("tracer shutdown failed", "error", err)
	}
}

func (a *app) extractor() *csm.Extractor {
	return csm.NewExtractor(csm.Options{
		MaxLineSize: a.cfg.Scanner.MaxLineSize,
		Logger:      a.logger,
		Metrics:     a.metrics,
		Tracer:      a.tracer,
	})
}

// predicate combines the configured filters with extra, usually from flags.
func (a *app) predicate(extra []string) (filter.Predicate, error) {
	names := append(append([]string(nil), a.cfg.Filter.Names...), extra...)
	p, err := filter.FromNames(names, &a.cfg.Filter)
	if err != nil {
		return nil, cli.NewConfigError("filter", err.Error())
	}
	return p, nil
}

func (a *app) openStore() (*store.Store, error) {
	st, err := store.Open(&a.cfg.Store,
		store.WithLogger(a.logger),
		store.WithMetrics(a.metrics),
		store.WithTracer(a.tracer),
	)
	if err != nil {
		return nil, cli.NewCommandError("store", err)
	}
	return st, nil
}

func (a *app) openSink() (sink.Sink, error) {
	s, err := sink.NewKafkaSink(&a.cfg.Kafka,
		sink.WithLogger(a.logger),
		sink.WithMetrics(a.metrics),
		sink.WithTracer(a.tracer),
	)
	if err != nil {
		return nil, cli.NewCommandError("kafka", err)
	}
	return s, nil
}
