package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/csmlog/pkg/cli"
	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/filter"
	"mercator-hq/csmlog/pkg/sink"
	"mercator-hq/csmlog/pkg/store"
	"mercator-hq/csmlog/pkg/store/retention"
	"mercator-hq/csmlog/pkg/telemetry/health"
	"mercator-hq/csmlog/pkg/watch"
)

var watchFlags struct {
	store        string
	listen       string
	filters      []string
	kafkaBrokers []string
	kafkaTopic   string
	exts         []string
	debounce     time.Duration
	recursive    bool
	skipInitial  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch PATH...",
	Short: "Extract checks from log files as they change",
	Long: `Watch log files or directories and re-extract a file whenever it changes.

Every extraction is persisted into the SQLite store; records already stored
are skipped by digest, so re-reading a growing log only adds new checks.
Retention pruning runs on the configured cron schedule, and Prometheus
metrics are served when a listen address is set.

Existing files are extracted once at startup unless --skip-initial is set.
The command runs until interrupted.

Examples:
  # Watch a MOZ_LOG directory
  csmlog watch --store data/csmlog.db /tmp/moz-logs

  # Serve metrics and publish to Kafka
  csmlog watch --listen :9464 --kafka-brokers localhost:9092 /tmp/moz-logs`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.store, "store", "", "SQLite database path (default from config)")
	watchCmd.Flags().StringVar(&watchFlags.listen, "listen", "", "serve Prometheus metrics on this address (e.g. :9464)")
	watchCmd.Flags().StringArrayVar(&watchFlags.filters, "filter", nil, "keep only matching checks: system-data, parent, child (repeatable)")
	watchCmd.Flags().StringSliceVar(&watchFlags.kafkaBrokers, "kafka-brokers", nil, "publish checks to these Kafka brokers (host:port)")
	watchCmd.Flags().StringVar(&watchFlags.kafkaTopic, "kafka-topic", "", "Kafka topic (default from config)")
	watchCmd.Flags().StringSliceVar(&watchFlags.exts, "ext", nil, "file extensions to watch (default from config)")
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 0, "quiet period before a changed file is read (default from config)")
	watchCmd.Flags().BoolVar(&watchFlags.recursive, "recursive", false, "also watch subdirectories")
	watchCmd.Flags().BoolVar(&watchFlags.skipInitial, "skip-initial", false, "do not extract existing files at startup")
}

func applyWatchFlags(cfg *config.Config) {
	cfg.Store.Enabled = true
	if watchFlags.store != "" {
		cfg.Store.Path = watchFlags.store
	}
	if watchFlags.listen != "" {
		cfg.Telemetry.Metrics.ListenAddress = watchFlags.listen
	}
	if len(watchFlags.kafkaBrokers) > 0 {
		cfg.Kafka.Enabled = true
		cfg.Kafka.Brokers = watchFlags.kafkaBrokers
	}
	if watchFlags.kafkaTopic != "" {
		cfg.Kafka.Topic = watchFlags.kafkaTopic
	}
	if len(watchFlags.exts) > 0 {
		cfg.Input.Extensions = normalizeExtensions(watchFlags.exts)
	}
	if watchFlags.debounce > 0 {
		cfg.Watch.Debounce = watchFlags.debounce
	}
	if watchFlags.recursive {
		cfg.Watch.Recursive = true
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyWatchFlags(cfg)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	parent := context.Background()
	if cmd != nil && cmd.Context() != nil {
		parent = cmd.Context()
	}
	ctx, stop := cli.SetupSignalHandler(parent)
	defer stop()

	pred, err := a.predicate(watchFlags.filters)
	if err != nil {
		return err
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var out sink.Sink
	if cfg.Kafka.Enabled {
		if out, err = a.openSink(); err != nil {
			return err
		}
		defer out.Close()
	}

	pruner := retention.NewPruner(st, &cfg.Store.Retention, a.metrics)
	if err := pruner.Start(ctx); err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer pruner.Stop()

	fw, err := watch.New(&watch.Config{
		Paths:      args,
		Debounce:   cfg.Watch.Debounce,
		Extensions: cfg.Input.Extensions,
		Recursive:  cfg.Watch.Recursive,
		SkipHidden: true,
	}, a.logger)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer fw.Stop()

	if addr := cfg.Telemetry.Metrics.ListenAddress; addr != "" {
		checker := health.New(2 * time.Second)
		checker.RegisterCheck("store", st.Ping)
		checker.RegisterCheck("watcher", func(context.Context) error {
			if !fw.Running() {
				return errors.New("file watcher is not running")
			}
			return nil
		})

		srv := a.httpServer(addr, checker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", "address", addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w := &watchPipeline{app: a, store: st, sink: out, pred: pred}

	if !watchFlags.skipInitial {
		inputs, err := cli.DiscoverInputs(args, cfg.Input.Extensions)
		if err != nil {
			return err
		}
		for _, input := range inputs {
			if input == cli.StdinInput {
				return cli.NewConfigError("watch", "stdin cannot be watched")
			}
			if err := w.process(ctx, input); err != nil {
				a.logger.Error("initial extraction failed", "source", input, "error", err)
			}
		}
	}

	a.logger.Info("watching for changes",
		"paths", args,
		"store", cfg.Store.Path,
		"next_pruning", pruner.NextPruning(),
	)

	if err := fw.Watch(ctx, w.process); err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}

// httpServer serves the Prometheus metrics and the health endpoints.
func (a *app) httpServer(addr string, checker *health.Checker) *http.Server {
	path := a.cfg.Telemetry.Metrics.Path
	if path == "" {
		path = config.DefaultPrometheusPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, a.metrics.Handler())
	health.Register(mux, checker, Version, GitCommit, BuildDate)

	a.logger.Info("serving metrics", "address", addr, "path", path, "checks", checker.ListChecks())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// watchPipeline extracts one changed file and forwards its checks.
type watchPipeline struct {
	app   *app
	store *store.Store
	sink  sink.Sink
	pred  filter.Predicate

	mu        sync.Mutex
	published map[string]int
}

func (w *watchPipeline) process(ctx context.Context, path string) error {
	res, err := w.app.extractor().ExtractFile(ctx, path)
	if err != nil {
		return err
	}

	checks := filter.Apply(res.Checks, w.pred)
	stored, err := w.store.Store(ctx, checks)
	if err != nil {
		return fmt.Errorf("failed to store checks: %w", err)
	}

	if err := w.publish(ctx, path, checks); err != nil {
		return err
	}

	w.app.logger.Info("file processed",
		"source", path,
		"checks", len(checks),
		"inserted", stored.Inserted,
		"skipped", stored.Skipped,
	)
	return nil
}

// publish sends the checks of path not yet published to the sink. A failed
// publish leaves the mark in place so the checks are retried on the next
// change.
func (w *watchPipeline) publish(ctx context.Context, path string, checks []*check.ContentSecurityCheck) error {
	if w.sink == nil {
		return nil
	}
	fresh := w.unpublished(path, checks)
	if len(fresh) == 0 {
		return nil
	}
	if err := w.sink.Publish(ctx, path, fresh); err != nil {
		return fmt.Errorf("failed to publish checks: %w", err)
	}
	w.markPublished(path, fresh[len(fresh)-1].Line)
	return nil
}

// unpublished returns the checks of path beginning after the last published
// block. A file that shrank was rotated or truncated and is published again
// from the start.
func (w *watchPipeline) unpublished(path string, checks []*check.ContentSecurityCheck) []*check.ContentSecurityCheck {
	w.mu.Lock()
	defer w.mu.Unlock()

	last := w.published[path]
	if n := len(checks); n > 0 && checks[n-1].Line < last {
		last = 0
	}

	var fresh []*check.ContentSecurityCheck
	for _, c := range checks {
		if c.Line > last {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

func (w *watchPipeline) markPublished(path string, line int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.published == nil {
		w.published = make(map[string]int)
	}
	w.published[path] = line
}
