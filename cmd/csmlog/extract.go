package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"mercator-hq/csmlog/pkg/cli"
	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/filter"
	"mercator-hq/csmlog/pkg/csm/scanner"
	"mercator-hq/csmlog/pkg/export"
)

var extractFlags struct {
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
}

var extractCmd = &cobra.Command{
	Use:   "extract [paths...]",
	Short: "Extract content security checks from log files",
	Long: `Extract every content security check block from the given log files.

Directories are searched recursively for files with a log extension
(--ext, default .log, .txt and .moz_log). With no paths, or with "-",
the log is read from stdin. Records are written in input order.

Malformed blocks never stop an extraction: they are logged as warnings
with their location and raw content. Use --strict to exit with status 2
when any block failed to decode.

Examples:
  # JSON array on stdout
  csmlog extract firefox.log

  # Text summary of system principal data: loads in a log directory
  csmlog extract --filter system-data --format text logs/

  # Read stdin, write JSONL, persist into SQLite
  MOZ_LOG=CSMLog:5 firefox 2>&1 | csmlog extract --format jsonl --store data/csmlog.db

  # Publish to Kafka and leave metrics for node_exporter
  csmlog extract --kafka-brokers localhost:9092 --metrics-file /var/lib/node_exporter/csmlog.prom logs/`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractFlags.output, "output", "o", "", "output file (default: stdout)")
	extractCmd.Flags().StringVar(&extractFlags.format, "format", "", "output format: json, jsonl, csv, yaml, text (default from config)")
	extractCmd.Flags().StringArrayVar(&extractFlags.filters, "filter", nil, "keep only matching checks: system-data, parent, child (repeatable)")
	extractCmd.Flags().StringVar(&extractFlags.store, "store", "", "persist checks into the SQLite database at this path")
	extractCmd.Flags().StringSliceVar(&extractFlags.kafkaBrokers, "kafka-brokers", nil, "publish checks to these Kafka brokers (host:port)")
	extractCmd.Flags().StringVar(&extractFlags.kafkaTopic, "kafka-topic", "", "Kafka topic (default from config)")
	extractCmd.Flags().StringVar(&extractFlags.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after extraction")
	extractCmd.Flags().IntVar(&extractFlags.jobs, "jobs", 0, "number of files processed concurrently (default from config)")
	extractCmd.Flags().BoolVar(&extractFlags.strict, "strict", false, "exit with status 2 when any block failed to decode")
	extractCmd.Flags().StringSliceVar(&extractFlags.exts, "ext", nil, "file extensions read from directories (default from config)")
	extractCmd.Flags().BoolVar(&extractFlags.compact, "compact", false, "write JSON without indentation")
	extractCmd.Flags().BoolVar(&extractFlags.progress, "progress", false, "show progress on stderr for multiple inputs")
}

// applyExtractFlags overrides cfg with the extract flags that were set.
func applyExtractFlags(cfg *config.Config) {
	if extractFlags.output != "" {
		cfg.Output.Path = extractFlags.output
	}
	if extractFlags.format != "" {
		cfg.Output.Format = strings.ToLower(extractFlags.format)
	}
	if extractFlags.compact {
		cfg.Output.Pretty = false
	}
	if extractFlags.store != "" {
		cfg.Store.Enabled = true
		cfg.Store.Path = extractFlags.store
	}
	if len(extractFlags.kafkaBrokers) > 0 {
		cfg.Kafka.Enabled = true
		cfg.Kafka.Brokers = extractFlags.kafkaBrokers
	}
	if extractFlags.kafkaTopic != "" {
		cfg.Kafka.Topic = extractFlags.kafkaTopic
	}
	if extractFlags.metricsFile != "" {
		cfg.Telemetry.Metrics.TextfilePath = extractFlags.metricsFile
	}
	if extractFlags.jobs > 0 {
		cfg.Input.Jobs = extractFlags.jobs
	}
	if extractFlags.strict {
		cfg.Scanner.Strict = true
	}
	if len(extractFlags.exts) > 0 {
		cfg.Input.Extensions = normalizeExtensions(extractFlags.exts)
	}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyExtractFlags(cfg)

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

	return a.extract(ctx, args)
}

// extractSummary aggregates the results of all inputs.
type extractSummary struct {
	Inputs int
	Stats  scanner.Stats
	Checks []*check.ContentSecurityCheck
	Kept   int
}

func (a *app) extract(ctx context.Context, args []string) error {
	pred, err := a.predicate(extractFlags.filters)
	if err != nil {
		return err
	}
	exporter, err := export.New(&a.cfg.Output)
	if err != nil {
		return cli.NewConfigError("output.format", err.Error())
	}

	inputs, err := cli.DiscoverInputs(args, a.cfg.Input.Extensions)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		a.logger.Warn("no input files found", "paths", args, "extensions", a.cfg.Input.Extensions)
	}

	summary, err := a.runInputs(ctx, inputs)
	if err != nil {
		return cli.NewCommandError("extract", err)
	}

	checks := filter.Apply(summary.Checks, pred)
	summary.Kept = len(checks)

	if a.cfg.Store.Enabled {
		if err := a.persist(ctx, checks); err != nil {
			return err
		}
	}
	if a.cfg.Kafka.Enabled {
		if err := a.publish(ctx, checks); err != nil {
			return err
		}
	}

	out, err := cli.OpenOutput(a.cfg.Output.Path, nil)
	if err != nil {
		return cli.NewCommandError("extract", err)
	}
	if err := exporter.Export(ctx, checks, out); err != nil {
		out.Close()
		return cli.NewCommandError("extract", err)
	}
	if err := out.Close(); err != nil {
		return cli.NewCommandError("extract", fmt.Errorf("failed to close output: %w", err))
	}

	if path := a.cfg.Telemetry.Metrics.TextfilePath; path != "" {
		if err := a.metrics.WriteToTextfile(path); err != nil {
			return cli.NewCommandError("extract", err)
		}
	}

	a.logger.Info("extraction finished",
		"inputs", summary.Inputs,
		"blocks", summary.Stats.Blocks,
		"decoded", summary.Stats.Decoded,
		"failed", summary.Stats.Failed,
		"unterminated", summary.Stats.Unterminated,
		"written", summary.Kept,
	)

	if a.cfg.Scanner.Strict && (summary.Stats.Failed > 0 || summary.Stats.Unterminated > 0) {
		return &cli.DiagnosticsError{
			Failed:       summary.Stats.Failed,
			Unterminated: summary.Stats.Unterminated,
		}
	}
	return nil
}

// runInputs extracts every input with up to Input.Jobs workers. Checks keep
// input order.
func (a *app) runInputs(ctx context.Context, inputs []string) (*extractSummary, error) {
	ex := a.extractor()

	var progress cli.ProgressReporter = cli.NoProgress{}
	if extractFlags.progress && len(inputs) > 1 {
		progress = cli.NewProgressReporter(nil)
	}
	progress.Start(int64(len(inputs)))

	var done atomic.Int64
	results, err := cli.RunJobs(ctx, inputs, a.cfg.Input.Jobs,
		func(ctx context.Context, input string) (*scanner.Result, error) {
			res, err := ex.ExtractFile(ctx, input)
			progress.Update(done.Add(1))
			return res, err
		})
	if err != nil {
		progress.Error(err)
		return nil, err
	}
	progress.Finish()

	summary := &extractSummary{Inputs: len(inputs)}
	for _, res := range results {
		if res == nil {
			continue
		}
		summary.Stats.Add(res.Stats)
		summary.Checks = append(summary.Checks, res.Checks...)
	}
	return summary, nil
}

func (a *app) persist(ctx context.Context, checks []*check.ContentSecurityCheck) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.Store(ctx, checks)
	if err != nil {
		return cli.NewCommandError("store", err)
	}
	a.logger.Info("checks stored", "path", a.cfg.Store.Path, "inserted", res.Inserted, "skipped", res.Skipped)
	return nil
}

func (a *app) publish(ctx context.Context, checks []*check.ContentSecurityCheck) error {
	s, err := a.openSink()
	if err != nil {
		return err
	}
	defer s.Close()

	for _, group := range groupBySource(checks) {
		if err := s.Publish(ctx, group.source, group.checks); err != nil {
			return cli.NewCommandError("kafka", err)
		}
	}
	return nil
}

type sourceGroup struct {
	source string
	checks []*check.ContentSecurityCheck
}

// groupBySource splits checks into runs per source, in first-seen order.
func groupBySource(checks []*check.ContentSecurityCheck) []sourceGroup {
	var groups []sourceGroup
	index := make(map[string]int)
	for _, c := range checks {
		i, ok := index[c.Source]
		if !ok {
			i = len(groups)
			index[c.Source] = i
			groups = append(groups, sourceGroup{source: c.Source})
		}
		groups[i].checks = append(groups[i].checks, c)
	}
	return groups
}
