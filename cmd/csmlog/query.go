package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/csmlog/pkg/cli"
	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
	"mercator-hq/csmlog/pkg/export"
	"mercator-hq/csmlog/pkg/store"
)

var queryFlags struct {
	store         string
	source        string
	process       string
	externalTypes []string
	uriPrefix     string
	since         string
	until         string
	limit         int
	offset        int
	format        string
	output        string
	count         bool
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored content security checks",
	Long: `Query checks persisted by "extract --store" or "watch".

Time bounds accept RFC3339 timestamps or a duration relative to now
(e.g. --since 24h).

Examples:
  # Child process script loads of the last day as CSV
  csmlog query --store data/csmlog.db --process child --external-type TYPE_SCRIPT --since 24h --format csv

  # Count checks recorded from one log
  csmlog query --store data/csmlog.db --source logs/firefox.log --count`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVar(&queryFlags.store, "store", "", "SQLite database path (default from config)")
	queryCmd.Flags().StringVar(&queryFlags.source, "source", "", "filter by input name")
	queryCmd.Flags().StringVar(&queryFlags.process, "process", "", "filter by process type: parent, child")
	queryCmd.Flags().StringSliceVar(&queryFlags.externalTypes, "external-type", nil, "filter by external content policy type (name or code, repeatable)")
	queryCmd.Flags().StringVar(&queryFlags.uriPrefix, "uri-prefix", "", "filter by channel URI prefix")
	queryCmd.Flags().StringVar(&queryFlags.since, "since", "", "records stored at or after this time (RFC3339 or duration)")
	queryCmd.Flags().StringVar(&queryFlags.until, "until", "", "records stored before this time (RFC3339 or duration)")
	queryCmd.Flags().IntVar(&queryFlags.limit, "limit", 0, "max results (0 = no limit)")
	queryCmd.Flags().IntVar(&queryFlags.offset, "offset", 0, "pagination offset (requires --limit)")
	queryCmd.Flags().StringVar(&queryFlags.format, "format", "", "output format: json, jsonl, csv, yaml, text (default from config)")
	queryCmd.Flags().StringVarP(&queryFlags.output, "output", "o", "", "output file (default: stdout)")
	queryCmd.Flags().BoolVar(&queryFlags.count, "count", false, "print the number of matching records only")
}

// buildQueryFilter converts the query flags into a store filter.
func buildQueryFilter(now time.Time) (*store.Filter, error) {
	f := &store.Filter{
		Source:           queryFlags.source,
		ChannelURIPrefix: queryFlags.uriPrefix,
		Limit:            queryFlags.limit,
		Offset:           queryFlags.offset,
	}

	if queryFlags.process != "" {
		var tag logline.ProcessTag
		switch strings.ToLower(queryFlags.process) {
		case "parent":
			tag = logline.Parent
		case "child":
			tag = logline.Child
		default:
			return nil, cli.NewConfigError("process", fmt.Sprintf("unknown process type %q (valid: parent, child)", queryFlags.process))
		}
		f.Process = tag
	}

	for _, name := range queryFlags.externalTypes {
		t := policytype.Parse(name)
		if !t.Known() {
			return nil, cli.NewConfigError("external-type", fmt.Sprintf("unknown content policy type %q", name))
		}
		f.ExternalTypes = append(f.ExternalTypes, t)
	}

	var err error
	if f.Since, err = parseTimeBound(queryFlags.since, now); err != nil {
		return nil, cli.NewConfigError("since", err.Error())
	}
	if f.Until, err = parseTimeBound(queryFlags.until, now); err != nil {
		return nil, cli.NewConfigError("until", err.Error())
	}

	if err := f.Validate(); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	return f, nil
}

// parseTimeBound accepts an RFC3339 timestamp or a duration before now.
func parseTimeBound(value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	d, err := time.ParseDuration(strings.TrimPrefix(value, "-"))
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: want RFC3339 or a duration such as 24h", value)
	}
	t := now.Add(-d)
	return &t, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if queryFlags.store != "" {
		cfg.Store.Path = queryFlags.store
	}
	if queryFlags.format != "" {
		cfg.Output.Format = strings.ToLower(queryFlags.format)
	}
	if queryFlags.output != "" {
		cfg.Output.Path = queryFlags.output
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	f, err := buildQueryFilter(time.Now())
	if err != nil {
		return err
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}

	out, err := cli.OpenOutput(cfg.Output.Path, nil)
	if err != nil {
		return cli.NewCommandError("query", err)
	}
	defer out.Close()

	if queryFlags.count {
		n, err := st.Count(ctx, f)
		if err != nil {
			return cli.NewCommandError("query", err)
		}
		_, err = fmt.Fprintln(out, n)
		return err
	}

	records, err := st.Query(ctx, f)
	if err != nil {
		return cli.NewCommandError("query", err)
	}

	exporter, err := export.New(&cfg.Output)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	checks := make([]*check.ContentSecurityCheck, len(records))
	for i, r := range records {
		checks[i] = r.Check
	}
	if err := exporter.Export(ctx, checks, out); err != nil {
		return cli.NewCommandError("query", err)
	}
	return nil
}
