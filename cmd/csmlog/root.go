package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/csmlog/pkg/cli"
)

var (
	// Global flags
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "csmlog",
	Short: "Extract content security checks from Firefox CSMLog output",
	Long: `csmlog extracts the content security check blocks that Firefox writes
with MOZ_LOG=CSMLog:5 and turns them into typed records.

Each block describes one doContentSecurityCheck call: the channel URI, the
loading and triggering principals, the content policy types, the redirect
chain, the CSP and the security flags. csmlog can:
  - render records as JSON, JSONL, CSV, YAML or text
  - filter them, e.g. system principal data: loads
  - store them in SQLite with retention pruning
  - publish them to Kafka
  - watch a log directory while Firefox runs`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the status matching the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "csmlog.yaml", "config file path (missing file uses defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (json, text, console)")
}
