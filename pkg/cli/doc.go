/*
Package cli provides command-line helpers for the csmlog command.

Input Discovery:

Command arguments are expanded into log files. Directories contribute the
files with a configured extension; "-" and an empty argument list read stdin:

	inputs, err := cli.DiscoverInputs(args, cfg.Input.Extensions)

Parallel Extraction:

RunJobs processes inputs concurrently while keeping results in input order:

	results, err := cli.RunJobs(ctx, inputs, cfg.Input.Jobs, extractor.ExtractFile)

Output Formatting:

Command results other than checks (policy type listings, query summaries)
are rendered with a Formatter:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, data)

Errors and Exit Codes:

Commands return ConfigError, CommandError or DiagnosticsError; ExitCode maps
them to the process status.
*/
package cli
