package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"mercator-hq/csmlog/pkg/config"
	"mercator-hq/csmlog/pkg/csm/check"
)

// CSVExporter exports checks as CSV, one row per check.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool

	// Separator joins list fields inside one cell.
	Separator string
}

// NewCSVExporter creates a new CSV exporter. An empty separator falls back
// to config.DefaultCSVSeparator.
func NewCSVExporter(includeHeader bool, separator string) *CSVExporter {
	if separator == "" {
		separator = config.DefaultCSVSeparator
	}
	return &CSVExporter{
		IncludeHeader: includeHeader,
		Separator:     separator,
	}
}

// Export writes checks to w in CSV format. Absent values are empty cells.
func (e *CSVExporter) Export(ctx context.Context, checks []*check.ContentSecurityCheck, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(e.getHeaderRow()); err != nil {
			return NewExportError(FormatCSV, len(checks), err)
		}
	}

	for _, c := range checks {
		if err := writer.Write(e.recordToRow(c)); err != nil {
			return NewExportError(FormatCSV, len(checks), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return NewExportError(FormatCSV, len(checks), err)
	}
	return nil
}

// getHeaderRow returns the CSV header row.
func (e *CSVExporter) getHeaderRow() []string {
	return []string{
		"source", "line", "process_type",
		"channel_uri", "http_method",
		"loading_principal", "triggering_principal", "principal_to_inherit",
		"redirect_chain",
		"internal_content_policy_type", "external_content_policy_type",
		"upgrade_insecure_requests", "initial_security_checks_done", "allow_deprecated_system_requests",
		"csp", "security_flags",
	}
}

// recordToRow converts a check to a CSV row.
func (e *CSVExporter) recordToRow(c *check.ContentSecurityCheck) []string {
	line := ""
	if c.Line > 0 {
		line = strconv.Itoa(c.Line)
	}

	return []string{
		c.Source,
		line,
		c.ProcessType.String(),
		c.ChannelURI,
		c.Method(),
		c.LoadingPrincipal.String(),
		c.TriggeringPrincipal.String(),
		c.PrincipalToInherit.String(),
		strings.Join(c.RedirectChain, e.Separator),
		c.InternalContentPolicyType.String(),
		c.ExternalContentPolicyType.String(),
		strconv.FormatBool(c.UpgradeInsecureRequests),
		strconv.FormatBool(c.InitialSecurityChecksDone),
		strconv.FormatBool(c.AllowDeprecatedSystemRequests),
		strings.Join(c.CSP, e.Separator),
		strings.Join(c.SecurityFlags, e.Separator),
	}
}
