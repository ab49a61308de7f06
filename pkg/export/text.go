package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mercator-hq/csmlog/pkg/csm/check"
	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/principal"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleLocation = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleParent   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	styleChild    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleType     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleSystem   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleDetail   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
)

// TextExporter writes a colorized two-line summary per check:
//
//	firefox.log:38 Child  TYPE_SCRIPT GET https://example.org/app.js
//	    loading=https://example.org/ triggering=https://example.org/ flags=2
//
// Colors are dropped automatically when w is not a terminal.
type TextExporter struct{}

// NewTextExporter creates a new text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

// Export writes checks to w.
func (e *TextExporter) Export(ctx context.Context, checks []*check.ContentSecurityCheck, w io.Writer) error {
	for i, c := range checks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(w, e.render(c)); err != nil {
			return NewExportError(FormatText, i, err)
		}
	}
	return nil
}

func (e *TextExporter) render(c *check.ContentSecurityCheck) string {
	var sb strings.Builder

	if c.Source != "" || c.Line > 0 {
		sb.WriteString(styleLocation.Render(fmt.Sprintf("%s:%d", c.Source, c.Line)))
		sb.WriteByte(' ')
	}

	process := fmt.Sprintf("%-6s", c.ProcessType.String())
	if c.ProcessType == logline.Parent {
		sb.WriteString(styleParent.Render(process))
	} else {
		sb.WriteString(styleChild.Render(process))
	}
	sb.WriteByte(' ')
	sb.WriteString(styleType.Render(c.ExternalContentPolicyType.String()))

	if m := c.Method(); m != "" {
		sb.WriteByte(' ')
		sb.WriteString(m)
	}
	sb.WriteByte(' ')
	if c.HasChannelURI() {
		sb.WriteString(c.ChannelURI)
	} else {
		sb.WriteString("<no channel>")
	}
	sb.WriteByte('\n')

	sb.WriteString("    ")
	sb.WriteString(renderPrincipal("loading", c.LoadingPrincipal))
	sb.WriteByte(' ')
	sb.WriteString(renderPrincipal("triggering", c.TriggeringPrincipal))
	sb.WriteString(styleDetail.Render(fmt.Sprintf(" redirects=%d csp=%d flags=%d",
		len(c.RedirectChain), len(c.CSP), len(c.SecurityFlags))))
	sb.WriteByte('\n')

	return sb.String()
}

func renderPrincipal(label string, p principal.Principal) string {
	value := p.String()
	if p.IsAbsent() {
		value = "-"
	}
	if p.IsSystem() {
		return styleDetail.Render(label+"=") + styleSystem.Render(value)
	}
	return styleDetail.Render(label + "=" + value)
}
