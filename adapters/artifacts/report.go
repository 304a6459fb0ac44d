package artifacts

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"pkemu/domain/run"
)

// RenderReport formats a run manifest as Markdown
func RenderReport(m *run.Manifest) []byte {
	var b strings.Builder
	fp := m.Fingerprint

	fmt.Fprintf(&b, "# Run %s\n\n", m.RunID)
	fmt.Fprintf(&b, "- Command: `%s`\n", m.Command)
	fmt.Fprintf(&b, "- Input: `%s` (sha256 `%s`)\n", m.InputPath, fp.InputHash.Short())
	fmt.Fprintf(&b, "- Created: %s\n", m.CreatedAt)
	fmt.Fprintf(&b, "- Rows: %d\n", m.Rows)
	if m.Spectra > 0 {
		fmt.Fprintf(&b, "- Spectra: %d from engine `%s` at z = %g\n", m.Spectra, fp.Engine, fp.Redshift)
		fmt.Fprintf(&b, "- Bounds: z in [%g, %g], k in [%g, %g] h/Mpc, %d points\n",
			fp.Bounds.ZMin, fp.Bounds.ZMax, fp.Bounds.KMin, fp.Bounds.KMax, fp.Bounds.KPoints)
	}
	fmt.Fprintf(&b, "- Boundary policy: %s\n", fp.Boundary)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n\n", fp.Fingerprint)

	b.WriteString("## Parameters\n\n")
	b.WriteString("| Parameter | Prior | Min | Max | Mean | Std dev |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	summaries := make(map[string]run.ParameterSummary, len(m.Summary))
	for _, s := range m.Summary {
		summaries[s.Name] = s
	}
	for _, p := range m.Parameters {
		s, ok := summaries[p.Name]
		if !ok {
			fmt.Fprintf(&b, "| %s | %s | | | | |\n", p.Name, p.Prior)
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %.6g | %.6g | %.6g | %.6g |\n", p.Name, p.Prior, s.Min, s.Max, s.Mean, s.StdDev)
	}

	if len(m.Outputs) > 0 {
		b.WriteString("\n## Outputs\n\n")
		for _, out := range m.Outputs {
			fmt.Fprintf(&b, "- `%s`\n", out)
		}
	}
	return []byte(b.String())
}

// ReportHTML renders a Markdown report as a standalone HTML page
func ReportHTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: "pkemu run report",
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(md, p, renderer)
}
