package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// MarkdownRenderer writes a view as a markdown document suitable for
// sharing outside the terminal.
type MarkdownRenderer struct {
	writer io.Writer
}

// NewMarkdownRenderer creates a markdown renderer.
func NewMarkdownRenderer(writer io.Writer) *MarkdownRenderer {
	return &MarkdownRenderer{writer: writer}
}

// Render writes the view.
func (r *MarkdownRenderer) Render(view models.ReportView) error {
	r.printf("# %s\n\n", view.Title)
	r.printf("_Generated %s · scan `%s` · audience %s_\n\n",
		formatTimestamp(view.GeneratedAt), view.ScanID, view.Audience)

	for _, section := range view.Sections {
		r.printf("## %s\n\n", section.Heading)

		if len(section.Metrics) > 0 {
			r.printf("| | |\n|---|---|\n")
			for _, m := range section.Metrics {
				r.printf("| %s | %s |\n", m.Label, m.Value)
			}
			r.printf("\n")
		}

		for _, p := range section.Paragraphs {
			r.printf("%s\n\n", p)
		}

		if len(section.Findings) > 0 {
			r.printf("| Severity | Rule | Asset | Description |\n")
			r.printf("|---|---|---|---|\n")
			for _, f := range section.Findings {
				r.printf("| %s | `%s` | `%s` | %s |\n",
					strings.ToUpper(f.Severity), f.RuleID, f.AssetID, escapePipes(f.Description))
			}
			r.printf("\n")
			for _, f := range section.Findings {
				if f.Remediation != "" {
					r.printf("- **%s**: %s\n", f.RuleID, f.Remediation)
				}
			}
			r.printf("\n")
		}
	}
	return nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func (r *MarkdownRenderer) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format, args...)
}
