package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/veridianlabs/hipaascope/internal/models"
)

const defaultWidth = 72

// severityGlyphs mark finding lines in terminal output.
var severityGlyphs = map[string]string{
	models.SeverityCritical: "✖",
	models.SeverityHigh:     "▲",
	models.SeverityMedium:   "●",
	models.SeverityLow:      "○",
}

// TextRenderer writes a view as human-readable text.
type TextRenderer struct {
	writer io.Writer
	width  int
}

// NewTextRenderer creates a text renderer. Width follows the terminal
// when the writer is a TTY, otherwise the default.
func NewTextRenderer(writer io.Writer) *TextRenderer {
	width := defaultWidth
	if f, ok := writer.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 40 {
			width = w
			if width > 120 {
				width = 120
			}
		}
	}
	return &TextRenderer{writer: writer, width: width}
}

// Render writes the view.
func (r *TextRenderer) Render(view models.ReportView) error {
	r.printHeader(view.Title)
	r.printf("Generated: %s\n", formatTimestamp(view.GeneratedAt))
	r.printf("Scan: %s   Audience: %s\n\n", view.ScanID, view.Audience)

	for _, section := range view.Sections {
		r.printSection(section)
	}
	return nil
}

func (r *TextRenderer) printHeader(title string) {
	inner := r.width - 2
	r.printf("╔%s╗\n", strings.Repeat("═", inner))
	pad := inner - len([]rune(title))
	left := pad / 2
	if left < 0 {
		left, pad = 0, 0
	}
	r.printf("║%s%s%s║\n", strings.Repeat(" ", left), title, strings.Repeat(" ", pad-left))
	r.printf("╚%s╝\n\n", strings.Repeat("═", inner))
}

func (r *TextRenderer) printSection(section models.Section) {
	r.printf("%s\n", section.Heading)
	r.printf("%s\n", strings.Repeat("-", r.width-22))

	for _, m := range section.Metrics {
		r.printf("  %-26s %s\n", m.Label+":", m.Value)
	}
	for _, p := range section.Paragraphs {
		r.printf("  %s\n", wrap(p, r.width-2))
	}
	for _, f := range section.Findings {
		glyph := severityGlyphs[f.Severity]
		if glyph == "" {
			glyph = "·"
		}
		r.printf("  %s [%s] %s\n", glyph, strings.ToUpper(f.Severity), f.Description)
		r.printf("      rule: %s   asset: %s", f.RuleID, f.AssetID)
		if f.Safeguard != "" {
			r.printf("   %s", f.Safeguard)
		}
		r.printf("\n")
		if f.Remediation != "" {
			r.printf("      fix: %s\n", f.Remediation)
		}
	}
	r.printf("\n")
}

// wrap folds a paragraph at word boundaries and indents continuations.
func wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		if i > 0 && lineLen+1+len(word) > width {
			b.WriteString("\n  ")
			lineLen = 0
		} else if i > 0 {
			b.WriteString(" ")
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}

func (r *TextRenderer) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format, args...)
}
