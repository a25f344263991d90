package preview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/cygrade/pkg/grade"
	"github.com/ormasoftchile/cygrade/pkg/report"
)

// Report is what the renderers display.
type Report struct {
	Source  string // artifact path or label
	Summary report.Summary
	Score   float64
	// Err is set when the summary could not be scored.
	Err error
}

// Styled renders r as colored terminal text.
func Styled(r Report) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Cypress results: "+r.Source) + "\n")

	s := r.Summary
	score := scorePassStyle
	if s.Failed > 0 || r.Err != nil {
		score = scoreFailStyle
	}
	stats := lipgloss.JoinVertical(lipgloss.Left,
		summaryLabelStyle.Render(fmt.Sprintf("Passed:  %d", s.Passed)),
		summaryLabelStyle.Render(fmt.Sprintf("Failed:  %d", s.Failed)),
		summaryLabelStyle.Render(fmt.Sprintf("Pending: %d", s.Pending)),
		score.Render(fmt.Sprintf("Score:   %.1f%%", r.Score*100)),
	)
	b.WriteString(summaryBoxStyle.Render(stats) + "\n")

	if r.Err != nil {
		b.WriteString(warnStyle.Render("  "+r.Err.Error()) + "\n")
	}
	if s.FromStats {
		b.WriteString(stateStyle.Render("  counts taken from stats blocks; no per-test detail") + "\n")
	}

	for _, o := range s.Outcomes {
		style := failedStyle
		switch o.Status {
		case report.StatusPassed:
			style = passedStyle
		case report.StatusPending:
			style = pendingStyle
		}
		fmt.Fprintf(&b, "  %s %s %s\n",
			style.Render(grade.Glyph(o.Status)),
			style.Render(grade.Truncate(o.Title, grade.TitleWidth)),
			stateStyle.Render("("+o.State+")"))
		if o.Status == report.StatusFailed && o.Error != "" {
			b.WriteString("      " + errorStyle.Render(grade.Truncate(o.Error, grade.ErrorWidth)) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, "|", `\|`, "#", `\#`,
)

// Markdown renders r as a markdown document.
func Markdown(r Report) string {
	s := r.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "# Cypress results: %s\n\n", mdEscaper.Replace(r.Source))
	b.WriteString("| Passed | Failed | Pending | Score |\n")
	b.WriteString("|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %.1f%% |\n", s.Passed, s.Failed, s.Pending, r.Score*100)

	if r.Err != nil {
		fmt.Fprintf(&b, "\n> **%s**\n", mdEscaper.Replace(r.Err.Error()))
	}
	if len(s.Outcomes) == 0 {
		return b.String()
	}

	b.WriteString("\n## Tests\n\n")
	for _, o := range s.Outcomes {
		fmt.Fprintf(&b, "- %s **%s** _(%s)_\n", grade.Glyph(o.Status), mdEscaper.Replace(o.Title), mdEscaper.Replace(o.State))
		if o.Status == report.StatusFailed && o.Error != "" {
			for _, line := range strings.Split(o.Error, "\n") {
				fmt.Fprintf(&b, "  > %s\n", mdEscaper.Replace(line))
			}
		}
	}
	return b.String()
}

// RenderMarkdown converts markdown to styled terminal output. width 0
// disables word wrap. Falls back to the raw input when rendering fails.
func RenderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
