// Package grade turns a report summary into a fractional score and the
// learner-facing feedback text.
package grade

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/cygrade/pkg/failure"
	"github.com/ormasoftchile/cygrade/pkg/report"
)

const (
	// DefaultMaxDetails caps the detail list when Options leaves it unset.
	DefaultMaxDetails = 25
	// TitleWidth and ErrorWidth bound detail lines in terminal columns.
	TitleWidth = 120
	ErrorWidth = 240

	AllPassedHeadline = "All executed Cypress tests passed."
)

// Status glyphs for detail lines.
const (
	GlyphPassed  = "✓"
	GlyphFailed  = "✗"
	GlyphPending = "○"
)

// Result is a computed grade.
type Result struct {
	Score    float64
	Feedback string
}

// Options tunes the feedback layout.
type Options struct {
	MaxDetails int
}

// Score returns passed / max(1, passed+failed). Pending tests count toward
// neither side. A summary with nothing executed and nothing declared is a
// no-tests failure.
func Score(s report.Summary) (float64, error) {
	executed := s.Executed()
	if executed == 0 && s.Total == 0 {
		return 0, failure.Newf(failure.NoTests, "", "summary has no tests")
	}
	score := float64(s.Passed) / float64(max(1, executed))
	return min(1, max(0, score)), nil
}

// Grade scores s and renders its feedback.
func Grade(s report.Summary, opts Options) (Result, error) {
	score, err := Score(s)
	if err != nil {
		return Result{}, err
	}
	return Result{Score: score, Feedback: Render(s, score, opts)}, nil
}

// Render lays out the feedback text:
//
//	headline
//	[pending note]
//
//	Summary:
//	  Passed/Failed/Pending/Score
//
//	Details:
//	  <glyph> <title> (<state>)
//	      <error>            (failed entries only)
//	  ...and N more
func Render(s report.Summary, score float64, opts Options) string {
	limit := opts.MaxDetails
	if limit <= 0 {
		limit = DefaultMaxDetails
	}

	var b strings.Builder
	if s.Failed == 0 && s.Passed > 0 {
		b.WriteString(AllPassedHeadline)
	} else {
		fmt.Fprintf(&b, "You passed %d of %d executed Cypress tests.", s.Passed, s.Executed())
	}
	b.WriteString("\n")
	if s.Pending > 0 {
		fmt.Fprintf(&b, "%d %s pending or skipped and did not affect your score.\n",
			s.Pending, plural(s.Pending, "test was", "tests were"))
	}

	b.WriteString("\nSummary:\n")
	fmt.Fprintf(&b, "  Passed:  %d\n", s.Passed)
	fmt.Fprintf(&b, "  Failed:  %d\n", s.Failed)
	fmt.Fprintf(&b, "  Pending: %d\n", s.Pending)
	fmt.Fprintf(&b, "  Score:   %.1f%%\n", score*100)

	if len(s.Outcomes) > 0 {
		b.WriteString("\nDetails:\n")
		shown := s.Outcomes
		if len(shown) > limit {
			shown = shown[:limit]
		}
		for _, o := range shown {
			fmt.Fprintf(&b, "  %s %s (%s)\n", Glyph(o.Status), Truncate(o.Title, TitleWidth), o.State)
			if o.Status == report.StatusFailed && o.Error != "" {
				fmt.Fprintf(&b, "      %s\n", Truncate(firstLine(o.Error), ErrorWidth))
			}
		}
		if extra := len(s.Outcomes) - len(shown); extra > 0 {
			fmt.Fprintf(&b, "  ...and %d more\n", extra)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Glyph returns the detail glyph for a status.
func Glyph(st report.Status) string {
	switch st {
	case report.StatusPassed:
		return GlyphPassed
	case report.StatusPending:
		return GlyphPending
	default:
		return GlyphFailed
	}
}

// Truncate shortens s to at most width display columns, ending in "…" when cut.
func Truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " …"
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
