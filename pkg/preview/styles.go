// Package preview renders a graded summary for a terminal: styled text,
// markdown through glamour, or a scrollable pager.
package preview

import "github.com/charmbracelet/lipgloss"

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

var (
	passedStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle  = lipgloss.NewStyle().Foreground(colorRed)
	pendingStyle = lipgloss.NewStyle().Faint(true)
	stateStyle   = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Italic(true)
)

var (
	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(colorWhite)

	scorePassStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	scoreFailStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)
)

var (
	keyStyle     = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	keyDescStyle = lipgloss.NewStyle().Foreground(colorDim)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)
)
