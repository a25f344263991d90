package preview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type pagerKeys struct {
	Quit   key.Binding
	PgUp   key.Binding
	PgDown key.Binding
	Top    key.Binding
	Bottom key.Binding
}

var keys = pagerKeys{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup", "b"),
		key.WithHelp("PgUp", "scroll up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown", " ", "f"),
		key.WithHelp("PgDn", "scroll down"),
	),
	Top: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("G", "bottom"),
	),
}

// Pager is a scrollable full-screen view of rendered content.
type Pager struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

// NewPager returns a pager model over content.
func NewPager(title, content string) Pager {
	return Pager{title: title, content: content}
}

func (p Pager) Init() tea.Cmd { return nil }

func (p Pager) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h := max(1, msg.Height-2) // header + key bar
		if !p.ready {
			p.viewport = viewport.New(msg.Width, h)
			p.viewport.SetContent(p.content)
			p.ready = true
		} else {
			p.viewport.Width = msg.Width
			p.viewport.Height = h
		}
		return p, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return p, tea.Quit
		case key.Matches(msg, keys.PgUp):
			p.viewport.HalfViewUp()
			return p, nil
		case key.Matches(msg, keys.PgDown):
			p.viewport.HalfViewDown()
			return p, nil
		case key.Matches(msg, keys.Top):
			p.viewport.GotoTop()
			return p, nil
		case key.Matches(msg, keys.Bottom):
			p.viewport.GotoBottom()
			return p, nil
		}
	}
	if p.ready {
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return p, cmd
	}
	return p, nil
}

func (p Pager) View() string {
	if !p.ready {
		return "  Loading..."
	}
	header := headerStyle.Render(p.title)
	if p.viewport.TotalLineCount() > p.viewport.VisibleLineCount() {
		header += keyDescStyle.Render(fmt.Sprintf(" %3.0f%%", p.viewport.ScrollPercent()*100))
	}
	bar := strings.Join([]string{
		keyStyle.Render("q") + keyDescStyle.Render(":quit"),
		keyStyle.Render("PgUp/PgDn") + keyDescStyle.Render(":scroll"),
		keyStyle.Render("g/G") + keyDescStyle.Render(":top/bottom"),
	}, "  ")
	return header + "\n" + p.viewport.View() + "\n" + bar
}

// Page runs the pager in the alternate screen until the user quits.
func Page(title, content string) error {
	prog := tea.NewProgram(NewPager(title, content), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := prog.Run()
	return err
}
