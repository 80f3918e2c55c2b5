package statusbar

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lurk-reader/lurk/internal/api"
)

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FFFFFF"))

	activeTabStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#FF6600")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#555555")).
				Foreground(lipgloss.Color("#CCCCCC")).
				Padding(0, 1)

	statusTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)

	errorTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B0000")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)
)

type tab struct {
	label    string
	category api.Category
}

var tabs = []tab{
	{"Top", api.CategoryTop},
	{"New", api.CategoryNew},
	{"Best", api.CategoryBest},
	{"Ask", api.CategoryAsk},
	{"Show", api.CategoryShow},
	{"Jobs", api.CategoryJobs},
}

// Model is the status bar at the bottom of the screen.
type Model struct {
	width      int
	activeCat  api.Category
	statusText string
	isError    bool
}

// New creates a status bar.
func New() Model {
	return Model{activeCat: api.CategoryTop}
}

// SetSize sets the width.
func (m *Model) SetSize(w int) {
	m.width = w
}

// SetActiveTab sets the highlighted category tab.
func (m *Model) SetActiveTab(cat api.Category) {
	m.activeCat = cat
}

// SetStatus sets the transient status message.
func (m *Model) SetStatus(text string, isError bool) {
	m.statusText = text
	m.isError = isError
}

// View renders the bar.
func (m Model) View() string {
	var cells []string
	for _, t := range tabs {
		if t.category == m.activeCat {
			cells = append(cells, activeTabStyle.Render(t.label))
		} else {
			cells = append(cells, inactiveTabStyle.Render(t.label))
		}
	}
	if m.statusText != "" {
		if m.isError {
			cells = append(cells, errorTextStyle.Render(m.statusText))
		} else {
			cells = append(cells, statusTextStyle.Render(m.statusText))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	if w := lipgloss.Width(row); w < m.width {
		row += barStyle.Render(strings.Repeat(" ", m.width-w))
	}
	return row
}
