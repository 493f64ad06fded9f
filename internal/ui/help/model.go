// Package help renders the full key binding reference for the
// notification dashboard.
package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dkrenn/clubwatch/internal/keys"
	"github.com/dkrenn/clubwatch/internal/theme"
)

// Model shows every binding grouped by the key map, plus a short note on
// how the feed refreshes on its own.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	h.Width = width - 4
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(_ tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the binding table inside the overlay panel. The panel
// grows with its content rather than filling the terminal, so a short
// key map does not leave a wall of empty border.
func (m Model) View() string {
	title := theme.HeaderStyle.Render("Keys")

	note := theme.HelpStyle.Render(
		"The feed polls the server on its own; r forces a poll now. esc closes this screen.")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		m.help.View(m.keys),
		"",
		note,
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
