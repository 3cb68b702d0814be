package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// refreshInterval is how often the dashboard reads the session status.
const refreshInterval = 500 * time.Millisecond

// TickMsg triggers a status refresh.
type TickMsg time.Time

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles key presses, resizes and refresh ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.refresh()
		return m, tickCmd()
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "r", "R":
		switch {
		case m.reloader == nil:
			m.notice = "no selectors file configured"
		case m.reloader.Reload() != nil:
			m.notice = "selectors reload failed, see log"
		default:
			m.notice = "selectors reloaded"
		}
		return m, nil
	}
	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
