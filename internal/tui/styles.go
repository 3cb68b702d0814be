package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#F2A900")
	muted  = lipgloss.Color("#8A8A8A")
	good   = lipgloss.Color("#3FB950")
	warn   = lipgloss.Color("#D29922")
	bad    = lipgloss.Color("#F85149")

	titleStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(muted).
			Width(16)

	valueStyle = lipgloss.NewStyle().Bold(true)

	barFullStyle  = lipgloss.NewStyle().Foreground(good)
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))

	helpStyle = lipgloss.NewStyle().Foreground(muted).Italic(true)
)

// stateStyle colours a monitor state.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "idle":
		return valueStyle.Foreground(good)
	case "loading":
		return valueStyle.Foreground(warn)
	}
	return valueStyle.Foreground(bad)
}
