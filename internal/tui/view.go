package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const barWidth = 30

// View renders the dashboard.
func (m Model) View() string {
	s := m.status

	rows := []string{
		m.row("URL", truncate(s.URL, 60)),
		m.row("Mode", s.Mode),
		m.row("Layout", s.Layout),
	}
	if s.MaxPage > 0 {
		rows = append(rows,
			m.row("Page", fmt.Sprintf("%d (%d per page)", s.Page, s.PerPage)),
			m.row("Last loaded", lastPage(s.LastPage, s.MaxPage)),
			m.row("Loaded pages", fmt.Sprintf("%d, %d dropped", s.LoadedPages, s.DroppedPages)),
			m.row("Items", fmt.Sprintf("%d", s.RenderedItems)),
			labelStyle.Render("Progress")+renderBar(m.progress()),
		)
	}
	rows = append(rows,
		labelStyle.Render("Monitor")+stateStyle(s.MonitorState).Render(s.MonitorState),
		m.row("Zoom overlays", fmt.Sprintf("%d open", s.OpenOverlays)),
		m.row("Uptime", time.Since(m.startTime).Truncate(time.Second).String()),
	)

	sections := []string{
		titleStyle.Render("SL Marketplace scroll"),
		panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
	}
	if m.notice != "" {
		sections = append(sections, helpStyle.Render(m.notice))
	}
	if m.showHelp {
		sections = append(sections, helpStyle.Render("q quit  r reload selectors  ? hide help"))
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func lastPage(page, maxPage int) string {
	if page == 0 {
		return "none"
	}
	return fmt.Sprintf("%d / %d", page, maxPage)
}

func renderBar(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	full := int(fraction * barWidth)
	return barFullStyle.Render(strings.Repeat("█", full)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-full)) +
		fmt.Sprintf(" %3.0f%%", fraction*100)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
