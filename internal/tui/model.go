// Package tui renders a terminal dashboard of the augmented page.
package tui

import (
	"time"

	"github.com/Rorqualx/marketplace-scroll/internal/types"
)

// StatusSource reports the state of the augmented page.
type StatusSource interface {
	Status() types.SessionStatus
}

// Reloader reloads the site markers file.
type Reloader interface {
	Reload() error
}

// Model is the dashboard state.
type Model struct {
	source   StatusSource
	reloader Reloader

	status    types.SessionStatus
	startTime time.Time
	notice    string

	width    int
	height   int
	showHelp bool
}

// NewModel creates a dashboard over source. reloader may be nil.
func NewModel(source StatusSource, reloader Reloader) Model {
	m := Model{
		source:    source,
		reloader:  reloader,
		startTime: time.Now(),
	}
	m.refresh()
	return m
}

func (m *Model) refresh() {
	if m.source != nil {
		m.status = m.source.Status()
	}
}

// remainingPages returns how many pages are still to be loaded.
func (m Model) remainingPages() int {
	s := m.status
	if s.MaxPage == 0 {
		return 0
	}
	left := s.MaxPage - (s.NextOffset + s.LoadedPages) + 1
	if left < 0 {
		return 0
	}
	return left
}

// progress returns the fraction of loadable pages already requested.
func (m Model) progress() float64 {
	total := m.status.LoadedPages + m.remainingPages()
	if total == 0 {
		return 1
	}
	return float64(m.status.LoadedPages) / float64(total)
}
