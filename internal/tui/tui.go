package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI is the terminal dashboard program.
type TUI struct {
	program *tea.Program
}

// New creates the dashboard. The program stops when ctx ends.
func New(ctx context.Context, source StatusSource, reloader Reloader) *TUI {
	model := NewModel(source, reloader)
	return &TUI{
		program: tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)),
	}
}

// Run blocks until the user quits or the context ends.
func (t *TUI) Run() error {
	_, err := t.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Stop quits the program.
func (t *TUI) Stop() {
	t.program.Quit()
}
