package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI watches a set of tasks in the terminal until they finish
type TUI struct {
	program *tea.Program
}

// New creates a monitor for ids polling source every interval
func New(source Source, interval time.Duration, ids ...string) *TUI {
	model := NewModel(source, interval, ids...)
	program := tea.NewProgram(&model, tea.WithAltScreen())

	return &TUI{program: program}
}

// Run blocks until every task is finished or the user quits. It reports
// whether the tasks finished on their own.
func (t *TUI) Run() (bool, error) {
	final, err := t.program.Run()
	if err != nil {
		return false, err
	}
	if m, ok := final.(*Model); ok {
		return m.Done(), nil
	}
	return false, nil
}
