package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the terminal UI until the user quits or the session ends.
func Start(opts Options) error {
	if opts.Version != "" {
		Version = opts.Version
	}
	m := initialModel(opts)
	defer opts.View.Unsubscribe(m.snapSub)
	if opts.Watcher != nil {
		defer opts.Watcher.Unsubscribe(m.watchSub)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}
