package tui

import (
	"strings"

	"acctview/pkg/models"
	"acctview/pkg/session"
	"acctview/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case session.Event:
		cmds = append(cmds, listenForSnapshots(m.snapSub))
		if snap, ok := msg.Data.(models.Snapshot); ok {
			m.applySnapshot(snap)
		}

	case watcher.Event:
		cmds = append(cmds, listenForWatcher(m.watchSub))
		if status, ok := msg.Data.(watcher.RoundStatus); ok && msg.Type == watcher.EventStatusUpdated {
			m.lastRound = status
		}

	case sessionClosedMsg:
		return m, tea.Quit

	case statusMsg:
		m.statusMessage = string(msg)
		cmds = append(cmds, clearStatusLater())

	case errMsg:
		m.statusMessage = "Error: " + msg.err.Error()
		cmds = append(cmds, clearStatusLater())

	case clearStatusMsg:
		m.statusMessage = ""

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch {
		case m.filtering:
			return m.updateFilter(msg)
		case m.adding:
			return m.updateAdding(msg)
		case m.confirmRemove:
			return m.updateConfirmRemove(msg)
		}
		return m.updateKeys(msg)
	}

	if m.snap.Status == models.StatusPending || m.snap.Stale {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.showHelp || m.showGraph {
		switch msg.String() {
		case "q", "esc", "?":
			m.showHelp = false
			m.showGraph = false
		case "g":
			m.showGraph = !m.showGraph
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "g":
		m.showGraph = true
	case "p":
		m.privacyMode = !m.privacyMode
	case "/":
		m.filtering = true
		m.filterInput.SetValue(m.snap.Filter)
		m.filterInput.CursorEnd()
		cmds = append(cmds, m.filterInput.Focus())
	case "esc":
		if m.snap.Filter != "" {
			cmds = append(cmds, m.setFilter(""))
		}
	case "a":
		m.adding = true
		m.addFocus = 0
		for i := range m.addInputs {
			m.addInputs[i].Reset()
			m.addInputs[i].Blur()
		}
		cmds = append(cmds, m.addInputs[0].Focus())
	case "x":
		if _, ok := m.selected(); ok {
			m.confirmRemove = true
		}
	case "r":
		if m.watcher != nil {
			m.watcher.Refresh()
			m.statusMessage = "Refreshing balances..."
			cmds = append(cmds, clearStatusLater())
		}
	case "f":
		if row, ok := m.selected(); ok {
			cmds = append(cmds, m.toggleFavorite(row.Account.Address))
		}
	case "c":
		if row, ok := m.selected(); ok {
			if err := copyToClipboard(row.Account.Address); err != nil {
				m.statusMessage = "Failed to copy to clipboard"
			} else if m.privacyMode {
				m.statusMessage = "Full address copied (Privacy Mode active)!"
			} else {
				m.statusMessage = "Full address copied to clipboard!"
			}
			cmds = append(cmds, clearStatusLater())
		}
	case "o":
		if row, ok := m.selected(); ok {
			if url := m.explorerURL(row.Account.Address); url != "" {
				if err := openBrowser(url); err != nil {
					m.statusMessage = "Failed to open browser"
					cmds = append(cmds, clearStatusLater())
				}
			}
		}
	case "down", "j", "tab":
		if n := len(m.rows()); n > 0 {
			m.cursor = (m.cursor + 1) % n
		}
	case "up", "k", "shift+tab":
		if n := len(m.rows()); n > 0 {
			m.cursor = (m.cursor - 1 + n) % n
		}
	}
	return m, tea.Batch(cmds...)
}

// updateFilter edits the filter in place. Every keystroke narrows the view.
func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	case "esc":
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		return m, m.setFilter("")
	}

	before := m.filterInput.Value()
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if after := m.filterInput.Value(); after != before {
		return m, tea.Batch(cmd, m.setFilter(after))
	}
	return m, cmd
}

func (m model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		return m, nil
	case "enter":
		if m.addFocus < len(m.addInputs)-1 {
			m.addInputs[m.addFocus].Blur()
			m.addFocus++
			return m, m.addInputs[m.addFocus].Focus()
		}
		m.adding = false
		addr := strings.TrimSpace(m.addInputs[0].Value())
		if addr == "" {
			m.statusMessage = "Address is required"
			return m, clearStatusLater()
		}
		return m, m.addAccount(models.Account{
			Address: addr,
			Name:    strings.TrimSpace(m.addInputs[1].Value()),
			Tags:    splitTags(m.addInputs[2].Value()),
		})
	}

	var cmd tea.Cmd
	m.addInputs[m.addFocus], cmd = m.addInputs[m.addFocus].Update(msg)
	return m, cmd
}

func (m model) updateConfirmRemove(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.confirmRemove = false
	if msg.String() != "y" {
		return m, nil
	}
	if row, ok := m.selected(); ok {
		return m, m.removeAccount(row.Account.Address)
	}
	return m, nil
}
