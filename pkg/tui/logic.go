package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"acctview/pkg/models"
	"acctview/pkg/session"
	"acctview/pkg/utils"
	"acctview/pkg/watcher"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

func listenForSnapshots(sub session.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return sessionClosedMsg{}
		}
		return ev
	}
}

func listenForWatcher(sub watcher.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

func clearStatusLater() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// rows are the accounts currently shown, in view order.
func (m model) rows() []models.AugmentedAccount {
	return m.snap.Visible()
}

func (m model) selected() (models.AugmentedAccount, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return models.AugmentedAccount{}, false
	}
	return rows[m.cursor], true
}

// applySnapshot takes a new snapshot, keeping the cursor on the same address
// when it is still visible.
func (m *model) applySnapshot(snap models.Snapshot) {
	prev, hadPrev := m.selected()
	m.snap = snap
	m.lastUpdate = time.Now()

	rows := m.rows()
	if hadPrev {
		for i, r := range rows {
			if r.Account.Address == prev.Account.Address {
				m.cursor = i
				break
			}
		}
	}
	m.clampCursor()

	if snap.Total != nil {
		v := utils.UnitsToFloat64(snap.Total, m.chain.Decimals)
		if n := len(m.history); n == 0 || m.history[n-1] != v {
			m.history = append(m.history, v)
			if len(m.history) > maxHistory {
				m.history = m.history[len(m.history)-maxHistory:]
			}
		}
	}
}

func (m *model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) toggleFavorite(address string) tea.Cmd {
	view := m.view
	return func() tea.Msg {
		if err := view.ToggleFavorite(context.Background(), address); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m model) setFilter(filter string) tea.Cmd {
	view := m.view
	return func() tea.Msg {
		view.SetFilter(filter)
		return nil
	}
}

func (m model) addAccount(acc models.Account) tea.Cmd {
	editor := m.editor
	return func() tea.Msg {
		if err := editor.Add(acc); err != nil {
			return errMsg{err}
		}
		return statusMsg(fmt.Sprintf("Added %s", acc.Address))
	}
}

func (m model) removeAccount(address string) tea.Cmd {
	editor := m.editor
	return func() tea.Msg {
		if err := editor.Remove(address); err != nil {
			return errMsg{err}
		}
		return statusMsg(fmt.Sprintf("Removed %s", address))
	}
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (m model) delegationText(d *models.Delegation) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%s %s %s", m.maskAddress(d.AccountDelegated), m.displayAmount(d.Amount), d.Conviction.Multiplier())
}

func (m model) proxyText(p *models.ProxyInfo) string {
	switch {
	case p == nil:
		return "-"
	case len(p.Definitions) == 0:
		return "none"
	}
	first := p.Definitions[0]
	s := fmt.Sprintf("%s (%s)", m.maskAddress(first.Delegate), first.ProxyType)
	if extra := len(p.Definitions) - 1; extra > 0 {
		s += fmt.Sprintf(" +%d", extra)
	}
	return s
}

func (m model) totalLabel() string {
	policy := m.config.BalanceTotalPolicy
	if policy == "" {
		policy = "all"
	}
	return fmt.Sprintf("Total (%s): %s", policy, m.displayAmount(m.snap.Total))
}
