package tui

import (
	"fmt"
	"strings"

	"acctview/pkg/models"
	"acctview/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	colName       = 16
	colAddress    = 14
	colTags       = 12
	colDelegation = 30
	colProxy      = 22
	colBalance    = 20
)

func (m model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}
	if m.showGraph {
		return m.viewGraph()
	}

	if m.adding {
		labels := []string{"Address", "Name", "Tags"}
		var inputs []string
		for i, label := range labels {
			inputs = append(inputs, fmt.Sprintf("%-8s %s", label, m.addInputs[i].View()))
		}
		return lipgloss.Place(
			m.width, m.height, lipgloss.Center, lipgloss.Center,
			boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
				titleStyle.Render("Add Account"),
				"\n",
				strings.Join(inputs, "\n"),
				"\n",
				subtleStyle.Render("Enter to next/save • Esc to cancel"),
			)),
		)
	}

	if m.confirmRemove {
		row, _ := m.selected()
		return lipgloss.Place(
			m.width, m.height, lipgloss.Center, lipgloss.Center,
			boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
				titleStyle.Render("Confirm Remove"),
				"\n",
				fmt.Sprintf("Remove %s from the account list?", row.Account.Address),
				"\n",
				subtleStyle.Render("(y) Yes • (n) No"),
			)),
		)
	}

	sections := []string{m.viewHeader(), "", m.viewBody(), "", m.viewFooter()}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m model) viewHeader() string {
	title := titleStyle.Render(fmt.Sprintf("acctview %s", Version))
	chainName := m.chain.Name
	if chainName == "" {
		chainName = "no chain"
	}

	caps := m.view.Capabilities()
	line := fmt.Sprintf("%s  %s  %s  %s", title, chainName, capabilityBadge("delegation", caps.Delegation), capabilityBadge("proxy", caps.Proxy))

	if m.filtering {
		return lipgloss.JoinVertical(lipgloss.Left, line, m.filterInput.View())
	}
	if m.snap.Filter != "" {
		return lipgloss.JoinVertical(lipgloss.Left, line, subtleStyle.Render("filter: "+m.snap.Filter+" (esc to clear)"))
	}
	return line
}

func (m model) viewBody() string {
	switch m.snap.Status {
	case models.StatusPending:
		return fmt.Sprintf("%s Loading accounts...", m.spinner.View())
	case models.StatusEmpty:
		return subtleStyle.Render("No accounts yet. Press a to add one.")
	}

	rows := m.rows()
	if len(rows) == 0 {
		return subtleStyle.Render(fmt.Sprintf("No accounts match %q.", m.snap.Filter))
	}

	header := fmt.Sprintf("  %-*s %-*s %-*s %-*s %-*s %*s",
		colName, "Name",
		colAddress, "Address",
		colTags, "Tags",
		colDelegation, "Delegation",
		colProxy, "Proxies",
		colBalance, "Balance",
	)
	lines := []string{tableHeaderStyle.Render(header)}
	for i, row := range rows {
		line := m.renderRow(row)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m model) renderRow(row models.AugmentedAccount) string {
	star := " "
	if row.IsFavorite {
		star = favStyle.Render("★")
	}
	name := row.Account.Name
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("%s %-*s %-*s %-*s %-*s %-*s %*s",
		star,
		colName, utils.TruncateString(name, colName),
		colAddress, m.maskAddress(row.Account.Address),
		colTags, utils.TruncateString(strings.Join(row.Account.Tags, ","), colTags),
		colDelegation, utils.TruncateString(m.delegationText(row.Delegation), colDelegation),
		colProxy, utils.TruncateString(m.proxyText(row.Proxy), colProxy),
		colBalance, m.displayAmount(row.Balance),
	)
}

func (m model) viewFooter() string {
	total := m.totalLabel()
	if m.snap.Stale {
		total += " " + warnStyle.Render(m.spinner.View()+" refreshing")
	}

	var poll string
	if m.lastRound.Round > 0 {
		poll = fmt.Sprintf("poll #%d at %s", m.lastRound.Round, m.lastRound.Finished.Format("15:04:05"))
		if m.lastRound.Failed > 0 {
			poll += errStyle.Render(fmt.Sprintf(" (%d failed)", m.lastRound.Failed))
		}
	}

	status := ""
	if m.statusMessage != "" {
		style := infoStyle
		if strings.HasPrefix(m.statusMessage, "Error") {
			style = errStyle
		}
		status = style.Render(m.statusMessage)
	}

	keys := subtleStyle.Render("/: filter • f: favorite • c: copy • a: add • x: remove • g: graph • r: refresh • ?: help • q: quit")
	return lipgloss.JoinVertical(lipgloss.Left, infoStyle.Render(total)+"  "+subtleStyle.Render(poll), status, keys)
}

func (m model) viewGraph() string {
	header := titleStyle.Render("Total Balance History")
	var graph string
	if len(m.history) > 1 {
		width := m.width - 12
		if width < 20 {
			width = 20
		}
		height := m.height - 10
		if height < 5 {
			height = 5
		}
		graph = asciigraph.Plot(m.history,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(fmt.Sprintf("Total (%s)", m.chain.Symbol)),
		)
	} else {
		graph = "Not enough data to draw graph."
	}
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, header, "\n", graph))
	footer := subtleStyle.Render("g/q/esc: back")
	return lipgloss.JoinVertical(lipgloss.Left, content, footer)
}

func (m model) viewHelp() string {
	help := []string{
		"/        filter by name, address or tag",
		"esc      clear filter",
		"j/k      move selection",
		"f        toggle favorite",
		"c        copy address",
		"o        open in explorer",
		"a        add account",
		"x        remove account",
		"r        refresh balances",
		"g        total balance graph",
		"p        privacy mode",
		"q        quit",
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Help"),
		"\n",
		strings.Join(help, "\n"),
		"\n",
		subtleStyle.Render("?/q/esc: back"),
	))
}
