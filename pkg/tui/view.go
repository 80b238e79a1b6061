package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"novafund/pkg/models"
	"novafund/pkg/utils"
)

func (m model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	if m.showGraph {
		return m.viewGraph()
	}

	if m.showDetail {
		return m.viewDetail()
	}

	if m.contributing {
		c, _ := m.selectedCampaign()
		return m.place(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Contribute"),
			"\n",
			fmt.Sprintf("Campaign: #%d %s", c.ID, c.Title),
			fmt.Sprintf("Raised:   %s / %s ETH", c.RaisedDisplay, c.GoalDisplay),
			"\n",
			"Amount (ETH): "+m.amountInput.View(),
			"\n",
			subtleStyle.Render("Enter to send • Esc to cancel"),
		)))
	}

	if m.creating {
		labels := []string{"Title", "Description", "Goal (ETH)", "Duration (days)"}
		var inputs []string
		for i, label := range labels {
			inputs = append(inputs, fmt.Sprintf("%-16s %s", label, m.campaignInputs[i].View()))
		}
		return m.place(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Create Campaign"),
			"\n",
			strings.Join(inputs, "\n"),
			"\n",
			subtleStyle.Render("Enter to next/save • Tab to move • Esc to cancel"),
		)))
	}

	if m.confirmFinal {
		c, _ := m.selectedCampaign()
		return m.place(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
			titleStyle.Render("Confirm Finalize"),
			"\n",
			fmt.Sprintf("Finalize campaign #%d %q?", c.ID, c.Title),
			"\n",
			subtleStyle.Render("(y) Yes • (n) No"),
		)))
	}

	content := m.viewCampaigns()

	// Footer
	line1 := "c:connect • r:refresh • ↑/↓:select • enter:contribute • f:finalize • n:new"
	line2 := fmt.Sprintf("d:details • y:copy creator • o:explorer • g:graph • ?:help • q:quit • v%s", Version)

	var footer string
	if m.width > 0 {
		l1 := subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line1)
		l2 := subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line2)
		footer = lipgloss.JoinVertical(lipgloss.Center, l1, l2)
	} else {
		footer = subtleStyle.Render(line1 + "\n" + line2)
	}
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMessage), footer)
	}
	if notice := m.viewNotification(); notice != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, notice, footer)
	}

	topBar := m.viewTopBar()

	h := m.height - 1
	if h < 0 {
		h = 0
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		topBar,
		lipgloss.Place(
			m.width,
			h,
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
		),
	)
}

func (m model) place(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m model) viewTopBar() string {
	wallet := subtleStyle.Render(" Wallet: not connected")
	if m.session.Account != "" {
		netStyle := infoStyle
		if !m.session.NetworkSupported {
			netStyle = errStyle
		}
		wallet = lipgloss.JoinHorizontal(lipgloss.Top,
			subtleStyle.Render(fmt.Sprintf(" %s • ", utils.FormatAddress(m.session.Account))),
			netStyle.Render(m.session.NetworkName),
		)
	}

	right := ""
	if m.busy != "" {
		right = m.spinner.View() + " " + m.busy + " "
	} else if !m.lastUpdate.IsZero() {
		right = fmt.Sprintf("Last updated: %s ", m.lastUpdate.Format("15:04:05"))
	}
	rightBlock := subtleStyle.Render(right)

	gap := m.width - lipgloss.Width(wallet) - lipgloss.Width(rightBlock)
	if gap < 0 {
		gap = 0
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, wallet, strings.Repeat(" ", gap), rightBlock)
}

func (m model) viewNotification() string {
	if !m.hasNotice {
		return ""
	}
	if m.notification.Severity == models.SeverityError {
		return errStyle.Render(m.notification.Message)
	}
	return infoStyle.Render(m.notification.Message)
}

func (m model) viewCampaigns() string {
	header := titleStyle.Render("NovaFund Campaigns")

	targetWidth := m.width - 4
	if targetWidth < 0 {
		targetWidth = 0
	}

	if !m.session.Connected {
		return boxStyle.Width(targetWidth).Align(lipgloss.Center).Render(lipgloss.JoinVertical(lipgloss.Center,
			header, "\n", "Press c to connect your wallet.",
		))
	}
	if !m.hasSnapshot {
		return boxStyle.Width(targetWidth).Align(lipgloss.Center).Render(lipgloss.JoinVertical(lipgloss.Center,
			header, "\n", "Loading campaigns...",
		))
	}

	snap := m.snapshot
	stats := subtleStyle.Render(fmt.Sprintf("ETH: %s • NOVA: %s • Campaigns: %d • Total raised: %s ETH",
		utils.FormatWei(snap.Balances.Eth, 4),
		utils.FormatWei(snap.Balances.Token, 0),
		snap.CampaignCount,
		utils.FormatWei(snap.TotalRaised, 2),
	))

	barWidth := 20
	if m.width > 0 && m.width < 100 {
		barWidth = 10
	}

	var rows []string
	for i, c := range snap.Campaigns {
		row := campaignRow(c, barWidth)
		if i == m.selected {
			row = selectedStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		rows = append(rows, row)
	}
	list := strings.Join(rows, "\n")
	if len(rows) == 0 {
		list = subtleStyle.Render("No campaigns yet. Press n to create one.")
	}

	return boxStyle.Width(targetWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		stats,
		"\n",
		tableHeaderStyle.Render("ID   TITLE                    PROGRESS"),
		list,
	))
}

func (m model) viewHelp() string {
	shortcuts := []string{
		"c: Connect Wallet",
		"r: Refresh Campaigns",
		"↑/k ↓/j: Select Campaign",
		"enter: Contribute",
		"f: Finalize Campaign",
		"n: New Campaign",
		"d: Campaign Details",
		"y: Copy Creator Address",
		"o: Open Creator in Explorer",
		"g: Raised History Graph",
		"q/ctrl+c: Quit",
		"?: Toggle Help",
	}

	header := titleStyle.Render("Help")
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", strings.Join(shortcuts, "\n")))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")
	return m.place(lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewDetail() string {
	c, _ := m.selectedCampaign()
	header := titleStyle.Render(fmt.Sprintf("Campaign #%d", c.ID))
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, header, "\n", m.viewport.View()))
	footer := subtleStyle.Render("Press 'enter' or 'esc' to return")
	return m.place(lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewGraph() string {
	header := titleStyle.Render("Total Raised History")
	var graph string
	if n := len(m.raisedHistory); n > 0 {
		peak := m.raisedHistory[0]
		for _, v := range m.raisedHistory {
			if v > peak {
				peak = v
			}
		}
		header = lipgloss.JoinVertical(lipgloss.Center, header, subtleStyle.Render(fmt.Sprintf("Latest: %s ETH • Peak: %s ETH",
			utils.FormatFloat(m.raisedHistory[n-1], 2), utils.FormatFloat(peak, 2))))
	}
	if len(m.raisedHistory) > 1 {
		width := m.width - 14
		if width < 10 {
			width = 10
		}
		height := m.height - 12
		if height < 1 {
			height = 1
		}
		graph = asciigraph.Plot(m.raisedHistory,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption("Total Raised (ETH)"),
		)
	} else {
		graph = "Not enough data to draw graph."
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, header, "\n", graph))
	footer := subtleStyle.Render("g/q/esc: back")
	return m.place(lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}
