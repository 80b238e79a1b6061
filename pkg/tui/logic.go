package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"novafund/pkg/models"
	"novafund/pkg/units"
	"novafund/pkg/utils"
	"novafund/pkg/view"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m *model) applySnapshot(snap models.Snapshot) {
	m.snapshot = snap
	m.hasSnapshot = true
	m.lastUpdate = snap.FetchedAt
	if m.selected >= len(snap.Campaigns) {
		m.selected = len(snap.Campaigns) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}

	m.raisedHistory = append(m.raisedHistory, units.Float(snap.TotalRaised))
	if len(m.raisedHistory) > maxHistory {
		m.raisedHistory = m.raisedHistory[len(m.raisedHistory)-maxHistory:]
	}
}

func (m *model) clearSession() {
	m.snapshot = models.Snapshot{}
	m.hasSnapshot = false
	m.selected = 0
	m.contributing = false
	m.confirmFinal = false
	m.showDetail = false
}

func (m model) selectedCampaign() (models.CampaignView, bool) {
	if !m.hasSnapshot || m.selected < 0 || m.selected >= len(m.snapshot.Campaigns) {
		return models.CampaignView{}, false
	}
	return m.snapshot.Campaigns[m.selected], true
}

// handleEvent folds one client event into the model.
func (m *model) handleEvent(ev view.Event) {
	switch ev.Type {
	case view.EventRefreshed:
		if snap, ok := ev.Data.(models.Snapshot); ok {
			m.applySnapshot(snap)
		}
	case view.EventSessionChanged:
		if s, ok := ev.Data.(models.Session); ok {
			m.session = s
			if !s.Connected {
				m.clearSession()
			}
		}
	case view.EventNotification:
		if n, ok := ev.Data.(view.NotificationEvent); ok {
			m.hasNotice = n.Visible
			m.notification = models.Notification{Message: n.Message, Severity: models.Severity(n.Severity)}
		}
	}
	if m.showDetail {
		m.updateDetailViewport()
	}
}

func (m *model) updateDetailViewport() {
	c, ok := m.selectedCampaign()
	if !ok {
		m.viewport.SetContent("No campaign selected.")
		return
	}
	status := infoStyle.Render("Active")
	switch {
	case c.Finalized:
		status = subtleStyle.Render("Finalized")
	case c.CanFinalize:
		status = warnStyle.Render("Ended, awaiting finalization")
	case !c.Active:
		status = subtleStyle.Render("Ended")
	}
	lines := []string{
		fmt.Sprintf("Title:     %s", c.Title),
		fmt.Sprintf("Creator:   %s", c.Creator),
		fmt.Sprintf("Goal:      %s ETH", c.GoalDisplay),
		fmt.Sprintf("Raised:    %s ETH", c.RaisedDisplay),
		fmt.Sprintf("Progress:  %.2f%%", c.ProgressPercent),
		fmt.Sprintf("Deadline:  %s", time.Unix(c.Deadline, 0).Format(time.RFC1123)),
		fmt.Sprintf("Days left: %d", c.DaysLeft),
		fmt.Sprintf("Status:    %s", status),
		"",
		c.Description,
	}
	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// progressBar renders percent as a fixed-width bar.
func progressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return infoStyle.Render(strings.Repeat("█", filled)) + subtleStyle.Render(strings.Repeat("░", width-filled))
}

func campaignRow(c models.CampaignView, barWidth int) string {
	label := "Support"
	if c.Finalized {
		label = "Ended"
	}
	return fmt.Sprintf("#%-3d %-24s %s %6.2f%%  %s/%s ETH  %3dd  %s",
		c.ID,
		utils.TruncateString(c.Title, 24),
		progressBar(c.ProgressPercent, barWidth),
		c.ProgressPercent,
		c.RaisedDisplay,
		c.GoalDisplay,
		c.DaysLeft,
		label,
	)
}

func listenForEvents(sub view.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

// run executes a client call off the update loop.
func (m model) run(name string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{name: name, err: fn(ctx)}
	}
}

func statusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
