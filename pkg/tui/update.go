package tui

import (
	"context"
	"fmt"
	"time"

	"novafund/pkg/view"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 8
		m.viewport.Height = msg.Height - 10

	case view.Event:
		cmds = append(cmds, listenForEvents(m.sub))
		m.handleEvent(msg)

	case actionDoneMsg:
		m.busy = ""
		if msg.err == nil && msg.name == "connect" {
			m.session = m.client.Session()
		}

	case tea.KeyMsg:
		isInputMode := m.contributing || m.creating
		if !isInputMode && msg.String() == "?" {
			m.showHelp = !m.showHelp
			return m, nil
		}
		if m.showHelp {
			if msg.String() == "q" || msg.String() == "esc" || msg.String() == "?" {
				m.showHelp = false
			}
			return m, nil
		}

		if m.contributing {
			return m.updateContribute(msg)
		}
		if m.creating {
			return m.updateCreate(msg)
		}

		if m.confirmFinal {
			switch msg.String() {
			case "y", "Y", "enter":
				m.confirmFinal = false
				if c, ok := m.selectedCampaign(); ok {
					id := c.ID
					m.busy = "Finalizing campaign..."
					return m, tea.Batch(m.spinner.Tick, m.run("finalize", func(ctx context.Context) error {
						return m.client.Finalize(ctx, id)
					}))
				}
			case "n", "N", "q", "esc":
				m.confirmFinal = false
			}
			return m, nil
		}

		if m.showDetail {
			switch msg.String() {
			case "q", "esc", "enter", "d":
				m.showDetail = false
				return m, nil
			}
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		if m.showGraph {
			if msg.String() == "q" || msg.String() == "esc" || msg.String() == "g" {
				m.showGraph = false
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "c":
			if m.busy == "" {
				m.busy = "Connecting wallet..."
				cmds = append(cmds, m.spinner.Tick, m.run("connect", m.client.Init))
			}

		case "r":
			if m.busy == "" {
				m.busy = "Refreshing campaigns..."
				cmds = append(cmds, m.spinner.Tick, m.run("refresh", func(ctx context.Context) error {
					_, err := m.client.Refresh(ctx)
					return err
				}))
			}

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.hasSnapshot && m.selected < len(m.snapshot.Campaigns)-1 {
				m.selected++
			}

		case "enter":
			c, ok := m.selectedCampaign()
			if !ok {
				break
			}
			if c.Finalized {
				m.statusMessage = "Campaign has ended"
				cmds = append(cmds, statusAfter(2*time.Second))
				break
			}
			m.contributing = true
			m.amountInput.SetValue("")
			m.amountInput.Focus()

		case "n":
			if m.session.Connected {
				m.creating = true
				for i := range m.campaignInputs {
					m.campaignInputs[i].SetValue("")
					m.campaignInputs[i].Blur()
				}
				m.campaignInputs[0].Focus()
			}

		case "f":
			c, ok := m.selectedCampaign()
			if !ok {
				break
			}
			if !c.CanFinalize {
				m.statusMessage = "Campaign cannot be finalized yet"
				cmds = append(cmds, statusAfter(2*time.Second))
				break
			}
			m.confirmFinal = true

		case "d":
			if _, ok := m.selectedCampaign(); ok {
				m.showDetail = true
				m.updateDetailViewport()
				m.viewport.YOffset = 0
			}

		case "g":
			m.showGraph = true

		case "y":
			if c, ok := m.selectedCampaign(); ok {
				if err := clipboard.WriteAll(c.Creator); err != nil {
					m.statusMessage = "Failed to copy to clipboard"
				} else {
					m.statusMessage = "Creator address copied to clipboard!"
				}
				cmds = append(cmds, statusAfter(2*time.Second))
			}

		case "o":
			if c, ok := m.selectedCampaign(); ok {
				url, ok := addressURL(m.session.ChainID, c.Creator)
				if !ok {
					m.statusMessage = "No block explorer for this network"
				} else if err := openBrowser(url); err != nil {
					m.statusMessage = fmt.Sprintf("Failed to open browser: %v", err)
				} else {
					m.statusMessage = "Opened in browser"
				}
				cmds = append(cmds, statusAfter(2*time.Second))
			}
		}

	case uiTickMsg:
		cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))

	case clearStatusMsg:
		m.statusMessage = ""
	}

	if m.busy != "" {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) updateContribute(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.contributing = false
		m.amountInput.Blur()
		return m, nil
	case "enter":
		m.contributing = false
		m.amountInput.Blur()
		c, ok := m.selectedCampaign()
		if !ok {
			return m, nil
		}
		id, amount := c.ID, m.amountInput.Value()
		m.busy = "Processing contribution..."
		return m, tea.Batch(m.spinner.Tick, m.run("contribute", func(ctx context.Context) error {
			return m.client.Contribute(ctx, id, amount)
		}))
	}
	var cmd tea.Cmd
	m.amountInput, cmd = m.amountInput.Update(msg)
	return m, cmd
}

func (m model) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	focused := 0
	for i := range m.campaignInputs {
		if m.campaignInputs[i].Focused() {
			focused = i
		}
	}

	switch msg.String() {
	case "esc":
		m.creating = false
		m.campaignInputs[focused].Blur()
		return m, nil
	case "tab", "down":
		m.campaignInputs[focused].Blur()
		m.campaignInputs[(focused+1)%len(m.campaignInputs)].Focus()
		return m, nil
	case "shift+tab", "up":
		m.campaignInputs[focused].Blur()
		m.campaignInputs[(focused+len(m.campaignInputs)-1)%len(m.campaignInputs)].Focus()
		return m, nil
	case "enter":
		m.campaignInputs[focused].Blur()
		if focused < len(m.campaignInputs)-1 {
			m.campaignInputs[focused+1].Focus()
			return m, nil
		}
		m.creating = false
		title := m.campaignInputs[0].Value()
		desc := m.campaignInputs[1].Value()
		goal := m.campaignInputs[2].Value()
		days := m.campaignInputs[3].Value()
		m.busy = "Creating campaign..."
		return m, tea.Batch(m.spinner.Tick, m.run("create", func(ctx context.Context) error {
			return m.client.CreateCampaign(ctx, title, desc, goal, days)
		}))
	}

	var cmd tea.Cmd
	m.campaignInputs[focused], cmd = m.campaignInputs[focused].Update(msg)
	return m, cmd
}
