package tui

import (
	"context"
	"time"

	"novafund/pkg/models"
	"novafund/pkg/view"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version is set by Start()
var Version = "dev"

// maxHistory bounds the total-raised history kept for the graph.
const maxHistory = 2880

// Client is the application session the dashboard drives.
type Client interface {
	Init(ctx context.Context) error
	CreateCampaign(ctx context.Context, title, description, goalText, durationText string) error
	Contribute(ctx context.Context, campaignID uint64, amountText string) error
	Finalize(ctx context.Context, campaignID uint64) error
	Refresh(ctx context.Context) (models.Snapshot, error)
	Session() models.Session
	Snapshot() (models.Snapshot, bool)
	Notification() (models.Notification, bool)
	Subscribe() view.Subscriber
}

// --- Messages ---

type clearStatusMsg struct{}
type uiTickMsg time.Time

// actionDoneMsg reports a finished client call; its outcome is already in
// the notification slot.
type actionDoneMsg struct {
	name string
	err  error
}

// --- Model ---

type model struct {
	client  Client
	ctx     context.Context
	sub     view.Subscriber
	session models.Session

	snapshot       models.Snapshot
	hasSnapshot    bool
	raisedHistory  []float64
	notification   models.Notification
	hasNotice      bool
	selected       int
	busy           string
	lastUpdate     time.Time
	width          int
	height         int
	spinner        spinner.Model
	statusMessage  string
	contributing   bool
	amountInput    textinput.Model
	creating       bool
	campaignInputs []textinput.Model
	confirmFinal   bool
	showDetail     bool
	viewport       viewport.Model
	showGraph      bool
	showHelp       bool
}

func initialModel(ctx context.Context, client Client) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	amount := textinput.New()
	amount.Placeholder = "0.01"
	amount.Width = 20

	cis := make([]textinput.Model, 4)
	for i := range cis {
		cis[i] = textinput.New()
		cis[i].Width = 50
	}
	cis[0].Placeholder = "Title"
	cis[1].Placeholder = "Description"
	cis[2].Placeholder = "Goal (ETH)"
	cis[3].Placeholder = "Duration (days)"

	m := model{
		client:         client,
		ctx:            ctx,
		sub:            client.Subscribe(),
		session:        client.Session(),
		spinner:        s,
		amountInput:    amount,
		campaignInputs: cis,
		viewport:       viewport.New(0, 0),
		raisedHistory:  make([]float64, 0),
	}
	if snap, ok := client.Snapshot(); ok {
		m.applySnapshot(snap)
	}
	return m
}

func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd

	if m.sub != nil {
		cmds = append(cmds, listenForEvents(m.sub))
	}
	cmds = append(cmds, m.spinner.Tick)
	if !m.session.Connected {
		cmds = append(cmds, m.run("connect", m.client.Init))
	}
	cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))
	return tea.Batch(cmds...)
}
