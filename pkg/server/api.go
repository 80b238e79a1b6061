package server

import (
	"time"

	"novafund/pkg/models"
	"novafund/pkg/units"
	"novafund/pkg/utils"
	"novafund/pkg/view"
)

type apiSession struct {
	Account          string `json:"account,omitempty"`
	ShortAccount     string `json:"short_account,omitempty"`
	ChainID          string `json:"chain_id,omitempty"`
	Network          string `json:"network,omitempty"`
	Connected        bool   `json:"connected"`
	NetworkSupported bool   `json:"network_supported"`
}

type apiCampaign struct {
	ID              uint64  `json:"id"`
	Creator         string  `json:"creator"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	GoalWei         string  `json:"goal_wei"`
	RaisedWei       string  `json:"raised_wei"`
	Goal            string  `json:"goal"`
	Raised          string  `json:"raised"`
	Deadline        int64   `json:"deadline"`
	DaysLeft        int64   `json:"days_left"`
	ProgressPercent float64 `json:"progress_percent"`
	Finalized       bool    `json:"finalized"`
	Active          bool    `json:"active"`
	CanFinalize     bool    `json:"can_finalize"`
}

type apiSnapshot struct {
	Campaigns     []apiCampaign `json:"campaigns"`
	CampaignCount uint64        `json:"campaign_count"`
	TotalRaised   string        `json:"total_raised"`
	EthBalance    string        `json:"eth_balance"`
	TokenBalance  string        `json:"token_balance"`
	FetchedAt     time.Time     `json:"fetched_at"`
}

type apiState struct {
	Session      apiSession              `json:"session"`
	Snapshot     *apiSnapshot            `json:"snapshot,omitempty"`
	Notification *view.NotificationEvent `json:"notification,omitempty"`
}

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func toAPISession(s models.Session) apiSession {
	return apiSession{
		Account:          s.Account,
		ShortAccount:     utils.FormatAddress(s.Account),
		ChainID:          s.ChainID,
		Network:          s.NetworkName,
		Connected:        s.Connected,
		NetworkSupported: s.NetworkSupported,
	}
}

func toAPISnapshot(s models.Snapshot) apiSnapshot {
	out := apiSnapshot{
		Campaigns:     make([]apiCampaign, 0, len(s.Campaigns)),
		CampaignCount: s.CampaignCount,
		TotalRaised:   units.EtherString(s.TotalRaised),
		EthBalance:    units.EtherString(s.Balances.Eth),
		TokenBalance:  units.EtherString(s.Balances.Token),
		FetchedAt:     s.FetchedAt,
	}
	for _, c := range s.Campaigns {
		out.Campaigns = append(out.Campaigns, apiCampaign{
			ID:              c.ID,
			Creator:         c.Creator,
			Title:           c.Title,
			Description:     c.Description,
			GoalWei:         bigString(c.GoalAmount),
			RaisedWei:       bigString(c.AmountRaised),
			Goal:            c.GoalDisplay,
			Raised:          c.RaisedDisplay,
			Deadline:        c.Deadline,
			DaysLeft:        c.DaysLeft,
			ProgressPercent: c.ProgressPercent,
			Finalized:       c.Finalized,
			Active:          c.Active,
			CanFinalize:     c.CanFinalize,
		})
	}
	return out
}

func (s *Server) state() apiState {
	st := apiState{Session: toAPISession(s.app.Session())}
	if snap, ok := s.app.Snapshot(); ok {
		out := toAPISnapshot(snap)
		st.Snapshot = &out
	}
	if n, ok := s.app.Notification(); ok {
		st.Notification = &view.NotificationEvent{Message: n.Message, Severity: string(n.Severity), Visible: true}
	}
	return st
}

// toMessage converts an event into its websocket form.
func toMessage(ev view.Event) wsMessage {
	switch data := ev.Data.(type) {
	case models.Snapshot:
		return wsMessage{Type: string(ev.Type), Data: toAPISnapshot(data)}
	case models.Session:
		return wsMessage{Type: string(ev.Type), Data: toAPISession(data)}
	default:
		return wsMessage{Type: string(ev.Type), Data: data}
	}
}
