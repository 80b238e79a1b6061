package server

import (
	"embed"
	"fmt"
	"html/template"
	"math/big"

	"novafund/pkg/models"
	"novafund/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").ParseFS(templateFS, "templates/index.html"))

type cardData struct {
	ID          uint64
	Title       string
	Description string
	Creator     string
	Goal        string
	Raised      string
	DaysLeft    int64
	Progress    string
	Finalized   bool
	CanFinalize bool
	ButtonLabel string
}

type pageData struct {
	Session      models.Session
	ShortAccount string
	Loaded       bool
	EthBalance   string
	TokenBalance string
	Count        uint64
	TotalRaised  string
	Notification *models.Notification
	Campaigns    []cardData
}

func (s *Server) page() pageData {
	session := s.app.Session()
	data := pageData{
		Session:      session,
		ShortAccount: utils.FormatAddress(session.Account),
		EthBalance:   "0.0000",
		TokenBalance: "0",
		TotalRaised:  "0.00",
	}
	if n, ok := s.app.Notification(); ok {
		data.Notification = &n
	}

	snap, ok := s.app.Snapshot()
	if !ok {
		return data
	}
	data.Loaded = true
	data.EthBalance = utils.FormatWei(snap.Balances.Eth, 4)
	data.TokenBalance = utils.FormatWei(snap.Balances.Token, 0)
	data.Count = snap.CampaignCount
	data.TotalRaised = utils.FormatWei(snap.TotalRaised, 2)
	for _, c := range snap.Campaigns {
		label := "Support"
		if c.Finalized {
			label = "Ended"
		}
		data.Campaigns = append(data.Campaigns, cardData{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Creator:     utils.FormatAddress(c.Creator),
			Goal:        c.GoalDisplay,
			Raised:      c.RaisedDisplay,
			DaysLeft:    c.DaysLeft,
			Progress:    fmt.Sprintf("%.2f", c.ProgressPercent),
			Finalized:   c.Finalized,
			CanFinalize: c.CanFinalize,
			ButtonLabel: label,
		})
	}
	return data
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
