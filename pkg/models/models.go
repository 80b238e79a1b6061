package models

import (
	"math/big"
	"time"
)

// Campaign mirrors one record of the crowdfunding contract.
type Campaign struct {
	ID           uint64
	Creator      string
	Title        string
	Description  string
	GoalAmount   *big.Int
	Deadline     int64
	AmountRaised *big.Int
	Finalized    bool
}

// CampaignView is a Campaign plus the fields derived for rendering.
type CampaignView struct {
	Campaign
	ProgressPercent float64
	DaysLeft        int64
	GoalDisplay     string
	RaisedDisplay   string
	Active          bool
	CanFinalize     bool
}

// Balances holds the connected account's native and token balances in wei.
type Balances struct {
	Eth   *big.Int
	Token *big.Int
}

// Snapshot is the result of one successful synchronization pass.
type Snapshot struct {
	Campaigns     []CampaignView
	CampaignCount uint64
	TotalRaised   *big.Int
	Balances      Balances
	FetchedAt     time.Time
}

// Session describes the wallet connection.
type Session struct {
	Account          string
	ChainID          string
	NetworkName      string
	Connected        bool
	NetworkSupported bool
}

// Severity of a user notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a transient user-facing message.
type Notification struct {
	Message   string
	Severity  Severity
	CreatedAt time.Time
}

// NetworkResult holds the provider checks of the configuration test.
type NetworkResult struct {
	ChainID   string `json:"chain_id"`
	Name      string `json:"name"`
	Supported bool   `json:"supported"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath      string         `json:"config_path"`
	ValidStructure  bool           `json:"valid_structure"`
	StructureErrors []string       `json:"structure_errors,omitempty"`
	ProviderURL     string         `json:"provider_url"`
	ProviderStatus  string         `json:"provider_status"` // "ok" or "error"
	ProviderError   string         `json:"provider_error,omitempty"`
	Latency         time.Duration  `json:"latency_ns,omitempty"`
	Network         *NetworkResult `json:"network,omitempty"`
	ContractAddress string         `json:"contract_address"`
	ContractCode    bool           `json:"contract_code"`
	CampaignCount   uint64         `json:"campaign_count"`
	ContractError   string         `json:"contract_error,omitempty"`
}
