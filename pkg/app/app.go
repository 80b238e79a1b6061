// Package app ties the wallet session, the contract gateway, the view
// synchronizer and the notification slot into one client object.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"novafund/pkg/contract"
	"novafund/pkg/metrics"
	"novafund/pkg/models"
	"novafund/pkg/notify"
	"novafund/pkg/units"
	"novafund/pkg/view"
	"novafund/pkg/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

var ErrInvalidInput = errors.New("invalid input")

var Logger = zerolog.Nop()

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	Logger = l
}

// Gateway is the contract surface the client drives.
type Gateway interface {
	view.Source
	CreateCampaign(ctx context.Context, title, description string, goalWei *big.Int, durationDays uint64) (*types.Receipt, error)
	Contribute(ctx context.Context, campaignID uint64, valueWei *big.Int) (*types.Receipt, error)
	FinalizeCampaign(ctx context.Context, campaignID uint64) (*types.Receipt, error)
}

// GatewayFactory binds a gateway to the connected account.
type GatewayFactory func(from common.Address) Gateway

type Options struct {
	Wallet     *wallet.Manager
	Balances   view.BalanceReader
	NewGateway GatewayFactory
	Notifier   *notify.Presenter
	Metrics    *metrics.Metrics
}

// Client is the application session. Every operation reports its outcome
// through the notification slot and never panics on a domain failure.
type Client struct {
	wallet     *wallet.Manager
	sync       *view.Synchronizer
	notifier   *notify.Presenter
	metrics    *metrics.Metrics
	newGateway GatewayFactory

	mu      sync.RWMutex
	gateway Gateway
	baseCtx context.Context
}

func New(opts Options) *Client {
	if opts.Notifier == nil {
		opts.Notifier = notify.NewPresenter(notify.DefaultTimeout)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	c := &Client{
		wallet:     opts.Wallet,
		sync:       view.NewSynchronizer(opts.Balances),
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		newGateway: opts.NewGateway,
		baseCtx:    context.Background(),
	}

	c.notifier.Subscribe(func(n models.Notification, visible bool) {
		if visible {
			c.metrics.RecordNotification(string(n.Severity))
		}
		c.sync.Publish(view.Event{Type: view.EventNotification, Data: view.NotificationEvent{
			Message:  n.Message,
			Severity: string(n.Severity),
			Visible:  visible,
		}})
	})
	c.wallet.OnChainChanged(func(chainID string) {
		_ = c.OnNetworkChange(c.context(), chainID)
	})
	c.wallet.OnAccountsChanged(func(accounts []string) {
		_ = c.OnAccountsChanged(c.context(), accounts)
	})
	return c
}

// Start polls the provider for account and network changes until ctx ends.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()
	go c.wallet.Watch(ctx)
}

func (c *Client) context() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseCtx
}

// Init connects the wallet, binds the gateway and loads the first snapshot.
// On an unsupported network no gateway is bound and nothing is read.
func (c *Client) Init(ctx context.Context) error {
	session, err := c.wallet.Connect(ctx)
	c.publishSession(session)
	if err != nil {
		c.metrics.SetConnected(false)
		return c.fail(connectFailure(err), err)
	}

	account, _ := c.wallet.Account()
	gw := c.newGateway(account)
	c.mu.Lock()
	c.gateway = gw
	c.mu.Unlock()
	c.sync.SetSource(gw)
	c.metrics.SetConnected(true)

	c.notifier.Success("Wallet connected successfully!")
	if _, err := c.refresh(ctx); err != nil {
		return c.fail("Failed to load campaigns", err)
	}
	return nil
}

func connectFailure(err error) string {
	switch {
	case errors.Is(err, wallet.ErrUnsupportedNetwork):
		return "Network not supported"
	case errors.Is(err, wallet.ErrProviderUnavailable):
		return "Wallet provider unavailable"
	default:
		return "Failed to connect wallet"
	}
}

// Teardown discards all session-derived state.
func (c *Client) Teardown() {
	c.mu.Lock()
	c.gateway = nil
	c.mu.Unlock()
	c.sync.Reset()
	c.wallet.Disconnect()
	c.metrics.SetConnected(false)
	c.publishSession(c.wallet.Session())
	Logger.Debug().Msg("Session torn down")
}

// OnNetworkChange reloads everything from scratch.
func (c *Client) OnNetworkChange(ctx context.Context, chainID string) error {
	Logger.Info().Str("chain_id", chainID).Msg("Network changed, reloading")
	c.Teardown()
	return c.Init(ctx)
}

// OnAccountsChanged disconnects on an empty list and otherwise reloads with
// the new first account.
func (c *Client) OnAccountsChanged(ctx context.Context, accounts []string) error {
	c.Teardown()
	if len(accounts) == 0 {
		c.notifier.Error("Please connect your wallet")
		return wallet.ErrNotConnected
	}
	return c.Init(ctx)
}

// CreateCampaign validates the form locally, then submits and re-fetches.
func (c *Client) CreateCampaign(ctx context.Context, title, description, goalText, durationText string) error {
	gw, err := c.requireGateway()
	if err != nil {
		return c.fail("Please connect your wallet first", err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return c.fail("Failed to create campaign", fmt.Errorf("%w: title is required", ErrInvalidInput))
	}
	goal, err := units.ParsePositive(goalText)
	if err != nil {
		return c.fail("Failed to create campaign", err)
	}
	days, err := strconv.ParseUint(strings.TrimSpace(durationText), 10, 64)
	if err != nil || days == 0 {
		return c.fail("Failed to create campaign", fmt.Errorf("%w: duration must be a positive number of days", ErrInvalidInput))
	}

	c.notifier.Success("Creating campaign... Please confirm transaction")
	_, err = gw.CreateCampaign(ctx, title, strings.TrimSpace(description), goal, days)
	c.recordTx(contract.MethodCreateCampaign, err)
	if err != nil {
		return c.fail("Failed to create campaign", err)
	}

	c.notifier.Success("Campaign created successfully! 🎉")
	return c.refreshAfterWrite(ctx)
}

// Contribute rejects a non-positive or unparsable amount before any
// provider call.
func (c *Client) Contribute(ctx context.Context, campaignID uint64, amountText string) error {
	amount, err := units.ParsePositive(amountText)
	if err != nil {
		return c.fail("Please enter a valid amount", err)
	}
	if campaignID == 0 {
		return c.fail("Failed to contribute", fmt.Errorf("%w: unknown campaign", ErrInvalidInput))
	}
	gw, err := c.requireGateway()
	if err != nil {
		return c.fail("Please connect your wallet first", err)
	}

	c.notifier.Success("Processing contribution... Please confirm transaction")
	_, err = gw.Contribute(ctx, campaignID, amount)
	c.recordTx(contract.MethodContribute, err)
	if err != nil {
		return c.fail("Failed to contribute", err)
	}

	c.notifier.Success("Contribution successful! You earned NOVA tokens! 🎁")
	return c.refreshAfterWrite(ctx)
}

func (c *Client) Finalize(ctx context.Context, campaignID uint64) error {
	if campaignID == 0 {
		return c.fail("Failed to finalize campaign", fmt.Errorf("%w: unknown campaign", ErrInvalidInput))
	}
	gw, err := c.requireGateway()
	if err != nil {
		return c.fail("Please connect your wallet first", err)
	}

	c.notifier.Success("Finalizing campaign... Please confirm transaction")
	_, err = gw.FinalizeCampaign(ctx, campaignID)
	c.recordTx(contract.MethodFinalizeCampaign, err)
	if err != nil {
		return c.fail("Failed to finalize campaign", err)
	}

	c.notifier.Success("Campaign finalized successfully!")
	return c.refreshAfterWrite(ctx)
}

// Refresh re-reads all campaigns and balances.
func (c *Client) Refresh(ctx context.Context) (models.Snapshot, error) {
	if _, err := c.requireGateway(); err != nil {
		return models.Snapshot{}, c.fail("Please connect your wallet first", err)
	}
	snap, err := c.refresh(ctx)
	if err != nil {
		return models.Snapshot{}, c.fail("Failed to load campaigns", err)
	}
	return snap, nil
}

func (c *Client) refreshAfterWrite(ctx context.Context) error {
	if _, err := c.refresh(ctx); err != nil {
		return c.fail("Failed to load campaigns", err)
	}
	return nil
}

func (c *Client) refresh(ctx context.Context) (models.Snapshot, error) {
	account, _ := c.wallet.Account()
	start := time.Now()
	snap, err := c.sync.RefreshAll(ctx, account)
	if err != nil {
		c.metrics.RecordRefreshFailure()
		return models.Snapshot{}, err
	}
	c.metrics.RecordRefresh(time.Since(start), snap.CampaignCount, units.Float(snap.TotalRaised))
	return snap, nil
}

func (c *Client) requireGateway() (Gateway, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gateway == nil {
		return nil, wallet.ErrNotConnected
	}
	return c.gateway, nil
}

func (c *Client) recordTx(method string, err error) {
	outcome := "confirmed"
	switch {
	case err == nil:
	case errors.Is(err, wallet.ErrUserRejected):
		outcome = "rejected"
	case errors.Is(err, contract.ErrTransactionReverted):
		outcome = "reverted"
	default:
		outcome = "failed"
	}
	c.metrics.RecordTransaction(method, outcome)
}

// fail turns err into the single error notification of an operation.
func (c *Client) fail(prefix string, err error) error {
	Logger.Warn().Err(err).Msg(prefix)
	c.notifier.Error(fmt.Sprintf("%s: %v", prefix, err))
	return err
}

func (c *Client) publishSession(s models.Session) {
	c.sync.Publish(view.Event{Type: view.EventSessionChanged, Data: s})
}

func (c *Client) Session() models.Session {
	return c.wallet.Session()
}

func (c *Client) Snapshot() (models.Snapshot, bool) {
	return c.sync.Snapshot()
}

func (c *Client) Notification() (models.Notification, bool) {
	return c.notifier.Current()
}

func (c *Client) Subscribe() view.Subscriber {
	return c.sync.Subscribe()
}

func (c *Client) Unsubscribe(ch view.Subscriber) {
	c.sync.Unsubscribe(ch)
}
