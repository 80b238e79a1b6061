package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"novafund/pkg/models"
	"novafund/pkg/network"
	"novafund/pkg/rpc"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var (
	ErrProviderUnavailable = errors.New("wallet provider unavailable")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrUnsupportedNetwork  = errors.New("unsupported network")
	ErrNotConnected        = errors.New("wallet not connected")
)

var Logger = zerolog.Nop()

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	Logger = l
}

// Provider is the wallet provider boundary.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (string, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
}

// Manager owns the connection lifecycle with the wallet provider.
type Manager struct {
	provider     Provider
	signer       Signer
	pollInterval time.Duration

	mu               sync.RWMutex
	session          models.Session
	watching         bool
	lastAccounts     []string
	lastChainID      string
	accountsHandlers []func([]string)
	chainHandlers    []func(string)
}

// NewManager creates a manager. provider may be nil when none is configured;
// Connect then fails with ErrProviderUnavailable.
func NewManager(provider Provider, signer Signer, pollInterval time.Duration) *Manager {
	return &Manager{
		provider:     provider,
		signer:       signer,
		pollInterval: pollInterval,
	}
}

// Connect requests account access and classifies the active network. On an
// unsupported network the returned session is marked disconnected and the
// error wraps ErrUnsupportedNetwork.
func (m *Manager) Connect(ctx context.Context) (models.Session, error) {
	if m.provider == nil {
		return models.Session{}, fmt.Errorf("%w: no provider configured", ErrProviderUnavailable)
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		return models.Session{}, ClassifyProviderError(err)
	}
	if len(accounts) == 0 {
		return models.Session{}, fmt.Errorf("%w: provider exposed no accounts", ErrNotConnected)
	}

	chainID, err := m.provider.ChainID(ctx)
	if err != nil {
		return models.Session{}, ClassifyProviderError(err)
	}
	net := network.Classify(chainID)

	session := models.Session{
		Account:          accounts[0],
		ChainID:          net.ChainID,
		NetworkName:      net.Name,
		Connected:        net.Supported,
		NetworkSupported: net.Supported,
	}

	m.mu.Lock()
	m.session = session
	m.watching = true
	m.lastAccounts = accounts
	m.lastChainID = net.ChainID
	m.mu.Unlock()

	if !net.Supported {
		Logger.Warn().Str("chain_id", net.ChainID).Str("network", net.Name).Msg("Unsupported network")
		return session, fmt.Errorf("%w: please switch to a test network (%s)", ErrUnsupportedNetwork, strings.Join(network.SupportedNames(), ", "))
	}

	Logger.Info().Str("account", session.Account).Str("network", net.Name).Msg("Wallet connected")
	return session, nil
}

// Session returns a copy of the current session.
func (m *Manager) Session() models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Account returns the active account while the session is connected.
func (m *Manager) Account() (common.Address, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.session.Connected || m.session.Account == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(m.session.Account), true
}

// Disconnect resets the session to its zero value and stops event dispatch.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = models.Session{}
	m.watching = false
	m.lastAccounts = nil
	m.lastChainID = ""
}

// Signer returns the transaction submitter of the provider.
func (m *Manager) Signer() Signer {
	return m.signer
}

// Balance returns the native balance of the active account.
func (m *Manager) Balance(ctx context.Context) (*big.Int, error) {
	account, ok := m.Account()
	if !ok {
		return nil, ErrNotConnected
	}
	return m.provider.BalanceAt(ctx, account)
}

// OnAccountsChanged registers h for account changes.
func (m *Manager) OnAccountsChanged(h func([]string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountsHandlers = append(m.accountsHandlers, h)
}

// OnChainChanged registers h for network changes.
func (m *Manager) OnChainChanged(h func(string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chainHandlers = append(m.chainHandlers, h)
}

// HandleAccountsChanged applies an account change and notifies handlers. An
// empty list disconnects the session.
func (m *Manager) HandleAccountsChanged(accounts []string) {
	m.mu.Lock()
	m.lastAccounts = accounts
	if len(accounts) == 0 {
		m.session.Account = ""
		m.session.Connected = false
	} else {
		m.session.Account = accounts[0]
		m.session.Connected = m.session.NetworkSupported
	}
	handlers := append([]func([]string){}, m.accountsHandlers...)
	m.mu.Unlock()

	Logger.Info().Int("accounts", len(accounts)).Msg("Accounts changed")
	for _, h := range handlers {
		h(accounts)
	}
}

// HandleChainChanged applies a network change and notifies handlers.
func (m *Manager) HandleChainChanged(chainID string) {
	net := network.Classify(chainID)

	m.mu.Lock()
	m.lastChainID = net.ChainID
	m.session.ChainID = net.ChainID
	m.session.NetworkName = net.Name
	m.session.NetworkSupported = net.Supported
	m.session.Connected = net.Supported && m.session.Account != ""
	handlers := append([]func(string){}, m.chainHandlers...)
	m.mu.Unlock()

	Logger.Info().Str("chain_id", net.ChainID).Str("network", net.Name).Msg("Chain changed")
	for _, h := range handlers {
		h(net.ChainID)
	}
}

// Watch polls the provider for account and network changes until ctx ends.
// Events are only dispatched after a successful Connect.
func (m *Manager) Watch(ctx context.Context) {
	if m.provider == nil || m.pollInterval <= 0 {
		return
	}
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) poll(ctx context.Context) {
	m.mu.RLock()
	watching := m.watching
	lastAccounts := m.lastAccounts
	lastChainID := m.lastChainID
	m.mu.RUnlock()
	if !watching {
		return
	}

	chainID, err := m.provider.ChainID(ctx)
	if err != nil {
		Logger.Debug().Err(err).Msg("Failed to poll chain id")
		return
	}
	if id := network.Normalize(chainID); id != lastChainID {
		m.HandleChainChanged(id)
		return
	}

	accounts, err := m.provider.Accounts(ctx)
	if err != nil {
		Logger.Debug().Err(err).Msg("Failed to poll accounts")
		return
	}
	if !sameAccounts(accounts, lastAccounts) {
		m.HandleAccountsChanged(accounts)
	}
}

func sameAccounts(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	return strings.EqualFold(a[0], b[0])
}

// ClassifyProviderError maps a provider failure onto the wallet error taxonomy.
func ClassifyProviderError(err error) error {
	code, ok := rpc.ErrorCode(err)
	switch {
	case ok && (code == rpc.CodeUserRejected || code == rpc.CodeUnauthorized):
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	case ok && code == rpc.CodeMethodNotFound:
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	case ok:
		return fmt.Errorf("provider request failed: %w", err)
	default:
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
}
