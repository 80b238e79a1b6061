// Package view projects contract state into renderable records.
package view

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"novafund/pkg/contract"
	"novafund/pkg/models"
	"novafund/pkg/units"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const secondsPerDay = 86400

var Logger = zerolog.Nop()

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	Logger = l
}

// Source is the set of contract reads a refresh needs.
type Source interface {
	CampaignCount(ctx context.Context) (*big.Int, error)
	GetCampaignDetails(ctx context.Context, campaignID uint64) (models.Campaign, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// BalanceReader reads native balances from the provider.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
}

// Synchronizer keeps the last successful snapshot and fans out events.
type Synchronizer struct {
	native BalanceReader
	now    func() time.Time

	mu          sync.RWMutex
	source      Source
	generation  uint64
	snapshot    models.Snapshot
	hasSnapshot bool
	subscribers []Subscriber
}

func NewSynchronizer(native BalanceReader) *Synchronizer {
	return &Synchronizer{
		native: native,
		now:    time.Now,
	}
}

// SetClock overrides the time source used for derived fields.
func (s *Synchronizer) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetSource binds the contract reads. A nil source makes RefreshAll fail.
// Refreshes still running against the previous source are not stored.
func (s *Synchronizer) SetSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
	s.generation++
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (s *Synchronizer) Subscribe() Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(Subscriber, 100)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (s *Synchronizer) Unsubscribe(ch Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Publish delivers event to every subscriber without blocking; slow
// subscribers miss it.
func (s *Synchronizer) Publish(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// Snapshot returns the last successful snapshot, if any.
func (s *Synchronizer) Snapshot() (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.hasSnapshot
}

// Reset discards the snapshot and unbinds the source. A refresh in flight
// when Reset is called fails instead of storing its result.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.generation++
	s.source = nil
	s.snapshot = models.Snapshot{}
	s.hasSnapshot = false
	s.mu.Unlock()
}

// RefreshAll reads every campaign in id order plus the account balances. Any
// failed read aborts the pass; the previous snapshot then stays current.
// A zero account skips the balance reads.
func (s *Synchronizer) RefreshAll(ctx context.Context, account common.Address) (models.Snapshot, error) {
	s.mu.RLock()
	src := s.source
	gen := s.generation
	now := s.now()
	s.mu.RUnlock()

	snap, err := s.read(ctx, src, account, now)
	if err == nil {
		err = s.store(gen, snap)
	}
	if err != nil {
		Logger.Error().Err(err).Msg("Refresh failed")
		s.Publish(Event{Type: EventRefreshFailed, Data: err.Error()})
		return models.Snapshot{}, err
	}

	Logger.Debug().Uint64("campaigns", snap.CampaignCount).Str("total_raised", units.EtherString(snap.TotalRaised)).Msg("Refreshed")
	s.Publish(Event{Type: EventRefreshed, Data: snap})
	return snap, nil
}

// store installs snap unless the session was reset or rebound since gen.
func (s *Synchronizer) store(gen uint64, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return fmt.Errorf("%w: session changed during refresh", contract.ErrReadFailure)
	}
	s.snapshot = snap
	s.hasSnapshot = true
	return nil
}

func (s *Synchronizer) read(ctx context.Context, src Source, account common.Address, now time.Time) (models.Snapshot, error) {
	if src == nil {
		return models.Snapshot{}, fmt.Errorf("%w: no contract bound", contract.ErrReadFailure)
	}

	count, err := src.CampaignCount(ctx)
	if err != nil {
		return models.Snapshot{}, readFailure("campaign count", err)
	}
	if !count.IsUint64() {
		return models.Snapshot{}, fmt.Errorf("%w: campaign count out of range: %s", contract.ErrReadFailure, count)
	}

	snap := models.Snapshot{
		Campaigns:     make([]models.CampaignView, 0, count.Uint64()),
		CampaignCount: count.Uint64(),
		TotalRaised:   new(big.Int),
		Balances:      models.Balances{Eth: new(big.Int), Token: new(big.Int)},
		FetchedAt:     now,
	}

	for id := uint64(1); id <= snap.CampaignCount; id++ {
		c, err := src.GetCampaignDetails(ctx, id)
		if err != nil {
			return models.Snapshot{}, readFailure(fmt.Sprintf("campaign %d", id), err)
		}
		if c.AmountRaised != nil {
			snap.TotalRaised.Add(snap.TotalRaised, c.AmountRaised)
		}
		snap.Campaigns = append(snap.Campaigns, Derive(c, now))
	}

	if account == (common.Address{}) {
		return snap, nil
	}

	if s.native != nil {
		eth, err := s.native.BalanceAt(ctx, account)
		if err != nil {
			return models.Snapshot{}, readFailure("native balance", err)
		}
		snap.Balances.Eth = eth
	}
	token, err := src.BalanceOf(ctx, account)
	if err != nil {
		return models.Snapshot{}, readFailure("token balance", err)
	}
	snap.Balances.Token = token

	return snap, nil
}

func readFailure(what string, err error) error {
	if errors.Is(err, contract.ErrReadFailure) {
		return fmt.Errorf("refresh aborted at %s: %w", what, err)
	}
	return fmt.Errorf("refresh aborted at %s: %w: %v", what, contract.ErrReadFailure, err)
}

// Derive computes the display fields of c at time now.
func Derive(c models.Campaign, now time.Time) models.CampaignView {
	return models.CampaignView{
		Campaign:        c,
		ProgressPercent: Progress(c.AmountRaised, c.GoalAmount),
		DaysLeft:        DaysLeft(c.Deadline, now),
		GoalDisplay:     units.EtherString(c.GoalAmount),
		RaisedDisplay:   units.EtherString(c.AmountRaised),
		Active:          !c.Finalized && c.Deadline > now.Unix(),
		CanFinalize:     !c.Finalized && c.Deadline <= now.Unix(),
	}
}

// Progress is raised/goal as a percentage clamped to [0,100]. A zero goal
// counts as complete once anything was raised.
func Progress(raised, goal *big.Int) float64 {
	if raised == nil || raised.Sign() <= 0 {
		return 0
	}
	if goal == nil || goal.Sign() <= 0 {
		return 100
	}
	pct := decimal.NewFromBigInt(raised, 0).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromBigInt(goal, 0)).
		InexactFloat64()
	return math.Min(100, math.Max(0, pct))
}

// DaysLeft is the number of whole days until deadline, never negative.
func DaysLeft(deadline int64, now time.Time) int64 {
	remaining := deadline - now.Unix()
	if remaining <= 0 {
		return 0
	}
	return remaining / secondsPerDay
}
