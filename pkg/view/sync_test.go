package view

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"novafund/pkg/contract"
	"novafund/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) CampaignCount(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockSource) GetCampaignDetails(ctx context.Context, campaignID uint64) (models.Campaign, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(models.Campaign), args.Error(1)
}

func (m *MockSource) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

type MockBalances struct {
	mock.Mock
}

func (m *MockBalances) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

var (
	account = common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	now     = time.Unix(1_750_000_000, 0)
)

func ether(f float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(f), big.NewFloat(1e18)).Int(nil)
	return wei
}

func campaign(id uint64, goal, raised *big.Int, deadline int64, finalized bool) models.Campaign {
	return models.Campaign{
		ID:           id,
		Creator:      "0x00000000000000000000000000000000000000c1",
		Title:        "Campaign",
		GoalAmount:   goal,
		AmountRaised: raised,
		Deadline:     deadline,
		Finalized:    finalized,
	}
}

func newSync(src Source, native BalanceReader) *Synchronizer {
	s := NewSynchronizer(native)
	s.SetSource(src)
	s.SetClock(func() time.Time { return now })
	return s
}

func TestRefreshAll_Empty(t *testing.T) {
	src := new(MockSource)
	src.On("CampaignCount", mock.Anything).Return(big.NewInt(0), nil)

	snap, err := newSync(src, nil).RefreshAll(context.Background(), common.Address{})
	require.NoError(t, err)

	assert.Empty(t, snap.Campaigns)
	assert.Equal(t, uint64(0), snap.CampaignCount)
	assert.Equal(t, 0, snap.TotalRaised.Sign())
	src.AssertNotCalled(t, "GetCampaignDetails", mock.Anything, mock.Anything)
}

func TestRefreshAll(t *testing.T) {
	src := new(MockSource)
	native := new(MockBalances)
	src.On("CampaignCount", mock.Anything).Return(big.NewInt(2), nil)
	src.On("GetCampaignDetails", mock.Anything, uint64(1)).Return(campaign(1, ether(10), ether(2.5), now.Unix()+172800, false), nil)
	src.On("GetCampaignDetails", mock.Anything, uint64(2)).Return(campaign(2, ether(1), ether(3), now.Unix()-86400, false), nil)
	src.On("BalanceOf", mock.Anything, account).Return(ether(7), nil)
	native.On("BalanceAt", mock.Anything, account).Return(ether(1.25), nil)

	s := newSync(src, native)
	sub := s.Subscribe()

	snap, err := s.RefreshAll(context.Background(), account)
	require.NoError(t, err)

	require.Len(t, snap.Campaigns, 2)
	assert.Equal(t, uint64(1), snap.Campaigns[0].ID)
	assert.Equal(t, 25.0, snap.Campaigns[0].ProgressPercent)
	assert.Equal(t, int64(2), snap.Campaigns[0].DaysLeft)
	assert.True(t, snap.Campaigns[0].Active)
	assert.Equal(t, "10", snap.Campaigns[0].GoalDisplay)
	assert.Equal(t, "2.5", snap.Campaigns[0].RaisedDisplay)

	assert.Equal(t, 100.0, snap.Campaigns[1].ProgressPercent)
	assert.Equal(t, int64(0), snap.Campaigns[1].DaysLeft)
	assert.True(t, snap.Campaigns[1].CanFinalize)

	assert.Equal(t, ether(5.5), snap.TotalRaised)
	assert.Equal(t, ether(1.25), snap.Balances.Eth)
	assert.Equal(t, ether(7), snap.Balances.Token)
	assert.Equal(t, now, snap.FetchedAt)

	select {
	case ev := <-sub:
		assert.Equal(t, EventRefreshed, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for refresh event")
	}

	stored, ok := s.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, snap, stored)
}

func TestRefreshAll_AbortsOnReadFailure(t *testing.T) {
	src := new(MockSource)
	src.On("CampaignCount", mock.Anything).Return(big.NewInt(1), nil).Once()
	src.On("GetCampaignDetails", mock.Anything, uint64(1)).Return(campaign(1, ether(1), ether(0.5), now.Unix(), false), nil).Once()

	s := newSync(src, nil)
	first, err := s.RefreshAll(context.Background(), common.Address{})
	require.NoError(t, err)

	src.On("CampaignCount", mock.Anything).Return(big.NewInt(3), nil)
	src.On("GetCampaignDetails", mock.Anything, uint64(1)).Return(campaign(1, ether(1), ether(0.6), now.Unix(), false), nil)
	src.On("GetCampaignDetails", mock.Anything, uint64(2)).Return(models.Campaign{}, errors.New("connection reset"))

	sub := s.Subscribe()
	_, err = s.RefreshAll(context.Background(), common.Address{})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrReadFailure)
	assert.Contains(t, err.Error(), "campaign 2")
	src.AssertNotCalled(t, "GetCampaignDetails", mock.Anything, uint64(3))

	stored, ok := s.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, first, stored)

	ev := <-sub
	assert.Equal(t, EventRefreshFailed, ev.Type)
}

func TestRefreshAll_BalanceFailure(t *testing.T) {
	src := new(MockSource)
	native := new(MockBalances)
	src.On("CampaignCount", mock.Anything).Return(big.NewInt(0), nil)
	native.On("BalanceAt", mock.Anything, account).Return(nil, errors.New("timeout"))

	_, err := newSync(src, native).RefreshAll(context.Background(), account)
	assert.ErrorIs(t, err, contract.ErrReadFailure)
	src.AssertNotCalled(t, "BalanceOf", mock.Anything, mock.Anything)
}

func TestRefreshAll_NoSource(t *testing.T) {
	s := NewSynchronizer(nil)
	_, err := s.RefreshAll(context.Background(), account)
	assert.ErrorIs(t, err, contract.ErrReadFailure)
}

func TestReset(t *testing.T) {
	src := new(MockSource)
	src.On("CampaignCount", mock.Anything).Return(big.NewInt(0), nil)

	s := newSync(src, nil)
	_, err := s.RefreshAll(context.Background(), common.Address{})
	require.NoError(t, err)

	s.Reset()
	_, ok := s.Snapshot()
	assert.False(t, ok)

	_, err = s.RefreshAll(context.Background(), common.Address{})
	assert.ErrorIs(t, err, contract.ErrReadFailure)
	src.AssertNumberOfCalls(t, "CampaignCount", 1)
}

func TestReset_DuringRefresh(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := new(MockSource)
	src.On("CampaignCount", mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(big.NewInt(1), nil)
	src.On("GetCampaignDetails", mock.Anything, uint64(1)).Return(campaign(1, ether(1), ether(0.5), now.Unix(), false), nil)
	src.On("BalanceOf", mock.Anything, account).Return(ether(7), nil)

	s := newSync(src, nil)
	sub := s.Subscribe()

	errCh := make(chan error, 1)
	go func() {
		_, err := s.RefreshAll(context.Background(), account)
		errCh <- err
	}()

	<-started
	s.Reset()
	close(release)

	err := <-errCh
	assert.ErrorIs(t, err, contract.ErrReadFailure)
	_, ok := s.Snapshot()
	assert.False(t, ok)

	ev := <-sub
	assert.Equal(t, EventRefreshFailed, ev.Type)
}

func TestSetSource_DiscardsRefreshOfPreviousSource(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	old := new(MockSource)
	old.On("CampaignCount", mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(big.NewInt(0), nil)

	s := newSync(old, nil)
	errCh := make(chan error, 1)
	go func() {
		_, err := s.RefreshAll(context.Background(), common.Address{})
		errCh <- err
	}()

	<-started
	s.SetSource(new(MockSource))
	close(release)

	assert.ErrorIs(t, <-errCh, contract.ErrReadFailure)
	_, ok := s.Snapshot()
	assert.False(t, ok)
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name     string
		raised   *big.Int
		goal     *big.Int
		expected float64
	}{
		{"quarter", ether(2.5), ether(10), 25},
		{"over goal clamped", ether(12), ether(10), 100},
		{"nothing raised", big.NewInt(0), ether(10), 0},
		{"zero goal", ether(1), big.NewInt(0), 100},
		{"zero goal nothing raised", big.NewInt(0), big.NewInt(0), 0},
		{"nil raised", nil, ether(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Progress(tt.raised, tt.goal))
		})
	}
}

func TestDaysLeft(t *testing.T) {
	assert.Equal(t, int64(0), DaysLeft(now.Unix()-86400, now))
	assert.Equal(t, int64(2), DaysLeft(now.Unix()+172800, now))
	assert.Equal(t, int64(1), DaysLeft(now.Unix()+172799, now))
	assert.Equal(t, int64(0), DaysLeft(now.Unix(), now))
}

func TestDerive_Finalized(t *testing.T) {
	v := Derive(campaign(1, ether(1), ether(1), now.Unix()-1, true), now)
	assert.False(t, v.Active)
	assert.False(t, v.CanFinalize)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := NewSynchronizer(nil)
	sub := s.Subscribe()
	assert.NotNil(t, sub)

	s.mu.RLock()
	assert.Equal(t, 1, len(s.subscribers))
	s.mu.RUnlock()

	s.Unsubscribe(sub)
	s.mu.RLock()
	assert.Equal(t, 0, len(s.subscribers))
	s.mu.RUnlock()

	_, open := <-sub
	assert.False(t, open)
}
