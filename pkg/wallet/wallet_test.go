package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"novafund/pkg/rpc"
	"novafund/pkg/rpc/rpctest"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testAccount = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProvider) Accounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if fn, ok := args.Get(0).(func(context.Context) []string); ok {
		return fn(ctx), args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProvider) ChainID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	if fn, ok := args.Get(0).(func(context.Context) string); ok {
		return fn(ctx), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *MockProvider) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(*big.Int), args.Error(1)
}

type rpcError struct {
	code int
	msg  string
}

func (e rpcError) Error() string  { return e.msg }
func (e rpcError) ErrorCode() int { return e.code }

func TestConnect(t *testing.T) {
	p := new(MockProvider)
	p.On("RequestAccounts", mock.Anything).Return([]string{testAccount}, nil)
	p.On("ChainID", mock.Anything).Return("0xaa36a7", nil)

	m := NewManager(p, nil, time.Second)
	session, err := m.Connect(context.Background())
	require.NoError(t, err)

	assert.True(t, session.Connected)
	assert.True(t, session.NetworkSupported)
	assert.Equal(t, "Sepolia", session.NetworkName)
	assert.Equal(t, testAccount, session.Account)

	account, ok := m.Account()
	assert.True(t, ok)
	assert.Equal(t, common.HexToAddress(testAccount), account)
}

func TestConnect_UnsupportedNetwork(t *testing.T) {
	p := new(MockProvider)
	p.On("RequestAccounts", mock.Anything).Return([]string{testAccount}, nil)
	p.On("ChainID", mock.Anything).Return("0x1", nil)

	m := NewManager(p, nil, time.Second)
	session, err := m.Connect(context.Background())

	assert.ErrorIs(t, err, ErrUnsupportedNetwork)
	assert.False(t, session.Connected)
	assert.False(t, session.NetworkSupported)
	assert.Equal(t, "Mainnet", session.NetworkName)

	_, ok := m.Account()
	assert.False(t, ok)
}

func TestConnect_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"user rejected", rpcError{code: rpc.CodeUserRejected, msg: "User rejected the request."}, ErrUserRejected},
		{"unauthorized", rpcError{code: rpc.CodeUnauthorized, msg: "Unauthorized"}, ErrUserRejected},
		{"method missing", rpcError{code: rpc.CodeMethodNotFound, msg: "method not found"}, ErrProviderUnavailable},
		{"transport", errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"), ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockProvider)
			p.On("RequestAccounts", mock.Anything).Return([]string(nil), tt.err)

			_, err := NewManager(p, nil, time.Second).Connect(context.Background())
			assert.ErrorIs(t, err, tt.expected)
			p.AssertNotCalled(t, "ChainID", mock.Anything)
		})
	}
}

func TestConnect_NoProvider(t *testing.T) {
	_, err := NewManager(nil, nil, time.Second).Connect(context.Background())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestConnect_NoAccounts(t *testing.T) {
	p := new(MockProvider)
	p.On("RequestAccounts", mock.Anything).Return([]string{}, nil)

	_, err := NewManager(p, nil, time.Second).Connect(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestHandleAccountsChanged(t *testing.T) {
	p := new(MockProvider)
	p.On("RequestAccounts", mock.Anything).Return([]string{testAccount}, nil)
	p.On("ChainID", mock.Anything).Return("0x539", nil)

	m := NewManager(p, nil, time.Second)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	var got [][]string
	m.OnAccountsChanged(func(accounts []string) { got = append(got, accounts) })

	m.HandleAccountsChanged([]string{})
	assert.False(t, m.Session().Connected)
	assert.Equal(t, "", m.Session().Account)
	_, ok := m.Account()
	assert.False(t, ok)

	_, err = m.Balance(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	p.AssertNotCalled(t, "BalanceAt", mock.Anything, mock.Anything)

	other := "0x0000000000000000000000000000000000000002"
	m.HandleAccountsChanged([]string{other})
	assert.True(t, m.Session().Connected)
	assert.Equal(t, other, m.Session().Account)

	assert.Len(t, got, 2)
}

func TestHandleChainChanged(t *testing.T) {
	p := new(MockProvider)
	p.On("RequestAccounts", mock.Anything).Return([]string{testAccount}, nil)
	p.On("ChainID", mock.Anything).Return("0x539", nil)

	m := NewManager(p, nil, time.Second)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	var got []string
	m.OnChainChanged(func(id string) { got = append(got, id) })

	m.HandleChainChanged("0x1")
	assert.False(t, m.Session().Connected)
	assert.Equal(t, "Mainnet", m.Session().NetworkName)

	m.HandleChainChanged("0x4268")
	assert.True(t, m.Session().Connected)
	assert.Equal(t, []string{"0x1", "0x4268"}, got)
}

func TestWatch_DispatchesChanges(t *testing.T) {
	var (
		mu       sync.Mutex
		chainID  = "0x539"
		accounts = []string{testAccount}
	)
	p := new(MockProvider)
	p.On("RequestAccounts", mock.Anything).Return([]string{testAccount}, nil)
	p.On("ChainID", mock.Anything).Return(func(context.Context) string {
		mu.Lock()
		defer mu.Unlock()
		return chainID
	}, nil)
	p.On("Accounts", mock.Anything).Return(func(context.Context) []string {
		mu.Lock()
		defer mu.Unlock()
		return accounts
	}, nil)

	m := NewManager(p, nil, 5*time.Millisecond)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	chainEvents := make(chan string, 4)
	accountEvents := make(chan []string, 4)
	m.OnChainChanged(func(id string) { chainEvents <- id })
	m.OnAccountsChanged(func(a []string) { accountEvents <- a })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Watch(ctx)

	mu.Lock()
	accounts = []string{}
	mu.Unlock()

	select {
	case a := <-accountEvents:
		assert.Empty(t, a)
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for accounts event")
	}

	mu.Lock()
	chainID = "0xaa36a7"
	mu.Unlock()

	select {
	case id := <-chainEvents:
		assert.Equal(t, "0xaa36a7", id)
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for chain event")
	}
}

func TestWatch_IdleBeforeConnect(t *testing.T) {
	p := new(MockProvider)
	m := NewManager(p, nil, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	m.Watch(ctx)

	p.AssertNotCalled(t, "ChainID", mock.Anything)
	p.AssertNotCalled(t, "Accounts", mock.Anything)
}

func TestKeySigner_Send(t *testing.T) {
	node := rpctest.NewNode()
	defer node.Close()
	node.Result("eth_chainId", "0x539")
	node.Result("eth_getTransactionCount", "0x7")
	node.Result("eth_gasPrice", "0x3b9aca00")
	node.Result("eth_estimateGas", "0x186a0")

	var raw string
	node.Handle("eth_sendRawTransaction", func(params []json.RawMessage) (interface{}, *rpctest.Error) {
		_ = json.Unmarshal(params[0], &raw)
		return "0x00000000000000000000000000000000000000000000000000000000000000aa", nil
	})

	client, err := rpc.Dial(context.Background(), node.URL)
	require.NoError(t, err)
	defer client.Close()

	signer, err := NewKeySigner(client, "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)

	to := common.HexToAddress("0x2664e4559370ce58F4FEd8A1e9F1e37FE587f98A")
	hash, err := signer.Send(context.Background(), rpc.TxRequest{
		From:  signer.Address(),
		To:    to,
		Data:  []byte{0x01, 0x02},
		Value: big.NewInt(1000),
	})
	require.NoError(t, err)

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(hexutil.MustDecode(raw)))
	assert.Equal(t, tx.Hash(), hash)
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(100000), tx.Gas())
	assert.Equal(t, to, *tx.To())
	assert.Equal(t, int64(1000), tx.Value().Int64())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1337)), &tx)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from)
}

func TestNewKeySigner_Invalid(t *testing.T) {
	_, err := NewKeySigner(nil, "zz")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	m, client, err := Open(context.Background(), "", "", time.Second)
	require.NoError(t, err)
	assert.Nil(t, client)
	_, err = m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	node := rpctest.NewNode()
	defer node.Close()
	node.Result("eth_chainId", "0x539")

	m, client, err = Open(context.Background(), node.URL, "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", time.Second)
	require.NoError(t, err)
	defer client.Close()

	session, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Localhost", session.NetworkName)
	assert.Equal(t, 0, node.Calls("eth_requestAccounts"))
	_, isKey := m.Signer().(*KeySigner)
	assert.True(t, isKey)
}
