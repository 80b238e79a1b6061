package rpc

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"novafund/pkg/rpc/rpctest"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, node *rpctest.Node) *Client {
	t.Helper()
	c, err := Dial(context.Background(), node.URL)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestRequestAccounts(t *testing.T) {
	node := rpctest.NewNode()
	defer node.Close()
	node.Result("eth_requestAccounts", []string{"0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"})

	accounts, err := dial(t, node).RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"}, accounts)
}

func TestRequestAccounts_FallbackToAccounts(t *testing.T) {
	node := rpctest.NewNode()
	defer node.Close()
	node.Result("eth_accounts", []string{"0x0000000000000000000000000000000000000001"})

	accounts, err := dial(t, node).RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, 1, node.Calls("eth_requestAccounts"))
	assert.Equal(t, 1, node.Calls("eth_accounts"))
}

func TestRequestAccounts_UserRejected(t *testing.T) {
	node := rpctest.NewNode()
	defer node.Close()
	node.Fail("eth_requestAccounts", CodeUserRejected, "User rejected the request.")

	_, err := dial(t, node).RequestAccounts(context.Background())
	require.Error(t, err)
	code, ok := ErrorCode(err)
	assert.True(t, ok)
	assert.Equal(t, CodeUserRejected, code)
}

func TestChainIDAndBalance(t *testing.T) {
	node := rpctest.NewNode()
	defer node.Close()
	node.Result("eth_chainId", "0xaa36a7")
	node.Result("eth_getBalance", "0x22B1C8C1227A0000")

	c := dial(t, node)
	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xaa36a7", id)

	bal, err := c.BalanceAt(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000", bal.String())
}

func TestSendTransaction(t *testing.T) {
	node := rpctest.NewNode()
	defer node.Close()

	var got map[string]interface{}
	node.Handle("eth_sendTransaction", func(params []json.RawMessage) (interface{}, *rpctest.Error) {
		_ = json.Unmarshal(params[0], &got)
		return "0x00000000000000000000000000000000000000000000000000000000000000aa", nil
	})

	hash, err := dial(t, node).SendTransaction(context.Background(), TxRequest{
		From:  common.HexToAddress("0x01"),
		To:    common.HexToAddress("0x02"),
		Data:  []byte{0xde, 0xad},
		Value: big.NewInt(16),
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xaa"), hash)
	assert.Equal(t, "0xdead", got["data"])
	assert.Equal(t, "0x10", got["value"])
}

func TestWaitReceipt(t *testing.T) {
	node := rpctest.NewNode()
	defer node.Close()

	polls := 0
	node.Handle("eth_getTransactionReceipt", func([]json.RawMessage) (interface{}, *rpctest.Error) {
		polls++
		if polls < 3 {
			return nil, nil
		}
		return rpctest.Receipt("0x00000000000000000000000000000000000000000000000000000000000000aa", 1), nil
	})

	receipt, err := dial(t, node).WaitReceipt(context.Background(), common.HexToHash("0xaa"), 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Status)
	assert.Equal(t, 3, polls)
}

func TestWaitReceipt_ContextDone(t *testing.T) {
	node := rpctest.NewNode()
	defer node.Close()
	node.Result("eth_getTransactionReceipt", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := dial(t, node).WaitReceipt(ctx, common.HexToHash("0xaa"), 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLatency(t *testing.T) {
	node := rpctest.NewNode()
	defer node.Close()
	node.Result("eth_blockNumber", "0x10")

	d, err := dial(t, node).Latency(context.Background())
	require.NoError(t, err)
	assert.True(t, d > 0)
}
