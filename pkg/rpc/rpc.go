package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// JSON-RPC error codes the application reacts to.
const (
	CodeUserRejected   = 4001   // EIP-1193
	CodeUnauthorized   = 4100   // EIP-1193
	CodeMethodNotFound = -32601 // JSON-RPC 2.0
)

var LatencyTimeout = 5 * time.Second

// TxRequest is an unsigned transaction handed to the provider for signing.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Client is a connection to a wallet provider's JSON-RPC endpoint.
type Client struct {
	url string
	raw *gethrpc.Client
	eth *ethclient.Client
}

// Dial connects to the provider at url.
func Dial(ctx context.Context, url string) (*Client, error) {
	raw, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Client{url: url, raw: raw, eth: ethclient.NewClient(raw)}, nil
}

// URL returns the endpoint the client was dialed with.
func (c *Client) URL() string {
	return c.url
}

// Close releases the connection.
func (c *Client) Close() {
	c.raw.Close()
}

// RequestAccounts asks the provider for account access. Providers without
// eth_requestAccounts (plain nodes) fall back to eth_accounts.
func (c *Client) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := c.raw.CallContext(ctx, &accounts, "eth_requestAccounts")
	if code, ok := ErrorCode(err); ok && code == CodeMethodNotFound {
		return c.Accounts(ctx)
	}
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Accounts returns the accounts currently exposed by the provider.
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.raw.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ChainID returns the provider's chain id as the hex string it reports.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	var id hexutil.Big
	if err := c.raw.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%x", id.ToInt()), nil
}

// ChainIDBig returns the chain id as a number, for transaction signing.
func (c *Client) ChainIDBig(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

// BalanceAt returns the latest native balance of account in wei.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, account, nil)
}

// CallContract executes a view call against the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, nil)
}

// CodeAt returns the deployed bytecode at addr.
func (c *Client) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return c.eth.CodeAt(ctx, addr, nil)
}

// SendTransaction submits req through eth_sendTransaction; the provider signs it.
func (c *Client) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	args := map[string]interface{}{
		"from": req.From,
		"to":   req.To,
		"data": hexutil.Bytes(req.Data),
	}
	if req.Value != nil && req.Value.Sign() > 0 {
		args["value"] = (*hexutil.Big)(req.Value)
	}
	var hash common.Hash
	if err := c.raw.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// SendRawTransaction broadcasts an already signed transaction.
func (c *Client) SendRawTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.eth.SendTransaction(ctx, tx)
}

// PendingNonceAt returns the next nonce for account.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.eth.PendingNonceAt(ctx, account)
}

// SuggestGasPrice returns the provider's gas price suggestion.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

// EstimateGas estimates the gas needed for msg; reverts surface here.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.eth.EstimateGas(ctx, msg)
}

// TransactionReceipt returns the receipt of hash, or ethereum.NotFound while pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return c.eth.TransactionReceipt(ctx, hash)
}

// WaitReceipt polls for the receipt of hash until it is included or ctx ends.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Latency measures a round-trip to the provider.
func (c *Client) Latency(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, LatencyTimeout)
	defer cancel()

	start := time.Now()
	if _, err := c.eth.BlockNumber(ctx); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// ErrorCode extracts a JSON-RPC error code from err.
func ErrorCode(err error) (int, bool) {
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}
