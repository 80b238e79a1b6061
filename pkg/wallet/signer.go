package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"novafund/pkg/rpc"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer submits a state-changing transaction and returns its hash. It does
// not wait for inclusion.
type Signer interface {
	Send(ctx context.Context, req rpc.TxRequest) (common.Hash, error)
}

// NodeSigner lets the provider sign through eth_sendTransaction.
type NodeSigner struct {
	client *rpc.Client
}

func NewNodeSigner(client *rpc.Client) *NodeSigner {
	return &NodeSigner{client: client}
}

func (s *NodeSigner) Send(ctx context.Context, req rpc.TxRequest) (common.Hash, error) {
	return s.client.SendTransaction(ctx, req)
}

// KeyBackend is the subset of the provider a KeySigner needs.
type KeyBackend interface {
	ChainIDBig(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendRawTransaction(ctx context.Context, tx *types.Transaction) error
}

// KeySigner signs locally with a private key and broadcasts the raw transaction.
type KeySigner struct {
	backend KeyBackend
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex private key (with or without 0x).
func NewKeySigner(backend KeyBackend, privateKeyHex string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeySigner{
		backend: backend,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address is the account controlled by the key.
func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) Send(ctx context.Context, req rpc.TxRequest) (common.Hash, error) {
	chainID, err := s.backend.ChainIDBig(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain id: %w", err)
	}
	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.address,
		To:    &to,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     req.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := s.backend.SendRawTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// KeyProvider exposes the key's account as the only provider account while
// reads go to the underlying node.
type KeyProvider struct {
	*rpc.Client
	address common.Address
}

func NewKeyProvider(client *rpc.Client, address common.Address) *KeyProvider {
	return &KeyProvider{Client: client, address: address}
}

func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return []string{p.address.Hex()}, nil
}

func (p *KeyProvider) Accounts(ctx context.Context) ([]string, error) {
	return []string{p.address.Hex()}, nil
}

// Open dials the provider and assembles a Manager. With a private key the
// manager signs locally; otherwise the provider signs.
func Open(ctx context.Context, rpcURL, privateKeyHex string, pollInterval time.Duration) (*Manager, *rpc.Client, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return NewManager(nil, nil, pollInterval), nil, nil
	}
	client, err := rpc.Dial(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if strings.TrimSpace(privateKeyHex) == "" {
		return NewManager(client, NewNodeSigner(client), pollInterval), client, nil
	}

	signer, err := NewKeySigner(client, privateKeyHex)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return NewManager(NewKeyProvider(client, signer.Address()), signer, pollInterval), client, nil
}
