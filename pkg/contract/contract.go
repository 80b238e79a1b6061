// Package contract wraps the crowdfunding contract's fixed function set.
package contract

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"novafund/pkg/models"
	"novafund/pkg/rpc"
	"novafund/pkg/wallet"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrReadFailure         = errors.New("contract read failed")
)

const (
	MethodCreateCampaign     = "createCampaign"
	MethodContribute         = "contribute"
	MethodFinalizeCampaign   = "finalizeCampaign"
	MethodGetCampaignDetails = "getCampaignDetails"
	MethodBalanceOf          = "balanceOf"
	MethodCampaignCount      = "campaignCount"
)

// JSON-RPC code geth uses for reverted eth_call/eth_estimateGas.
const codeExecutionReverted = 3

//go:embed abi.json
var defaultABI []byte

// DefaultABI returns the embedded contract ABI.
func DefaultABI() abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(defaultABI))
	if err != nil {
		panic(fmt.Sprintf("embedded abi: %v", err))
	}
	return parsed
}

// ParseABI reads an ABI and checks it declares every required method.
func ParseABI(r io.Reader) (abi.ABI, error) {
	parsed, err := abi.JSON(r)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse abi: %w", err)
	}
	for _, name := range []string{
		MethodCreateCampaign, MethodContribute, MethodFinalizeCampaign,
		MethodGetCampaignDetails, MethodBalanceOf, MethodCampaignCount,
	} {
		if _, ok := parsed.Methods[name]; !ok {
			return abi.ABI{}, fmt.Errorf("abi is missing method %q", name)
		}
	}
	return parsed, nil
}

// LoadABI reads the ABI at path, or returns the embedded one when path is empty.
func LoadABI(path string) (abi.ABI, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultABI(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to open abi: %w", err)
	}
	defer f.Close()
	return ParseABI(f)
}

// Backend is the part of the provider the gateway reads through.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	WaitReceipt(ctx context.Context, hash common.Hash, interval time.Duration) (*types.Receipt, error)
}

// Gateway issues reads and writes against one deployed contract on behalf
// of one account.
type Gateway struct {
	backend     Backend
	signer      wallet.Signer
	address     common.Address
	from        common.Address
	abi         abi.ABI
	receiptPoll time.Duration
}

func NewGateway(backend Backend, signer wallet.Signer, address, from common.Address, parsed abi.ABI, receiptPoll time.Duration) *Gateway {
	return &Gateway{
		backend:     backend,
		signer:      signer,
		address:     address,
		from:        from,
		abi:         parsed,
		receiptPoll: receiptPoll,
	}
}

// Address of the contract.
func (g *Gateway) Address() common.Address {
	return g.address
}

func (g *Gateway) CreateCampaign(ctx context.Context, title, description string, goalWei *big.Int, durationDays uint64) (*types.Receipt, error) {
	return g.transact(ctx, nil, MethodCreateCampaign, title, description, goalWei, new(big.Int).SetUint64(durationDays))
}

func (g *Gateway) Contribute(ctx context.Context, campaignID uint64, valueWei *big.Int) (*types.Receipt, error) {
	return g.transact(ctx, valueWei, MethodContribute, new(big.Int).SetUint64(campaignID))
}

func (g *Gateway) FinalizeCampaign(ctx context.Context, campaignID uint64) (*types.Receipt, error) {
	return g.transact(ctx, nil, MethodFinalizeCampaign, new(big.Int).SetUint64(campaignID))
}

func (g *Gateway) GetCampaignDetails(ctx context.Context, campaignID uint64) (models.Campaign, error) {
	values, err := g.call(ctx, MethodGetCampaignDetails, new(big.Int).SetUint64(campaignID))
	if err != nil {
		return models.Campaign{}, err
	}
	c, err := DecodeCampaign(campaignID, g.abi.Methods[MethodGetCampaignDetails].Outputs, values)
	if err != nil {
		return models.Campaign{}, fmt.Errorf("%w: campaign %d: %v", ErrReadFailure, campaignID, err)
	}
	return c, nil
}

func (g *Gateway) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return g.callUint(ctx, MethodBalanceOf, account)
}

func (g *Gateway) CampaignCount(ctx context.Context) (*big.Int, error) {
	return g.callUint(ctx, MethodCampaignCount)
}

func (g *Gateway) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	values, err := g.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrReadFailure, method, len(values))
	}
	n, err := asBig(values[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailure, method, err)
	}
	return n, nil
}

func (g *Gateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailure, method, err)
	}
	to := g.address
	out, err := g.backend.CallContract(ctx, ethereum.CallMsg{From: g.from, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailure, method, err)
	}
	values, err := g.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailure, method, err)
	}
	return values, nil
}

// transact submits a state-changing call and waits for its receipt. Nothing
// is retried.
func (g *Gateway) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	if g.signer == nil {
		return nil, fmt.Errorf("%w: no signer", wallet.ErrProviderUnavailable)
	}
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransactionFailed, method, err)
	}

	hash, err := g.signer.Send(ctx, rpc.TxRequest{
		From:  g.from,
		To:    g.address,
		Data:  data,
		Value: value,
	})
	if err != nil {
		return nil, ClassifySubmitError(err)
	}

	receipt, err := g.backend.WaitReceipt(ctx, hash, g.receiptPoll)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for %s: %v", ErrTransactionFailed, hash.Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("%w: %s in %s", ErrTransactionReverted, method, hash.Hex())
	}
	return receipt, nil
}

// ClassifySubmitError maps a submission failure onto the gateway taxonomy,
// keeping the provider's message.
func ClassifySubmitError(err error) error {
	code, ok := rpc.ErrorCode(err)
	switch {
	case ok && (code == rpc.CodeUserRejected || code == rpc.CodeUnauthorized):
		return fmt.Errorf("%w: %v", wallet.ErrUserRejected, err)
	case ok && code == codeExecutionReverted,
		strings.Contains(strings.ToLower(err.Error()), "execution reverted"):
		return fmt.Errorf("%w: %v", ErrTransactionReverted, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
}
