// Package chain reads namespace policy and holder state from the external
// registrar contract that backs the paid TLDs. This service never writes
// on-chain; registration for those namespaces happens in the user's wallet.
//
// All reads are synchronous, short-timeout, and fail-closed: callers must
// treat any error as "unavailable", never as "available".
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"hvn/internal/name/models"
)

// registrarABI is the read surface of the TLD registrar contract.
const registrarABI = `[
  {"name":"getTldConfig","type":"function","stateMutability":"view",
   "inputs":[{"name":"node","type":"bytes32"}],
   "outputs":[
     {"name":"pricePerYear","type":"uint256"},
     {"name":"minLabelLength","type":"uint8"},
     {"name":"maxDuration","type":"uint8"},
     {"name":"registrationsOpen","type":"bool"},
     {"name":"lengthPricingEnabled","type":"bool"},
     {"name":"lengthMult","type":"uint256[4]"}]},
  {"name":"available","type":"function","stateMutability":"view",
   "inputs":[{"name":"node","type":"bytes32"},{"name":"label","type":"string"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"name":"price","type":"function","stateMutability":"view",
   "inputs":[{"name":"node","type":"bytes32"},{"name":"label","type":"string"},{"name":"duration","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"isReserved","type":"function","stateMutability":"view",
   "inputs":[{"name":"node","type":"bytes32"},{"name":"label","type":"string"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

// Reader is the read-only view of the on-chain registrar consumed by the
// availability resolver and the TLD catalog.
type Reader interface {
	GetTldConfig(ctx context.Context, tld string) (models.TldConfig, error)
	Available(ctx context.Context, tld, label string) (bool, error)
	Price(ctx context.Context, tld, label string, years int) (*big.Int, error)
	IsReserved(ctx context.Context, tld, label string) (bool, error)
}

// caller is the slice of ethclient.Client the Reader needs; tests substitute
// a canned implementation.
type caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client reads the registrar contract over JSON-RPC.
type Client struct {
	eth      caller
	contract common.Address
	abi      abi.ABI
	timeout  time.Duration
}

// Dial connects to the RPC endpoint and binds the registrar address.
func Dial(rpcURL, contractAddr string, timeout time.Duration) (*Client, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return newClient(eth, contractAddr, timeout)
}

func newClient(eth caller, contractAddr string, timeout time.Duration) (*Client, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid registrar contract address %q", contractAddr)
	}
	parsed, err := abi.JSON(strings.NewReader(registrarABI))
	if err != nil {
		return nil, fmt.Errorf("parse registrar abi: %w", err)
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		eth:      eth,
		contract: common.HexToAddress(contractAddr),
		abi:      parsed,
		timeout:  timeout,
	}, nil
}

func (c *Client) GetTldConfig(ctx context.Context, tld string) (models.TldConfig, error) {
	out, err := c.call(ctx, "getTldConfig", NameHash(tld))
	if err != nil {
		return models.TldConfig{}, err
	}
	if len(out) != 6 {
		return models.TldConfig{}, fmt.Errorf("getTldConfig: unexpected output arity %d", len(out))
	}
	price, ok := out[0].(*big.Int)
	if !ok || !price.IsInt64() {
		return models.TldConfig{}, fmt.Errorf("getTldConfig: price out of range")
	}
	mults, ok := out[5].([4]*big.Int)
	if !ok {
		return models.TldConfig{}, fmt.Errorf("getTldConfig: unexpected multiplier type %T", out[5])
	}
	cfg := models.TldConfig{
		Name:                 tld,
		Backend:              models.BackendOnchain,
		PricePerYear:         price.Int64(),
		MinLabelLength:       int(out[1].(uint8)),
		MaxDuration:          int(out[2].(uint8)),
		RegistrationsOpen:    out[3].(bool),
		LengthPricingEnabled: out[4].(bool),
	}
	for i, m := range mults {
		if m != nil && m.IsInt64() {
			cfg.LengthMult[i] = m.Int64()
		}
	}
	return cfg, nil
}

func (c *Client) Available(ctx context.Context, tld, label string) (bool, error) {
	out, err := c.call(ctx, "available", NameHash(tld), label)
	if err != nil {
		return false, err
	}
	return singleBool(out, "available")
}

func (c *Client) Price(ctx context.Context, tld, label string, years int) (*big.Int, error) {
	out, err := c.call(ctx, "price", NameHash(tld), label, big.NewInt(int64(years)))
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("price: unexpected output arity %d", len(out))
	}
	p, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("price: unexpected output type %T", out[0])
	}
	return p, nil
}

func (c *Client) IsReserved(ctx context.Context, tld, label string) (bool, error) {
	out, err := c.call(ctx, "isReserved", NameHash(tld), label)
	if err != nil {
		return false, err
	}
	return singleBool(out, "isReserved")
}

func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func singleBool(out []any, method string) (bool, error) {
	if len(out) != 1 {
		return false, fmt.Errorf("%s: unexpected output arity %d", method, len(out))
	}
	b, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return b, nil
}
