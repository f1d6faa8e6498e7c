package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"

	"hvn/internal/name/models"
)

// Public ENS namehash test vectors.
func TestNameHash(t *testing.T) {
	require.Equal(t,
		"0x0000000000000000000000000000000000000000000000000000000000000000",
		NameHash("").Hex())
	require.Equal(t,
		"0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae",
		NameHash("eth").Hex())
	require.Equal(t,
		"0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f",
		NameHash("foo.eth").Hex())
}

const testContract = "0x00000000000000000000000000000000000c0de0"

type fakeCaller struct {
	outputs map[string][]byte
	err     error
	calls   int
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Method selector is the first four bytes of the packed calldata.
	return f.outputs[string(msg.Data[:4])], nil
}

func packOutput(t *testing.T, parsed abi.ABI, method string, vals ...any) (selector string, out []byte) {
	t.Helper()
	m, ok := parsed.Methods[method]
	require.True(t, ok)
	encoded, err := m.Outputs.Pack(vals...)
	require.NoError(t, err)
	return string(m.ID), encoded
}

func newTestClient(t *testing.T, fake *fakeCaller) (*Client, abi.ABI) {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(registrarABI))
	require.NoError(t, err)
	c, err := newClient(fake, testContract, time.Second)
	require.NoError(t, err)
	return c, parsed
}

func TestClientGetTldConfig(t *testing.T) {
	fake := &fakeCaller{outputs: map[string][]byte{}}
	c, parsed := newTestClient(t, fake)

	sel, out := packOutput(t, parsed, "getTldConfig",
		big.NewInt(20_000_000), uint8(3), uint8(5), true, true,
		[4]*big.Int{big.NewInt(16), big.NewInt(8), big.NewInt(4), big.NewInt(2)})
	fake.outputs[sel] = out

	cfg, err := c.GetTldConfig(context.Background(), "onchain")
	require.NoError(t, err)
	require.Equal(t, models.TldConfig{
		Name:                 "onchain",
		Backend:              models.BackendOnchain,
		PricePerYear:         20_000_000,
		MinLabelLength:       3,
		MaxDuration:          5,
		RegistrationsOpen:    true,
		LengthPricingEnabled: true,
		LengthMult:           [4]int64{16, 8, 4, 2},
	}, cfg)
}

func TestClientReads(t *testing.T) {
	fake := &fakeCaller{outputs: map[string][]byte{}}
	c, parsed := newTestClient(t, fake)

	sel, out := packOutput(t, parsed, "available", true)
	fake.outputs[sel] = out
	sel, out = packOutput(t, parsed, "isReserved", false)
	fake.outputs[sel] = out
	sel, out = packOutput(t, parsed, "price", big.NewInt(123456))
	fake.outputs[sel] = out

	avail, err := c.Available(context.Background(), "onchain", "luna")
	require.NoError(t, err)
	require.True(t, avail)

	reserved, err := c.IsReserved(context.Background(), "onchain", "luna")
	require.NoError(t, err)
	require.False(t, reserved)

	price, err := c.Price(context.Background(), "onchain", "luna", 2)
	require.NoError(t, err)
	require.Equal(t, int64(123456), price.Int64())
}

func TestClientTransportFailure(t *testing.T) {
	fake := &fakeCaller{err: errors.New("connection refused")}
	c, _ := newTestClient(t, fake)

	_, err := c.Available(context.Background(), "onchain", "luna")
	require.Error(t, err)

	_, err = c.GetTldConfig(context.Background(), "onchain")
	require.Error(t, err)
	require.Equal(t, 2, fake.calls)
}

func TestClientRejectsBadAddress(t *testing.T) {
	_, err := newClient(&fakeCaller{}, "not-an-address", time.Second)
	require.Error(t, err)
}
