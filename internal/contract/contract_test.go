package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/testament/internal/provider"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

//nolint:gochecknoglobals // Test fixtures
var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	alice        = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob          = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	assetAddr    = common.HexToAddress("0x0000000000000000000000000000000000000001")
)

type handler func(params []any) (any, error)

// fakeProvider answers requests from per-method handlers and records calls.
type fakeProvider struct {
	mu       sync.Mutex
	handlers map[string]handler
	calls    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{handlers: map[string]handler{}}
}

func (f *fakeProvider) handle(method string, h handler) {
	f.handlers[method] = h
}

func (f *fakeProvider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	h, ok := f.handlers[method]
	f.mu.Unlock()
	if !ok {
		return nil, &provider.Error{Code: -32601, Message: "method not found: " + method}
	}
	result, err := h(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func (f *fakeProvider) On(string, provider.Listener) {}
func (f *fakeProvider) RemoveAllListeners(string) {}

func (f *fakeProvider) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

// decodeCall splits eth_call params into the called method and its arguments.
func decodeCall(t *testing.T, b *Binding, params []any) (string, []any) {
	t.Helper()
	args, ok := params[0].(callArgs)
	require.True(t, ok)
	assert.Equal(t, contractAddr, args.To)
	method, err := b.abi.MethodById(args.Data[:4])
	require.NoError(t, err)
	in, err := method.Inputs.Unpack(args.Data[4:])
	require.NoError(t, err)
	return method.Name, in
}

func packOutput(t *testing.T, b *Binding, method string, values ...any) hexutil.Bytes {
	t.Helper()
	out, err := b.abi.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}

func newTestBinding(t *testing.T) (*Binding, *fakeProvider) {
	t.Helper()
	p := newFakeProvider()
	b, err := New(p, contractAddr)
	require.NoError(t, err)
	return b, p
}

func TestBinding_OwnerOf(t *testing.T) {
	t.Parallel()
	b, p := newTestBinding(t)

	p.handle(provider.MethodCall, func(params []any) (any, error) {
		name, in := decodeCall(t, b, params)
		require.Equal(t, FuncOwnerOf, name)
		if in[0].(*big.Int).Uint64() == 1 {
			return packOutput(t, b, FuncOwnerOf, alice), nil
		}
		return nil, &provider.Error{Code: provider.CodeExecutionReverted, Message: "execution reverted: ERC721: invalid token ID"}
	})

	owner, err := b.OwnerOf(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	_, err = b.OwnerOf(context.Background(), 2)
	require.ErrorIs(t, err, ErrNoSuchToken)
}

func TestBinding_OwnerOf_OtherFailure(t *testing.T) {
	t.Parallel()
	b, p := newTestBinding(t)
	p.handle(provider.MethodCall, func([]any) (any, error) {
		return nil, tmerr.ErrNetworkError
	})

	_, err := b.OwnerOf(context.Background(), 1)
	require.ErrorIs(t, err, tmerr.ErrNetworkError)
	assert.NotErrorIs(t, err, ErrNoSuchToken)
}

func TestBinding_EmptyCallResult(t *testing.T) {
	t.Parallel()
	b, p := newTestBinding(t)
	p.handle(provider.MethodCall, func([]any) (any, error) {
		return "0x", nil
	})

	_, err := b.OwnerOf(context.Background(), 1)
	require.ErrorIs(t, err, tmerr.ErrNotFound)
}

func TestBinding_Wills(t *testing.T) {
	t.Parallel()
	b, p := newTestBinding(t)

	info := AssetInfo{AssetAddress: assetAddr, AmountOrID: big.NewInt(42), Metadata: `{"name":"house"}`}
	p.handle(provider.MethodCall, func(params []any) (any, error) {
		name, in := decodeCall(t, b, params)
		require.Equal(t, FuncWills, name)
		require.Equal(t, int64(7), in[0].(*big.Int).Int64())
		return packOutput(t, b, FuncWills, bob, AssetTypeToken, info, true), nil
	})

	will, err := b.Wills(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), will.TokenID)
	assert.Equal(t, bob, will.Beneficiary)
	assert.Equal(t, AssetTypeToken, will.AssetType)
	assert.Equal(t, assetAddr, will.AssetInfo.AssetAddress)
	assert.Equal(t, "42", will.AssetInfo.AmountOrID.String())
	assert.Equal(t, `{"name":"house"}`, will.AssetInfo.Metadata)
	assert.True(t, will.Active)
}

func TestBinding_TokenURI(t *testing.T) {
	t.Parallel()
	b, p := newTestBinding(t)
	p.handle(provider.MethodCall, func(params []any) (any, error) {
		name, _ := decodeCall(t, b, params)
		require.Equal(t, FuncTokenURI, name)
		return packOutput(t, b, FuncTokenURI, "ipfs://will/3"), nil
	})

	uri, err := b.TokenURI(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://will/3", uri)
}

func TestBinding_Transactions(t *testing.T) {
	t.Parallel()
	b, p := newTestBinding(t)

	txHash := common.HexToHash("0xabc123")
	var sent []provider.TxArgs
	p.handle(provider.MethodSendTransaction, func(params []any) (any, error) {
		args, ok := params[0].(provider.TxArgs)
		require.True(t, ok)
		sent = append(sent, args)
		return txHash, nil
	})

	ctx := context.Background()
	h, err := b.MintNFT(ctx, alice, bob, AssetTypeToken, assetAddr, big.NewInt(5), `{"image":"http://x/y.png"}`)
	require.NoError(t, err)
	assert.Equal(t, txHash, h)

	_, err = b.CheckIn(ctx, alice, 9)
	require.NoError(t, err)
	_, err = b.ExecuteWill(ctx, alice, 9)
	require.NoError(t, err)

	require.Len(t, sent, 3)
	wantMethods := []string{FuncMintNFT, FuncCheckIn, FuncExecuteWill}
	for i, args := range sent {
		assert.Equal(t, alice, args.From)
		require.NotNil(t, args.To)
		assert.Equal(t, contractAddr, *args.To)

		method, err := b.abi.MethodById(args.Data[:4])
		require.NoError(t, err)
		assert.Equal(t, wantMethods[i], method.Name)
	}

	in, err := b.abi.Methods[FuncMintNFT].Inputs.Unpack(sent[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, bob, in[0])
	assert.Equal(t, AssetTypeToken, in[1])
	assert.Equal(t, assetAddr, in[2])
	assert.Equal(t, "5", in[3].(*big.Int).String())
	assert.Equal(t, `{"image":"http://x/y.png"}`, in[4])
}

func TestBinding_TransactRejected(t *testing.T) {
	t.Parallel()
	b, p := newTestBinding(t)
	p.handle(provider.MethodSendTransaction, func([]any) (any, error) {
		return nil, provider.ErrRejected
	})

	_, err := b.CheckIn(context.Background(), alice, 1)
	require.Error(t, err)
	assert.True(t, provider.IsUserRejected(err))
}

func TestWaitMined(t *testing.T) {
	t.Parallel()

	hash := common.HexToHash("0x01")
	receipt := map[string]string{
		"transactionHash": hash.Hex(),
		"blockNumber":     "0x2",
		"gasUsed":         "0x5208",
		"status":          "0x1",
	}

	t.Run("polls until mined", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		polls := 0
		p.handle(provider.MethodGetReceipt, func(params []any) (any, error) {
			assert.Equal(t, hash.Hex(), params[0])
			polls++
			if polls < 3 {
				return nil, nil
			}
			return receipt, nil
		})

		r, err := WaitMined(context.Background(), p, hash, time.Millisecond)
		require.NoError(t, err)
		assert.True(t, r.Succeeded())
		assert.Equal(t, uint64(2), uint64(r.BlockNumber))
		assert.Equal(t, 3, p.count(provider.MethodGetReceipt))
	})

	t.Run("reverted", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		reverted := map[string]string{"transactionHash": hash.Hex(), "blockNumber": "0x2", "gasUsed": "0x1", "status": "0x0"}
		p.handle(provider.MethodGetReceipt, func([]any) (any, error) { return reverted, nil })

		r, err := WaitMined(context.Background(), p, hash, time.Millisecond)
		require.ErrorIs(t, err, tmerr.ErrTxReverted)
		require.NotNil(t, r)
		assert.False(t, r.Succeeded())
	})

	t.Run("context bound", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		p.handle(provider.MethodGetReceipt, func([]any) (any, error) { return nil, nil })

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := WaitMined(ctx, p, hash, 5*time.Millisecond)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("request failure", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider()
		p.handle(provider.MethodGetReceipt, func([]any) (any, error) {
			return nil, fmt.Errorf("boom: %w", tmerr.ErrNetworkError)
		})
		_, err := WaitMined(context.Background(), p, hash, time.Millisecond)
		require.ErrorIs(t, err, tmerr.ErrNetworkError)
	})
}
