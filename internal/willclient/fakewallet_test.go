package willclient

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/testament/internal/contract"
	"github.com/mrz1836/testament/internal/provider"
)

//nolint:gochecknoglobals // Test fixtures
var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	alice        = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob          = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	carol        = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	assetAddr    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	txHash       = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
)

type storedWill struct {
	owner    common.Address
	metadata string
	active   bool
}

// fakeWallet is an in-memory provider backed by a scripted will contract.
// Token ids without an entry revert on ownerOf.
type fakeWallet struct {
	t   *testing.T
	abi abi.ABI

	mu            sync.Mutex
	accounts      []common.Address
	chainID       uint64
	requestErr    error
	callErr       map[uint64]error
	tokens        map[uint64]storedWill
	receiptStatus string
	sent          []provider.TxArgs
	ownerProbes   []uint64
	methods       []string
	listeners     map[string][]provider.Listener
	removedEvents []string
}

func newFakeWallet(t *testing.T) *fakeWallet {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(contract.WillABI))
	require.NoError(t, err)
	return &fakeWallet{
		t:             t,
		abi:           parsed,
		accounts:      []common.Address{alice},
		chainID:       31337,
		callErr:       map[uint64]error{},
		tokens:        map[uint64]storedWill{},
		receiptStatus: "0x1",
		listeners:     map[string][]provider.Listener{},
	}
}

func (f *fakeWallet) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, method)

	var result any
	switch method {
	case provider.MethodRequestAccounts, provider.MethodAccounts:
		if f.requestErr != nil {
			return nil, f.requestErr
		}
		list := make([]string, 0, len(f.accounts))
		for _, a := range f.accounts {
			list = append(list, strings.ToLower(a.Hex()))
		}
		result = list
	case provider.MethodChainID:
		result = hexutil.Uint64(f.chainID)
	case provider.MethodCall:
		out, err := f.call(params)
		if err != nil {
			return nil, err
		}
		result = hexutil.Bytes(out)
	case provider.MethodSendTransaction:
		args, ok := params[0].(provider.TxArgs)
		require.True(f.t, ok)
		f.sent = append(f.sent, args)
		result = txHash
	case provider.MethodGetReceipt:
		result = map[string]string{
			"transactionHash": txHash.Hex(),
			"blockNumber":     "0x1",
			"gasUsed":         "0x5208",
			"status":          f.receiptStatus,
		}
	default:
		return nil, &provider.Error{Code: -32601, Message: "method not found"}
	}
	return json.Marshal(result)
}

func (f *fakeWallet) call(params []any) ([]byte, error) {
	raw, err := json.Marshal(params[0])
	require.NoError(f.t, err)
	var args struct {
		To   common.Address `json:"to"`
		Data hexutil.Bytes  `json:"data"`
	}
	require.NoError(f.t, json.Unmarshal(raw, &args))
	require.Equal(f.t, contractAddr, args.To)

	method, err := f.abi.MethodById(args.Data[:4])
	require.NoError(f.t, err)
	in, err := method.Inputs.Unpack(args.Data[4:])
	require.NoError(f.t, err)
	id := in[0].(*big.Int).Uint64()

	if err := f.callErr[id]; err != nil {
		return nil, err
	}
	tok, exists := f.tokens[id]

	switch method.Name {
	case contract.FuncOwnerOf:
		f.ownerProbes = append(f.ownerProbes, id)
		if !exists {
			return nil, &provider.Error{Code: provider.CodeExecutionReverted, Message: "execution reverted: ERC721: invalid token ID"}
		}
		return method.Outputs.Pack(tok.owner)
	case contract.FuncWills:
		info := contract.AssetInfo{AssetAddress: assetAddr, AmountOrID: big.NewInt(int64(id) * 100), Metadata: tok.metadata}
		return method.Outputs.Pack(bob, contract.AssetTypeToken, info, tok.active)
	case contract.FuncTokenURI:
		if !exists {
			return nil, &provider.Error{Code: provider.CodeExecutionReverted, Message: "execution reverted"}
		}
		return method.Outputs.Pack("ipfs://will/" + in[0].(*big.Int).String())
	}
	f.t.Fatalf("unexpected call to %s", method.Name)
	return nil, nil
}

func (f *fakeWallet) On(event string, listener provider.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[event] = append(f.listeners[event], listener)
}

func (f *fakeWallet) RemoveAllListeners(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners, event)
	f.removedEvents = append(f.removedEvents, event)
}

// emit fires event to the listeners registered at the time of the call.
func (f *fakeWallet) emit(event string, payload any) {
	f.mu.Lock()
	ls := append([]provider.Listener(nil), f.listeners[event]...)
	f.mu.Unlock()
	for _, l := range ls {
		l(payload)
	}
}

func (f *fakeWallet) listenerCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners[event])
}

func (f *fakeWallet) probes() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.ownerProbes...)
}

func (f *fakeWallet) called(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.methods {
		if m == method {
			return true
		}
	}
	return false
}

func (f *fakeWallet) mint(id uint64, owner common.Address, metadata string) {
	f.tokens[id] = storedWill{owner: owner, metadata: metadata, active: true}
}
