package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/testament/internal/provider"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// ErrNoSuchToken is returned by OwnerOf when the lookup reverts.
//
//nolint:gochecknoglobals // Sentinel error value
var ErrNoSuchToken = tmerr.ErrNoSuchToken

// AssetInfo is the asset description stored with a will. Field order
// follows the ABI tuple.
type AssetInfo struct {
	AssetAddress common.Address `abi:"assetAddress" json:"assetAddress"`
	AmountOrID   *big.Int       `abi:"amountOrId"   json:"amountOrId"`
	Metadata     string         `abi:"metadata"     json:"metadata"`
}

// Will is one decoded wills(id) record.
type Will struct {
	TokenID     uint64         `json:"tokenId"`
	Beneficiary common.Address `json:"beneficiary"`
	AssetType   uint8          `json:"assetType"`
	AssetInfo   AssetInfo      `json:"assetInfo"`
	Active      bool           `json:"active"`
}

type willTuple struct {
	Beneficiary common.Address
	AssetType   uint8
	AssetInfo   AssetInfo
	Active      bool
}

type callArgs struct {
	From *common.Address `json:"from,omitempty"`
	To   common.Address  `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

// Binding issues calls and transactions against one deployed contract.
type Binding struct {
	abi      abi.ABI
	address  common.Address
	provider provider.Provider
}

// New parses the will ABI and binds it to address through p.
func New(p provider.Provider, address common.Address) (*Binding, error) {
	parsed, err := abi.JSON(strings.NewReader(WillABI))
	if err != nil {
		return nil, fmt.Errorf("parsing will ABI: %w", err)
	}
	return &Binding{abi: parsed, address: address, provider: p}, nil
}

// Address returns the bound contract address.
func (b *Binding) Address() common.Address {
	return b.address
}

// ABI returns the parsed contract ABI.
func (b *Binding) ABI() *abi.ABI {
	return &b.abi
}

// OwnerOf returns the owner of tokenID. A reverted lookup means the token
// does not exist and is reported as ErrNoSuchToken.
func (b *Binding) OwnerOf(ctx context.Context, tokenID uint64) (common.Address, error) {
	out, err := b.call(ctx, FuncOwnerOf, new(big.Int).SetUint64(tokenID))
	if err != nil {
		if provider.IsRevert(err) {
			return common.Address{}, tmerr.WithDetails(
				tmerr.Because(ErrNoSuchToken, err),
				map[string]string{"token_id": fmt.Sprint(tokenID)},
			)
		}
		return common.Address{}, err
	}

	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("ownerOf(%d): unexpected output %T", tokenID, out[0])
	}
	return owner, nil
}

// Wills reads the will record stored under tokenID.
func (b *Binding) Wills(ctx context.Context, tokenID uint64) (Will, error) {
	data, err := b.callRaw(ctx, FuncWills, new(big.Int).SetUint64(tokenID))
	if err != nil {
		return Will{}, err
	}

	var tuple willTuple
	if err := b.abi.UnpackIntoInterface(&tuple, FuncWills, data); err != nil {
		return Will{}, fmt.Errorf("decoding wills(%d): %w", tokenID, err)
	}
	return Will{
		TokenID:     tokenID,
		Beneficiary: tuple.Beneficiary,
		AssetType:   tuple.AssetType,
		AssetInfo:   tuple.AssetInfo,
		Active:      tuple.Active,
	}, nil
}

// TokenURI reads tokenURI(tokenID).
func (b *Binding) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	out, err := b.call(ctx, FuncTokenURI, new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", err
	}
	uri, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("tokenURI(%d): unexpected output %T", tokenID, out[0])
	}
	return uri, nil
}

// MintNFT submits mintNFT from the given account and returns the tx hash.
func (b *Binding) MintNFT(ctx context.Context, from, beneficiary common.Address, assetType uint8,
	assetAddress common.Address, amountOrID *big.Int, metadata string,
) (common.Hash, error) {
	return b.transact(ctx, from, FuncMintNFT, beneficiary, assetType, assetAddress, amountOrID, metadata)
}

// CheckIn submits checkIn(tokenID).
func (b *Binding) CheckIn(ctx context.Context, from common.Address, tokenID uint64) (common.Hash, error) {
	return b.transact(ctx, from, FuncCheckIn, new(big.Int).SetUint64(tokenID))
}

// ExecuteWill submits executeWill(tokenID).
func (b *Binding) ExecuteWill(ctx context.Context, from common.Address, tokenID uint64) (common.Hash, error) {
	return b.transact(ctx, from, FuncExecuteWill, new(big.Int).SetUint64(tokenID))
}

func (b *Binding) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := b.callRaw(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	out, err := b.abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("decoding %s: no outputs", method)
	}
	return out, nil
}

func (b *Binding) callRaw(ctx context.Context, method string, args ...any) ([]byte, error) {
	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}

	raw, err := b.provider.Request(ctx, provider.MethodCall, callArgs{To: b.address, Data: input}, "latest")
	if err != nil {
		return nil, err
	}

	var data hexutil.Bytes
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	if len(data) == 0 {
		return nil, tmerr.WithSuggestion(
			tmerr.WithDetails(tmerr.ErrNotFound, map[string]string{"contract": b.address.Hex(), "method": method}),
			"check contract.address in your config and that the node has the contract deployed",
		)
	}
	return data, nil
}

func (b *Binding) transact(ctx context.Context, from common.Address, method string, args ...any) (common.Hash, error) {
	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding %s: %w", method, err)
	}

	to := b.address
	raw, err := b.provider.Request(ctx, provider.MethodSendTransaction, provider.TxArgs{
		From: from,
		To:   &to,
		Data: input,
	})
	if err != nil {
		return common.Hash{}, err
	}

	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return common.Hash{}, fmt.Errorf("decoding %s tx hash: %w", method, err)
	}
	return hash, nil
}
