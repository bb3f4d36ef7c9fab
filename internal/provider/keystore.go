package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// gasHeadroomPercent is added on top of eth_estimateGas.
const gasHeadroomPercent = 20

// Signer signs transactions for one account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	Destroy()
}

// Unlocker produces a Signer, typically by prompting for a password.
// Returning ErrRejected signals that the account holder declined.
type Unlocker func(ctx context.Context) (Signer, error)

// KeystoreOptions configures a KeystoreProvider.
type KeystoreOptions struct {
	Unlock        Unlocker
	WatchInterval time.Duration
	Logger        Logger
}

// KeystoreProvider signs locally with a key held in memory and sends raw
// transactions through the node. Until unlocked it exposes no accounts.
type KeystoreProvider struct {
	*events
	transport *Transport
	unlock    Unlocker
	logger    Logger

	mu     sync.Mutex
	signer Signer
}

// NewKeystoreProvider creates a provider that signs with the key returned by
// opts.Unlock.
func NewKeystoreProvider(transport *Transport, opts KeystoreOptions) *KeystoreProvider {
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	p := &KeystoreProvider{
		transport: transport,
		unlock:    opts.Unlock,
		logger:    logger,
	}
	p.events = newEvents(opts.WatchInterval, p.snapshot, logger)
	return p
}

// Request handles account and signing methods locally and forwards the rest.
func (p *KeystoreProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case MethodRequestAccounts:
		signer, err := p.unlockSigner(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal([]string{signer.Address().Hex()})
	case MethodAccounts:
		return json.Marshal(p.accounts())
	case MethodSendTransaction:
		return p.sendTransaction(ctx, params)
	default:
		return p.transport.Call(ctx, method, params...)
	}
}

// Lock forgets the signing key. The provider exposes no accounts afterwards,
// which the change watcher reports as accountsChanged.
func (p *KeystoreProvider) Lock() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signer != nil {
		p.signer.Destroy()
		p.signer = nil
	}
}

// Close stops the change watcher and forgets the key.
func (p *KeystoreProvider) Close() error {
	p.events.Close()
	p.Lock()
	return nil
}

func (p *KeystoreProvider) unlockSigner(ctx context.Context) (Signer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.signer != nil {
		return p.signer, nil
	}
	if p.unlock == nil {
		return nil, ErrRejected
	}

	signer, err := p.unlock(ctx)
	if err != nil {
		return nil, err
	}
	p.signer = signer
	p.logger.Debug("keystore unlocked for %s", signer.Address().Hex())
	return signer, nil
}

func (p *KeystoreProvider) accounts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signer == nil {
		return []string{}
	}
	return []string{p.signer.Address().Hex()}
}

// TxArgs is the eth_sendTransaction parameter object.
type TxArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
}

//nolint:gocognit // Filling a transaction requires one lookup per missing field
func (p *KeystoreProvider) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	p.mu.Lock()
	signer := p.signer
	p.mu.Unlock()
	if signer == nil {
		return nil, &Error{Code: CodeUnauthorized, Message: "keystore is locked"}
	}

	args, err := txArgsFromParams(params)
	if err != nil {
		return nil, err
	}
	if args.From != signer.Address() {
		return nil, &Error{Code: CodeUnauthorized, Message: fmt.Sprintf("account %s is not unlocked", args.From.Hex())}
	}

	chainID, err := p.quantity(ctx, MethodChainID)
	if err != nil {
		return nil, err
	}
	nonce, err := p.quantity(ctx, MethodGetTxCount, args.From.Hex(), "pending")
	if err != nil {
		return nil, err
	}

	gasPrice := (*big.Int)(args.GasPrice)
	if gasPrice == nil {
		if gasPrice, err = p.quantity(ctx, MethodGasPrice); err != nil {
			return nil, err
		}
	}

	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		estimate, estErr := p.quantity(ctx, MethodEstimateGas, args)
		if estErr != nil {
			return nil, estErr
		}
		gas = estimate.Uint64() * (100 + gasHeadroomPercent) / 100
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce.Uint64(),
		To:       args.To,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     args.Data,
	})

	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	rawTx, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}

	p.logger.Debug("sending signed tx %s nonce=%d gas=%d", signed.Hash().Hex(), nonce.Uint64(), gas)
	return p.transport.Call(ctx, MethodSendRawTransaction, hexutil.Encode(rawTx))
}

func (p *KeystoreProvider) quantity(ctx context.Context, method string, params ...any) (*big.Int, error) {
	raw, err := p.transport.Call(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	var q hexutil.Big
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return q.ToInt(), nil
}

func txArgsFromParams(params []any) (TxArgs, error) {
	var args TxArgs
	if len(params) != 1 {
		return args, &Error{Code: -32602, Message: "expected a single transaction object"}
	}

	// Params may be a TxArgs value or any JSON-compatible object.
	raw, err := json.Marshal(params[0])
	if err != nil {
		return args, fmt.Errorf("encoding transaction object: %w", err)
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, &Error{Code: -32602, Message: "invalid transaction object: " + err.Error()}
	}
	return args, nil
}

func (p *KeystoreProvider) snapshot(ctx context.Context) (snapshot, error) {
	raw, err := p.transport.Call(ctx, MethodChainID)
	if err != nil {
		return snapshot{}, err
	}
	var chainID string
	if err := json.Unmarshal(raw, &chainID); err != nil {
		return snapshot{}, err
	}
	return snapshot{chainID: chainID, accounts: p.accounts()}, nil
}
