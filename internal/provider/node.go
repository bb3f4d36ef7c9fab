package provider

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NodeOptions configures a NodeProvider.
type NodeOptions struct {
	// Account pins the provider to one of the node's accounts. When zero,
	// every account the node exposes is returned, first one primary.
	Account common.Address

	// WatchInterval controls change polling; zero disables events.
	WatchInterval time.Duration

	Logger Logger
}

// NodeProvider exposes the unlocked accounts of a development node
// (Hardhat, Anvil) and lets the node sign transactions.
type NodeProvider struct {
	*events
	transport *Transport
	account   common.Address
}

// NewNodeProvider creates a provider for the node behind transport.
func NewNodeProvider(transport *Transport, opts NodeOptions) *NodeProvider {
	p := &NodeProvider{
		transport: transport,
		account:   opts.Account,
	}
	p.events = newEvents(opts.WatchInterval, p.snapshot, opts.Logger)
	return p
}

// Request forwards method to the node. Account requests never prompt:
// node-managed accounts are always authorized.
func (p *NodeProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case MethodRequestAccounts, MethodAccounts:
		accounts, err := p.accounts(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(accounts)
	default:
		return p.transport.Call(ctx, method, params...)
	}
}

// Close stops the change watcher.
func (p *NodeProvider) Close() error {
	p.events.Close()
	return nil
}

func (p *NodeProvider) accounts(ctx context.Context) ([]string, error) {
	raw, err := p.transport.Call(ctx, MethodAccounts)
	if err != nil {
		return nil, err
	}

	var all []string
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}
	if p.account == (common.Address{}) {
		return all, nil
	}

	for _, a := range all {
		if strings.EqualFold(a, p.account.Hex()) {
			return []string{p.account.Hex()}, nil
		}
	}
	return []string{}, nil
}

func (p *NodeProvider) snapshot(ctx context.Context) (snapshot, error) {
	raw, err := p.transport.Call(ctx, MethodChainID)
	if err != nil {
		return snapshot{}, err
	}
	var chainID string
	if err := json.Unmarshal(raw, &chainID); err != nil {
		return snapshot{}, err
	}

	accounts, err := p.accounts(ctx)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{chainID: chainID, accounts: accounts}, nil
}
