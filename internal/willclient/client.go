// Package willclient is the connection and transaction wrapper around the
// digital will contract. A Client owns one connection handle (provider,
// signer account, chain id and contract binding) and exposes the reads and
// writes the front-ends need.
package willclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/testament/internal/contract"
	"github.com/mrz1836/testament/internal/metrics"
	"github.com/mrz1836/testament/internal/provider"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// Defaults applied by New for zero option values.
const (
	DefaultChainID   = 31337
	DefaultScanLimit = 100
)

// Logger is the logging surface used by the client.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Options configures a Client.
type Options struct {
	Contract    common.Address
	ChainID     uint64
	ScanLimit   int
	ReceiptPoll time.Duration
	Logger      Logger
	Metrics     *metrics.Metrics

	// OnInvalidate runs after a chain or account change has torn the
	// connection down. reason names the event.
	OnInvalidate func(reason string)
}

// Client wraps one wallet connection. The zero value is not usable; create
// clients with New.
type Client struct {
	provider provider.Provider
	opts     Options
	logger   Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	binding    *contract.Binding
	account    common.Address
	chainID    uint64
	generation uint64
}

// New creates a disconnected client. p may be nil, in which case Connect
// reports that no wallet is installed.
func New(p provider.Provider, opts Options) *Client {
	if opts.ChainID == 0 {
		opts.ChainID = DefaultChainID
	}
	if opts.ScanLimit <= 0 {
		opts.ScanLimit = DefaultScanLimit
	}
	if opts.ReceiptPoll <= 0 {
		opts.ReceiptPoll = contract.DefaultPollInterval
	}

	c := &Client{provider: p, opts: opts, logger: opts.Logger, metrics: opts.Metrics}
	if c.logger == nil {
		c.logger = nopLogger{}
	}
	if c.metrics == nil {
		c.metrics = metrics.Global
	}
	return c
}

// Connect asks the provider for account access, checks the network, and
// binds the contract for the first exposed account. Any failure leaves the
// client disconnected.
func (c *Client) Connect(ctx context.Context) error {
	err := c.connect(ctx, provider.MethodRequestAccounts, common.Address{})
	c.metrics.RecordOp(metrics.OpConnect, err)
	return err
}

// ConnectSilently restores a remembered connection without prompting. It
// succeeds only when the provider still exposes account on the expected
// chain.
func (c *Client) ConnectSilently(ctx context.Context, account common.Address) error {
	return c.connect(ctx, provider.MethodAccounts, account)
}

func (c *Client) connect(ctx context.Context, method string, want common.Address) error {
	if c.provider == nil {
		return tmerr.ErrWalletNotInstalled
	}
	c.Disconnect()

	accounts, err := provider.Accounts(ctx, c.provider, method)
	if err != nil {
		c.Disconnect()
		if provider.IsUserRejected(err) {
			return tmerr.Because(tmerr.ErrUserRejected, err)
		}
		return requestError(err, "requesting accounts")
	}
	if len(accounts) == 0 {
		c.Disconnect()
		return tmerr.ErrNoAccounts
	}

	account := accounts[0]
	if want != (common.Address{}) {
		if !containsAccount(accounts, want) {
			c.Disconnect()
			return tmerr.WithDetails(tmerr.ErrNoAccounts, map[string]string{"account": want.Hex()})
		}
		account = want
	}

	chainID, err := provider.ChainID(ctx, c.provider)
	if err != nil {
		c.Disconnect()
		return requestError(err, "reading chain id")
	}
	if chainID != c.opts.ChainID {
		c.Disconnect()
		return tmerr.WithSuggestion(
			tmerr.WithDetails(tmerr.ErrWrongNetwork, map[string]string{
				"expected": fmt.Sprint(c.opts.ChainID),
				"actual":   fmt.Sprint(chainID),
			}),
			fmt.Sprintf("switch your wallet to chain %d", c.opts.ChainID),
		)
	}

	binding, err := contract.New(c.provider, c.opts.Contract)
	if err != nil {
		c.Disconnect()
		return err
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.binding = binding
	c.account = account
	c.chainID = chainID
	c.mu.Unlock()

	c.provider.On(provider.EventChainChanged, func(any) { c.invalidate(gen, provider.EventChainChanged) })
	c.provider.On(provider.EventAccountsChanged, func(any) { c.invalidate(gen, provider.EventAccountsChanged) })

	c.logger.Debug("connected account=%s chain=%d contract=%s", account.Hex(), chainID, c.opts.Contract.Hex())
	return nil
}

// invalidate tears down the connection created in generation gen. Events
// from an older connection are ignored.
func (c *Client) invalidate(gen uint64, reason string) {
	c.mu.Lock()
	current := c.generation == gen && c.binding != nil
	c.mu.Unlock()
	if !current {
		return
	}

	c.logger.Debug("connection invalidated by %s", reason)
	c.Disconnect()
	if c.opts.OnInvalidate != nil {
		c.opts.OnInvalidate(reason)
	}
}

// Disconnect removes the change listeners and clears the connection handle.
// It is safe to call at any time.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.binding = nil
	c.account = common.Address{}
	c.chainID = 0
	c.generation++
	c.mu.Unlock()

	if c.provider != nil {
		c.provider.RemoveAllListeners(provider.EventChainChanged)
		c.provider.RemoveAllListeners(provider.EventAccountsChanged)
	}
}

// IsConnected reports whether a contract binding and signer account exist.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binding != nil && c.account != (common.Address{})
}

// Account returns the connected account, or the zero address.
func (c *Client) Account() common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

// ChainID returns the connected chain id, or 0.
func (c *Client) ChainID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chainID
}

// Contract returns the configured contract address.
func (c *Client) Contract() common.Address {
	return c.opts.Contract
}

func (c *Client) handle() (*contract.Binding, common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.binding == nil || c.account == (common.Address{}) {
		return nil, common.Address{}, tmerr.ErrNotConnected
	}
	return c.binding, c.account, nil
}

func containsAccount(accounts []common.Address, want common.Address) bool {
	for _, a := range accounts {
		if a == want {
			return true
		}
	}
	return false
}

// requestError keeps structured errors as they are and wraps the rest.
func requestError(err error, action string) error {
	var te *tmerr.TestamentError
	if errors.As(err, &te) {
		return err
	}
	return fmt.Errorf("%s: %w", action, err)
}
