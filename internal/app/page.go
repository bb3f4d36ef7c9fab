// Package app is the presentation controller shared by the CLI and the web
// page. A Page owns the connect state and the list of wills; every action
// reports its outcome as a notification.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/testament/internal/contract"
	"github.com/mrz1836/testament/internal/output"
	"github.com/mrz1836/testament/internal/session"
	"github.com/mrz1836/testament/internal/willclient"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// State is the connection state of a page.
type State string

// Page states.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Wallet is the part of willclient.Client the page drives.
type Wallet interface {
	Connect(ctx context.Context) error
	ConnectSilently(ctx context.Context, account common.Address) error
	Disconnect()
	IsConnected() bool
	Account() common.Address
	ChainID() uint64
	WillsForUser(ctx context.Context) ([]willclient.Will, error)
	MintNFT(ctx context.Context, req willclient.MintRequest) (common.Hash, error)
	CheckIn(ctx context.Context, tokenID uint64) (common.Hash, error)
}

// SessionStore persists the remembered connection.
type SessionStore interface {
	Save(providerKind string, account common.Address, chainID uint64) (*session.Record, error)
	Load() (*session.Record, error)
	Clear() error
}

// Logger is the logging surface used by the page.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Options configures a Page.
type Options struct {
	Notifier     Notifier
	Sessions     SessionStore
	ProviderKind string
	Logger       Logger
}

// MintForm is the create-will form.
type MintForm struct {
	Beneficiary   string `json:"beneficiary"`
	AssetAddress  string `json:"asset_address"`
	AmountOrID    string `json:"amount_or_id"`
	AmountInEther bool   `json:"amount_in_ether"`
	Metadata      string `json:"metadata"`
	ImageURL      string `json:"image_url"`
}

// Snapshot is a point-in-time view of the page.
type Snapshot struct {
	State   State          `json:"state"`
	Account common.Address `json:"account"`
	ChainID uint64         `json:"chain_id"`
	Loading bool           `json:"loading"`
	Wills   []Card         `json:"wills"`
}

// Page drives a Wallet and keeps the view state.
type Page struct {
	wallet   Wallet
	notifier Notifier
	sessions SessionStore
	kind     string
	logger   Logger
	now      func() time.Time

	mu      sync.Mutex
	state   State
	loading bool
	wills   []willclient.Will
}

// NewPage returns a disconnected page.
func NewPage(w Wallet, opts Options) *Page {
	p := &Page{
		wallet:   w,
		notifier: opts.Notifier,
		sessions: opts.Sessions,
		kind:     opts.ProviderKind,
		logger:   opts.Logger,
		now:      time.Now,
		state:    StateDisconnected,
	}
	if p.notifier == nil {
		p.notifier = NotifierFunc(func(Notification) {})
	}
	if p.logger == nil {
		p.logger = nopLogger{}
	}
	return p
}

// State returns the connection state.
func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Wills returns a copy of the loaded wills.
func (p *Page) Wills() []willclient.Will {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]willclient.Will(nil), p.wills...)
}

// Snapshot returns the current view.
func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	state, loading := p.state, p.loading
	p.mu.Unlock()

	snap := Snapshot{State: state, Loading: loading, Wills: p.Cards()}
	if state == StateConnected {
		snap.Account = p.wallet.Account()
		snap.ChainID = p.wallet.ChainID()
	}
	return snap
}

// Mount restores a remembered connection without prompting and loads the
// list. A missing or stale session is not an error; a failed load is.
func (p *Page) Mount(ctx context.Context) error {
	if p.wallet.IsConnected() {
		// The wallet was connected without going through the page.
		if p.State() != StateDisconnected || !p.begin() {
			return nil
		}
		p.finish(true)
		return p.Refresh(ctx)
	}
	if p.sessions == nil {
		return nil
	}
	rec, err := p.sessions.Load()
	if err != nil {
		p.logger.Debug("no session to restore: %v", err)
		return nil
	}

	if !p.begin() {
		return nil
	}
	if err := p.wallet.ConnectSilently(ctx, rec.Account); err != nil {
		p.logger.Debug("silent reconnect of %s failed: %v", rec.Account.Hex(), err)
		p.finish(false)
		return nil
	}
	if !p.finish(true) {
		p.logger.Debug("wallet dropped %s during silent reconnect", rec.Account.Hex())
		return nil
	}
	return p.Refresh(ctx)
}

// Connect prompts the wallet for access. It returns false without doing
// anything while another connect is in flight.
func (p *Page) Connect(ctx context.Context) (bool, error) {
	if !p.begin() {
		return false, nil
	}

	if err := p.wallet.Connect(ctx); err != nil {
		p.finish(false)
		p.notify(output.LevelError, "Connection Failed", err.Error())
		return true, err
	}
	if !p.finish(true) {
		p.notify(output.LevelError, "Connection Failed", tmerr.ErrNotConnected.Error())
		return true, tmerr.ErrNotConnected
	}
	p.notify(output.LevelSuccess, "Wallet Connected", "Successfully connected to your wallet")

	if p.sessions != nil {
		if _, err := p.sessions.Save(p.kind, p.wallet.Account(), p.wallet.ChainID()); err != nil {
			p.logger.Error("saving session: %v", err)
		}
	}
	return true, p.Refresh(ctx)
}

// Refresh reloads the list of wills. It does nothing while disconnected.
func (p *Page) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateConnected {
		p.mu.Unlock()
		return nil
	}
	p.loading = true
	p.mu.Unlock()

	wills, err := p.wallet.WillsForUser(ctx)

	p.mu.Lock()
	p.loading = false
	if err == nil {
		p.wills = wills
	}
	p.mu.Unlock()

	if err != nil {
		p.notify(output.LevelError, "Failed to Load Wills", err.Error())
	}
	return err
}

// Mint creates a will from form. The asset type is always the token type.
func (p *Page) Mint(ctx context.Context, form MintForm) (common.Hash, error) {
	if !p.wallet.IsConnected() {
		p.notify(output.LevelError, "Not Connected", "Please connect your wallet first")
		return common.Hash{}, tmerr.ErrNotConnected
	}

	hash, err := p.wallet.MintNFT(ctx, willclient.MintRequest{
		Beneficiary:   form.Beneficiary,
		AssetType:     contract.AssetTypeToken,
		AssetAddress:  form.AssetAddress,
		AmountOrID:    form.AmountOrID,
		AmountInEther: form.AmountInEther,
		Metadata:      form.Metadata,
		ImageURL:      form.ImageURL,
	})
	if err != nil {
		p.notify(output.LevelError, "Creation Failed", err.Error())
		return hash, err
	}
	p.notify(output.LevelSuccess, "Will Created", "Successfully created new digital will")
	return hash, p.Refresh(ctx)
}

// CheckIn records a check-in for tokenID.
func (p *Page) CheckIn(ctx context.Context, tokenID uint64) (common.Hash, error) {
	if !p.wallet.IsConnected() {
		p.notify(output.LevelError, "Not Connected", "Please connect your wallet first")
		return common.Hash{}, tmerr.ErrNotConnected
	}

	hash, err := p.wallet.CheckIn(ctx, tokenID)
	if err != nil {
		p.notify(output.LevelError, "Check-in Failed", err.Error())
		return hash, err
	}
	p.notify(output.LevelSuccess, "Checked In", fmt.Sprintf("Successfully checked in for will #%d", tokenID))
	return hash, p.Refresh(ctx)
}

// Disconnect logs out: the wallet handle and the remembered session are
// both dropped.
func (p *Page) Disconnect() {
	p.wallet.Disconnect()
	if p.sessions != nil {
		if err := p.sessions.Clear(); err != nil {
			p.logger.Error("clearing session: %v", err)
		}
	}
	p.reset()
	p.notify(output.LevelInfo, "Disconnected", "")
}

// Invalidate returns the page to the disconnected state after the wallet
// changed chain or account. The next action starts a new session.
func (p *Page) Invalidate(reason string) {
	p.logger.Debug("page invalidated: %s", reason)
	p.reset()
}

func (p *Page) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateDisconnected
	p.loading = false
	p.wills = nil
}

// begin moves to Connecting unless a connect is already running.
func (p *Page) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateConnecting {
		return false
	}
	p.state = StateConnecting
	return true
}

// finish ends a connect. Success only counts while the wallet still holds
// the connection; it may have been dropped by a change event meanwhile.
// It reports whether the page ended up connected.
func (p *Page) finish(ok bool) bool {
	ok = ok && p.wallet.IsConnected()
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.state = StateConnected
		return true
	}
	p.state = StateDisconnected
	p.wills = nil
	return false
}

func (p *Page) notify(level output.Level, title, msg string) {
	p.notifier.Notify(Notification{Level: level, Title: title, Message: msg, Time: p.now()})
}
