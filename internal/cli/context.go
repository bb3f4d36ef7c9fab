package cli

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/testament/internal/app"
	"github.com/mrz1836/testament/internal/config"
	"github.com/mrz1836/testament/internal/keystore"
	"github.com/mrz1836/testament/internal/metrics"
	"github.com/mrz1836/testament/internal/output"
	"github.com/mrz1836/testament/internal/provider"
	"github.com/mrz1836/testament/internal/session"
	"github.com/mrz1836/testament/internal/willclient"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Log     *config.Logger
	Fmt     *output.Formatter
	Metrics *metrics.Metrics
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(
	c *config.Config,
	log *config.Logger,
	f *output.Formatter,
	m *metrics.Metrics,
) *CommandContext {
	if log == nil {
		log = config.NullLogger()
	}
	if m == nil {
		m = metrics.Global
	}
	return &CommandContext{Cfg: c, Log: log, Fmt: f, Metrics: m}
}

type cmdCtxKey struct{}

func withCommandContext(ctx context.Context, cc *CommandContext) context.Context {
	return context.WithValue(ctx, cmdCtxKey{}, cc)
}

// GetCmdContext returns the command context attached by initGlobals, falling
// back to the package global.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if ctx := cmd.Context(); ctx != nil {
		if cc, ok := ctx.Value(cmdCtxKey{}).(*CommandContext); ok {
			return cc
		}
	}
	return cmdCtx
}

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, d)
}

// newWalletFn builds the wallet a command drives. watch enables provider
// change events. Tests replace it.
//
//nolint:gochecknoglobals // Replaceable for testing
var newWalletFn = newWillClient

func newWillClient(cc *CommandContext, watch bool, onInvalidate func(string)) (app.Wallet, func(), error) {
	c := cc.Cfg
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	transport := provider.NewTransport(c.GetRPC(),
		provider.WithRateLimiter(provider.NewRateLimiter(c.Network.RateLimit, c.Network.RateBurst)),
		provider.WithLogger(cc.Log.With("rpc")),
		provider.WithMetrics(cc.Metrics),
	)

	var interval time.Duration
	if watch {
		interval = c.GetWatchInterval()
	}

	var p interface {
		provider.Provider
		Close() error
	}
	switch c.GetProviderKind() {
	case config.ProviderKeystore:
		p = provider.NewKeystoreProvider(transport, provider.KeystoreOptions{
			Unlock:        unlockKey(keystore.NewStore(c.GetKeyFile())),
			WatchInterval: interval,
			Logger:        cc.Log.With("keystore"),
		})
	default:
		p = provider.NewNodeProvider(transport, provider.NodeOptions{
			WatchInterval: interval,
			Logger:        cc.Log.With("node"),
		})
	}

	client := willclient.New(p, willclient.Options{
		Contract:     common.HexToAddress(c.GetContract()),
		ChainID:      uint64(c.GetChainID()), //nolint:gosec // Validate rejects non-positive chain ids
		ScanLimit:    c.GetScanLimit(),
		ReceiptPoll:  c.GetReceiptPollInterval(),
		Logger:       cc.Log.With("wills"),
		Metrics:      cc.Metrics,
		OnInvalidate: onInvalidate,
	})

	closeFn := func() {
		client.Disconnect()
		if err := p.Close(); err != nil {
			cc.Log.Error("closing provider: %v", err)
		}
	}
	return client, closeFn, nil
}

// unlockKey prompts for the key password the first time the provider needs
// to sign. An empty password declines the request.
func unlockKey(store *keystore.Store) provider.Unlocker {
	return func(_ context.Context) (provider.Signer, error) {
		if !store.Exists() {
			return nil, tmerr.WithSuggestion(tmerr.ErrKeyNotFound, noKeySuggestion)
		}

		password, err := promptPasswordFn("Enter key password: ")
		if err != nil {
			return nil, err
		}
		defer clear(password)

		if len(password) == 0 {
			return nil, provider.ErrRejected
		}
		key, err := store.Load(string(password))
		if err != nil {
			return nil, err
		}
		return key, nil
	}
}

// sessionStore returns the remembered-connection store, or nil when
// sessions are disabled.
func (cc *CommandContext) sessionStore() app.SessionStore {
	ttl := cc.Cfg.GetSessionTTL()
	if ttl <= 0 {
		return nil
	}
	return session.NewStore(cc.Cfg.GetSessionFile(), session.ClampTTL(ttl))
}

// walletPage is a page bound to a freshly built wallet.
type walletPage struct {
	*app.Page
	wallet  app.Wallet
	closeFn func()
}

// Close tears the wallet down.
func (w *walletPage) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// openPage builds the wallet and a page over it. Change events invalidate
// the page.
func openPage(cc *CommandContext, notifier app.Notifier, watch bool) (*walletPage, error) {
	var page *app.Page
	wallet, closeFn, err := newWalletFn(cc, watch, func(reason string) {
		if page != nil {
			page.Invalidate(reason)
		}
	})
	if err != nil {
		return nil, err
	}

	page = app.NewPage(wallet, app.Options{
		Notifier:     notifier,
		Sessions:     cc.sessionStore(),
		ProviderKind: cc.Cfg.GetProviderKind(),
		Logger:       cc.Log.With("page"),
	})
	return &walletPage{Page: page, wallet: wallet, closeFn: closeFn}, nil
}

// commandNotifier prints page notifications for a one-shot command. Errors
// are skipped because the failing command returns them and Execute prints
// them with their details.
func commandNotifier(cmd *cobra.Command, cc *CommandContext) app.Notifier {
	w := cmd.OutOrStdout()
	if cc.Fmt != nil {
		w = cc.Fmt.Notices()
	}
	printer := app.NewWriterNotifier(w)
	return app.NotifierFunc(func(n app.Notification) {
		cc.Log.Debug("notification [%s] %s: %s", n.Level, n.Title, n.Message)
		if n.Level == output.LevelError {
			return
		}
		printer.Notify(n)
	})
}

// ensureConnected restores the remembered session or prompts for a new
// connection. A restored session whose list fails to load is an error.
func ensureConnected(ctx context.Context, wp *walletPage) error {
	if err := wp.Mount(ctx); err != nil {
		return err
	}
	if wp.State() == app.StateConnected {
		return nil
	}
	_, err := wp.Connect(ctx)
	return err
}
