package cli

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/testament/internal/app"
	"github.com/mrz1836/testament/internal/config"
	"github.com/mrz1836/testament/internal/metrics"
	"github.com/mrz1836/testament/internal/output"
	"github.com/mrz1836/testament/internal/willclient"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

const (
	devMnemonic = "test test test test test test test test test test test junk"
	devKeyHex   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAccount0 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	devAccount1 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

	testPassword = "correct horse battery"
)

// stubWallet is an in-memory app.Wallet owned by devAccount0.
type stubWallet struct {
	mu         sync.Mutex
	connected  bool
	connectErr error
	connects   int
	silent     int
	willsErr   error
	wills      []willclient.Will
	minted     []willclient.MintRequest
	checkedIn  []uint64
	uris       map[uint64]string
	closed     bool
}

func (s *stubWallet) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connected = true
	return nil
}

func (s *stubWallet) ConnectSilently(_ context.Context, account common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent++
	if account != common.HexToAddress(devAccount0) {
		return tmerr.ErrNoAccounts
	}
	s.connected = true
	return nil
}

func (s *stubWallet) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
}

func (s *stubWallet) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *stubWallet) Account() common.Address { return common.HexToAddress(devAccount0) }
func (s *stubWallet) ChainID() uint64         { return 31337 }

func (s *stubWallet) WillsForUser(context.Context) ([]willclient.Will, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.willsErr != nil {
		return nil, s.willsErr
	}
	return append([]willclient.Will(nil), s.wills...), nil
}

func (s *stubWallet) MintNFT(_ context.Context, req willclient.MintRequest) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minted = append(s.minted, req)
	s.wills = append(s.wills, willclient.Will{
		TokenID:     uint64(len(s.wills) + 1),
		Beneficiary: common.HexToAddress(req.Beneficiary),
		Active:      true,
	})
	return common.HexToHash("0xa1"), nil
}

func (s *stubWallet) CheckIn(_ context.Context, id uint64) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkedIn = append(s.checkedIn, id)
	return common.HexToHash("0xc1"), nil
}

func (s *stubWallet) TokenURI(_ context.Context, id uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uri, ok := s.uris[id]; ok {
		return uri, nil
	}
	return "", tmerr.ErrNoSuchToken
}

// saveGlobals restores all package-level globals when the test ends.
func saveGlobals(t *testing.T) {
	t.Helper()
	origCfg, origLogger, origFormatter, origCmdCtx := cfg, logger, formatter, cmdCtx
	origHome, origOutput, origVerbose := homeDir, outputFormat, verbose
	origWallet, origBuild := newWalletFn, buildInfo
	origPW, origNewPW, origSecret := promptPasswordFn, promptNewPasswordFn, promptSecretFn
	origWork, origForce, origIndex, origWords := keyWorkFactor, keyForce, keyIndex, keyWords
	t.Cleanup(func() {
		cfg, logger, formatter, cmdCtx = origCfg, origLogger, origFormatter, origCmdCtx
		homeDir, outputFormat, verbose = origHome, origOutput, origVerbose
		newWalletFn, buildInfo = origWallet, origBuild
		promptPasswordFn, promptNewPasswordFn, promptSecretFn = origPW, origNewPW, origSecret
		keyWorkFactor, keyForce, keyIndex, keyWords = origWork, origForce, origIndex, origWords
	})
}

// newTestCommand wires the globals to a fresh home directory and returns a
// command whose stdout is captured. Notices printed in JSON mode go to
// io.Discard.
func newTestCommand(t *testing.T, format output.Format) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	saveGlobals(t)

	c := config.Defaults()
	c.Home = t.TempDir()
	c.Logging.Level = "off"

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)

	cfg = c
	logger = config.NullLogger()
	formatter = output.NewFormatter(format, &buf)
	cmdCtx = NewCommandContext(cfg, logger, formatter, &metrics.Metrics{})
	cmd.SetContext(withCommandContext(context.Background(), cmdCtx))

	keyWorkFactor = 10
	return cmd, &buf
}

// useWallet makes commands drive w.
func useWallet(t *testing.T, w *stubWallet) {
	t.Helper()
	newWalletFn = func(*CommandContext, bool, func(string)) (app.Wallet, func(), error) {
		return w, func() {
			w.mu.Lock()
			w.closed = true
			w.mu.Unlock()
		}, nil
	}
}

// withPasswords answers password prompts in order, repeating the last one.
func withPasswords(t *testing.T, passwords ...string) {
	t.Helper()
	i := 0
	promptPasswordFn = func(string) ([]byte, error) {
		p := passwords[min(i, len(passwords)-1)]
		i++
		return []byte(p), nil
	}
	promptNewPasswordFn = promptNewPassword
}
