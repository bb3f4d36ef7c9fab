package output

import (
	"io"
	"os"
	"strconv"

	"github.com/mdp/qrterminal/v3"
	"golang.org/x/term"
	"rsc.io/qr"
)

// AccountURI returns an EIP-681 "ethereum:" URI for address. A non-zero
// chainID pins the URI to that network so wallets do not scan it on mainnet.
func AccountURI(address string, chainID uint64) string {
	uri := "ethereum:" + address
	if chainID != 0 {
		uri += "@" + strconv.FormatUint(chainID, 10)
	}
	return uri
}

// QROption tunes how WriteQR draws a code.
type QROption func(*qrterminal.Config)

// WithQRLevel sets the error correction level. The default is qr.M.
func WithQRLevel(level qr.Level) QROption {
	return func(c *qrterminal.Config) { c.Level = level }
}

// WithQuietZone sets the blank border width in modules. The default is 1.
func WithQuietZone(n int) QROption {
	return func(c *qrterminal.Config) { c.QuietZone = n }
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
}

// WriteQR draws payload as a half-block QR code. Pipes and files get
// nothing; the return value reports whether a code was drawn.
func WriteQR(w io.Writer, payload string, opts ...QROption) bool {
	if payload == "" || !IsTerminal(w) {
		return false
	}
	qrterminal.GenerateWithConfig(payload, qrConfig(w, opts...))
	return true
}

func qrConfig(w io.Writer, opts ...QROption) qrterminal.Config {
	c := qrterminal.Config{
		Level:          qr.M,
		Writer:         w,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
