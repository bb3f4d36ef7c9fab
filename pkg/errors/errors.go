// Package errors provides structured error handling for Testament.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess     = 0 // Successful execution
	ExitGeneral     = 1 // General/unknown error
	ExitInput       = 2 // Invalid input
	ExitAuth        = 3 // Rejected or failed authorization
	ExitNotFound    = 4 // Resource not found
	ExitEnvironment = 5 // Wallet or network environment not usable
)

// TestamentError is the structured error type for Testament.
type TestamentError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *TestamentError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Details)) {
		fmt.Fprintf(&b, " (%s: %s)", k, e.Details[k])
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *TestamentError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for TestamentError. Two errors match when their
// codes match.
func (e *TestamentError) Is(target error) bool {
	var t *TestamentError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Generic errors.
var (
	ErrGeneral = &TestamentError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &TestamentError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &TestamentError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrInvalidAddress = &TestamentError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrNetworkError = &TestamentError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrConfigNotFound = &TestamentError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &TestamentError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &TestamentError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		ExitCode: ExitInput,
	}
)

// Wallet connection errors.
var (
	ErrWalletNotInstalled = &TestamentError{
		Code:       "WALLET_NOT_INSTALLED",
		Message:    "wallet is not installed",
		Suggestion: "configure a provider with 'testament config init' or import a key with 'testament key import'",
		ExitCode:   ExitEnvironment,
	}

	ErrNoAccounts = &TestamentError{
		Code:       "NO_ACCOUNTS",
		Message:    "no accounts found",
		Suggestion: "unlock your wallet and try again",
		ExitCode:   ExitAuth,
	}

	ErrWrongNetwork = &TestamentError{
		Code:     "WRONG_NETWORK",
		Message:  "connected to the wrong network",
		ExitCode: ExitEnvironment,
	}

	ErrUserRejected = &TestamentError{
		Code:     "USER_REJECTED",
		Message:  "please accept the connection request in your wallet",
		ExitCode: ExitAuth,
	}

	ErrNotConnected = &TestamentError{
		Code:       "NOT_CONNECTED",
		Message:    "please connect your wallet first",
		Suggestion: "run 'testament connect'",
		ExitCode:   ExitAuth,
	}

	ErrKeyNotFound = &TestamentError{
		Code:     "KEY_NOT_FOUND",
		Message:  "signing key not found",
		ExitCode: ExitNotFound,
	}

	ErrKeyExists = &TestamentError{
		Code:     "KEY_EXISTS",
		Message:  "signing key already exists",
		ExitCode: ExitInput,
	}

	ErrDecryptionFailed = &TestamentError{
		Code:     "DECRYPTION_FAILED",
		Message:  "decryption failed - wrong password or corrupted file",
		ExitCode: ExitAuth,
	}

	ErrInvalidMnemonic = &TestamentError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}
)

// Contract operation errors.
var (
	ErrFetchWills = &TestamentError{
		Code:     "FETCH_WILLS_FAILED",
		Message:  "failed to fetch your digital wills",
		ExitCode: ExitGeneral,
	}

	ErrMintFailed = &TestamentError{
		Code:     "MINT_FAILED",
		Message:  "failed to create digital will",
		ExitCode: ExitGeneral,
	}

	ErrCheckInFailed = &TestamentError{
		Code:     "CHECKIN_FAILED",
		Message:  "failed to check in",
		ExitCode: ExitGeneral,
	}

	ErrNoSuchToken = &TestamentError{
		Code:     "NO_SUCH_TOKEN",
		Message:  "token does not exist",
		ExitCode: ExitNotFound,
	}

	ErrTxReverted = &TestamentError{
		Code:     "TX_REVERTED",
		Message:  "transaction reverted",
		ExitCode: ExitGeneral,
	}

	ErrInvalidMetadata = &TestamentError{
		Code:     "INVALID_METADATA",
		Message:  "metadata is not a JSON object",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &TestamentError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount or token id",
		ExitCode: ExitInput,
	}
)

// New creates a new TestamentError with the given code and message.
func New(code, message string) *TestamentError {
	return &TestamentError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// derive copies the TestamentError inside err and applies edit to the copy.
// A plain error becomes a GENERAL_ERROR caused by it. Sentinels are never
// modified in place.
func derive(err error, edit func(*TestamentError)) error {
	if err == nil {
		return nil
	}
	var out TestamentError
	var te *TestamentError
	if errors.As(err, &te) {
		out = *te
	} else {
		out = TestamentError{Code: "GENERAL_ERROR", Message: err.Error(), Cause: err, ExitCode: ExitGeneral}
	}
	edit(&out)
	return &out
}

// Wrap prefixes the error message with context. A plain error keeps only the
// context as message and becomes the cause.
func Wrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var te *TestamentError
	plain := !errors.As(err, &te)
	return derive(err, func(e *TestamentError) {
		if plain {
			e.Message = msg
			return
		}
		e.Message = msg + ": " + e.Message
	})
}

// Because returns a copy of the sentinel with cause attached. The result
// still matches the sentinel under errors.Is.
func Because(sentinel *TestamentError, cause error) error {
	return derive(sentinel, func(e *TestamentError) { e.Cause = cause })
}

// WithDetails replaces the details of err.
func WithDetails(err error, details map[string]string) error {
	return derive(err, func(e *TestamentError) { e.Details = details })
}

// WithSuggestion sets the hint shown under the error.
func WithSuggestion(err error, suggestion string) error {
	return derive(err, func(e *TestamentError) { e.Suggestion = suggestion })
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var te *TestamentError
	if errors.As(err, &te) {
		return te.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var te *TestamentError
	if errors.As(err, &te) {
		return te.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
