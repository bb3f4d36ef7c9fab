// Package provider implements the wallet boundary: an EIP-1193 style
// request/event interface backed by a JSON-RPC node, either with
// node-managed accounts or with a locally held signing key.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// JSON-RPC methods used by the wallet and contract layers.
const (
	MethodRequestAccounts    = "eth_requestAccounts"
	MethodAccounts           = "eth_accounts"
	MethodChainID            = "eth_chainId"
	MethodCall               = "eth_call"
	MethodSendTransaction    = "eth_sendTransaction"
	MethodSendRawTransaction = "eth_sendRawTransaction"
	MethodGetReceipt         = "eth_getTransactionReceipt"
	MethodGetTxCount         = "eth_getTransactionCount"
	MethodGasPrice           = "eth_gasPrice"
	MethodEstimateGas        = "eth_estimateGas"
)

// Events emitted to listeners registered with On.
const (
	EventChainChanged    = "chainChanged"
	EventAccountsChanged = "accountsChanged"
)

// EIP-1193 and JSON-RPC error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupported       = 4200
	CodeExecutionReverted = 3
)

// Listener receives event payloads: the new chain id as a hex string for
// chainChanged, the exposed accounts as []string for accountsChanged.
type Listener func(payload any)

// Provider is the wallet boundary the will client talks to.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	On(event string, listener Listener)
	RemoveAllListeners(event string)
}

// Logger is the logging surface used by this package.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Error is a provider or JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode returns the EIP-1193 or JSON-RPC code, matching go-ethereum's
// rpc.Error interface.
func (e *Error) ErrorCode() int { return e.Code }

// ErrRejected is returned when the account holder declines a request.
//
//nolint:gochecknoglobals // Sentinel error value
var ErrRejected = &Error{Code: CodeUserRejected, Message: "User rejected the request."}

// IsUserRejected reports whether err is an EIP-1193 user rejection.
func IsUserRejected(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == CodeUserRejected
}

// IsRevert reports whether err is a contract execution revert. Anvil reports
// code 3; Hardhat reports -32603 with a "reverted" message.
func IsRevert(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == CodeExecutionReverted || strings.Contains(strings.ToLower(pe.Message), "revert")
}

// RevertReason returns the decoded Error(string) reason carried by a revert,
// or the provider message when the data cannot be decoded.
func RevertReason(err error) string {
	var pe *Error
	if !errors.As(err, &pe) {
		return ""
	}

	var raw string
	if json.Unmarshal(pe.Data, &raw) != nil {
		var nested struct {
			Data string `json:"data"`
		}
		if json.Unmarshal(pe.Data, &nested) == nil {
			raw = nested.Data
		}
	}
	if raw != "" {
		if data, decErr := hexutil.Decode(raw); decErr == nil {
			if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
				return reason
			}
		}
	}
	return pe.Message
}

// DecodeAccounts decodes an eth_accounts style result.
func DecodeAccounts(raw json.RawMessage) ([]common.Address, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding accounts: %w", err)
	}

	accounts := make([]common.Address, 0, len(list))
	for _, a := range list {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("decoding accounts: invalid address %q", a)
		}
		accounts = append(accounts, common.HexToAddress(a))
	}
	return accounts, nil
}

// DecodeUint64 decodes a hex quantity result such as eth_chainId.
func DecodeUint64(raw json.RawMessage) (uint64, error) {
	var q hexutil.Uint64
	if err := json.Unmarshal(raw, &q); err != nil {
		return 0, fmt.Errorf("decoding quantity: %w", err)
	}
	return uint64(q), nil
}

// ChainID requests and decodes the provider's chain id.
func ChainID(ctx context.Context, p Provider) (uint64, error) {
	raw, err := p.Request(ctx, MethodChainID)
	if err != nil {
		return 0, err
	}
	return DecodeUint64(raw)
}

// Accounts requests accounts with method (eth_accounts or eth_requestAccounts).
func Accounts(ctx context.Context, p Provider, method string) ([]common.Address, error) {
	raw, err := p.Request(ctx, method)
	if err != nil {
		return nil, err
	}
	return DecodeAccounts(raw)
}
