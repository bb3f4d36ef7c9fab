// Package session remembers the last successful wallet connection so the
// next run can reconnect without prompting. The record holds no secrets:
// only the provider kind, the account and the chain it was connected on.
package session

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Default session configuration values.
const (
	// DefaultTTL is the default session duration (24 hours).
	DefaultTTL = 24 * time.Hour

	// MaxTTL is the maximum allowed session duration (30 days).
	MaxTTL = 30 * 24 * time.Hour

	// MinTTL is the minimum allowed session duration (1 minute).
	MinTTL = 1 * time.Minute
)

// Session errors.
var (
	// ErrSessionNotFound indicates no session record exists.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session has expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionCorrupted indicates the session file could not be parsed.
	ErrSessionCorrupted = errors.New("session corrupted")
)

// Record is the persisted artifact of a successful connect.
type Record struct {
	Provider  string         `json:"provider"`
	Account   common.Address `json:"account"`
	ChainID   uint64         `json:"chain_id"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// IsValid returns true if the session has not expired at now.
func (r *Record) IsValid(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// Remaining returns the time left before expiry, or 0 once expired.
func (r *Record) Remaining(now time.Time) time.Duration {
	remaining := r.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ClampTTL bounds ttl to [MinTTL, MaxTTL]. Zero selects DefaultTTL.
func ClampTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl == 0:
		return DefaultTTL
	case ttl < MinTTL:
		return MinTTL
	case ttl > MaxTTL:
		return MaxTTL
	}
	return ttl
}
