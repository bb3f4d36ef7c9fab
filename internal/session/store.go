package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/testament/internal/fileutil"
)

const sessionFilePermissions = 0o600

// Store persists a single Record as JSON.
type Store struct {
	path string
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

// NewStore creates a store at path whose records live for ttl.
func NewStore(path string, ttl time.Duration) *Store {
	return &Store{path: path, ttl: ClampTTL(ttl), now: time.Now}
}

// Path returns the session file path.
func (s *Store) Path() string {
	return s.path
}

// Save records a connection of account on chainID through providerKind.
func (s *Store) Save(providerKind string, account common.Address, chainID uint64) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := &Record{
		Provider:  providerKind,
		Account:   account,
		ChainID:   chainID,
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(s.ttl).UTC(),
	}
	if err := fileutil.WriteJSONAtomic(s.path, rec, sessionFilePermissions); err != nil {
		return nil, fmt.Errorf("writing session file: %w", err)
	}
	return rec, nil
}

// Load returns the stored record. Expired and unreadable records are
// removed and reported as ErrSessionExpired and ErrSessionCorrupted.
func (s *Store) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 -- session path comes from config
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Account == (common.Address{}) {
		_ = fileutil.RemoveIfExists(s.path)
		return nil, ErrSessionCorrupted
	}

	if !rec.IsValid(s.now()) {
		_ = fileutil.RemoveIfExists(s.path)
		return nil, ErrSessionExpired
	}
	return &rec, nil
}

// Clear removes the session record. Missing files are not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fileutil.RemoveIfExists(s.path)
}
