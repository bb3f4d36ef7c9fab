package keystore

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/mrz1836/testament/internal/fileutil"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// Store is the encrypted key file.
type Store struct {
	path       string
	workFactor int
}

// NewStore returns a store for the key file at path.
func NewStore(path string) *Store {
	return &Store{path: path, workFactor: DefaultWorkFactor}
}

// SetWorkFactor overrides the scrypt cost used when saving.
func (s *Store) SetWorkFactor(logN int) {
	s.workFactor = logN
}

// Path returns the key file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a key file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save encrypts key with password. An existing file is replaced only when
// overwrite is set.
func (s *Store) Save(key *Key, password string, overwrite bool) error {
	if password == "" {
		return tmerr.WithSuggestion(tmerr.ErrInvalidInput, "a non-empty password is required")
	}
	if s.Exists() && !overwrite {
		return tmerr.WithDetails(tmerr.ErrKeyExists, map[string]string{"path": s.path})
	}

	encoded := []byte(hex.EncodeToString(key.bytes()))
	defer clear(encoded)

	ciphertext, err := Encrypt(encoded, password, s.workFactor)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	if overwrite {
		return fileutil.WriteAtomic(s.path, ciphertext, 0o600)
	}
	err = fileutil.CreateAtomic(s.path, ciphertext, 0o600)
	if errors.Is(err, os.ErrExist) {
		return tmerr.WithDetails(tmerr.ErrKeyExists, map[string]string{"path": s.path})
	}
	return err
}

// Load decrypts the key file with password.
func (s *Store) Load(password string) (*Key, error) {
	// #nosec G304 -- key path is from validated config
	ciphertext, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, tmerr.WithSuggestion(
				tmerr.WithDetails(tmerr.ErrKeyNotFound, map[string]string{"path": s.path}),
				"run 'testament key new' or 'testament key import'",
			)
		}
		return nil, err
	}

	secret, err := Decrypt(ciphertext, password)
	if err != nil {
		return nil, err
	}
	defer secret.Destroy()

	raw := make([]byte, hex.DecodedLen(len(secret.Bytes())))
	if _, err := hex.Decode(raw, secret.Bytes()); err != nil {
		clear(raw)
		return nil, tmerr.Because(tmerr.ErrDecryptionFailed, errors.New("key file content is not a hex private key"))
	}
	return NewKey(SecureBytesFrom(raw))
}
