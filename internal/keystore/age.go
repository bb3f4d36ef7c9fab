package keystore

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// DefaultWorkFactor is the scrypt log2(N) used for new key files.
const DefaultWorkFactor = 18

// Encrypt seals plaintext for password as an ASCII-armored age file.
func Encrypt(plaintext []byte, password string, workFactor int) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if workFactor > 0 {
		recipient.SetWorkFactor(workFactor)
	}

	buf := &bytes.Buffer{}
	aw := armor.NewWriter(buf)
	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return nil, fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("encrypting: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return nil, fmt.Errorf("finishing armor: %w", err)
	}

	return buf.Bytes(), nil
}

// Decrypt opens an armored age file into secure memory. Any failure,
// including a wrong password, is reported as ErrDecryptionFailed.
func Decrypt(ciphertext []byte, password string) (*SecureBytes, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, tmerr.Because(tmerr.ErrDecryptionFailed, err)
	}

	r, err := age.Decrypt(armor.NewReader(bytes.NewReader(ciphertext)), identity)
	if err != nil {
		return nil, tmerr.Because(tmerr.ErrDecryptionFailed, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		clear(plaintext)
		return nil, tmerr.Because(tmerr.ErrDecryptionFailed, err)
	}

	return SecureBytesFrom(plaintext), nil
}
