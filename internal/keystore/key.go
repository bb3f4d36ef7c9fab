package keystore

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// Key is an unlocked secp256k1 signing key.
type Key struct {
	secret  *SecureBytes
	address common.Address
}

// NewKey takes ownership of a 32-byte private key held in secret.
func NewKey(secret *SecureBytes) (*Key, error) {
	priv, err := crypto.ToECDSA(secret.Bytes())
	if err != nil {
		secret.Destroy()
		return nil, tmerr.WithSuggestion(
			tmerr.Wrap(tmerr.ErrInvalidInput, "invalid private key"),
			"a private key is 32 bytes of hex",
		)
	}
	return &Key{secret: secret, address: crypto.PubkeyToAddress(priv.PublicKey)}, nil
}

// GenerateKey creates a fresh random key.
func GenerateKey() (*Key, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return NewKey(SecureBytesFrom(crypto.FromECDSA(priv)))
}

// ParseHexKey parses a hex private key, with or without 0x.
func ParseHexKey(s string) (*Key, error) {
	raw := common.FromHex(s)
	if len(raw) != 32 {
		clear(raw)
		return nil, tmerr.WithDetails(tmerr.ErrInvalidInput, map[string]string{"reason": "private key must be 32 bytes"})
	}
	return NewKey(SecureBytesFrom(raw))
}

// Address returns the account controlled by the key.
func (k *Key) Address() common.Address {
	return k.address
}

// SignTx signs tx with an EIP-155 signer for chainID.
func (k *Key) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	raw := k.secret.Bytes()
	if raw == nil {
		return nil, tmerr.WithSuggestion(tmerr.Wrap(tmerr.ErrKeyNotFound, "key destroyed"), "unlock the key again")
	}
	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("loading private key: %w", err)
	}
	return types.SignTx(tx, types.NewEIP155Signer(chainID), priv)
}

// Destroy wipes the private key.
func (k *Key) Destroy() {
	k.secret.Destroy()
}

func (k *Key) bytes() []byte {
	return k.secret.Bytes()
}
