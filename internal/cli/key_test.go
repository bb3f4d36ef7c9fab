package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/testament/internal/keystore"
	"github.com/mrz1836/testament/internal/output"
	"github.com/mrz1836/testament/internal/provider"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

func TestRunKeyImport_HexThenShow(t *testing.T) {
	cmd, buf := newTestCommand(t, output.FormatText)
	withPasswords(t, testPassword)
	keyForce = false

	require.NoError(t, runKeyImport(cmd, []string{"0x" + devKeyHex}))
	assert.Contains(t, buf.String(), "Address: "+devAccount0)

	buf.Reset()
	require.NoError(t, runKeyShow(cmd, nil))
	assert.Contains(t, buf.String(), "Address: "+devAccount0)
	assert.Contains(t, buf.String(), cfg.GetKeyFile())
}

func TestRunKeyImport_Mnemonic(t *testing.T) {
	cmd, buf := newTestCommand(t, output.FormatJSON)
	withPasswords(t, testPassword)
	keyForce = false
	keyIndex = 1

	promptSecretFn = func() (string, error) { return devMnemonic, nil }
	require.NoError(t, runKeyImport(cmd, nil))

	var resp KeyResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, devAccount1, resp.Address)
	assert.Empty(t, resp.Mnemonic, "imported phrases are never echoed")
}

func TestRunKeyImport_Errors(t *testing.T) {
	cmd, _ := newTestCommand(t, output.FormatText)
	withPasswords(t, testPassword)
	keyForce = false
	keyIndex = 0

	err := runKeyImport(cmd, []string{"test test test test test test test test test test test jumk"})
	require.ErrorIs(t, err, tmerr.ErrInvalidMnemonic)

	err = runKeyImport(cmd, []string{"not-hex"})
	require.Error(t, err)

	require.NoError(t, runKeyImport(cmd, []string{devKeyHex}))
	err = runKeyImport(cmd, []string{devKeyHex})
	require.ErrorIs(t, err, tmerr.ErrKeyExists)

	keyForce = true
	require.NoError(t, runKeyImport(cmd, []string{devKeyHex}))
}

func TestRunKeyImport_PasswordMismatch(t *testing.T) {
	cmd, _ := newTestCommand(t, output.FormatText)
	withPasswords(t, testPassword, "something else")
	keyForce = false

	err := runKeyImport(cmd, []string{devKeyHex})
	require.ErrorIs(t, err, tmerr.ErrInvalidInput)
	assert.False(t, keyStore(GetCmdContext(cmd)).Exists())
}

func TestRunKeyImport_ShortPassword(t *testing.T) {
	cmd, _ := newTestCommand(t, output.FormatText)
	withPasswords(t, "short")
	keyForce = false

	err := runKeyImport(cmd, []string{devKeyHex})
	require.ErrorIs(t, err, tmerr.ErrInvalidInput)
}

func TestRunKeyNew(t *testing.T) {
	cmd, buf := newTestCommand(t, output.FormatJSON)
	withPasswords(t, testPassword)
	keyForce = false
	keyWords = 24

	require.NoError(t, runKeyNew(cmd, nil))

	var resp KeyResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Len(t, strings.Fields(resp.Mnemonic), 24)

	key, err := keystore.KeyFromMnemonic(resp.Mnemonic, "", 0)
	require.NoError(t, err)
	assert.Equal(t, key.Address().Hex(), resp.Address)

	err = runKeyNew(cmd, nil)
	require.ErrorIs(t, err, tmerr.ErrKeyExists)
}

func TestRunKeyShow_NoKey(t *testing.T) {
	cmd, _ := newTestCommand(t, output.FormatText)
	promptPasswordFn = func(string) ([]byte, error) {
		t.Fatal("no prompt without a key file")
		return nil, nil
	}

	err := runKeyShow(cmd, nil)
	require.ErrorIs(t, err, tmerr.ErrKeyNotFound)
	assert.Equal(t, tmerr.ExitNotFound, ExitCode(err))
}

func TestUnlockKey(t *testing.T) {
	cmd, _ := newTestCommand(t, output.FormatText)
	withPasswords(t, testPassword)
	keyForce = false
	require.NoError(t, runKeyImport(cmd, []string{devKeyHex}))

	store := keyStore(GetCmdContext(cmd))
	unlock := unlockKey(store)

	withPasswords(t, "")
	_, err := unlock(context.Background())
	require.ErrorIs(t, err, provider.ErrRejected, "an empty password declines")

	withPasswords(t, "wrong password")
	_, err = unlock(context.Background())
	require.ErrorIs(t, err, tmerr.ErrDecryptionFailed)

	withPasswords(t, testPassword)
	signer, err := unlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, devAccount0, signer.Address().Hex())
	signer.Destroy()
}

func TestUnlockKey_Missing(t *testing.T) {
	cmd, _ := newTestCommand(t, output.FormatText)

	_, err := unlockKey(keyStore(GetCmdContext(cmd)))(context.Background())
	require.ErrorIs(t, err, tmerr.ErrKeyNotFound)
}
