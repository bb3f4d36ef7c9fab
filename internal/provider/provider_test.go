package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUserRejected(t *testing.T) {
	t.Parallel()
	assert.True(t, IsUserRejected(ErrRejected))
	assert.True(t, IsUserRejected(fmt.Errorf("connect: %w", &Error{Code: 4001, Message: "denied"})))
	assert.False(t, IsUserRejected(&Error{Code: 4100}))
	assert.False(t, IsUserRejected(errors.New("4001")))
}

func TestIsRevert(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"anvil code 3", &Error{Code: 3, Message: "execution reverted: ERC721NonexistentToken(4)"}, true},
		{"hardhat message", &Error{Code: -32603, Message: "Error: VM Exception while processing transaction: reverted with reason string 'ERC721: invalid token ID'"}, true},
		{"other rpc error", &Error{Code: -32000, Message: "nonce too low"}, false},
		{"plain error", errors.New("execution reverted"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRevert(tt.err))
		})
	}
}

func TestRevertReason(t *testing.T) {
	t.Parallel()

	// Error(string) selector + abi-encoded "ERC721: invalid token ID"
	data := "0x08c379a0" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000018" +
		"4552433732313a20696e76616c696420746f6b656e2049440000000000000000"

	t.Run("string data", func(t *testing.T) {
		t.Parallel()
		err := &Error{Code: 3, Message: "execution reverted", Data: json.RawMessage(`"` + data + `"`)}
		assert.Equal(t, "ERC721: invalid token ID", RevertReason(err))
	})

	t.Run("nested data", func(t *testing.T) {
		t.Parallel()
		err := &Error{Code: -32603, Message: "internal", Data: json.RawMessage(`{"message":"x","data":"` + data + `"}`)}
		assert.Equal(t, "ERC721: invalid token ID", RevertReason(err))
	})

	t.Run("custom error falls back to message", func(t *testing.T) {
		t.Parallel()
		err := &Error{Code: 3, Message: "execution reverted", Data: json.RawMessage(`"0x7e273289"`)}
		assert.Equal(t, "execution reverted", RevertReason(err))
	})

	t.Run("not a provider error", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, RevertReason(errors.New("boom")))
	})
}

func TestDecodeAccounts(t *testing.T) {
	t.Parallel()

	accounts, err := DecodeAccounts(json.RawMessage(`["0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"]`))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), accounts[0])

	empty, err := DecodeAccounts(json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeAccounts(json.RawMessage(`["not-an-address"]`))
	require.Error(t, err)
}

func TestDecodeUint64(t *testing.T) {
	t.Parallel()

	v, err := DecodeUint64(json.RawMessage(`"0x7a69"`))
	require.NoError(t, err)
	assert.Equal(t, uint64(31337), v)

	_, err = DecodeUint64(json.RawMessage(`"31337"`))
	require.Error(t, err)
}
