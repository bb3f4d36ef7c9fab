package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

var (
	errInner     = errors.New("inner")
	errRootCause = errors.New("root cause")
	errPlain     = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, tmerr.ExitSuccess},
		{"general error", tmerr.ErrGeneral, tmerr.ExitGeneral},
		{"input error", tmerr.ErrInvalidInput, tmerr.ExitInput},
		{"not found error", tmerr.ErrNotFound, tmerr.ExitNotFound},
		{"wallet not installed", tmerr.ErrWalletNotInstalled, tmerr.ExitEnvironment},
		{"wrong network", tmerr.ErrWrongNetwork, tmerr.ExitEnvironment},
		{"user rejected", tmerr.ErrUserRejected, tmerr.ExitAuth},
		{"not connected", tmerr.ErrNotConnected, tmerr.ExitAuth},
		{"plain error", errPlain, tmerr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tmerr.ExitCode(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("testament error keeps identity", func(t *testing.T) {
		t.Parallel()
		wrapped := tmerr.Wrap(tmerr.ErrNotFound, "will %d", 7)
		require.ErrorIs(t, wrapped, tmerr.ErrNotFound)
		assert.Equal(t, "will 7: resource not found", wrapped.Error())
		assert.Equal(t, tmerr.ExitNotFound, tmerr.ExitCode(wrapped))
	})

	t.Run("plain error becomes general", func(t *testing.T) {
		t.Parallel()
		wrapped := tmerr.Wrap(errRootCause, "loading")
		require.ErrorIs(t, wrapped, errRootCause)
		assert.Equal(t, "GENERAL_ERROR", tmerr.Code(wrapped))
		assert.Equal(t, "loading: root cause", wrapped.Error())
	})

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, tmerr.Wrap(nil, "ignored"))
	})
}

func TestBecause(t *testing.T) {
	t.Parallel()

	err := tmerr.Because(tmerr.ErrMintFailed, errInner)
	require.ErrorIs(t, err, tmerr.ErrMintFailed)
	require.ErrorIs(t, err, errInner)
	assert.Equal(t, "failed to create digital will: inner", err.Error())

	assert.NotErrorIs(t, err, tmerr.ErrCheckInFailed)
	assert.Nil(t, tmerr.ErrMintFailed.Cause, "sentinel must not be mutated")
}

func TestWithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()
	details := map[string]string{"expected": "31337", "actual": "1"}

	err := tmerr.WithDetails(tmerr.ErrWrongNetwork, details)
	err = tmerr.WithSuggestion(err, "switch to the local development network")

	var te *tmerr.TestamentError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, details, te.Details)
	assert.Equal(t, "switch to the local development network", te.Suggestion)
	assert.Equal(t, "connected to the wrong network (actual: 1) (expected: 31337)", err.Error())
}

func TestWithDetails_PlainError(t *testing.T) {
	t.Parallel()
	err := tmerr.WithDetails(errPlain, map[string]string{"k": "v"})

	var te *tmerr.TestamentError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "GENERAL_ERROR", te.Code)
	assert.ErrorIs(t, err, errPlain)
}

func TestNew(t *testing.T) {
	t.Parallel()
	err := tmerr.New("WILL_EXPIRED", "will has expired")
	assert.Equal(t, "will has expired", err.Error())
	assert.Equal(t, "WILL_EXPIRED", tmerr.Code(err))
	assert.Equal(t, tmerr.ExitGeneral, tmerr.ExitCode(err))
}

func TestTestamentError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "connected to the wrong network", tmerr.ErrWrongNetwork.Error())

	withDetails := tmerr.WithDetails(tmerr.ErrWrongNetwork, map[string]string{"want": "31337", "got": "1"})
	assert.Equal(t, "connected to the wrong network (got: 1) (want: 31337)", withDetails.Error(),
		"details are listed in key order")

	withCause := tmerr.WithDetails(tmerr.Because(tmerr.ErrNoSuchToken, errInner), map[string]string{"token_id": "9"})
	assert.Equal(t, tmerr.ErrNoSuchToken.Message+" (token_id: 9): inner", withCause.Error())

	hinted := tmerr.WithSuggestion(tmerr.ErrWrongNetwork, "switch networks")
	assert.Equal(t, "connected to the wrong network", hinted.Error(), "suggestions are not part of the message")
}

func TestDerivedErrorsLeaveSentinelsAlone(t *testing.T) {
	t.Parallel()

	_ = tmerr.WithDetails(tmerr.ErrMintFailed, map[string]string{"beneficiary": "0x0"})
	_ = tmerr.WithSuggestion(tmerr.ErrMintFailed, "retry")
	_ = tmerr.Because(tmerr.ErrMintFailed, errInner)

	assert.Empty(t, tmerr.ErrMintFailed.Details)
	assert.Empty(t, tmerr.ErrMintFailed.Suggestion)
	assert.NoError(t, tmerr.ErrMintFailed.Cause)
}
