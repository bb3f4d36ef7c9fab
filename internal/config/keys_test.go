package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/testament/internal/config"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

func TestKeys_Sorted(t *testing.T) {
	t.Parallel()
	keys := config.Keys()
	assert.IsNonDecreasing(t, keys)
	assert.Contains(t, keys, "network.rpc")
	assert.Contains(t, keys, "session.enabled")
}

func TestConfig_GetValue(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	tests := map[string]string{
		"network.rpc":         config.DefaultRPCURL,
		"network.chain_id":    "31337",
		" Network.Contract ":  config.DefaultContract,
		"session.enabled":     "true",
		"session.ttl_minutes": "60",
		"provider.kind":       config.ProviderNode,
	}
	for key, want := range tests {
		got, err := cfg.GetValue(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
}

func TestConfig_SetValue(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	require.NoError(t, cfg.SetValue("network.rpc", " http://node:8545\n"))
	require.NoError(t, cfg.SetValue("network.chain_id", "1337"))
	require.NoError(t, cfg.SetValue("network.scan_limit", "250"))
	require.NoError(t, cfg.SetValue("session.enabled", "off"))
	require.NoError(t, cfg.SetValue("output.verbose", "yes"))

	assert.Equal(t, "http://node:8545", cfg.Network.RPC)
	assert.Equal(t, int64(1337), cfg.Network.ChainID)
	assert.Equal(t, 250, cfg.Network.ScanLimit)
	assert.False(t, cfg.Session.Enabled)
	assert.True(t, cfg.Output.Verbose)
}

func TestConfig_SetValue_BadValue(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	err := cfg.SetValue("session.ttl_minutes", "an hour")
	require.ErrorIs(t, err, tmerr.ErrInvalidInput)
	assert.Equal(t, 60, cfg.Session.TTLMinutes)

	err = cfg.SetValue("session.enabled", "perhaps")
	require.ErrorIs(t, err, tmerr.ErrInvalidInput)
	assert.True(t, cfg.Session.Enabled)
}

func TestConfig_UnknownKey(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	_, err := cfg.GetValue("network.rcp")
	require.ErrorIs(t, err, tmerr.ErrUnknownConfigKey)
	var te *tmerr.TestamentError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, `did you mean "network.rpc"?`, te.Suggestion)
	assert.Equal(t, "network.rcp", te.Details["key"])

	err = cfg.SetValue("completely.unrelated.setting", "x")
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Suggestion, "config show")
}
