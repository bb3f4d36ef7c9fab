package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/testament/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected config.LogLevel
	}{
		{"off", config.LogLevelOff},
		{"OFF", config.LogLevelOff},
		{"none", config.LogLevelOff},
		{"error", config.LogLevelError},
		{"  debug  ", config.LogLevelDebug},
		{"DEBUG", config.LogLevelDebug},
		{"warn", config.LogLevelError},
		{"", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "off", config.LogLevelOff.String())
	assert.Equal(t, "error", config.LogLevelError.String())
	assert.Equal(t, "debug", config.LogLevelDebug.String())
	assert.Equal(t, "error", config.LogLevel(99).String())
}

func TestNewLogger_NothingOpened(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "off.log")

	off, err := config.NewLogger(config.LogLevelOff, path)
	require.NoError(t, err)
	off.Error("dropped")
	require.NoError(t, off.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "level off never creates the file")

	noPath, err := config.NewLogger(config.LogLevelDebug, "")
	require.NoError(t, err)
	noPath.Debug("dropped")
	assert.False(t, noPath.Enabled(config.LogLevelError))
	assert.Empty(t, noPath.Path())
}

func TestNewLogger_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "dir", "testament.log")

	logger, err := config.NewLogger(config.LogLevelDebug, path)
	require.NoError(t, err)
	assert.Equal(t, path, logger.Path())

	logger.Debug("scan stopped at token %d", 4)
	logger.Error("mint failed: %s", "reverted")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "second close is a no-op")

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[DEBUG] scan stopped at token 4")
	assert.Contains(t, lines[1], "[ERROR] mint failed: reverted")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewLogger_Appends(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "testament.log")

	for _, msg := range []string{"first run", "second run"} {
		logger, err := config.NewLogger(config.LogLevelError, path)
		require.NoError(t, err)
		logger.Error("%s", msg)
		require.NoError(t, logger.Close())
	}

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "second run")
}

func TestNewLogger_InvalidPath(t *testing.T) {
	t.Parallel()
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := config.NewLogger(config.LogLevelDebug, filepath.Join(blocker, "sub", "x.log"))
	require.Error(t, err)
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewWriterLogger(config.LogLevelError, &buf)

	logger.Debug("hidden")
	logger.Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.True(t, logger.Enabled(config.LogLevelError))
	assert.False(t, logger.Enabled(config.LogLevelDebug))

	logger.SetLevel(config.LogLevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
	assert.Equal(t, config.LogLevelDebug, logger.Level())

	logger.SetLevel(config.LogLevelOff)
	logger.Error("silenced")
	assert.NotContains(t, buf.String(), "silenced")
}

func TestLogger_With(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	root := config.NewWriterLogger(config.LogLevelDebug, &buf)

	rpc := root.With("rpc")
	rpc.Debug("eth_chainId")
	rpc.With("limiter").Debug("waiting")
	root.Error("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "[DEBUG] rpc: eth_chainId")
	assert.Contains(t, lines[1], "[DEBUG] rpc.limiter: waiting")
	assert.Contains(t, lines[2], "[ERROR] plain")

	root.SetLevel(config.LogLevelError)
	assert.False(t, rpc.Enabled(config.LogLevelDebug), "children share the level")
}

func TestLogger_OneLinePerRecord(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewWriterLogger(config.LogLevelDebug, &buf)

	logger.Error("node said:\n%s", "execution reverted")

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), `node said:\nexecution reverted`)
}

func TestNewWriterLogger_CloseLeavesWriterOpen(t *testing.T) {
	t.Parallel()
	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	logger := config.NewWriterLogger(config.LogLevelError, f)
	require.NoError(t, logger.Close())

	_, err = f.WriteString("still writable")
	require.NoError(t, err)
}

func TestNullLogger(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()

	logger.Debug("x")
	logger.With("web").Error("y")
	assert.Equal(t, config.LogLevelOff, logger.Level())
	assert.NoError(t, logger.Close())
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test file in t.TempDir
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}
