// Package config provides configuration management for Testament.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/testament/internal/fileutil"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// Provider kinds.
const (
	// ProviderNode delegates accounts and signing to the RPC node
	// (Hardhat and Anvil expose unlocked development accounts).
	ProviderNode = "node"

	// ProviderKeystore signs locally with an age-encrypted key file.
	ProviderKeystore = "keystore"
)

//nolint:gochecknoglobals // Compiled once, read-only
var addressPattern = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

// Config represents the application configuration.
type Config struct {
	Version      int                `yaml:"version" json:"version"`
	Home         string             `yaml:"home" json:"home"`
	Network      NetworkConfig      `yaml:"network" json:"network"`
	Provider     ProviderConfig     `yaml:"provider" json:"provider"`
	Transactions TransactionsConfig `yaml:"transactions" json:"transactions"`
	Session      SessionConfig      `yaml:"session" json:"session"`
	Server       ServerConfig       `yaml:"server" json:"server"`
	Output       OutputConfig       `yaml:"output" json:"output"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
}

// NetworkConfig defines the chain and contract the client talks to.
type NetworkConfig struct {
	RPC       string  `yaml:"rpc" json:"rpc"`
	ChainID   int64   `yaml:"chain_id" json:"chain_id"`
	Contract  string  `yaml:"contract" json:"contract"`
	ScanLimit int     `yaml:"scan_limit" json:"scan_limit"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`
}

// ProviderConfig selects and tunes the wallet provider.
type ProviderConfig struct {
	Kind                string `yaml:"kind" json:"kind"`
	KeyFile             string `yaml:"key_file" json:"key_file"`
	WatchIntervalSecond int    `yaml:"watch_interval_seconds" json:"watch_interval_seconds"`
}

// TransactionsConfig defines how write calls wait for confirmation.
type TransactionsConfig struct {
	ReceiptPollMillis int `yaml:"receipt_poll_millis" json:"receipt_poll_millis"`
	TimeoutSeconds    int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// SessionConfig defines the remembered-connection settings.
type SessionConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	TTLMinutes int  `yaml:"ttl_minutes" json:"ttl_minutes"`
}

// ServerConfig defines the HTTP page settings.
type ServerConfig struct {
	Listen         string   `yaml:"listen" json:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"`
	Color         string `yaml:"color" json:"color"`
	Verbose       bool   `yaml:"verbose" json:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tmerr.Because(tmerr.ErrConfigNotFound, err)
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, tmerr.Because(tmerr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Validate checks that the configuration can drive a connection.
func (c *Config) Validate() error {
	if c.Network.RPC == "" {
		return tmerr.WithSuggestion(tmerr.ErrConfigInvalid, "network.rpc is required")
	}
	if u, err := url.Parse(c.Network.RPC); err != nil || u.Scheme == "" || u.Host == "" {
		return tmerr.WithDetails(tmerr.ErrConfigInvalid, map[string]string{"network.rpc": c.Network.RPC})
	}
	if c.Network.ChainID <= 0 {
		return tmerr.WithDetails(tmerr.ErrConfigInvalid, map[string]string{
			"network.chain_id": fmt.Sprintf("%d", c.Network.ChainID),
		})
	}
	if !addressPattern.MatchString(c.Network.Contract) {
		return tmerr.WithDetails(tmerr.ErrConfigInvalid, map[string]string{"network.contract": c.Network.Contract})
	}
	if c.Network.ScanLimit <= 0 {
		return tmerr.WithSuggestion(tmerr.ErrConfigInvalid, "network.scan_limit must be positive")
	}
	switch c.Provider.Kind {
	case ProviderNode, ProviderKeystore:
	default:
		return tmerr.WithSuggestion(
			tmerr.WithDetails(tmerr.ErrConfigInvalid, map[string]string{"provider.kind": c.Provider.Kind}),
			"use 'node' or 'keystore'",
		)
	}
	return nil
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the testament home directory path.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// GetRPC returns the JSON-RPC endpoint URL.
func (c *Config) GetRPC() string {
	return c.Network.RPC
}

// GetChainID returns the expected chain ID.
func (c *Config) GetChainID() int64 {
	return c.Network.ChainID
}

// GetContract returns the will contract address.
func (c *Config) GetContract() string {
	return c.Network.Contract
}

// GetScanLimit returns the highest token ID probed when listing wills.
func (c *Config) GetScanLimit() int {
	return c.Network.ScanLimit
}

// GetProviderKind returns the configured provider kind.
func (c *Config) GetProviderKind() string {
	return c.Provider.Kind
}

// GetKeyFile returns the path of the encrypted signing key.
func (c *Config) GetKeyFile() string {
	if c.Provider.KeyFile == "" {
		return filepath.Join(c.GetHome(), "key.age")
	}
	return ExpandHome(c.Provider.KeyFile)
}

// GetWatchInterval returns how often the provider polls for chain and account changes.
func (c *Config) GetWatchInterval() time.Duration {
	return time.Duration(c.Provider.WatchIntervalSecond) * time.Second
}

// GetReceiptPollInterval returns the receipt polling interval.
func (c *Config) GetReceiptPollInterval() time.Duration {
	return time.Duration(c.Transactions.ReceiptPollMillis) * time.Millisecond
}

// GetTxTimeout returns the upper bound for submitting and confirming a write.
func (c *Config) GetTxTimeout() time.Duration {
	return time.Duration(c.Transactions.TimeoutSeconds) * time.Second
}

// GetSessionTTL returns how long a remembered connection stays valid.
// Zero means sessions are disabled.
func (c *Config) GetSessionTTL() time.Duration {
	if !c.Session.Enabled {
		return 0
	}
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// GetSessionFile returns the path of the remembered-connection artifact.
func (c *Config) GetSessionFile() string {
	return filepath.Join(c.GetHome(), "session.json")
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default testament home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".testament"
	}
	return filepath.Join(home, ".testament")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
