package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome         = "TESTAMENT_HOME"
	EnvRPC          = "TESTAMENT_RPC"
	EnvChainID      = "TESTAMENT_CHAIN_ID"
	EnvContract     = "TESTAMENT_CONTRACT"
	EnvProvider     = "TESTAMENT_PROVIDER"
	EnvListen       = "TESTAMENT_LISTEN"
	EnvSession      = "TESTAMENT_SESSION"
	EnvOutputFormat = "TESTAMENT_OUTPUT_FORMAT"
	EnvVerbose      = "TESTAMENT_VERBOSE"
	EnvLogLevel     = "TESTAMENT_LOG_LEVEL"
	EnvNoColor      = "NO_COLOR"
)

// envOverride sets one field from a non-empty variable. apply reports false
// when the value cannot be used, leaving the field alone.
type envOverride struct {
	name  string
	apply func(cfg *Config, v string) bool
}

//nolint:gochecknoglobals // read-only table
var envOverrides = []envOverride{
	{EnvHome, func(c *Config, v string) bool { c.Home = v; return true }},
	{EnvRPC, func(c *Config, v string) bool { c.Network.RPC = SanitizeURL(v); return true }},
	{EnvChainID, func(c *Config, v string) bool {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || id <= 0 {
			return false
		}
		c.Network.ChainID = id
		return true
	}},
	{EnvContract, func(c *Config, v string) bool { c.Network.Contract = strings.TrimSpace(v); return true }},
	{EnvProvider, func(c *Config, v string) bool { c.Provider.Kind = lower(v); return true }},
	{EnvListen, func(c *Config, v string) bool { c.Server.Listen = strings.TrimSpace(v); return true }},
	{EnvSession, func(c *Config, v string) bool {
		on, ok := parseSwitch(v)
		if ok {
			c.Session.Enabled = on
		}
		return ok
	}},
	{EnvOutputFormat, func(c *Config, v string) bool { c.Output.DefaultFormat = lower(v); return true }},
	{EnvVerbose, func(c *Config, v string) bool {
		on, ok := parseSwitch(v)
		if ok {
			c.Output.Verbose = on
		}
		return ok
	}},
	{EnvLogLevel, func(c *Config, v string) bool { c.Logging.Level = lower(v); return true }},
}

// ApplyEnvironment overrides cfg from TESTAMENT_* variables and NO_COLOR.
// It returns the names of the variables that took effect.
func ApplyEnvironment(cfg *Config) []string {
	var applied []string
	for _, o := range envOverrides {
		v := os.Getenv(o.name)
		if v == "" {
			continue
		}
		if o.apply(cfg, v) {
			applied = append(applied, o.name)
		}
	}

	// Any value of NO_COLOR counts, even empty.
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
		applied = append(applied, EnvNoColor)
	}
	return applied
}

func lower(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// parseSwitch reads on/off style values. Unrecognized input is off and
// reported as not ok.
func parseSwitch(v string) (on, ok bool) {
	switch lower(v) {
	case "1", "true", "yes", "on", "y":
		return true, true
	case "0", "false", "no", "off", "n":
		return false, true
	default:
		return false, false
	}
}

// SanitizeURL keeps only URL-safe characters, dropping whitespace and
// anything else picked up when an endpoint is pasted from a terminal.
func SanitizeURL(raw string) string {
	return sanitize.URL(strings.TrimSpace(raw))
}
