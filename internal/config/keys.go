package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// maxKeySuggestDistance bounds how far a mistyped key may be from a real one
// before no suggestion is offered.
const maxKeySuggestDistance = 3

// field binds a dotted key to one scalar config value.
type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(p func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func intField[T int | int64](p func(c *Config) *T) field {
	return field{
		get: func(c *Config) string { return strconv.FormatInt(int64(*p(c)), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return err
			}
			*p(c) = T(n)
			return nil
		},
	}
}

func boolField(p func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*p(c)) },
		set: func(c *Config, v string) error {
			on, ok := parseSwitch(v)
			if !ok {
				return fmt.Errorf("%q is not a boolean", v)
			}
			*p(c) = on
			return nil
		},
	}
}

//nolint:gochecknoglobals // read-only table
var fields = map[string]field{
	"home":                             stringField(func(c *Config) *string { return &c.Home }),
	"network.rpc":                      stringField(func(c *Config) *string { return &c.Network.RPC }),
	"network.chain_id":                 intField(func(c *Config) *int64 { return &c.Network.ChainID }),
	"network.contract":                 stringField(func(c *Config) *string { return &c.Network.Contract }),
	"network.scan_limit":               intField(func(c *Config) *int { return &c.Network.ScanLimit }),
	"network.rate_burst":               intField(func(c *Config) *int { return &c.Network.RateBurst }),
	"provider.kind":                    stringField(func(c *Config) *string { return &c.Provider.Kind }),
	"provider.key_file":                stringField(func(c *Config) *string { return &c.Provider.KeyFile }),
	"provider.watch_interval_seconds":  intField(func(c *Config) *int { return &c.Provider.WatchIntervalSecond }),
	"transactions.receipt_poll_millis": intField(func(c *Config) *int { return &c.Transactions.ReceiptPollMillis }),
	"transactions.timeout_seconds":     intField(func(c *Config) *int { return &c.Transactions.TimeoutSeconds }),
	"session.enabled":                  boolField(func(c *Config) *bool { return &c.Session.Enabled }),
	"session.ttl_minutes":              intField(func(c *Config) *int { return &c.Session.TTLMinutes }),
	"server.listen":                    stringField(func(c *Config) *string { return &c.Server.Listen }),
	"output.default_format":            stringField(func(c *Config) *string { return &c.Output.DefaultFormat }),
	"output.color":                     stringField(func(c *Config) *string { return &c.Output.Color }),
	"output.verbose":                   boolField(func(c *Config) *bool { return &c.Output.Verbose }),
	"logging.level":                    stringField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.file":                     stringField(func(c *Config) *string { return &c.Logging.File }),
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GetValue returns the value at a dotted key such as "network.rpc".
func (c *Config) GetValue(key string) (string, error) {
	f, err := lookupField(normalizeKey(key))
	if err != nil {
		return "", err
	}
	return f.get(c), nil
}

// SetValue parses value into the field at key. The config is not validated.
func (c *Config) SetValue(key, value string) error {
	key = normalizeKey(key)
	f, err := lookupField(key)
	if err != nil {
		return err
	}
	if key == "network.rpc" {
		value = SanitizeURL(value)
	}
	if err := f.set(c, value); err != nil {
		return tmerr.WithDetails(tmerr.Because(tmerr.ErrInvalidInput, err), map[string]string{key: value})
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func lookupField(key string) (field, error) {
	if f, ok := fields[key]; ok {
		return f, nil
	}

	err := tmerr.WithDetails(tmerr.ErrUnknownConfigKey, map[string]string{"key": key})
	if near := nearestKey(key); near != "" {
		return field{}, tmerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", near))
	}
	return field{}, tmerr.WithSuggestion(err, "run 'testament config show' to list settings")
}

func nearestKey(key string) string {
	best, bestDist := "", maxKeySuggestDistance+1
	for _, k := range Keys() {
		if d := levenshtein.ComputeDistance(key, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
