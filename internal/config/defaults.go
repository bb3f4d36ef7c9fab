package config

// DefaultRPCURL is the local development node endpoint.
const DefaultRPCURL = "http://127.0.0.1:8545"

// DefaultChainID is the chain ID of the local development network.
const DefaultChainID = 31337

// DefaultContract is the address of the first contract deployed by a fresh
// development node's first account.
const DefaultContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

// DefaultScanLimit is the highest token ID probed when listing wills.
const DefaultScanLimit = 100

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.testament",
		Network: NetworkConfig{
			RPC:       DefaultRPCURL,
			ChainID:   DefaultChainID,
			Contract:  DefaultContract,
			ScanLimit: DefaultScanLimit,
			RateLimit: 50,
			RateBurst: 100,
		},
		Provider: ProviderConfig{
			Kind:                ProviderNode,
			KeyFile:             "",
			WatchIntervalSecond: 2,
		},
		Transactions: TransactionsConfig{
			ReceiptPollMillis: 500,
			TimeoutSeconds:    120,
		},
		Session: SessionConfig{
			Enabled:    true,
			TTLMinutes: 60,
		},
		Server: ServerConfig{
			Listen:         "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.testament/testament.log",
		},
	}
}
