package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/testament/internal/config"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and initialize Testament configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.testament/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  testament config init
  testament config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: file values with environment
and flag overrides applied.

Example:
  testament config show
  testament config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configGetCmd prints one setting.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Long: `Print the effective value of one setting, addressed with dots.

Example:
  testament config get network.rpc
  testament config get session.ttl_minutes`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd changes one setting in the config file.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a configuration value",
	Long: `Change one setting in the config file. The file is validated before it
is written, so a bad contract address or chain id is rejected.

Environment overrides are not written back.

Example:
  testament config set network.rpc http://127.0.0.1:8545
  testament config set provider.kind keystore
  testament config set session.enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(cc.Cfg.GetHome())

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return tmerr.WithSuggestion(
			tmerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	defaults := config.Defaults()
	defaults.Home = cc.Cfg.Home

	if err := config.Save(defaults, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - network.rpc: JSON-RPC endpoint of your node")
	outln(w, "  - network.chain_id / network.contract: expected chain and will contract")
	outln(w, "  - provider.kind: node (development accounts) or keystore (your own key)")
	outln(w, "  - session.ttl_minutes: how long a connection is remembered")
	outln(w, "  - logging.level: Log level (off/error/debug)")
	return nil
}

// ConfigValueResponse is the JSON shape of config get and set.
type ConfigValueResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Path  string `json:"path,omitempty"`
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	value, err := cc.Cfg.GetValue(args[0])
	if err != nil {
		return err
	}

	resp := ConfigValueResponse{Key: args[0], Value: value}
	return cc.Fmt.PrintEither(resp, func(w io.Writer) error {
		outln(w, value)
		return nil
	})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(cc.Cfg.GetHome())

	// Edit the file as written, not the environment-adjusted view.
	fileCfg, err := config.Load(configPath)
	switch {
	case tmerr.Is(err, tmerr.ErrConfigNotFound):
		fileCfg = config.Defaults()
		fileCfg.Home = cc.Cfg.Home
	case err != nil:
		return err
	}

	if err := fileCfg.SetValue(args[0], args[1]); err != nil {
		return err
	}
	if err := fileCfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(fileCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	value, _ := fileCfg.GetValue(args[0])
	cc.Log.Debug("config %s set in %s", args[0], configPath)

	resp := ConfigValueResponse{Key: args[0], Value: value, Path: configPath}
	return cc.Fmt.PrintEither(resp, func(w io.Writer) error {
		out(w, "Set %s = %s\n", resp.Key, resp.Value)
		return nil
	})
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	return cc.Fmt.PrintEither(cc.Cfg, func(w io.Writer) error {
		displayConfigText(w, cc.Cfg)
		return nil
	})
}

func displayConfigText(w io.Writer, c *config.Config) {
	outln(w, "Testament Configuration")
	outln(w, strings.Repeat("=", 23))
	outln(w)
	out(w, "Home:            %s\n", c.GetHome())
	outln(w)
	outln(w, "Network:")
	out(w, "  RPC:           %s\n", c.GetRPC())
	out(w, "  Chain ID:      %d\n", c.GetChainID())
	out(w, "  Contract:      %s\n", c.GetContract())
	out(w, "  Scan limit:    %d\n", c.GetScanLimit())
	outln(w)
	outln(w, "Provider:")
	out(w, "  Kind:          %s\n", c.GetProviderKind())
	if c.GetProviderKind() == config.ProviderKeystore {
		out(w, "  Key file:      %s\n", c.GetKeyFile())
	}
	outln(w)
	outln(w, "Transactions:")
	out(w, "  Receipt poll:  %s\n", c.GetReceiptPollInterval())
	out(w, "  Timeout:       %s\n", c.GetTxTimeout())
	outln(w)
	outln(w, "Session:")
	if ttl := c.GetSessionTTL(); ttl > 0 {
		out(w, "  TTL:           %s\n", ttl)
		out(w, "  File:          %s\n", c.GetSessionFile())
	} else {
		outln(w, "  Disabled")
	}
	outln(w)
	outln(w, "Server:")
	out(w, "  Listen:        %s\n", c.Server.Listen)
	out(w, "  Origins:       %s\n", strings.Join(c.Server.AllowedOrigins, ", "))
	outln(w)
	outln(w, "Output:")
	out(w, "  Format:        %s\n", c.GetOutputFormat())
	out(w, "  Verbose:       %t\n", c.IsVerbose())
	outln(w)
	outln(w, "Logging:")
	out(w, "  Level:         %s\n", c.GetLoggingLevel())
	out(w, "  File:          %s\n", c.GetLoggingFile())
}
