// Package cli implements the Testament command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/testament/internal/config"
	"github.com/mrz1836/testament/internal/metrics"
	"github.com/mrz1836/testament/internal/output"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// BuildInfo carries version metadata injected at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
	cmdCtx    *CommandContext

	buildInfo BuildInfo
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "testament",
	Short: "Manage on-chain digital wills",
	Long: `Testament connects to an Ethereum wallet and manages digital wills:
NFTs that name a beneficiary for a token balance and stay active as long
as the owner keeps checking in.

By default the unlocked accounts of a local development node are used.
Set provider.kind to "keystore" to sign with your own encrypted key.

Example:
  testament connect
  testament wills list
  testament wills mint --beneficiary 0x... --asset 0x... --amount 1.5 --ether
  testament wills checkin 3
  testament serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command under ctx and prints any error to stderr.
// Cancelling ctx aborts receipt waits and stops the page server.
func Execute(ctx context.Context, info BuildInfo) error {
	buildInfo = info
	rootCmd.Version = formatVersion(info)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		formatErr(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return tmerr.ExitCode(err)
}

func formatErr(w io.Writer, err error) {
	format := output.FormatText
	if formatter != nil {
		format = formatter.Format()
	}
	_ = output.FormatError(w, err, format)
}

func formatVersion(info BuildInfo) string {
	v, commit, date := info.Version, info.Commit, info.Date
	if v == "" {
		v = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
}

// initGlobals loads the configuration, opens the logger, picks the output
// format and attaches the command context to cmd.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		if !tmerr.Is(err, tmerr.ErrConfigNotFound) {
			return err
		}
		cfg = config.Defaults()
		cfg.Home = home
	}

	overrides := config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	logger, err = config.NewLogger(config.ParseLogLevel(cfg.GetLoggingLevel()), cfg.GetLoggingFile())
	if err != nil {
		logger = config.NullLogger()
	}
	if len(overrides) > 0 {
		logger.Debug("environment overrides: %s", strings.Join(overrides, ", "))
	}

	explicit := output.ParseFormat(cfg.GetOutputFormat())
	formatter = output.NewFormatter(output.DetectFormat(os.Stdout, explicit), cmd.OutOrStdout()).
		WithNotices(cmd.ErrOrStderr())

	cmdCtx = NewCommandContext(cfg, logger, formatter, metrics.Global)
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(withCommandContext(base, cmdCtx))
	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "testament data directory (default: ~/.testament)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
