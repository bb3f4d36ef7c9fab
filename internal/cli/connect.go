package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/testament/internal/app"
	"github.com/mrz1836/testament/internal/output"
)

// connectCmd connects the wallet and remembers the session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect your wallet",
	Long: `Ask the wallet for account access, check that it is on the expected
network, and remember the connection so later commands reconnect silently.

Example:
  testament connect
  testament connect -o json`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

// disconnectCmd forgets the remembered session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var disconnectCmd = &cobra.Command{
	Use:     "disconnect",
	Aliases: []string{"logout"},
	Short:   "Disconnect and forget the remembered session",
	Args:    cobra.NoArgs,
	RunE:    runDisconnect,
}

// ConnectResponse is the JSON output of connect.
type ConnectResponse struct {
	Account  string `json:"account"`
	ChainID  uint64 `json:"chain_id"`
	Contract string `json:"contract"`
	Wills    int    `json:"wills"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
}

func runConnect(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, cc.Cfg.GetTxTimeout())
	defer cancel()

	wp, err := openPage(cc, commandNotifier(cmd, cc), false)
	if err != nil {
		return err
	}
	defer wp.Close()

	if err := wp.Mount(ctx); err != nil {
		return err
	}
	if wp.State() != app.StateConnected {
		if _, err := wp.Connect(ctx); err != nil {
			return err
		}
	}

	snap := wp.Snapshot()
	resp := ConnectResponse{
		Account:  snap.Account.Hex(),
		ChainID:  snap.ChainID,
		Contract: cc.Cfg.GetContract(),
		Wills:    len(snap.Wills),
	}
	return cc.Fmt.PrintEither(resp, func(w io.Writer) error {
		out(w, "Account:  %s\n", resp.Account)
		out(w, "Chain ID: %d\n", resp.ChainID)
		out(w, "Contract: %s\n", resp.Contract)
		out(w, "Wills:    %d\n", resp.Wills)
		output.WriteQR(w, output.AccountURI(resp.Account, resp.ChainID))
		return nil
	})
}

func runDisconnect(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	wp, err := openPage(cc, commandNotifier(cmd, cc), false)
	if err != nil {
		return err
	}
	defer wp.Close()

	wp.Disconnect()
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(map[string]bool{"disconnected": true})
	}
	return nil
}
