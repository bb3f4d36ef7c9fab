package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/testament/internal/app"
	"github.com/mrz1836/testament/internal/output"
	"github.com/mrz1836/testament/internal/willclient"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	mintBeneficiary string
	mintAsset       string
	mintAmount      string
	mintEther       bool
	mintMetadata    string
	mintImage       string
)

// willsCmd is the parent command for will operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var willsCmd = &cobra.Command{
	Use:   "wills",
	Short: "List, create and check in on digital wills",
	Long: `Manage the digital wills owned by the connected account.

Commands connect on demand: a remembered session is restored silently,
otherwise the wallet is asked for access first.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var willsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your wills",
	Args:    cobra.NoArgs,
	RunE:    runWillsList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var willsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one will and its token URI",
	Args:  cobra.ExactArgs(1),
	RunE:  runWillsShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var willsMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Create a new digital will",
	Long: `Mint a will NFT that leaves a token amount to a beneficiary.

The amount is a raw integer by default. With --ether it is read as a decimal
number of ether (up to 18 places) and converted to wei. Metadata must be a
JSON object; --image adds an "image" key unless the metadata already has one.

Example:
  testament wills mint --beneficiary 0x7099... --asset 0x5FbD... --amount 1000
  testament wills mint --beneficiary 0x7099... --asset 0x5FbD... --amount 0.25 --ether \
    --metadata '{"name":"Savings"}' --image https://example.com/will.png`,
	Args: cobra.NoArgs,
	RunE: runWillsMint,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var willsCheckInCmd = &cobra.Command{
	Use:   "checkin <id>",
	Short: "Check in to keep a will active",
	Args:  cobra.ExactArgs(1),
	RunE:  runWillsCheckIn,
}

// WillDetail is the JSON output of wills show.
type WillDetail struct {
	willclient.Will

	TokenURI string `json:"token_uri,omitempty"`
}

// TxResponse is the JSON output of write commands.
type TxResponse struct {
	TxHash  string `json:"tx_hash"`
	TokenID uint64 `json:"token_id,omitempty"`
}

// tokenURIReader is implemented by wallets that can read token URIs.
type tokenURIReader interface {
	TokenURI(ctx context.Context, tokenID uint64) (string, error)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(willsCmd)
	willsCmd.AddCommand(willsListCmd, willsShowCmd, willsMintCmd, willsCheckInCmd)

	f := willsMintCmd.Flags()
	f.StringVar(&mintBeneficiary, "beneficiary", "", "beneficiary address (required)")
	f.StringVar(&mintAsset, "asset", "", "token contract address (required)")
	f.StringVar(&mintAmount, "amount", "", "amount or token id (required)")
	f.BoolVar(&mintEther, "ether", false, "read --amount as ether and convert to wei")
	f.StringVar(&mintMetadata, "metadata", "{}", "metadata JSON object")
	f.StringVar(&mintImage, "image", "", "image URL stored in the metadata")
	_ = willsMintCmd.MarkFlagRequired("beneficiary")
	_ = willsMintCmd.MarkFlagRequired("asset")
	_ = willsMintCmd.MarkFlagRequired("amount")
}

// withConnectedPage opens a page, connects it, and runs fn.
func withConnectedPage(cmd *cobra.Command, fn func(ctx context.Context, cc *CommandContext, wp *walletPage) error) error {
	cc := GetCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, cc.Cfg.GetTxTimeout())
	defer cancel()

	wp, err := openPage(cc, commandNotifier(cmd, cc), false)
	if err != nil {
		return err
	}
	defer wp.Close()

	if err := ensureConnected(ctx, wp); err != nil {
		return err
	}
	return fn(ctx, cc, wp)
}

func runWillsList(cmd *cobra.Command, _ []string) error {
	return withConnectedPage(cmd, func(_ context.Context, cc *CommandContext, wp *walletPage) error {
		cards := wp.Cards()
		return cc.Fmt.PrintEither(cards, func(w io.Writer) error {
			return displayCards(w, wp.Snapshot().Account.Hex(), cards)
		})
	})
}

func displayCards(w io.Writer, account string, cards []app.Card) error {
	if len(cards) == 0 {
		out(w, "No wills found for %s\n", account)
		return nil
	}

	table := output.NewTable("ID", "BENEFICIARY", "ASSET", "AMOUNT/ID", "STATUS", "IMAGE")
	table.SetMaxCellWidth(48)
	table.AlignRight(3)
	table.KeepWhole(5)
	for _, c := range cards {
		table.AddRow(strconv.FormatUint(c.TokenID, 10), c.Beneficiary, c.AssetAddress, c.AmountOrID, c.Status, c.Image)
	}
	return table.Render(w)
}

func runWillsShow(cmd *cobra.Command, args []string) error {
	id, err := parseWillID(args[0])
	if err != nil {
		return err
	}

	return withConnectedPage(cmd, func(ctx context.Context, cc *CommandContext, wp *walletPage) error {
		detail, err := findWill(wp.Wills(), id)
		if err != nil {
			return err
		}

		if r, ok := wp.wallet.(tokenURIReader); ok {
			uri, err := r.TokenURI(ctx, id)
			if err != nil {
				cc.Log.Debug("tokenURI(%d): %v", id, err)
			}
			detail.TokenURI = uri
		}

		return cc.Fmt.PrintEither(detail, func(w io.Writer) error {
			card := app.NewCard(detail.Will)
			out(w, "%s\n", card.Title)
			out(w, "  Beneficiary: %s\n", card.Beneficiary)
			out(w, "  Asset:       %s\n", card.AssetAddress)
			out(w, "  Amount/ID:   %s\n", card.AmountOrID)
			out(w, "  Status:      %s\n", card.Status)
			out(w, "  Image:       %s\n", card.Image)
			if detail.Metadata != "" {
				out(w, "  Metadata:    %s\n", detail.Metadata)
			}
			if detail.TokenURI != "" {
				out(w, "  Token URI:   %s\n", detail.TokenURI)
			}
			return nil
		})
	})
}

func findWill(wills []willclient.Will, id uint64) (WillDetail, error) {
	for _, w := range wills {
		if w.TokenID == id {
			return WillDetail{Will: w}, nil
		}
	}
	return WillDetail{}, tmerr.WithSuggestion(
		tmerr.WithDetails(tmerr.ErrNotFound, map[string]string{"token_id": strconv.FormatUint(id, 10)}),
		"run 'testament wills list' to see the wills you own",
	)
}

func runWillsMint(cmd *cobra.Command, _ []string) error {
	form := app.MintForm{
		Beneficiary:   mintBeneficiary,
		AssetAddress:  mintAsset,
		AmountOrID:    mintAmount,
		AmountInEther: mintEther,
		Metadata:      mintMetadata,
		ImageURL:      mintImage,
	}

	return withConnectedPage(cmd, func(ctx context.Context, cc *CommandContext, wp *walletPage) error {
		hash, err := wp.Mint(ctx, form)
		if err != nil {
			if !tmerr.Is(err, tmerr.ErrFetchWills) {
				return err
			}
			// Mined, but the list could not be reloaded.
			cc.Log.Error("refreshing wills after mint: %v", err)
		}
		return printTx(cc, TxResponse{TxHash: hash.Hex()})
	})
}

func runWillsCheckIn(cmd *cobra.Command, args []string) error {
	id, err := parseWillID(args[0])
	if err != nil {
		return err
	}

	return withConnectedPage(cmd, func(ctx context.Context, cc *CommandContext, wp *walletPage) error {
		hash, err := wp.CheckIn(ctx, id)
		if err != nil {
			if !tmerr.Is(err, tmerr.ErrFetchWills) {
				return err
			}
			cc.Log.Error("refreshing wills after check-in: %v", err)
		}
		return printTx(cc, TxResponse{TxHash: hash.Hex(), TokenID: id})
	})
}

func printTx(cc *CommandContext, resp TxResponse) error {
	return cc.Fmt.PrintEither(resp, func(w io.Writer) error {
		out(w, "Transaction: %s\n", resp.TxHash)
		return nil
	})
}

func parseWillID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, tmerr.WithSuggestion(
			tmerr.WithDetails(tmerr.ErrInvalidInput, map[string]string{"id": s}),
			fmt.Sprintf("will ids are positive integers, got %q", s),
		)
	}
	return id, nil
}
