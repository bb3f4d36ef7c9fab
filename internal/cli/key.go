package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/testament/internal/keystore"
	"github.com/mrz1836/testament/internal/output"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	keyWords int
	keyIndex uint32
	keyForce bool
)

// keyCmd is the parent command for signing key operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the local signing key",
	Long: `Create, import and inspect the encrypted key used by the keystore provider.

The key is stored age-encrypted at provider.key_file (default
~/.testament/key.age). Set provider.kind to "keystore" to sign with it.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new key from a fresh mnemonic",
	Long: `Generate a BIP39 mnemonic, derive the first account (m/44'/60'/0'/0/0),
and store its private key encrypted with a password.

The mnemonic is shown once. Write it down: it is the only backup.

Example:
  testament key new
  testament key new --words 24`,
	Args: cobra.NoArgs,
	RunE: runKeyNew,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyImportCmd = &cobra.Command{
	Use:   "import [hex-key | mnemonic]",
	Short: "Import a private key or mnemonic",
	Long: `Import a hex private key or a 12/24 word mnemonic. When no argument is
given the secret is read without echo.

Example:
  testament key import
  testament key import --index 1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeyImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the address of the stored key",
	Args:  cobra.NoArgs,
	RunE:  runKeyShow,
}

// KeyResponse is the JSON output of key commands.
type KeyResponse struct {
	Address  string `json:"address"`
	Path     string `json:"path"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyNewCmd, keyImportCmd, keyShowCmd)

	keyNewCmd.Flags().IntVar(&keyWords, "words", 12, "mnemonic length: 12 or 24")
	keyNewCmd.Flags().BoolVar(&keyForce, "force", false, "overwrite an existing key")
	keyImportCmd.Flags().Uint32Var(&keyIndex, "index", 0, "account index when importing a mnemonic")
	keyImportCmd.Flags().BoolVar(&keyForce, "force", false, "overwrite an existing key")
}

const noKeySuggestion = "create one with 'testament key new' or 'testament key import'"

// keyWorkFactor is the scrypt cost of newly written key files.
//
//nolint:gochecknoglobals // Lowered in tests
var keyWorkFactor = keystore.DefaultWorkFactor

func keyStore(cc *CommandContext) *keystore.Store {
	store := keystore.NewStore(cc.Cfg.GetKeyFile())
	store.SetWorkFactor(keyWorkFactor)
	return store
}

func checkOverwrite(store *keystore.Store) error {
	if store.Exists() && !keyForce {
		return tmerr.WithSuggestion(
			tmerr.WithDetails(tmerr.ErrKeyExists, map[string]string{"path": store.Path()}),
			"use --force to replace it",
		)
	}
	return nil
}

func runKeyNew(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	store := keyStore(cc)
	if err := checkOverwrite(store); err != nil {
		return err
	}

	mnemonic, err := keystore.GenerateMnemonic(keyWords)
	if err != nil {
		return err
	}
	key, err := keystore.KeyFromMnemonic(mnemonic, "", 0)
	if err != nil {
		return err
	}
	defer key.Destroy()

	if err := saveKey(store, key); err != nil {
		return err
	}

	resp := KeyResponse{Address: key.Address().Hex(), Path: store.Path(), Mnemonic: mnemonic}
	return cc.Fmt.PrintEither(resp, func(w io.Writer) error {
		out(w, "Key created at %s\n\n", resp.Path)
		out(w, "Address: %s\n\n", resp.Address)
		outln(w, "Recovery phrase (write it down, it will not be shown again):")
		outln(w)
		printMnemonic(w, mnemonic)
		return nil
	})
}

func printMnemonic(w io.Writer, mnemonic string) {
	for i, word := range strings.Fields(mnemonic) {
		out(w, "%3d. %-10s", i+1, word)
		if (i+1)%4 == 0 {
			outln(w)
		}
	}
}

func runKeyImport(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	store := keyStore(cc)
	if err := checkOverwrite(store); err != nil {
		return err
	}

	var secret string
	if len(args) == 1 {
		secret = args[0]
	} else {
		var err error
		if secret, err = promptSecretFn(); err != nil {
			return err
		}
	}

	key, err := parseSecret(secret, keyIndex)
	if err != nil {
		return err
	}
	defer key.Destroy()

	if err := saveKey(store, key); err != nil {
		return err
	}

	resp := KeyResponse{Address: key.Address().Hex(), Path: store.Path()}
	return cc.Fmt.PrintEither(resp, func(w io.Writer) error {
		out(w, "Key imported to %s\n", resp.Path)
		out(w, "Address: %s\n", resp.Address)
		return nil
	})
}

// parseSecret reads a hex private key or, when secret has several words,
// derives account index from a mnemonic.
func parseSecret(secret string, index uint32) (*keystore.Key, error) {
	secret = strings.TrimSpace(secret)
	if len(strings.Fields(keystore.NormalizeMnemonic(secret))) > 1 {
		if err := keystore.ValidateMnemonic(secret); err != nil {
			return nil, err
		}
		return keystore.KeyFromMnemonic(secret, "", index)
	}
	return keystore.ParseHexKey(secret)
}

func saveKey(store *keystore.Store, key *keystore.Key) error {
	password, err := promptNewPasswordFn()
	if err != nil {
		return err
	}
	defer clear(password)

	return store.Save(key, string(password), keyForce)
}

func runKeyShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	store := keyStore(cc)
	if !store.Exists() {
		return tmerr.WithSuggestion(tmerr.ErrKeyNotFound, noKeySuggestion)
	}

	password, err := promptPasswordFn("Enter key password: ")
	if err != nil {
		return err
	}
	defer clear(password)

	key, err := store.Load(string(password))
	if err != nil {
		return err
	}
	defer key.Destroy()

	resp := KeyResponse{Address: key.Address().Hex(), Path: store.Path()}
	return cc.Fmt.PrintEither(resp, func(w io.Writer) error {
		out(w, "Address: %s\n", resp.Address)
		out(w, "File:    %s\n", resp.Path)
		output.WriteQR(w, output.AccountURI(resp.Address, uint64(cc.Cfg.GetChainID()))) //nolint:gosec // G115: chain ID is validated positive
		return nil
	})
}
