package keystore

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// MaxTypoDistance is the largest edit distance offered as a suggestion.
const MaxTypoDistance = 2

//nolint:gochecknoglobals // Compiled once, read-only
var (
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// DerivationPath returns the BIP44 Ethereum path for account index i.
func DerivationPath(index uint32) string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", index)
}

// NormalizeMnemonic lowercases the phrase, strips list numbering and bullets,
// and collapses separators to single spaces.
func NormalizeMnemonic(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	return strings.Join(strings.Fields(input), " ")
}

// GenerateMnemonic creates a 12 or 24 word phrase.
func GenerateMnemonic(words int) (string, error) {
	var bits int
	switch words {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return "", tmerr.WithDetails(tmerr.ErrInvalidInput, map[string]string{"words": "must be 12 or 24"})
	}

	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic checks word count, vocabulary and checksum. Unknown
// words come back with the closest dictionary word as a suggestion.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonic(mnemonic)
	words := strings.Fields(normalized)
	if len(words) != 12 && len(words) != 24 {
		return tmerr.WithDetails(tmerr.ErrInvalidMnemonic, map[string]string{
			"words": fmt.Sprintf("%d (expected 12 or 24)", len(words)),
		})
	}

	var hints []string
	for i, w := range words {
		if _, ok := bip39.GetWordIndex(w); ok {
			continue
		}
		if s := SuggestWord(w); s != "" {
			hints = append(hints, fmt.Sprintf("word %d %q: did you mean %q?", i+1, w, s))
		} else {
			hints = append(hints, fmt.Sprintf("word %d %q is not a BIP39 word", i+1, w))
		}
	}
	if len(hints) > 0 {
		return tmerr.WithSuggestion(tmerr.ErrInvalidMnemonic, strings.Join(hints, "; "))
	}

	if !bip39.IsMnemonicValid(normalized) {
		return tmerr.WithSuggestion(tmerr.ErrInvalidMnemonic, "checksum mismatch: check the word order")
	}
	return nil
}

// SuggestWord returns the closest BIP39 word within MaxTypoDistance, or "".
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	best, bestDist := "", math.MaxInt
	for _, w := range bip39.GetWordList() {
		d := levenshtein.ComputeDistance(input, w)
		if d == 0 {
			return w
		}
		if d < bestDist {
			best, bestDist = w, d
		}
	}
	if bestDist <= MaxTypoDistance {
		return best
	}
	return ""
}

// KeyFromMnemonic derives the key at m/44'/60'/0'/0/index.
func KeyFromMnemonic(mnemonic, passphrase string, index uint32) (*Key, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(NormalizeMnemonic(mnemonic), passphrase)
	defer clear(seed)

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}

	path := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 60,
		bip32.FirstHardenedChild,
		0,
		index,
	}
	for _, child := range path {
		if key, err = key.NewChildKey(child); err != nil {
			return nil, fmt.Errorf("deriving %s: %w", DerivationPath(index), err)
		}
	}

	return NewKey(SecureBytesFrom(common.LeftPadBytes(key.Key, 32)))
}
