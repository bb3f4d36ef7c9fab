package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// minPasswordLength is the shortest accepted key password.
const minPasswordLength = 8

// Prompt functions are variables so tests can replace them.
//
//nolint:gochecknoglobals // Replaceable for testing
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptSecretFn      = promptSecret

	promptIn  io.Reader = os.Stdin
	promptOut io.Writer = os.Stderr
)

// out writes CLI output, ignoring write errors.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

// promptPassword reads a line without echo on a terminal. When stdin is a
// pipe, as in scripted `echo $PW | testament key show`, the first line is
// read as is. The caller zeroes the result.
func promptPassword(prompt string) ([]byte, error) {
	out(promptOut, "%s", prompt)
	defer outln(promptOut)

	if f, ok := promptIn.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: Fd() fits in int
		pw, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // G115: Fd() fits in int
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return pw, nil
	}
	return readLine(promptIn)
}

// readLine reads up to the first newline without buffering past it, so
// consecutive prompts on one pipe each get their own line.
func readLine(r io.Reader) ([]byte, error) {
	var line []byte
	one := make([]byte, 1)
	for {
		n, err := r.Read(one)
		if n == 1 {
			if one[0] == '\n' {
				break
			}
			line = append(line, one[0])
		}
		if err == io.EOF {
			if len(line) == 0 {
				return nil, fmt.Errorf("reading password: %w", io.ErrUnexpectedEOF)
			}
			break
		}
		if err != nil {
			clear(line)
			return nil, fmt.Errorf("reading password: %w", err)
		}
	}
	return bytes.TrimSuffix(line, []byte{'\r'}), nil
}

// promptNewPassword asks twice and enforces the minimum length. The caller
// zeroes the result.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter key password: ")
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		clear(password)
		return nil, tmerr.WithSuggestion(tmerr.ErrInvalidInput,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	defer clear(confirm)
	switch {
	case err != nil:
		clear(password)
		return nil, err
	case !bytes.Equal(password, confirm):
		clear(password)
		return nil, tmerr.WithSuggestion(tmerr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}

// promptSecret reads a private key or recovery phrase without echo.
func promptSecret() (string, error) {
	secret, err := promptPasswordFn("Enter private key (hex) or mnemonic phrase: ")
	if err != nil {
		return "", err
	}
	defer clear(secret)

	if len(bytes.TrimSpace(secret)) == 0 {
		return "", tmerr.WithSuggestion(tmerr.ErrInvalidInput, "no input provided")
	}
	return string(secret), nil
}
