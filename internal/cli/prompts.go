package cli

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mrz1836/onboard/internal/credential"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// minPINLength is the shortest PIN accepted for a new wallet.
const minPINLength = 4

// Prompt functions are variables so tests can replace them.
//
//nolint:gochecknoglobals // Swappable for tests
var (
	promptSecretFn = promptSecret
	promptPINFn    = func() (string, error) { return readPIN("Enter PIN: ") }
	promptNewPINFn = promptNewPIN
)

// promptSecret prompts for a value with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptSecret(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	secret, err := term.ReadPassword(syscall.Stdin)
	outln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return secret, nil
}

func readPIN(prompt string) (string, error) {
	raw, err := promptSecretFn(prompt)
	if err != nil {
		return "", err
	}
	defer credential.ZeroBytes(raw)

	pin := strings.TrimSpace(string(raw))
	if pin == "" {
		return "", onboarderr.ErrMissingPIN
	}
	return pin, nil
}

// promptNewPIN prompts for a new PIN with confirmation.
func promptNewPIN() (string, error) {
	pin, err := readPIN("Choose a PIN: ")
	if err != nil {
		return "", err
	}
	if len(pin) < minPINLength {
		return "", onboarderr.WithSuggestion(
			onboarderr.ErrInvalidInput,
			fmt.Sprintf("PIN must be at least %d characters", minPINLength),
		)
	}

	confirm, err := readPIN("Confirm PIN: ")
	if err != nil {
		return "", err
	}
	if pin != confirm {
		return "", onboarderr.WithSuggestion(onboarderr.ErrInvalidInput, "PINs do not match")
	}
	return pin, nil
}
