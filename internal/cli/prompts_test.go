package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// withSecretSequence answers secret prompts from answers in order.
func withSecretSequence(t *testing.T, answers ...string) *[]string {
	t.Helper()
	orig := promptSecretFn
	t.Cleanup(func() { promptSecretFn = orig })

	var prompts []string
	promptSecretFn = func(prompt string) ([]byte, error) {
		prompts = append(prompts, prompt)
		if len(answers) == 0 {
			return nil, errTestRandom
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
	return &prompts
}

func TestReadPIN(t *testing.T) {
	withSecretSequence(t, "  1234 \n")
	pin, err := readPIN("PIN: ")
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)
}

func TestReadPIN_Empty(t *testing.T) {
	withSecretSequence(t, "   ")
	_, err := readPIN("PIN: ")
	require.ErrorIs(t, err, onboarderr.ErrMissingPIN)
}

func TestReadPIN_PromptError(t *testing.T) {
	withSecretSequence(t)
	_, err := readPIN("PIN: ")
	require.ErrorIs(t, err, errTestRandom)
}

func TestPromptNewPIN(t *testing.T) {
	prompts := withSecretSequence(t, "4321", "4321")
	pin, err := promptNewPIN()
	require.NoError(t, err)
	assert.Equal(t, "4321", pin)
	assert.Equal(t, []string{"Choose a PIN: ", "Confirm PIN: "}, *prompts)
}

func TestPromptNewPIN_Errors(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		wantErr error
	}{
		{"too short", []string{"12"}, onboarderr.ErrInvalidInput},
		{"mismatch", []string{"1234", "1235"}, onboarderr.ErrInvalidInput},
		{"empty confirm", []string{"1234", ""}, onboarderr.ErrMissingPIN},
		{"empty", []string{""}, onboarderr.ErrMissingPIN},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			withSecretSequence(t, tc.answers...)
			_, err := promptNewPIN()
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPromptImportedKey(t *testing.T) {
	withSecretSequence(t, " "+testKeyHex+"\n")
	cred, err := promptImportedKey()
	require.NoError(t, err)
	defer cred.Destroy()
	assert.Equal(t, testAddress, cred.Address)
	assert.True(t, cred.Imported)
}
