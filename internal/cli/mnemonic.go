package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/onboard/internal/credential"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var mnemonicWords int

// mnemonicCmd is the parent command for mnemonic utilities.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var mnemonicCmd = &cobra.Command{
	Use:   "mnemonic",
	Short: "Mnemonic utilities",
	Long:  `Generate and check BIP39 mnemonic phrases offline.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var mnemonicGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new mnemonic and show its address",
	Long: `Generate a BIP39 mnemonic and print it with the address it derives.
Nothing is stored.

Example:
  onboard mnemonic generate --words 24`,
	Args: cobra.NoArgs,
	RunE: runMnemonicGenerate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var mnemonicValidateCmd = &cobra.Command{
	Use:   "validate <word>...",
	Short: "Validate a mnemonic and suggest fixes for typos",
	Long: `Check a mnemonic phrase. Misspelled words get a suggestion from the
BIP39 word list.

Example:
  onboard mnemonic validate test test test test test test test test test test test junk`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMnemonicValidate,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(mnemonicCmd)
	mnemonicCmd.AddCommand(mnemonicGenerateCmd)
	mnemonicCmd.AddCommand(mnemonicValidateCmd)
	mnemonicGenerateCmd.Flags().IntVar(&mnemonicWords, "words", credential.DefaultWordCount, "word count (12 or 24)")
}

// MnemonicResponse describes a mnemonic and its derived address.
type MnemonicResponse struct {
	Mnemonic string `json:"mnemonic,omitempty"`
	Words    int    `json:"words"`
	Address  string `json:"address"`
}

func runMnemonicGenerate(cmd *cobra.Command, _ []string) error {
	mnemonic, err := credential.GenerateMnemonic(mnemonicWords)
	if err != nil {
		return err
	}
	cred, err := credential.Derive(mnemonic)
	if err != nil {
		return err
	}
	defer cred.Destroy()

	resp := MnemonicResponse{Mnemonic: mnemonic, Words: len(cred.Mnemonic), Address: cred.Address}
	return commandFormatter(cmd).Emit(resp, func(w io.Writer) error {
		outln(w, resp.Mnemonic)
		out(w, "Address: %s\n", resp.Address)
		return nil
	})
}

func runMnemonicValidate(cmd *cobra.Command, args []string) error {
	mnemonic := credential.NormalizeMnemonic(strings.Join(args, " "))
	cred, err := credential.Derive(mnemonic)
	if err != nil {
		return err
	}
	defer cred.Destroy()

	resp := MnemonicResponse{Words: len(cred.Mnemonic), Address: cred.Address}
	return commandFormatter(cmd).Emit(resp, func(w io.Writer) error {
		out(w, "Valid %d-word mnemonic, address %s\n", resp.Words, resp.Address)
		return nil
	})
}
