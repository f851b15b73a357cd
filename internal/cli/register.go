package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
	"github.com/spf13/cobra"

	"github.com/mrz1836/onboard/internal/credential"
	"github.com/mrz1836/onboard/internal/output"
	"github.com/mrz1836/onboard/internal/service/onboarding"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	registerMnemonic string
	registerGenerate bool
	registerWords    int
	registerImport   bool
	registerUsername string
	registerBackedUp bool
	retryUsername    string
)

// registerCmd creates, encrypts and registers a new wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create and register a wallet",
	Long: `Create a wallet from a mnemonic or an imported private key, encrypt it under
a PIN and register it with the backend.

All local data is wiped first. Chat provisioning, exchange rates and token
restoration are best effort; a backend refusal stops the run.

Example:
  onboard register --generate --username alice
  onboard register --mnemonic "test test ... junk"
  onboard register --import-key`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

// retryCmd re-runs backend registration for the stored wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry backend registration for the stored wallet",
	Long: `Unlock the stored wallet with its PIN and run the registration steps again.
Nothing is wiped. The username comes from --username or the stored user record.

Example:
  onboard retry`,
	Args: cobra.NoArgs,
	RunE: runRetry,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(retryCmd)

	registerCmd.Flags().StringVar(&registerMnemonic, "mnemonic", "", "mnemonic phrase to derive the wallet from")
	registerCmd.Flags().BoolVar(&registerGenerate, "generate", false, "generate a new mnemonic")
	registerCmd.Flags().IntVar(&registerWords, "words", credential.DefaultWordCount, "word count for --generate (12 or 24)")
	registerCmd.Flags().BoolVar(&registerImport, "import-key", false, "prompt for a hex private key instead of a mnemonic")
	registerCmd.Flags().StringVar(&registerUsername, "username", "", "username to register")
	registerCmd.Flags().BoolVar(&registerBackedUp, "backed-up", false, "mark the mnemonic as already backed up")
	registerCmd.MarkFlagsMutuallyExclusive("mnemonic", "generate", "import-key")

	retryCmd.Flags().StringVar(&retryUsername, "username", "", "username to register instead of the stored one")
}

// RegisterResponse is the result of register and retry.
type RegisterResponse struct {
	Address   string   `json:"address"`
	State     string   `json:"state"`
	Reason    string   `json:"reason,omitempty"`
	Username  string   `json:"username,omitempty"`
	WalletID  string   `json:"walletId,omitempty"`
	UserState string   `json:"userState,omitempty"`
	Tokens    int      `json:"accessTokens"`
	Mnemonic  string   `json:"mnemonic,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`
}

func runRegister(cmd *cobra.Command, _ []string) error {
	in := &onboarding.Input{
		Username:   cleanUsername(registerUsername),
		IsBackedUp: registerBackedUp,
	}

	generated := ""
	switch {
	case registerImport:
		cred, err := promptImportedKey()
		if err != nil {
			return err
		}
		defer cred.Destroy()
		in.Credential = cred
	case registerGenerate:
		mnemonic, err := credential.GenerateMnemonic(registerWords)
		if err != nil {
			return err
		}
		in.Mnemonic, generated = mnemonic, mnemonic
	case strings.TrimSpace(registerMnemonic) != "":
		in.Mnemonic = credential.NormalizeMnemonic(registerMnemonic)
		if err := credential.ValidateMnemonic(in.Mnemonic); err != nil {
			return err
		}
	default:
		return onboarderr.WithSuggestion(onboarderr.ErrInvalidInput,
			"pass --generate, --mnemonic or --import-key")
	}

	pin, err := promptNewPINFn()
	if err != nil {
		return err
	}
	in.PIN = pin

	cc, err := NewCommandContext(cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = cc.Close() }()

	ctx, cancel := contextWithTimeout(cmd, registerTimeout)
	defer cancel()

	if err := cc.Onboarding.RegisterWallet(ctx, in); err != nil {
		return err
	}

	resp := registerResponse(cc)
	resp.Mnemonic = generated
	return commandFormatter(cmd).Emit(resp, func(w io.Writer) error {
		if generated != "" {
			output.Warn(cmd.ErrOrStderr(), "write down your mnemonic, it is the only way to recover this wallet")
		}
		displayRegisterText(w, resp)
		return nil
	})
}

func runRetry(cmd *cobra.Command, _ []string) error {
	pin, err := promptPINFn()
	if err != nil {
		return err
	}

	cc, err := NewCommandContext(cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = cc.Close() }()

	ctx, cancel := contextWithTimeout(cmd, registerTimeout)
	defer cancel()

	in := &onboarding.Input{PIN: pin, Username: cleanUsername(retryUsername)}
	if err := cc.Onboarding.RegisterOnBackend(ctx, in); err != nil {
		return err
	}

	resp := registerResponse(cc)
	return commandFormatter(cmd).Emit(resp, func(w io.Writer) error {
		displayRegisterText(w, resp)
		return nil
	})
}

func promptImportedKey() (*credential.Credential, error) {
	raw, err := promptSecretFn("Enter private key (hex): ")
	if err != nil {
		return nil, err
	}
	defer credential.ZeroBytes(raw)
	return credential.FromPrivateKeyHex(strings.TrimSpace(string(raw)))
}

// cleanUsername strips everything but letters, digits, dashes and underscores.
func cleanUsername(username string) string {
	return sanitize.PathName(strings.TrimSpace(username))
}

func registerResponse(cc *CommandContext) RegisterResponse {
	snap := cc.State.Snapshot()
	resp := RegisterResponse{
		Address:   snap.Address,
		State:     string(snap.Registration),
		Reason:    snap.FailureReason,
		Username:  snap.User.User.Username,
		WalletID:  snap.User.User.WalletID,
		UserState: string(snap.User.State),
		Tokens:    len(snap.AccessTokens),
	}
	for _, o := range cc.Onboarding.LastReport().Failures(onboarding.Advisory) {
		resp.Skipped = append(resp.Skipped, o.String())
	}
	return resp
}

func displayRegisterText(w io.Writer, resp RegisterResponse) {
	table := output.NewTable()
	table.AddRow("Address:", resp.Address)
	table.AddRow("State:", resp.State)
	if resp.Username != "" {
		table.AddRow("Username:", resp.Username)
	}
	if resp.WalletID != "" {
		table.AddRow("Wallet ID:", resp.WalletID)
	}
	table.AddRow("User:", resp.UserState)
	table.AddRow("Access tokens:", strconv.Itoa(resp.Tokens))
	_ = table.Render(w)

	if resp.Mnemonic != "" {
		outln(w)
		outln(w, "Mnemonic:")
		outln(w, "  "+resp.Mnemonic)
	}
	if len(resp.Skipped) > 0 {
		outln(w)
		outln(w, "Skipped steps:")
		for _, s := range resp.Skipped {
			outln(w, "  "+s)
		}
	}
}
