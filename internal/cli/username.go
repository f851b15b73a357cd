package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/onboard/internal/appstate"
	"github.com/mrz1836/onboard/internal/credential"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var usernameMnemonic string

// usernameCmd is the parent command for username operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var usernameCmd = &cobra.Command{
	Use:   "username",
	Short: "Username operations",
	Long:  `Check usernames against the backend before registering.`,
}

// usernameCheckCmd checks whether a username is available.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var usernameCheckCmd = &cobra.Command{
	Use:   "check <username>",
	Short: "Check whether a username is available",
	Long: `Ask the backend whether a username is taken. The lookup is signed with a key
derived from --mnemonic, or from a fresh throwaway mnemonic. Nothing is stored.

Example:
  onboard username check alice`,
	Args: cobra.ExactArgs(1),
	RunE: runUsernameCheck,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(usernameCmd)
	usernameCmd.AddCommand(usernameCheckCmd)
	usernameCheckCmd.Flags().StringVar(&usernameMnemonic, "mnemonic", "", "mnemonic used to sign the lookup")
}

// UsernameResponse is the result of a username check.
type UsernameResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
	State     string `json:"state"`
}

func runUsernameCheck(cmd *cobra.Command, args []string) error {
	username := cleanUsername(args[0])
	if username == "" {
		return onboarderr.ErrUsernameRequired
	}

	cc, err := NewCommandContext(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = cc.Close() }()

	if usernameMnemonic != "" {
		mnemonic := credential.NormalizeMnemonic(usernameMnemonic)
		if err := credential.ValidateMnemonic(mnemonic); err != nil {
			return err
		}
		cc.State.SetOnboarding(appstate.Onboarding{Mnemonic: mnemonic})
	}

	ctx, cancel := contextWithTimeout(cmd, lookupTimeout)
	defer cancel()

	available, err := cc.Onboarding.ValidateUsername(ctx, username)
	if err != nil {
		return err
	}

	resp := UsernameResponse{
		Username:  username,
		Available: available,
		State:     string(cc.State.RegistrationState()),
	}
	return commandFormatter(cmd).Emit(resp, func(w io.Writer) error {
		if available {
			out(w, "%s is available\n", username)
		} else {
			out(w, "%s is taken\n", username)
		}
		return nil
	})
}
