package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/onboard/internal/output"
	"github.com/mrz1836/onboard/internal/reconcile"
	"github.com/mrz1836/onboard/internal/store"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var tokensWalletID string

// tokensCmd is the parent command for access token operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Contact access tokens",
	Long:  `Inspect and restore the access tokens shared with contacts.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokensRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore access tokens from the backend",
	Long: `Fetch access tokens and connection notifications from the backend, match
them and store the result. When the backend has no notifications the stored
tokens are left untouched.

Example:
  onboard tokens restore`,
	Args: cobra.NoArgs,
	RunE: runTokensRestore,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored access tokens",
	Args:  cobra.NoArgs,
	RunE:  runTokensList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.AddCommand(tokensRestoreCmd)
	tokensCmd.AddCommand(tokensListCmd)
	tokensRestoreCmd.Flags().StringVar(&tokensWalletID, "wallet-id", "", "wallet id (default: from the stored user record)")
}

// TokensResponse lists access tokens.
type TokensResponse struct {
	WalletID string                  `json:"walletId,omitempty"`
	Updated  bool                    `json:"updated"`
	Tokens   []reconcile.AccessToken `json:"tokens"`
}

func runTokensRestore(cmd *cobra.Command, _ []string) error {
	pin, err := promptPINFn()
	if err != nil {
		return err
	}

	cc, err := NewCommandContext(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = cc.Close() }()

	cred, err := cc.UnlockWallet(pin)
	if err != nil {
		return err
	}
	defer cred.Destroy()

	walletID := tokensWalletID
	if walletID == "" {
		user, err := cc.StoredUser()
		if err != nil {
			return err
		}
		walletID = user.WalletID
	}
	if walletID == "" {
		return onboarderr.WithSuggestion(onboarderr.ErrNotFound,
			"no wallet id stored, run onboard retry or pass --wallet-id")
	}

	ctx, cancel := contextWithTimeout(cmd, lookupTimeout)
	defer cancel()

	restored, err := cc.Reconciler.Restore(ctx, walletID)
	if err != nil {
		return err
	}

	resp := TokensResponse{WalletID: walletID, Updated: restored != nil, Tokens: restored}
	if resp.Tokens == nil {
		resp.Tokens = []reconcile.AccessToken{}
	}
	return commandFormatter(cmd).Emit(resp, func(w io.Writer) error {
		if !resp.Updated {
			outln(w, "No connection notifications, stored tokens unchanged")
			return nil
		}
		return renderTokens(w, resp.Tokens)
	})
}

func runTokensList(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = cc.Close() }()

	tokens, err := storedTokens(cc.Store)
	if err != nil {
		return err
	}

	resp := TokensResponse{Tokens: tokens}
	return commandFormatter(cmd).Emit(resp, func(w io.Writer) error {
		return renderTokens(w, resp.Tokens)
	})
}

func storedTokens(st store.Store) ([]reconcile.AccessToken, error) {
	rec, err := st.Get(store.KeyAccessTokens)
	if err != nil {
		return nil, err
	}
	tokens := []reconcile.AccessToken{}
	if err := rec.DecodeList(&tokens); err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}
	return tokens, nil
}

func renderTokens(w io.Writer, tokens []reconcile.AccessToken) error {
	if len(tokens) == 0 {
		outln(w, "No access tokens")
		return nil
	}
	table := output.NewTable("USER", "MY TOKEN", "THEIR TOKEN")
	for _, tok := range tokens {
		table.AddRow(tok.UserID, tok.MyAccessToken, tok.UserAccessToken)
	}
	return table.Render(w)
}
