package cli

import (
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/onboard/internal/appstate"
	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/keycrypt"
	"github.com/mrz1836/onboard/internal/metrics"
	"github.com/mrz1836/onboard/internal/output"
	"github.com/mrz1836/onboard/internal/rates"
	"github.com/mrz1836/onboard/internal/store"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// statusCmd shows what is stored locally.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the locally stored wallet and registration data",
	Long: `Show the stored wallet address, user record, accounts, assets and tokens.
Nothing is decrypted and no remote call is made.

Example:
  onboard status
  onboard status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(statusCmd)
}

// StatusResponse summarizes the local state store.
type StatusResponse struct {
	Store        string             `json:"store"`
	Address      string             `json:"address,omitempty"`
	Imported     bool               `json:"imported"`
	BackedUp     bool               `json:"backedUp"`
	WorkFactor   int                `json:"workFactor,omitempty"`
	CreatedAt    *time.Time         `json:"createdAt,omitempty"`
	User         backend.User       `json:"user"`
	Accounts     []appstate.Account `json:"accounts"`
	Assets       []string           `json:"assets"`
	Fiat         []string           `json:"fiat,omitempty"`
	AccessTokens int                `json:"accessTokens"`
	Metrics      *metrics.Snapshot  `json:"metrics,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = cc.Close() }()

	resp, err := loadStatus(cc)
	if err != nil {
		return err
	}
	if cfg.IsVerbose() {
		snap := metrics.Global.Snapshot()
		resp.Metrics = &snap
	}

	return commandFormatter(cmd).Emit(resp, func(w io.Writer) error {
		return displayStatusText(w, resp)
	})
}

func loadStatus(cc *CommandContext) (StatusResponse, error) {
	resp := StatusResponse{Store: cc.Config.Store.Backend}

	var wallet keycrypt.Record
	var settings struct {
		Wallet int64 `json:"wallet"`
	}
	var assets backend.AssetList
	var prices rates.Rates

	decode := []struct {
		key string
		v   any
	}{
		{store.KeyWallet, &wallet},
		{store.KeyUser, &resp.User},
		{store.KeyAppSettings, &settings},
		{store.KeyAssets, &assets},
		{store.KeyRates, &prices},
	}
	for _, d := range decode {
		rec, err := cc.Store.Get(d.key)
		if err != nil {
			return resp, err
		}
		if err := rec.Decode(d.v); err != nil {
			return resp, onboarderr.WithDetails(
				onboarderr.WithCause(onboarderr.ErrStoreFailure, err),
				map[string]string{"key": d.key},
			)
		}
	}

	accountsRec, err := cc.Store.Get(store.KeyAccounts)
	if err != nil {
		return resp, err
	}
	resp.Accounts = []appstate.Account{}
	if err := accountsRec.DecodeList(&resp.Accounts); err != nil {
		return resp, onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}

	tokens, err := storedTokens(cc.Store)
	if err != nil {
		return resp, err
	}

	resp.Address = wallet.Address
	resp.Imported = wallet.BackupStatus.IsImported
	resp.BackedUp = wallet.BackupStatus.IsBackedUp
	resp.WorkFactor = wallet.KDF.WorkFactor
	if settings.Wallet > 0 {
		created := time.UnixMilli(settings.Wallet).UTC()
		resp.CreatedAt = &created
	}
	resp.Assets = assets.Symbols()
	for _, f := range cc.Config.Rates.Fiat {
		if _, ok := prices.UsdToFiat(f); ok && len(prices) > 0 {
			resp.Fiat = append(resp.Fiat, f)
		}
	}
	resp.AccessTokens = len(tokens)
	return resp, nil
}

func displayStatusText(w io.Writer, resp StatusResponse) error {
	if resp.Address == "" {
		outln(w, "No wallet stored. Run onboard register to create one.")
		return nil
	}

	table := output.NewTable()
	table.AddRow("Store:", resp.Store)
	table.AddRow("Address:", resp.Address)
	table.AddRow("Imported:", strconv.FormatBool(resp.Imported))
	table.AddRow("Backed up:", strconv.FormatBool(resp.BackedUp))
	if resp.CreatedAt != nil {
		table.AddRow("Created:", resp.CreatedAt.Format(time.RFC3339))
	}
	table.AddRow("Username:", resp.User.Username)
	table.AddRow("Wallet ID:", resp.User.WalletID)
	table.AddRow("User state:", string(resp.User.State))
	table.AddRow("Accounts:", strconv.Itoa(len(resp.Accounts)))
	table.AddRow("Assets:", strconv.Itoa(len(resp.Assets)))
	table.AddRow("Access tokens:", strconv.Itoa(resp.AccessTokens))
	if err := table.Render(w); err != nil {
		return err
	}

	if resp.Metrics != nil {
		outln(w)
		return output.WriteJSON(w, resp.Metrics)
	}
	return nil
}
