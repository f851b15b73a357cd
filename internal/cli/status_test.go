package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/onboard/internal/appstate"
	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/config"
)

func TestRunStatus_Empty(t *testing.T) {
	setupTestEnv(t, nil)

	cmd, buf := newTestCmd()
	require.NoError(t, runStatus(cmd, nil))

	resp := decodeJSON[StatusResponse](t, buf)
	assert.Equal(t, config.StoreFile, resp.Store)
	assert.Empty(t, resp.Address)
	assert.Empty(t, resp.Accounts)
	assert.Zero(t, resp.AccessTokens)
	assert.Nil(t, resp.CreatedAt)
	assert.Nil(t, resp.Metrics)
}

func TestRunStatus_EmptyText(t *testing.T) {
	setupTestEnv(t, nil)
	withTextOutput(t)

	cmd, buf := newTestCmd()
	require.NoError(t, runStatus(cmd, nil))
	assert.Contains(t, buf.String(), "No wallet stored")
}

func TestRunStatus_AfterRegister(t *testing.T) {
	services := newFakeServices(t)
	setupTestEnv(t, services)
	withMockPrompts(t, testPIN, "")
	registerTestWallet(t)

	cmd, buf := newTestCmd()
	require.NoError(t, runStatus(cmd, nil))

	resp := decodeJSON[StatusResponse](t, buf)
	assert.Equal(t, testAddress, resp.Address)
	assert.False(t, resp.Imported)
	assert.Equal(t, 2, resp.WorkFactor)
	require.NotNil(t, resp.CreatedAt)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, backend.UserRegistered, resp.User.State)
	assert.Equal(t, []appstate.Account{
		{ID: testAddress, Type: appstate.AccountTypeKeyBased, IsActive: true},
	}, resp.Accounts)
	assert.Equal(t, []string{"ETH", "USDC"}, resp.Assets)
	assert.Equal(t, []string{"USD", "EUR"}, resp.Fiat)
}

func TestRunStatus_Verbose(t *testing.T) {
	setupTestEnv(t, nil)
	cfg.Output.Verbose = true

	cmd, buf := newTestCmd()
	require.NoError(t, runStatus(cmd, nil))

	resp := decodeJSON[StatusResponse](t, buf)
	assert.NotNil(t, resp.Metrics)
}

func TestDisplayStatusText(t *testing.T) {
	cmd, buf := newTestCmd()
	resp := StatusResponse{
		Store:   "bolt",
		Address: testAddress,
		User:    backend.User{Username: "alice", WalletID: "wallet-1", State: backend.UserPending},
		Assets:  []string{"ETH"},
	}
	require.NoError(t, displayStatusText(cmd.OutOrStdout(), resp))

	out := buf.String()
	assert.Contains(t, out, "Store:")
	assert.Contains(t, out, testAddress)
	assert.Contains(t, out, "PENDING")
	assert.NotContains(t, out, "Created:")
}
