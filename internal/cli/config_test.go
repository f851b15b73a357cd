package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/onboard/internal/config"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

func TestGetConfigValue(t *testing.T) {
	testCfg := config.Defaults()
	testCfg.Home = "/test/home"
	testCfg.Output.DefaultFormat = "json"
	testCfg.Output.Verbose = true
	testCfg.Logging.Level = "debug"
	testCfg.Backend.URL = "https://backend.example.com"
	testCfg.Store.Backend = config.StoreSQLite

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "home", path: "home", want: "/test/home"},
		{name: "unknown single key", path: "unknown", wantErr: true},

		{name: "output.default_format", path: "output.default_format", want: "json"},
		{name: "output.verbose true", path: "output.verbose", want: "true"},
		{name: "output.unknown", path: "output.unknown", wantErr: true},

		{name: "logging.level", path: "logging.level", want: "debug"},

		{name: "backend.url", path: "backend.url", want: "https://backend.example.com"},
		{name: "backend.timeout_seconds", path: "backend.timeout_seconds", want: "30"},
		{name: "store.backend", path: "store.backend", want: "sqlite"},
		{name: "rates inline url", path: "rates.url", want: config.DefaultRatesURL},
		{name: "rates.fiat list", path: "rates.fiat", want: "USD,EUR,GBP"},
		{name: "encryption.work_factor", path: "encryption.work_factor", want: "14"},

		{name: "section is not a value", path: "backend", wantErr: true},
		{name: "unknown.key", path: "unknown.key", wantErr: true},
		{name: "too many parts", path: "backend.url.extra", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := getConfigValue(testCfg, tc.path)
			if tc.wantErr {
				require.ErrorIs(t, err, onboarderr.ErrNotFound)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestSetConfigValue(t *testing.T) {
	base := config.Defaults()

	updated, err := setConfigValue(base, "backend.url", "https://other.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com", updated.Backend.URL)
	assert.Equal(t, config.DefaultBackendURL, base.Backend.URL)

	updated, err = setConfigValue(base, "encryption.work_factor", "16")
	require.NoError(t, err)
	assert.Equal(t, 16, updated.Encryption.WorkFactor)

	updated, err = setConfigValue(base, "rates.fiat", "[USD, JPY]")
	require.NoError(t, err)
	assert.Equal(t, []string{"USD", "JPY"}, updated.Rates.Fiat)

	updated, err = setConfigValue(base, "output.verbose", "true")
	require.NoError(t, err)
	assert.True(t, updated.Output.Verbose)
}

func TestSetConfigValue_Errors(t *testing.T) {
	base := config.Defaults()

	_, err := setConfigValue(base, "backend.nope", "x")
	require.ErrorIs(t, err, onboarderr.ErrNotFound)

	_, err = setConfigValue(base, "backend", "x")
	require.ErrorIs(t, err, onboarderr.ErrNotFound)

	_, err = setConfigValue(base, "encryption.work_factor", "lots")
	require.ErrorIs(t, err, onboarderr.ErrConfigInvalid)
}

func TestRunConfigInit(t *testing.T) {
	home := setupTestEnv(t, nil)
	origForce := configForce
	t.Cleanup(func() { configForce = origForce })
	configForce = false

	cmd, buf := newTestCmd()
	require.NoError(t, runConfigInit(cmd, nil))
	assert.Contains(t, buf.String(), "Configuration initialized")

	_, err := os.Stat(config.Path(home))
	require.NoError(t, err)

	cmd, _ = newTestCmd()
	err = runConfigInit(cmd, nil)
	require.ErrorIs(t, err, onboarderr.ErrGeneral)

	configForce = true
	cmd, _ = newTestCmd()
	require.NoError(t, runConfigInit(cmd, nil))
}

func TestRunConfigSetAndGet(t *testing.T) {
	home := setupTestEnv(t, nil)

	cmd, buf := newTestCmd()
	require.NoError(t, runConfigSet(cmd, []string{"chat.url", "https://chat.example.com"}))
	assert.Equal(t, "Set chat.url = https://chat.example.com\n", buf.String())

	loaded, err := config.Load(config.Path(home))
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com", loaded.Chat.URL)

	cfg = loaded
	cmd, buf = newTestCmd()
	require.NoError(t, runConfigGet(cmd, []string{"chat.url"}))
	assert.Equal(t, "https://chat.example.com\n", buf.String())
}

func TestRunConfigShow_MasksSecrets(t *testing.T) {
	setupTestEnv(t, nil)
	withTextOutput(t)
	cfg.Encryption.PINSalt = "super-secret-salt"

	cmd, buf := newTestCmd()
	require.NoError(t, runConfigShow(cmd, nil))

	out := buf.String()
	assert.Contains(t, out, "pin_salt: supe...")
	assert.NotContains(t, out, "super-secret-salt")
	assert.NotContains(t, out, "push-token-1")
	assert.Equal(t, "super-secret-salt", cfg.Encryption.PINSalt)
}

func TestRunConfigShow_JSON(t *testing.T) {
	setupTestEnv(t, nil)

	cmd, buf := newTestCmd()
	require.NoError(t, runConfigShow(cmd, nil))

	tree := decodeJSON[map[string]any](t, buf)
	assert.Contains(t, tree, "backend")
	assert.Contains(t, tree, "encryption")
}

func TestMaskSecret(t *testing.T) {
	assert.Empty(t, maskSecret(""))
	assert.Equal(t, "***", maskSecret("short"))
	assert.Equal(t, "abcd...", maskSecret("abcdefgh"))
}
