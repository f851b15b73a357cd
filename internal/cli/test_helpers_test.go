package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/config"
	"github.com/mrz1836/onboard/internal/output"
)

const (
	testMnemonic = "test test test test test test test test test test test junk"
	testAddress  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testKeyHex   = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testPIN      = "1234"
)

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, pin, secret string) {
	t.Helper()
	origSecret := promptSecretFn
	origPIN := promptPINFn
	origNewPIN := promptNewPINFn
	t.Cleanup(func() {
		promptSecretFn = origSecret
		promptPINFn = origPIN
		promptNewPINFn = origNewPIN
	})
	promptSecretFn = func(_ string) ([]byte, error) {
		return []byte(secret), nil
	}
	promptPINFn = func() (string, error) { return pin, nil }
	promptNewPINFn = func() (string, error) { return pin, nil }
}

// fakeServices serves the backend, chat and rate endpoints from one server.
type fakeServices struct {
	*httptest.Server

	mu            sync.Mutex
	calls         []string
	registered    string
	refuse        string
	takenUsername string
	notifications []backend.RawNotification
}

func newFakeServices(t *testing.T) *fakeServices {
	t.Helper()
	f := &fakeServices{takenUsername: "taken"}

	mux := http.NewServeMux()
	mux.HandleFunc("/wallet/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.registered = body["username"]
		refuse := f.refuse
		f.mu.Unlock()
		if refuse != "" {
			writeJSON(w, backend.RegisterResult{Error: true, Reason: refuse})
			return
		}
		writeJSON(w, backend.RegisterResult{WalletID: "wallet-1", UserID: "user-1"})
	})
	mux.HandleFunc("/user/info", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		username := f.registered
		f.mu.Unlock()
		writeJSON(w, backend.User{ID: "user-1", Username: username, WalletID: "wallet-1"})
	})
	mux.HandleFunc("/user/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") == f.takenUsername {
			writeJSON(w, backend.User{ID: "user-9", Username: f.takenUsername})
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/wallet/assets", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, backend.AssetList{
			"ETH":  {Symbol: "ETH", Name: "Ether", Decimals: 18},
			"USDC": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		})
	})
	mux.HandleFunc("/connection/access-tokens", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []backend.AccessToken{
			{ContactID: "user-2", AccessKey: "mine-2"},
			{ContactID: "user-3", AccessKey: "mine-3"},
		})
	})
	mux.HandleFunc("/notifications", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := f.notifications
		if out == nil {
			out = []backend.RawNotification{}
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("/v1/accounts", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/accounts/push", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/pricemulti", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]map[string]float64{
			"ETH":  {"USD": 2000, "EUR": 1800},
			"USDC": {"USD": 1, "EUR": 0.9},
		})
	})

	f.Server = httptest.NewServer(recordCalls(f, mux))
	t.Cleanup(f.Close)
	return f
}

func recordCalls(f *fakeServices, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *fakeServices) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}

// addConnection queues a notification from contactID carrying their key.
func (f *fakeServices) addConnection(t *testing.T, typ, contactID, key string, createdAt int64) {
	t.Helper()
	n, err := backend.NewRawNotification(map[string]any{
		"type": typ,
		"senderUserData": map[string]any{
			"id":            contactID,
			"connectionKey": key,
		},
	}, createdAt)
	require.NoError(t, err)
	f.mu.Lock()
	f.notifications = append(f.notifications, n)
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// setupTestEnv points the CLI globals at a temp home and the fake services.
func setupTestEnv(t *testing.T, services *fakeServices) string {
	t.Helper()
	origCfg, origLogger, origFormatter := cfg, logger, formatter
	t.Cleanup(func() {
		cfg, logger, formatter = origCfg, origLogger, origFormatter
	})

	home := t.TempDir()
	cfg = config.Defaults()
	cfg.Home = home
	cfg.Store.Backend = config.StoreFile
	cfg.Store.Path = "state.json"
	cfg.Encryption.WorkFactor = 2
	cfg.Onboarding = config.OnboardingConfig{}
	cfg.Push.Token = "push-token-1"
	if services != nil {
		cfg.Backend.URL = services.URL
		cfg.Chat.URL = services.URL
		cfg.Rates.URL = services.URL
	}
	cfg.Backend.RatePerSecond = 0
	cfg.Chat.RatePerSecond = 0
	cfg.Rates.RatePerSecond = 0

	logger = config.NullLogger()
	formatter = output.NewFormatter(output.FormatJSON, io.Discard)
	return home
}

// newTestCmd returns a command with captured output.
func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

// withTextOutput switches the global formatter to text for one test.
func withTextOutput(t *testing.T) {
	t.Helper()
	formatter = output.NewFormatter(output.FormatText, io.Discard)
}

// resetRegisterFlags clears the register and retry flag globals.
func resetRegisterFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		registerMnemonic, registerGenerate, registerImport = "", false, false
		registerWords, registerUsername, registerBackedUp = 12, "", false
		retryUsername = ""
	})
	registerMnemonic, registerGenerate, registerImport = "", false, false
	registerWords, registerUsername, registerBackedUp = 12, "", false
	retryUsername = ""
}

func decodeJSON[T any](t *testing.T, buf *bytes.Buffer) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
	return v
}

func mustContext(t *testing.T) *CommandContext {
	t.Helper()
	cc, err := NewCommandContext(cfg, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })
	return cc
}
