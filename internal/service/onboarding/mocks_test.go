package onboarding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mrz1836/onboard/internal/appstate"
	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/chat"
	"github.com/mrz1836/onboard/internal/credential"
	"github.com/mrz1836/onboard/internal/keycrypt"
	"github.com/mrz1836/onboard/internal/metrics"
	"github.com/mrz1836/onboard/internal/rates"
	"github.com/mrz1836/onboard/internal/reconcile"
	"github.com/mrz1836/onboard/internal/store"
)

var errMock = errors.New("mock failure") //nolint:gochecknoglobals,err113 // test error

const (
	testMnemonic = "test test test test test test test test test test test junk"
	testAddress  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testPIN      = "1234"
)

// mockStore wraps the memory store and records every call.
type mockStore struct {
	store.Store

	mu        sync.Mutex
	calls     []string
	removeErr error
	setErr    map[string]error
}

func newMockStore() *mockStore {
	return &mockStore{Store: store.NewMemory(), setErr: map[string]error{}}
}

func (m *mockStore) Set(key string, rec store.Record, replace bool) error {
	m.mu.Lock()
	m.calls = append(m.calls, "set:"+key)
	err := m.setErr[key]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Store.Set(key, rec, replace)
}

func (m *mockStore) RemoveAll() error {
	m.mu.Lock()
	m.calls = append(m.calls, "removeAll")
	err := m.removeErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Store.RemoveAll()
}

func (m *mockStore) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// mockBackend is a scripted backend.
type mockBackend struct {
	mu sync.Mutex

	initKey     []byte
	initErr     error
	pushToken   string
	username    string
	registerRes *backend.RegisterResult
	registerErr error
	userInfo    *backend.User
	userInfoErr error
	searchRes   *backend.User
	searchErr   error
	searched    []string
	assets      backend.AssetList
	assetsErr   error
	calls       []string
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		registerRes: &backend.RegisterResult{WalletID: "wallet-1", UserID: "user-1"},
		userInfo:    &backend.User{ID: "user-1", Username: "alice", WalletID: "wallet-1"},
		searchRes:   &backend.User{},
		assets: backend.AssetList{
			"ETH":  {Symbol: "ETH", Name: "Ether", Decimals: 18},
			"USDC": {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		},
	}
}

func (m *mockBackend) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockBackend) Init(privateKey []byte) error {
	m.record("init")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initKey = append([]byte(nil), privateKey...)
	return m.initErr
}

func (m *mockBackend) RegisterOnAuthServer(_ context.Context, pushToken, username string) (*backend.RegisterResult, error) {
	m.record("register")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushToken, m.username = pushToken, username
	return m.registerRes, m.registerErr
}

func (m *mockBackend) UserInfo(_ context.Context, _ string) (*backend.User, error) {
	m.record("userInfo")
	return m.userInfo, m.userInfoErr
}

func (m *mockBackend) UsernameSearch(_ context.Context, username string) (*backend.User, error) {
	m.record("usernameSearch")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched = append(m.searched, username)
	return m.searchRes, m.searchErr
}

func (m *mockBackend) FetchInitialAssets(_ context.Context, _ string) (backend.AssetList, error) {
	m.record("assets")
	return m.assets, m.assetsErr
}

func (m *mockBackend) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// mockChat records provisioning calls.
type mockChat struct {
	mu          sync.Mutex
	identity    chat.Identity
	token       string
	initErr     error
	registerErr error
	calls       []string
}

func (m *mockChat) Init(_ context.Context, id chat.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "init")
	m.identity = id
	return m.initErr
}

func (m *mockChat) RegisterAccount(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "register")
	return m.registerErr
}

func (m *mockChat) SetPushToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "pushToken")
	m.token = token
	return nil
}

func (m *mockChat) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockPush struct {
	token         string
	permissionErr error
	tokenErr      error
}

func (m *mockPush) RequestPermission(_ context.Context) error { return m.permissionErr }

func (m *mockPush) Token(_ context.Context) (string, error) {
	if m.tokenErr != nil {
		return "", m.tokenErr
	}
	return m.token, nil
}

type mockRates struct {
	rates   rates.Rates
	err     error
	symbols []string
}

func (m *mockRates) GetExchangeRates(_ context.Context, symbols []string) (rates.Rates, error) {
	m.symbols = symbols
	return m.rates, m.err
}

type mockTokens struct {
	walletID string
	tokens   []reconcile.AccessToken
	err      error
	calls    int
}

func (m *mockTokens) Restore(_ context.Context, walletID string) ([]reconcile.AccessToken, error) {
	m.calls++
	m.walletID = walletID
	return m.tokens, m.err
}

type mockNavigator struct {
	mu     sync.Mutex
	routes []Route
}

func (m *mockNavigator) Navigate(route Route) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route)
}

func (m *mockNavigator) recorded() []Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Route(nil), m.routes...)
}

type mockSupport struct {
	token string
	err   error
}

func (m *mockSupport) SendToken(_ context.Context, token string) error {
	m.token = token
	return m.err
}

type mockImageCache struct {
	cleared int
	err     error
}

func (m *mockImageCache) Clear(_ context.Context) error {
	m.cleared++
	return m.err
}

// mockEncryptor delegates to a fast real encryptor unless told to fail.
type mockEncryptor struct {
	real       *keycrypt.Encryptor
	encryptErr error
	empty      bool
}

func newMockEncryptor() *mockEncryptor {
	return &mockEncryptor{real: keycrypt.NewEncryptor(2, "test-salt")}
}

func (m *mockEncryptor) Encrypt(cred *credential.Credential, pin string) (*keycrypt.Record, error) {
	if m.encryptErr != nil {
		return &keycrypt.Record{}, m.encryptErr
	}
	if m.empty {
		return &keycrypt.Record{Address: cred.Address}, nil
	}
	return m.real.Encrypt(cred, pin)
}

func (m *mockEncryptor) Decrypt(rec *keycrypt.Record, pin string) (*credential.Credential, error) {
	return m.real.Decrypt(rec, pin)
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Debug(string, ...any) {}

func (m *mockLogger) Error(format string, _ ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, format)
}

// fixture bundles a service with all of its mocks.
type fixture struct {
	store     *mockStore
	state     *appstate.State
	encryptor *mockEncryptor
	backend   *mockBackend
	chat      *mockChat
	push      *mockPush
	rates     *mockRates
	tokens    *mockTokens
	navigator *mockNavigator
	support   *mockSupport
	images    *mockImageCache
	logger    *mockLogger
	metrics   *metrics.Metrics
	slept     []time.Duration
	service   *Service
}

func newFixture() *fixture {
	f := &fixture{
		store:     newMockStore(),
		state:     appstate.New(),
		encryptor: newMockEncryptor(),
		backend:   newMockBackend(),
		chat:      &mockChat{},
		push:      &mockPush{token: "push-token"},
		rates:     &mockRates{rates: rates.Rates{"ETH": {"USD": 2000}}},
		tokens:    &mockTokens{tokens: []reconcile.AccessToken{{MyAccessToken: "k1", UserID: "u2", UserAccessToken: "k2"}}},
		navigator: &mockNavigator{},
		support:   &mockSupport{},
		images:    &mockImageCache{},
		logger:    &mockLogger{},
		metrics:   &metrics.Metrics{},
	}
	f.service = NewService(&Config{
		Store:          f.store,
		State:          f.state,
		Encryptor:      f.encryptor,
		Backend:        f.backend,
		Chat:           f.chat,
		Push:           f.push,
		Rates:          f.rates,
		Tokens:         f.tokens,
		Navigator:      f.navigator,
		SupportChannel: f.support,
		ImageCache:     f.images,
		Logger:         f.logger,
		Metrics:        f.metrics,
		Delays:         DefaultDelays(),
		Now:            func() time.Time { return time.UnixMilli(1700000000000) },
		Sleep:          func(d time.Duration) { f.slept = append(f.slept, d) },
	})
	return f
}
