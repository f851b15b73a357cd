// Package appstate holds the process-wide application state that the
// orchestrator writes and the UI layer observes. All access is serialized.
package appstate

import (
	"sync"

	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/credential"
	"github.com/mrz1836/onboard/internal/rates"
	"github.com/mrz1836/onboard/internal/reconcile"
)

// RegistrationState is the single active onboarding state.
type RegistrationState string

// Registration states.
const (
	StateIdle             RegistrationState = "IDLE"
	StateGenerating       RegistrationState = "GENERATING"
	StateEncrypting       RegistrationState = "ENCRYPTING"
	StateRegistering      RegistrationState = "REGISTERING"
	StateUsernameExists   RegistrationState = "USERNAME_EXISTS"
	StateUsernameOK       RegistrationState = "USERNAME_OK"
	StateCheckingUsername RegistrationState = "CHECKING_USERNAME"

	StateRegistrationFailed RegistrationState = "REGISTRATION_FAILED"
	StateEncryptionFailed   RegistrationState = "ENCRYPTION_FAILED"
	StateRegistered         RegistrationState = "REGISTERED"
)

// allStates is used to map backend reasons onto known states.
var allStates = []RegistrationState{ //nolint:gochecknoglobals // enum table
	StateIdle, StateGenerating, StateEncrypting, StateRegistering,
	StateUsernameExists, StateUsernameOK, StateCheckingUsername,
	StateRegistrationFailed, StateEncryptionFailed, StateRegistered,
}

// ParseRegistrationState returns the state named by s.
func ParseRegistrationState(s string) (RegistrationState, bool) {
	for _, st := range allStates {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Failed reports whether the state is a failure value.
func (s RegistrationState) Failed() bool {
	return s == StateRegistrationFailed || s == StateEncryptionFailed
}

// Transition is published to subscribers on every state change.
type Transition struct {
	From   RegistrationState
	To     RegistrationState
	Reason string
}

// Account is a wallet account entry.
type Account struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	IsActive bool   `json:"isActive"`
}

// AccountTypeKeyBased is the type of the default account.
const AccountTypeKeyBased = "KEY_BASED"

// Onboarding is the in-memory onboarding input gathered by the UI.
type Onboarding struct {
	Mnemonic       string
	ImportedWallet *credential.Credential
	APIUser        backend.User
}

// Wallet is the in-memory wallet data.
type Wallet struct {
	Address    string
	Credential *credential.Credential
}

// UserStatus is the user profile and its registration state.
type UserStatus struct {
	User  backend.User
	State backend.UserState
}

// Snapshot is a copy of the state at one point in time.
type Snapshot struct {
	Registration  RegistrationState
	FailureReason string
	Onboarding    Onboarding
	Address       string
	User          UserStatus
	Assets        backend.AssetList
	Rates         rates.Rates
	AccessTokens  []reconcile.AccessToken
	Accounts      []Account
	Contacts      []any
	Invitations   []any
	History       []any
	AppSettings   map[string]any
}

// State is the serialized application state.
type State struct {
	mu sync.Mutex

	registration  RegistrationState
	failureReason string
	onboarding    Onboarding
	wallet        Wallet
	user          UserStatus
	assets        backend.AssetList
	rates         rates.Rates
	accessTokens  []reconcile.AccessToken
	accounts      []Account
	contacts      []any
	invitations   []any
	history       []any
	appSettings   map[string]any

	subscribers map[int]chan Transition
	nextSubID   int
}

// New creates an idle state.
func New() *State {
	return &State{
		registration: StateIdle,
		subscribers:  make(map[int]chan Transition),
	}
}

// Subscribe returns a channel of transitions and a cancel function.
// Sends never block: a full channel drops the transition.
func (s *State) Subscribe(buffer int) (<-chan Transition, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Transition, buffer)
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

// SetRegistrationState replaces the active state and clears any failure reason.
func (s *State) SetRegistrationState(st RegistrationState) {
	s.transition(st, "")
}

// Fail sets a failure state together with its reason.
func (s *State) Fail(st RegistrationState, reason string) {
	s.transition(st, reason)
}

func (s *State) transition(st RegistrationState, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Transition{From: s.registration, To: st, Reason: reason}
	s.registration = st
	s.failureReason = reason

	for _, ch := range s.subscribers {
		select {
		case ch <- t:
		default:
		}
	}
}

// RegistrationState returns the active state.
func (s *State) RegistrationState() RegistrationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registration
}

// FailureReason returns the reason recorded with the last failure, if any.
func (s *State) FailureReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failureReason
}

// SetOnboarding replaces the onboarding input.
func (s *State) SetOnboarding(o Onboarding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboarding = o
}

// Onboarding returns the onboarding input.
func (s *State) Onboarding() Onboarding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onboarding
}

// SetMnemonic records the onboarding mnemonic.
func (s *State) SetMnemonic(mnemonic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboarding.Mnemonic = mnemonic
}

// SetAPIUser records the user found or chosen during username validation.
func (s *State) SetAPIUser(u backend.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboarding.APIUser = u
}

// SetWallet records the wallet address and, optionally, the live credential.
func (s *State) SetWallet(address string, cred *credential.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = Wallet{Address: address, Credential: cred}
}

// Wallet returns the in-memory wallet.
func (s *State) Wallet() Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallet
}

// SetUser records the user profile and its state.
func (s *State) SetUser(u backend.User, st backend.UserState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = UserStatus{User: u, State: st}
}

// User returns the user profile and state.
func (s *State) User() UserStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// SetAssets replaces the asset list.
func (s *State) SetAssets(a backend.AssetList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = a
}

// SetRates replaces the exchange rates.
func (s *State) SetRates(r rates.Rates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = r
}

// SetAccessTokens replaces the access tokens.
func (s *State) SetAccessTokens(tokens []reconcile.AccessToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens = append([]reconcile.AccessToken(nil), tokens...)
}

// AccessTokens returns a copy of the access tokens.
func (s *State) AccessTokens() []reconcile.AccessToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reconcile.AccessToken(nil), s.accessTokens...)
}

// AddAccount adds or replaces an account by id.
func (s *State) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].ID == a.ID {
			s.accounts[i] = a
			return
		}
	}
	s.accounts = append(s.accounts, a)
}

// Accounts returns a copy of the accounts.
func (s *State) Accounts() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Account(nil), s.accounts...)
}

// SetAppSettings replaces the app settings.
func (s *State) SetAppSettings(settings map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appSettings = settings
}

// ResetLocalData empties the wallet, user, accounts, contacts, invitations,
// assets, rates, settings, access tokens and history. Onboarding input and
// the registration state survive.
func (s *State) ResetLocalData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = Wallet{}
	s.user = UserStatus{}
	s.accounts = []Account{}
	s.contacts = []any{}
	s.invitations = []any{}
	s.assets = backend.AssetList{}
	s.rates = rates.Rates{}
	s.appSettings = map[string]any{}
	s.accessTokens = []reconcile.AccessToken{}
	s.history = []any{}
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Registration:  s.registration,
		FailureReason: s.failureReason,
		Onboarding:    s.onboarding,
		Address:       s.wallet.Address,
		User:          s.user,
		Assets:        s.assets,
		Rates:         s.rates,
		AccessTokens:  append([]reconcile.AccessToken(nil), s.accessTokens...),
		Accounts:      append([]Account(nil), s.accounts...),
		Contacts:      s.contacts,
		Invitations:   s.invitations,
		History:       s.history,
		AppSettings:   s.appSettings,
	}
}
