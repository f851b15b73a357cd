package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/onboard/internal/backend"
	"github.com/mrz1836/onboard/internal/reconcile"
	"github.com/mrz1836/onboard/internal/store"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

type mockBackend struct {
	tokens        []backend.AccessToken
	notifications []backend.RawNotification
	tokenErr      error
	notifyErr     error

	mu         sync.Mutex
	askedTypes []string
}

func (m *mockBackend) FetchAccessTokens(_ context.Context, _ string) ([]backend.AccessToken, error) {
	return m.tokens, m.tokenErr
}

func (m *mockBackend) FetchNotifications(_ context.Context, _ string, types []string) ([]backend.RawNotification, error) {
	m.mu.Lock()
	m.askedTypes = types
	m.mu.Unlock()
	return m.notifications, m.notifyErr
}

type mockPublisher struct {
	calls  int
	tokens []reconcile.AccessToken
}

func (m *mockPublisher) SetAccessTokens(tokens []reconcile.AccessToken) {
	m.calls++
	m.tokens = tokens
}

func note(t *testing.T, typ, id, connectionKey string, createdAt int64) backend.RawNotification {
	t.Helper()
	n, err := backend.NewRawNotification(map[string]any{
		"type": typ,
		"senderUserData": map[string]any{
			"id":            id,
			"connectionKey": connectionKey,
			"username":      "user-" + id,
		},
	}, createdAt)
	require.NoError(t, err)
	return n
}

func storedTokens(t *testing.T, s store.Store) ([]reconcile.AccessToken, bool) {
	t.Helper()
	rec, err := s.Get(store.KeyAccessTokens)
	require.NoError(t, err)
	if rec.Empty() {
		return nil, false
	}
	var out []reconcile.AccessToken
	require.NoError(t, rec.DecodeList(&out))
	return out, true
}

func seedTokens(t *testing.T, s store.Store, tokens []reconcile.AccessToken) {
	t.Helper()
	rec, err := store.List(tokens)
	require.NoError(t, err)
	require.NoError(t, s.Set(store.KeyAccessTokens, rec, true))
}

func TestRestore_WorkedExample(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	pub := &mockPublisher{}
	be := &mockBackend{
		tokens:        []backend.AccessToken{{ContactID: "A", AccessKey: "k1"}},
		notifications: []backend.RawNotification{note(t, reconcile.TypeReceived, "A", "c1", 100)},
	}

	r := reconcile.New(&reconcile.Config{Backend: be, Store: s, Publisher: pub})
	got, err := r.Restore(context.Background(), "w1")
	require.NoError(t, err)

	expected := []reconcile.AccessToken{{MyAccessToken: "k1", UserID: "A", UserAccessToken: "c1"}}
	assert.Equal(t, expected, got)
	assert.Equal(t, []string{reconcile.TypeReceived, reconcile.TypeAccepted}, be.askedTypes)

	stored, ok := storedTokens(t, s)
	require.True(t, ok)
	assert.Equal(t, expected, stored)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, expected, pub.tokens)
}

func TestRestore_NoNotificationsKeepsStoredTokens(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	previous := []reconcile.AccessToken{{MyAccessToken: "old", UserID: "Z", UserAccessToken: "cz"}}
	seedTokens(t, s, previous)

	pub := &mockPublisher{}
	be := &mockBackend{tokens: []backend.AccessToken{{ContactID: "A", AccessKey: "k1"}}}

	got, err := reconcile.New(&reconcile.Config{Backend: be, Store: s, Publisher: pub}).Restore(context.Background(), "w1")
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, ok := storedTokens(t, s)
	require.True(t, ok)
	assert.Equal(t, previous, stored)
	assert.Equal(t, 0, pub.calls)
}

func TestRestore_ZeroMatchesPersistsEmptyList(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	seedTokens(t, s, []reconcile.AccessToken{{MyAccessToken: "old", UserID: "Z", UserAccessToken: "cz"}})

	be := &mockBackend{
		tokens:        []backend.AccessToken{{ContactID: "A", AccessKey: "k1"}},
		notifications: []backend.RawNotification{note(t, reconcile.TypeReceived, "B", "c2", 100)},
	}

	got, err := reconcile.New(&reconcile.Config{Backend: be, Store: s}).Restore(context.Background(), "w1")
	require.NoError(t, err)
	assert.Empty(t, got)

	stored, ok := storedTokens(t, s)
	require.True(t, ok)
	assert.Empty(t, stored)
}

func TestRestore_Errors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")

	tests := []struct {
		name string
		be   *mockBackend
	}{
		{"tokens", &mockBackend{tokenErr: boom}},
		{"notifications", &mockBackend{notifyErr: boom}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := store.NewMemory()
			_, err := reconcile.New(&reconcile.Config{Backend: tc.be, Store: s}).Restore(context.Background(), "w1")
			require.ErrorIs(t, err, boom)

			_, ok := storedTokens(t, s)
			assert.False(t, ok)
		})
	}
}

func TestRestore_RequiresWalletID(t *testing.T) {
	t.Parallel()
	_, err := reconcile.New(&reconcile.Config{Backend: &mockBackend{}, Store: store.NewMemory()}).Restore(context.Background(), "")
	require.ErrorIs(t, err, onboarderr.ErrInvalidInput)
}

func TestParseNotifications_SortsNewestFirstAndSkipsGarbage(t *testing.T) {
	t.Parallel()
	raw := []backend.RawNotification{
		note(t, reconcile.TypeReceived, "A", "c-old", 100),
		{Payload: backend.NotificationPayload{Msg: "{not json"}, CreatedAt: 500},
		note(t, reconcile.TypeAccepted, "B", "c-b", 300),
		note(t, reconcile.TypeReceived, "A", "c-new", 200),
	}

	got := reconcile.ParseNotifications(raw)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{300, 200, 100}, []int64{got[0].CreatedAt, got[1].CreatedAt, got[2].CreatedAt})
	assert.Equal(t, "B", got[0].ID)
	assert.Equal(t, "c-b", got[0].ConnectionKey)
	assert.Equal(t, "user-B", got[0].Username)
	assert.Equal(t, reconcile.TypeAccepted, got[0].Type)
}

func TestMatch_DuplicateKeepsMostRecent(t *testing.T) {
	t.Parallel()
	notes := reconcile.ParseNotifications([]backend.RawNotification{
		note(t, reconcile.TypeReceived, "A", "c-old", 100),
		note(t, reconcile.TypeReceived, "A", "c-new", 200),
	})

	got := reconcile.Match([]backend.AccessToken{{ContactID: "A", AccessKey: "k1"}}, notes)
	require.Len(t, got, 1)
	assert.Equal(t, "c-new", got[0].UserAccessToken)
}

func TestMatch_ReceivedBeforeSent(t *testing.T) {
	t.Parallel()
	notes := reconcile.ParseNotifications([]backend.RawNotification{
		note(t, reconcile.TypeAccepted, "A", "c-sent", 300),
		note(t, reconcile.TypeReceived, "A", "c-received", 100),
		note(t, reconcile.TypeAccepted, "B", "c-b", 50),
	})

	got := reconcile.Match([]backend.AccessToken{
		{ContactID: "A", AccessKey: "k1"},
		{ContactID: "B", AccessKey: "k2"},
		{ContactID: "C", AccessKey: "k3"},
	}, notes)

	assert.Equal(t, []reconcile.AccessToken{
		{MyAccessToken: "k1", UserID: "A", UserAccessToken: "c-received"},
		{MyAccessToken: "k2", UserID: "B", UserAccessToken: "c-b"},
	}, got)
}

func TestMatch_IgnoresOtherTypes(t *testing.T) {
	t.Parallel()
	notes := reconcile.ParseNotifications([]backend.RawNotification{
		note(t, "REJECTED", "A", "c1", 100),
	})
	got := reconcile.Match([]backend.AccessToken{{ContactID: "A", AccessKey: "k1"}}, notes)
	assert.Empty(t, got)
}
