package store_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/onboard/internal/store"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// openAll opens one store per backend, each in its own temp dir.
func openAll(t *testing.T) map[string]store.Store {
	t.Helper()
	stores := map[string]store.Store{}
	for _, backend := range []string{store.BackendBolt, store.BackendSQLite, store.BackendFile, store.BackendMemory} {
		s, err := store.Open(store.Options{
			Backend: backend,
			Path:    filepath.Join(t.TempDir(), "state.db"),
		})
		require.NoError(t, err, backend)
		t.Cleanup(func() { _ = s.Close() })
		stores[backend] = s
	}
	return stores
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()
	for name, s := range openAll(t) {
		rec, err := s.Get(store.KeyUser)
		require.NoError(t, err, name)
		assert.True(t, rec.Empty(), name)
		assert.NotNil(t, rec, name)
	}
}

func TestStore_SetReplace(t *testing.T) {
	t.Parallel()
	for name, s := range openAll(t) {
		require.NoError(t, s.Set(store.KeyUser, store.Record{"username": "alice", "state": "PENDING"}, true), name)
		require.NoError(t, s.Set(store.KeyUser, store.Record{"walletId": "w1"}, true), name)

		rec, err := s.Get(store.KeyUser)
		require.NoError(t, err, name)
		assert.Equal(t, store.Record{"walletId": "w1"}, rec, name)
	}
}

func TestStore_SetMerge(t *testing.T) {
	t.Parallel()
	for name, s := range openAll(t) {
		require.NoError(t, s.Set(store.KeyUser, store.Record{"username": "alice", "state": "PENDING"}, false), name)
		require.NoError(t, s.Set(store.KeyUser, store.Record{"walletId": "w1", "state": "REGISTERED"}, false), name)

		rec, err := s.Get(store.KeyUser)
		require.NoError(t, err, name)
		assert.Equal(t, store.Record{
			"username": "alice",
			"walletId": "w1",
			"state":    "REGISTERED",
		}, rec, name)
	}
}

func TestStore_RemoveAll(t *testing.T) {
	t.Parallel()
	for name, s := range openAll(t) {
		require.NoError(t, s.Set(store.KeyContacts, store.Record{"a": "b"}, true), name)
		require.NoError(t, s.Set(store.KeyHistory, store.Record{"c": "d"}, true), name)
		require.NoError(t, s.RemoveAll(), name)

		for _, key := range []string{store.KeyContacts, store.KeyHistory} {
			rec, err := s.Get(key)
			require.NoError(t, err, name)
			assert.True(t, rec.Empty(), name)
		}

		// Still writable after a wipe.
		require.NoError(t, s.Set(store.KeyWallet, store.Record{"address": "0x1"}, true), name)
	}
}

func TestStore_EmptyKey(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	err := s.Set("", store.Record{"a": 1}, true)
	require.ErrorIs(t, err, onboarderr.ErrInvalidInput)
}

func TestStore_NilRecordStoresEmptyObject(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	require.NoError(t, s.Set(store.KeyRates, nil, true))

	rec, err := s.Get(store.KeyRates)
	require.NoError(t, err)
	assert.True(t, rec.Empty())
}

func TestOpen_UnknownBackend(t *testing.T) {
	t.Parallel()
	_, err := store.Open(store.Options{Backend: "postgres"})
	require.ErrorIs(t, err, onboarderr.ErrConfigInvalid)
}

func TestOpen_MissingPath(t *testing.T) {
	t.Parallel()
	for _, backend := range []string{store.BackendBolt, store.BackendSQLite, store.BackendFile} {
		_, err := store.Open(store.Options{Backend: backend})
		require.ErrorIs(t, err, onboarderr.ErrStoreFailure, backend)
	}
}

func TestOpen_SQLiteRejectsNonDatabase(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.db")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not a database "), 128), 0o600))

	_, err := store.Open(store.Options{Backend: store.BackendSQLite, Path: path})
	require.ErrorIs(t, err, onboarderr.ErrStoreFailure)
	require.NoError(t, os.Remove(path))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	for _, backend := range []string{store.BackendBolt, store.BackendSQLite, store.BackendFile} {
		path := filepath.Join(t.TempDir(), "nested", "state.db")

		s, err := store.Open(store.Options{Backend: backend, Path: path})
		require.NoError(t, err, backend)
		require.NoError(t, s.Set(store.KeyWallet, store.Record{"address": "0xabc"}, true), backend)
		require.NoError(t, s.Close(), backend)

		s, err = store.Open(store.Options{Backend: backend, Path: path})
		require.NoError(t, err, backend)
		rec, err := s.Get(store.KeyWallet)
		require.NoError(t, err, backend)
		assert.Equal(t, "0xabc", rec["address"], backend)
		require.NoError(t, s.Close(), backend)
	}
}

func TestFileStore_CorruptFileQuarantined(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := store.Open(store.Options{Backend: store.BackendFile, Path: path})
	require.ErrorIs(t, err, store.ErrCorruptStore)

	matches, err := filepath.Glob(path + ".corrupt.*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

type sample struct {
	Address  string `json:"address"`
	IsActive bool   `json:"isActive"`
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()
	rec, err := store.Encode(sample{Address: "0x1", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, store.Record{"address": "0x1", "isActive": true}, rec)

	var out sample
	require.NoError(t, rec.Decode(&out))
	assert.Equal(t, sample{Address: "0x1", IsActive: true}, out)

	_, err = store.Encode([]string{"not", "an", "object"})
	require.Error(t, err)
}

func TestListRecords(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()

	rec, err := store.List([]sample{{Address: "0x1"}, {Address: "0x2"}})
	require.NoError(t, err)
	require.NoError(t, s.Set(store.KeyAccounts, rec, true))

	got, err := s.Get(store.KeyAccounts)
	require.NoError(t, err)

	var out []sample
	require.NoError(t, got.DecodeList(&out))
	assert.Equal(t, []sample{{Address: "0x1"}, {Address: "0x2"}}, out)

	empty, err := store.List([]sample(nil))
	require.NoError(t, err)
	assert.Equal(t, []any{}, empty[store.ItemsField])

	var none []sample
	require.NoError(t, store.Record{}.DecodeList(&none))
	assert.Nil(t, none)
}
