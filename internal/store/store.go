// Package store is the durable key-value Local State Store.
//
// Records are JSON objects keyed by name. Set either replaces a record or
// shallow-merges the new top-level fields into the existing one. There is no
// multi-key atomicity: every Set is an independent write.
package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// Well-known record keys.
const (
	KeyWallet       = "wallet"
	KeyUser         = "user"
	KeyAppSettings  = "app_settings"
	KeyAssets       = "assets"
	KeyRates        = "rates"
	KeyAccessTokens = "accessTokens"
	KeyAccounts     = "accounts"
	KeyContacts     = "contacts"
	KeyInvitations  = "invitations"
	KeyHistory      = "history"
)

// Backend names accepted by Open.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendFile   = "file"
)

// Record is one stored JSON object.
type Record map[string]any

// Empty reports whether the record has no fields.
func (r Record) Empty() bool {
	return len(r) == 0
}

// Decode unmarshals the record into v.
func (r Record) Decode(v any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Encode converts any JSON-object value into a Record.
func Encode(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	rec := Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("value is not a JSON object: %w", err)
	}
	return rec, nil
}

// ItemsField holds the elements of list-valued records.
const ItemsField = "items"

// List wraps a slice as a Record so list-valued keys fit the object store.
func List(items any) (Record, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("value is not a JSON array: %w", err)
	}
	if raw == nil {
		raw = []any{}
	}
	return Record{ItemsField: raw}, nil
}

// DecodeList unmarshals the list held by a List record into v.
// A record without items leaves v untouched.
func (r Record) DecodeList(v any) error {
	items, ok := r[ItemsField]
	if !ok {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Store is the Local State Store contract.
type Store interface {
	// Get returns the record for key, or an empty record if none exists.
	Get(key string) (Record, error)

	// Set writes rec under key. With replace=false the fields are merged
	// into the existing record.
	Set(key string, rec Record, replace bool) error

	// RemoveAll deletes every record.
	RemoveAll() error

	// Close releases the underlying resources.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string
}

// Open creates the store described by opts.
func Open(opts Options) (Store, error) {
	var (
		b   backend
		err error
	)

	switch strings.ToLower(opts.Backend) {
	case BackendBolt, "":
		b, err = openBolt(opts.Path)
	case BackendSQLite:
		b, err = openSQLite(opts.Path)
	case BackendFile:
		b, err = openFile(opts.Path)
	case BackendMemory:
		b = newMemory()
	default:
		return nil, onboarderr.WithDetails(onboarderr.ErrConfigInvalid, map[string]string{
			"store": opts.Backend,
		})
	}
	if err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}

	return &kvStore{b: b}, nil
}

// NewMemory returns an in-memory store.
func NewMemory() Store {
	return &kvStore{b: newMemory()}
}

// backend is the raw byte storage behind a kvStore.
type backend interface {
	load(key string) ([]byte, error)
	save(key string, value []byte) error
	clear() error
	close() error
}

// kvStore layers JSON records and merge semantics over a backend.
type kvStore struct {
	mu sync.Mutex
	b  backend
}

func (s *kvStore) Get(key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key)
}

func (s *kvStore) get(key string) (Record, error) {
	data, err := s.b.load(key)
	if err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrStoreFailure, fmt.Errorf("reading %s: %w", key, err))
	}
	rec := Record{}
	if len(data) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrStoreFailure, fmt.Errorf("decoding %s: %w", key, err))
	}
	return rec, nil
}

func (s *kvStore) Set(key string, rec Record, replace bool) error {
	if key == "" {
		return onboarderr.WithSuggestion(onboarderr.ErrInvalidInput, "store key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := rec
	if !replace {
		existing, err := s.get(key)
		if err != nil {
			return err
		}
		merged = merge(existing, rec)
	}
	if merged == nil {
		merged = Record{}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return onboarderr.WithCause(onboarderr.ErrStoreFailure, fmt.Errorf("encoding %s: %w", key, err))
	}
	if err := s.b.save(key, data); err != nil {
		return onboarderr.WithCause(onboarderr.ErrStoreFailure, fmt.Errorf("writing %s: %w", key, err))
	}
	return nil
}

func (s *kvStore) RemoveAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.b.clear(); err != nil {
		return onboarderr.WithCause(onboarderr.ErrStoreFailure, err)
	}
	return nil
}

func (s *kvStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.close()
}

// merge overlays the top-level fields of update onto existing.
func merge(existing, update Record) Record {
	out := make(Record, len(existing)+len(update))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}
