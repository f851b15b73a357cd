package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mrz1836/onboard/internal/fileutil"
)

// ErrCorruptStore indicates the store file is malformed JSON.
var ErrCorruptStore = errors.New("store file is corrupted")

// fileBackend keeps every record in one JSON document on disk.
// The whole document is rewritten on each save.
type fileBackend struct {
	path string
	data map[string]json.RawMessage
}

func openFile(path string) (*fileBackend, error) {
	if path == "" {
		return nil, errors.New("file store path is required")
	}
	f := &fileBackend{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store file: %w", err)
	}
	if len(raw) == 0 {
		return f, nil
	}

	if err := json.Unmarshal(raw, &f.data); err != nil {
		corruptPath := fmt.Sprintf("%s.corrupt.%d", path, time.Now().UTC().UnixNano())
		if renameErr := os.Rename(path, corruptPath); renameErr != nil {
			return nil, fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptStore, err, renameErr)
		}
		return nil, fmt.Errorf("%w: %w (moved to %s)", ErrCorruptStore, err, corruptPath)
	}
	if f.data == nil {
		f.data = make(map[string]json.RawMessage)
	}
	return f, nil
}

func (f *fileBackend) load(key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (f *fileBackend) save(key string, value []byte) error {
	next := make(map[string]json.RawMessage, len(f.data)+1)
	for k, v := range f.data {
		next[k] = v
	}
	v := make(json.RawMessage, len(value))
	copy(v, value)
	next[key] = v
	return f.commit(next)
}

func (f *fileBackend) clear() error {
	return f.commit(make(map[string]json.RawMessage))
}

func (f *fileBackend) close() error {
	return nil
}

// commit writes next as the whole document and only then makes it the
// in-memory view. A failed write leaves the previous view in place.
func (f *fileBackend) commit(next map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling store: %w", err)
	}
	if err := fileutil.ReplaceFile(f.path, data); err != nil {
		return err
	}
	f.data = next
	return nil
}
