// Package fileutil holds the filesystem helpers shared by the state store,
// the config file and the log file.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Permissions for onboard data. Everything under the home directory is
// private to the user.
const (
	DirPerm  os.FileMode = 0o750
	FilePerm os.FileMode = 0o600
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// EnsureParent creates the directory that will hold path.
func EnsureParent(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return fmt.Errorf("creating directory for %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReplaceFile swaps the content of path for data with FilePerm permissions.
// Readers see the old content or the new content, never a torn write.
func ReplaceFile(path string, data []byte) error {
	if err := EnsureParent(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := syncWrite(tmp, data); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // path comes from configuration
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	syncDir(dir)
	return nil
}

// syncWrite writes data, fixes permissions and flushes f to disk. f is
// always closed.
func syncWrite(f *os.File, data []byte) error {
	_, err := f.Write(data)
	if err == nil {
		err = f.Chmod(FilePerm)
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	return nil
}

// syncDir makes the rename durable where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // dir is derived from the target path
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
