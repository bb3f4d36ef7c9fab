// Package fileutil provides crash-safe helpers for the files under the testament home.
package fileutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// WriteAtomic replaces path with data. Readers see either the old content
// or the new, never a partial file.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	return commit(path, data, perm, func(tmp string) error {
		return os.Rename(tmp, path) //nolint:gosec // G703: path comes from config, not request input
	})
}

// CreateAtomic writes data to path only if path does not exist yet. It fails
// with an error matching os.ErrExist otherwise, so two writers racing for
// the same key file cannot both win.
func CreateAtomic(path string, data []byte, perm os.FileMode) error {
	return commit(path, data, perm, func(tmp string) error {
		return os.Link(tmp, path)
	})
}

// commit stages data in a synced temp file next to path, then publishes it.
func commit(path string, data []byte, perm os.FileMode, publish func(tmp string) error) error {
	if path == "" {
		return ErrEmptyPath
	}
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("staging %s: %w", filepath.Base(path), err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := stage(tmp, data, perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("staging %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("staging %s: %w", filepath.Base(path), err)
	}

	if err := publish(tmpPath); err != nil {
		return fmt.Errorf("publishing %s: %w", filepath.Base(path), err)
	}
	syncDir(dir)
	return nil
}

func stage(f *os.File, data []byte, perm os.FileMode) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Chmod(perm); err != nil {
		return err
	}
	return f.Sync()
}

// syncDir flushes the directory entry so the new name survives a crash.
// Failures are ignored; not every platform can fsync a directory.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // G304: dir is the parent of a config-derived path
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// WriteJSONAtomic marshals v with indentation and writes it with WriteAtomic,
// creating the parent directory when missing.
func WriteJSONAtomic(path string, v any, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	return WriteAtomic(path, append(data, '\n'), perm)
}

// RemoveIfExists removes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
