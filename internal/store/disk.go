package store

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore implements Store as one file per key under a directory.
// Writes go through a temp file and rename so a crash mid-write can
// never leave a torn value behind.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk store rooted at dir
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Get retrieves a value from the disk store
func (s *DiskStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read value: %w", err)
	}
	return data, true, nil
}

// Set stores a value atomically
func (s *DiskStore) Set(key string, value []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	path := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write value: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename value file: %w", err)
	}
	return nil
}

// Delete removes a value
func (s *DiskStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Keys returns all keys with the given prefix
func (s *DiskStore) Keys(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list store dir: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".v") {
			continue
		}
		decoded, err := base64.URLEncoding.DecodeString(strings.TrimSuffix(name, ".v"))
		if err != nil {
			continue
		}
		key := string(decoded)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Clear removes all stored values
func (s *DiskStore) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

// path maps a key onto a filesystem-safe file name
func (s *DiskStore) path(key string) string {
	return filepath.Join(s.dir, base64.URLEncoding.EncodeToString([]byte(key))+".v")
}
