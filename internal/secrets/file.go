package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
)

// FileBackend implements Backend with a single JSON map file.
// Values written by the SecureStore are already encrypted, so the file only
// ever holds ciphertext. A lock file serializes writers across processes.
type FileBackend struct {
	path     string
	lockPath string
	mu       sync.Mutex
}

// DefaultFilePath returns the XDG data location of the store file
func DefaultFilePath() string {
	return filepath.Join(xdg.DataHome, "shelf", "store.json")
}

// NewFileBackend creates a file-backed store at path.
// An empty path selects DefaultFilePath.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		path = DefaultFilePath()
	}

	// Create parent directory with 0700 permissions
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &FileBackend{
		path:     path,
		lockPath: path + ".lock",
	}, nil
}

// Path returns the location of the backing file.
func (s *FileBackend) Path() string {
	return s.path
}

// withLock runs fn while holding both the in-process mutex and the file lock.
func (s *FileBackend) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock: timeout")
	}
	defer lock.Unlock()

	return fn()
}

// readStore parses the store file.
// Returns an empty map if the file doesn't exist.
func (s *FileBackend) readStore() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	if len(data) == 0 {
		return make(map[string]string), nil
	}

	var store map[string]string
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	if store == nil {
		store = make(map[string]string)
	}

	return store, nil
}

// writeStore writes the map to a temp file and renames it into place.
func (s *FileBackend) writeStore(store map[string]string) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	return nil
}

// Get retrieves a value by key.
func (s *FileBackend) Get(key string) (string, error) {
	var value string
	err := s.withLock(func() error {
		store, err := s.readStore()
		if err != nil {
			return err
		}
		v, ok := store[key]
		if !ok {
			return ErrNotFound
		}
		value = v
		return nil
	})
	return value, err
}

// Set stores a value under key.
func (s *FileBackend) Set(key, value string) error {
	return s.withLock(func() error {
		store, err := s.readStore()
		if err != nil {
			return err
		}
		store[key] = value
		return s.writeStore(store)
	})
}

// Delete removes a key.
func (s *FileBackend) Delete(key string) error {
	return s.withLock(func() error {
		store, err := s.readStore()
		if err != nil {
			return err
		}
		if _, ok := store[key]; !ok {
			return ErrNotFound
		}
		delete(store, key)
		return s.writeStore(store)
	})
}

// Keys returns all stored keys in sorted order.
func (s *FileBackend) Keys() ([]string, error) {
	var keys []string
	err := s.withLock(func() error {
		store, err := s.readStore()
		if err != nil {
			return err
		}
		keys = make([]string, 0, len(store))
		for k := range store {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil
	})
	return keys, err
}

// Clear removes every key by deleting the file.
func (s *FileBackend) Clear() error {
	return s.withLock(func() error {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete store file: %w", err)
		}
		return nil
	})
}
