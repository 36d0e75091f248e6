package secrets

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/adrg/xdg"
)

// KeyringBackend implements Backend using the OS keyring.
type KeyringBackend struct {
	ring keyring.Keyring
}

// NewKeyringBackend opens the OS keyring for the shelf service.
// Returns an error if the keyring is unavailable on this platform.
func NewKeyringBackend() (*KeyringBackend, error) {
	cfg := keyring.Config{
		ServiceName:              ServiceName,
		KeychainTrustApplication: true, // macOS: don't prompt every access
		FileDir:                  filepath.Join(xdg.DataHome, "shelf", "keyring"),
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	return &KeyringBackend{ring: ring}, nil
}

// NewKeyringBackendFrom wraps an already opened keyring.
func NewKeyringBackendFrom(ring keyring.Keyring) *KeyringBackend {
	return &KeyringBackend{ring: ring}
}

func (s *KeyringBackend) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring get failed: %w", err)
	}
	return string(item.Data), nil
}

func (s *KeyringBackend) Set(key, value string) error {
	item := keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: ServiceName + ": " + key,
	}
	if err := s.ring.Set(item); err != nil {
		return fmt.Errorf("keyring set failed: %w", err)
	}
	return nil
}

func (s *KeyringBackend) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	return nil
}

func (s *KeyringBackend) Keys() ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("keyring list failed: %w", err)
	}
	return keys, nil
}

// Clear removes every item stored under the service.
func (s *KeyringBackend) Clear() error {
	keys, err := s.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.Delete(key); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}
