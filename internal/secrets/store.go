package secrets

import "errors"

// Backend is the raw key-value area the SecureStore encrypts into.
// Values are opaque strings; a Backend never sees plaintext.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
	Clear() error
}

// ErrNotFound is returned by a Backend when a key is not present
var ErrNotFound = errors.New("key not found")

// ErrMissingKey is returned by SecureStore.Set when no encryption secret is
// configured. It is a configuration error: callers must not fall back to
// writing plaintext.
var ErrMissingKey = errors.New("encryption key is not configured")

// ServiceName is the service identifier for keyring storage
const ServiceName = "shelf"

// Backend kinds accepted by NewBackend.
const (
	KindAuto    = "auto"
	KindKeyring = "keyring"
	KindFile    = "file"
	KindMemory  = "memory"
	KindNone    = "none"
)
