package secrets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// SecureStore encrypts every value before it reaches the Backend.
//
// Reads never fail: a missing, corrupt or undecryptable record is reported as
// absent and logged. Writes fail only for configuration problems (no secret)
// or backend I/O errors. A nil Backend turns every operation into a no-op.
type SecureStore struct {
	backend       Backend
	sealer        *sealer
	sealerErr     error
	envelopeGuard bool
	log           hclog.Logger
}

// Option configures a SecureStore.
type Option func(*SecureStore)

// WithLogger sets the logger used for absorbed read failures.
func WithLogger(log hclog.Logger) Option {
	return func(s *SecureStore) {
		if log != nil {
			s.log = log
		}
	}
}

// WithoutEnvelopeGuard makes Get decode objects carrying "state" or
// "version" members instead of returning them as raw strings.
func WithoutEnvelopeGuard() Option {
	return func(s *SecureStore) {
		s.envelopeGuard = false
	}
}

// NewSecureStore wraps backend with encryption keyed by secret.
// An empty secret is accepted here; it only surfaces as ErrMissingKey on Set.
func NewSecureStore(backend Backend, secret string, opts ...Option) *SecureStore {
	s := &SecureStore{
		backend:       backend,
		envelopeGuard: true,
		log:           hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sealer, s.sealerErr = newSealer(secret)
	return s
}

// Available reports whether a backend is attached.
func (s *SecureStore) Available() bool {
	return s.backend != nil
}

// Backend returns the underlying storage area (nil when unavailable).
func (s *SecureStore) Backend() Backend {
	return s.backend
}

// read returns the decrypted plaintext for name.
func (s *SecureStore) read(name string) ([]byte, bool) {
	if s.backend == nil {
		return nil, false
	}

	encrypted, err := s.backend.Get(name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("storage read failed", "key", name, "error", err)
		}
		return nil, false
	}
	if encrypted == "" {
		return nil, false
	}

	if s.sealer == nil {
		s.log.Warn("decryption failed", "key", name, "error", s.sealerErr)
		return nil, false
	}

	plaintext, err := s.sealer.open(encrypted)
	if err != nil {
		s.log.Warn("decryption failed", "key", name, "error", err)
		return nil, false
	}
	return plaintext, true
}

// Get returns the stored value for name.
//
// JSON objects and arrays come back decoded (map[string]any / []any); any
// other plaintext comes back as a string. Objects that look like a
// persistence envelope (non-null "state" or "version") are returned as the
// raw string so the owner of the envelope can decode it itself.
func (s *SecureStore) Get(name string) (any, bool) {
	plaintext, ok := s.read(name)
	if !ok {
		return nil, false
	}
	return s.decode(plaintext), true
}

// GetString returns the decrypted plaintext without structured decoding.
func (s *SecureStore) GetString(name string) (string, bool) {
	plaintext, ok := s.read(name)
	if !ok {
		return "", false
	}
	return string(plaintext), true
}

// Decode unmarshals the decrypted plaintext for name into dst.
// It reports false when the record is absent or is not valid JSON for dst.
func (s *SecureStore) Decode(name string, dst any) bool {
	plaintext, ok := s.read(name)
	if !ok {
		return false
	}
	if err := json.Unmarshal(plaintext, dst); err != nil {
		s.log.Debug("stored value does not decode", "key", name, "error", err)
		return false
	}
	return true
}

func (s *SecureStore) decode(plaintext []byte) any {
	trimmed := bytes.TrimSpace(plaintext)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return string(plaintext)
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return string(plaintext)
	}

	if obj, ok := decoded.(map[string]any); ok && s.envelopeGuard && isEnvelope(obj) {
		return string(plaintext)
	}
	return decoded
}

// isEnvelope matches records written by a persistence layer that wraps its
// payload as {"state": ..., "version": ...}.
func isEnvelope(obj map[string]any) bool {
	return obj["state"] != nil || obj["version"] != nil
}

// Set encrypts value and writes it under name.
// Strings are stored verbatim; everything else is JSON encoded.
func (s *SecureStore) Set(name string, value any) error {
	if s.backend == nil {
		return nil
	}
	if s.sealer == nil {
		return s.sealerErr
	}

	plaintext, err := serialize(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	encrypted, err := s.sealer.seal(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", name, err)
	}

	if err := s.backend.Set(name, encrypted); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

func serialize(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return []byte("null"), nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// Remove deletes name. Removing an absent key is not an error.
func (s *SecureStore) Remove(name string) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Delete(name); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Clear deletes every record in the storage area.
func (s *SecureStore) Clear() error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Clear(); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

// Keys lists record names. Values are not decrypted.
func (s *SecureStore) Keys() ([]string, error) {
	if s.backend == nil {
		return nil, nil
	}
	return s.backend.Keys()
}
