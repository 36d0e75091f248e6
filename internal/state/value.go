// Package state keeps named, typed values in memory and mirrors every change
// into the encrypted store so they survive restarts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/semmy-space/shelf/internal/secrets"
)

// envelope is the persisted layout: {"state":{"<name>":<value>},"version":<n>}.
type envelope struct {
	State   map[string]json.RawMessage `json:"state"`
	Version int                        `json:"version"`
}

type config struct {
	version int
	log     hclog.Logger
}

// Option configures a Value.
type Option func(*config)

// WithVersion sets the layout version. A persisted record with a different
// version is ignored on load.
func WithVersion(v int) Option {
	return func(c *config) {
		c.version = v
	}
}

// WithLogger sets the logger used when a persisted record is discarded.
func WithLogger(log hclog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// Value is a named value of type T. Reads are served from memory; writes go
// to the store first and only then replace the in-memory copy.
type Value[T any] struct {
	store *secrets.SecureStore
	name  string
	cfg   config
	def   T

	mu      sync.RWMutex
	current T
	present bool
}

// New creates the value called name and rehydrates it from store. A missing,
// unreadable or version-mismatched record leaves the default in place.
func New[T any](store *secrets.SecureStore, name string, def T, opts ...Option) (*Value[T], error) {
	if name == "" {
		return nil, errors.New("state name must not be empty")
	}
	if store == nil {
		store = secrets.NewSecureStore(nil, "")
	}

	cfg := config{log: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	v := &Value[T]{
		store:   store,
		name:    name,
		cfg:     cfg,
		def:     def,
		current: def,
	}
	v.rehydrate()
	return v, nil
}

func (v *Value[T]) rehydrate() {
	raw, ok := v.store.GetString(v.name)
	if !ok {
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		v.cfg.log.Warn("discarding unreadable persisted state", "name", v.name, "error", err)
		return
	}
	if env.Version != v.cfg.version {
		v.cfg.log.Warn("discarding persisted state with different version",
			"name", v.name, "stored", env.Version, "expected", v.cfg.version)
		return
	}

	member, ok := env.State[v.name]
	if !ok || string(member) == "null" {
		return
	}

	var value T
	if err := json.Unmarshal(member, &value); err != nil {
		v.cfg.log.Warn("discarding persisted state of wrong shape", "name", v.name, "error", err)
		return
	}

	v.current = value
	v.present = true
}

// Name returns the storage key of the value.
func (v *Value[T]) Name() string {
	return v.name
}

// Get returns the in-memory value and whether one has been set or
// rehydrated. When nothing is set the default is returned with false.
func (v *Value[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current, v.present
}

// Set persists value and then makes it current. On a persistence error the
// in-memory value is left unchanged.
func (v *Value[T]) Set(value T) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	member, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", v.name, err)
	}

	data, err := json.Marshal(envelope{
		State:   map[string]json.RawMessage{v.name: member},
		Version: v.cfg.version,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", v.name, err)
	}

	if err := v.store.Set(v.name, string(data)); err != nil {
		return err
	}

	v.current = value
	v.present = true
	return nil
}

// Clear removes the persisted record and restores the default.
func (v *Value[T]) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.store.Remove(v.name); err != nil {
		return err
	}

	v.current = v.def
	v.present = false
	return nil
}
