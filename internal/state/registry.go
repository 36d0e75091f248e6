package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/semmy-space/shelf/internal/secrets"
)

// Registry tracks which names are in use so two values never share a
// storage key.
type Registry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Claim reserves name or fails if it is already taken.
func (r *Registry) Claim(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.names[name]; taken {
		return fmt.Errorf("state name %q is already registered", name)
	}
	r.names[name] = struct{}{}
	return nil
}

// Names lists claimed names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.names))
	for n := range r.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register claims name in r and creates the value.
func Register[T any](r *Registry, store *secrets.SecureStore, name string, def T, opts ...Option) (*Value[T], error) {
	if err := r.Claim(name); err != nil {
		return nil, err
	}
	return New(store, name, def, opts...)
}
