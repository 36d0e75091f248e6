package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semmy-space/shelf/internal/secrets"
)

const testSecret = "state-test-secret"

type user struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type template struct {
	Theme string `json:"theme"`
}

func newStore(backend secrets.Backend) *secrets.SecureStore {
	return secrets.NewSecureStore(backend, testSecret)
}

func TestRehydrateAcrossInstances(t *testing.T) {
	backend := secrets.NewMemoryBackend()

	first, err := New[*user](newStore(backend), "user", nil)
	require.NoError(t, err)

	_, ok := first.Get()
	assert.False(t, ok)

	want := &user{ID: "1", Username: "alice", Email: "alice@example.com"}
	require.NoError(t, first.Set(want))

	// A fresh instance over the same backend simulates a restart.
	second, err := New[*user](newStore(backend), "user", nil)
	require.NoError(t, err)

	got, ok := second.Get()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestPersistedLayout(t *testing.T) {
	backend := secrets.NewMemoryBackend()
	store := newStore(backend)

	v, err := New(store, "template", template{})
	require.NoError(t, err)
	require.NoError(t, v.Set(template{Theme: "dark"}))

	raw, ok := store.GetString("template")
	require.True(t, ok)
	assert.JSONEq(t, `{"state":{"template":{"theme":"dark"}},"version":0}`, raw)

	// The envelope comes back from Get as the raw string.
	got, ok := store.Get("template")
	require.True(t, ok)
	assert.Equal(t, raw, got)
}

func TestReadsExistingEnvelope(t *testing.T) {
	store := newStore(secrets.NewMemoryBackend())
	require.NoError(t, store.Set("user", `{"state":{"user":{"id":"7","username":"bob","email":"bob@example.com"}},"version":0}`))

	v, err := New[*user](store, "user", nil)
	require.NoError(t, err)

	got, ok := v.Get()
	require.True(t, ok)
	assert.Equal(t, "bob", got.Username)
}

func TestRehydrateFallsBackToDefault(t *testing.T) {
	def := template{Theme: "light"}

	tests := []struct {
		name   string
		stored string
		opts   []Option
	}{
		{"not json", "garbage", nil},
		{"wrong shape", `{"state":{"template":"oops"},"version":0}`, nil},
		{"other name", `{"state":{"other":{"theme":"dark"}},"version":0}`, nil},
		{"null member", `{"state":{"template":null},"version":0}`, nil},
		{"version mismatch", `{"state":{"template":{"theme":"dark"}},"version":0}`, []Option{WithVersion(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(secrets.NewMemoryBackend())
			require.NoError(t, store.Set("template", tt.stored))

			v, err := New(store, "template", def, tt.opts...)
			require.NoError(t, err)

			got, ok := v.Get()
			assert.False(t, ok)
			assert.Equal(t, def, got)
		})
	}
}

func TestCorruptCiphertextFallsBackToDefault(t *testing.T) {
	backend := secrets.NewMemoryBackend()
	require.NoError(t, backend.Set("template", "not-ciphertext"))

	v, err := New(newStore(backend), "template", template{Theme: "light"})
	require.NoError(t, err)

	got, ok := v.Get()
	assert.False(t, ok)
	assert.Equal(t, "light", got.Theme)
}

func TestSetWithoutKeyKeepsMemory(t *testing.T) {
	store := secrets.NewSecureStore(secrets.NewMemoryBackend(), "")
	v, err := New(store, "template", template{Theme: "light"})
	require.NoError(t, err)

	err = v.Set(template{Theme: "dark"})
	require.ErrorIs(t, err, secrets.ErrMissingKey)

	got, _ := v.Get()
	assert.Equal(t, "light", got.Theme, "memory must not change when persistence fails")
}

func TestNoBackendStillWorksInMemory(t *testing.T) {
	v, err := New(secrets.NewSecureStore(nil, ""), "template", template{})
	require.NoError(t, err)

	require.NoError(t, v.Set(template{Theme: "dark"}))
	got, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, "dark", got.Theme)
}

func TestClear(t *testing.T) {
	backend := secrets.NewMemoryBackend()
	v, err := New(newStore(backend), "template", template{Theme: "light"})
	require.NoError(t, err)
	require.NoError(t, v.Set(template{Theme: "dark"}))

	require.NoError(t, v.Clear())
	got, ok := v.Get()
	assert.False(t, ok)
	assert.Equal(t, "light", got.Theme)

	keys, err := backend.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDistinctNamesDoNotShareKeys(t *testing.T) {
	backend := secrets.NewMemoryBackend()
	store := newStore(backend)

	u, err := New[*user](store, "user", nil)
	require.NoError(t, err)
	tpl, err := New(store, "template", template{})
	require.NoError(t, err)

	require.NoError(t, u.Set(&user{ID: "1"}))
	require.NoError(t, tpl.Set(template{Theme: "dark"}))
	require.NoError(t, u.Clear())

	got, ok := tpl.Get()
	assert.True(t, ok)
	assert.Equal(t, "dark", got.Theme)

	keys, err := backend.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"template"}, keys)
}

func TestEmptyName(t *testing.T) {
	_, err := New(newStore(secrets.NewMemoryBackend()), "", 0)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	store := newStore(secrets.NewMemoryBackend())

	_, err := Register(r, store, "user", 0)
	require.NoError(t, err)
	_, err = Register(r, store, "template", "")
	require.NoError(t, err)

	_, err = Register(r, store, "user", "")
	assert.ErrorContains(t, err, "already registered")
	assert.Equal(t, []string{"template", "user"}, r.Names())
}
