package secrets

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "correct horse battery staple"

func TestSecureStoreRoundTrip(t *testing.T) {
	store := NewSecureStore(NewMemoryBackend(), testSecret)

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"plain string", "abc123", "abc123"},
		{"numeric string stays string", "123", "123"},
		{"empty object", map[string]any{}, map[string]any{}},
		{"object", map[string]any{"id": "1", "username": "alice"}, map[string]any{"id": "1", "username": "alice"}},
		{"array", []string{"a", "b"}, []any{"a", "b"}},
		{"struct", struct {
			Theme string `json:"theme"`
		}{"dark"}, map[string]any{"theme": "dark"}},
		{"number", 42, "42"},
		{"bool", true, "true"},
		{"nil", nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Set("k", tt.value))
			got, ok := store.Get("k")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecureStoreStoresCiphertextOnly(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewSecureStore(backend, testSecret)

	require.NoError(t, store.Set("token", "abc123"))

	raw, err := backend.Get("token")
	require.NoError(t, err)
	assert.NotContains(t, raw, "abc123")

	require.NoError(t, store.Set("token2", "abc123"))
	raw2, err := backend.Get("token2")
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2, "nonce must differ per write")
}

func TestSecureStoreCorruptRecordIsAbsent(t *testing.T) {
	var logs bytes.Buffer
	log := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Warn})

	backend := NewMemoryBackend()
	store := NewSecureStore(backend, testSecret, WithLogger(log))

	tests := []struct {
		name string
		raw  string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", "AAAA"},
		{"random garbage", "c29tZSByYW5kb20gYnl0ZXMgdGhhdCBhcmUgbm90IGdjbQ=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.Reset()
			require.NoError(t, backend.Set("token", tt.raw))

			got, ok := store.Get("token")
			assert.False(t, ok)
			assert.Nil(t, got)
			assert.Contains(t, logs.String(), "decryption failed")
		})
	}
}

func TestSecureStoreTamperedRecordIsAbsent(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewSecureStore(backend, testSecret)
	require.NoError(t, store.Set("token", "abc123"))

	raw, err := backend.Get("token")
	require.NoError(t, err)

	// Flip a character inside the ciphertext body.
	b := []byte(raw)
	mid := len(b) / 2
	if b[mid] == 'A' {
		b[mid] = 'B'
	} else {
		b[mid] = 'A'
	}
	require.NoError(t, backend.Set("token", string(b)))

	_, ok := store.Get("token")
	assert.False(t, ok)
}

func TestSecureStoreWrongKeyIsAbsent(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, NewSecureStore(backend, testSecret).Set("token", "abc123"))

	other := NewSecureStore(backend, "another secret")
	_, ok := other.Get("token")
	assert.False(t, ok)
}

func TestSecureStoreMissingKey(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewSecureStore(backend, "")

	err := store.Set("token", "abc123")
	require.ErrorIs(t, err, ErrMissingKey)

	keys, err := backend.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys, "no write may happen without a key")

	require.NoError(t, backend.Set("token", "anything"))
	_, ok := store.Get("token")
	assert.False(t, ok)
}

func TestSecureStoreNoBackend(t *testing.T) {
	store := NewSecureStore(nil, "")

	assert.False(t, store.Available())
	assert.NoError(t, store.Set("token", "abc123"))

	_, ok := store.Get("token")
	assert.False(t, ok)
	assert.NoError(t, store.Remove("token"))
	assert.NoError(t, store.Clear())

	keys, err := store.Keys()
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSecureStoreEnvelopeGuard(t *testing.T) {
	envelope := `{"state":{"user":{"id":"1"}},"version":0}`

	t.Run("guarded returns raw string", func(t *testing.T) {
		store := NewSecureStore(NewMemoryBackend(), testSecret)
		require.NoError(t, store.Set("user", envelope))

		got, ok := store.Get("user")
		require.True(t, ok)
		assert.Equal(t, envelope, got)
	})

	t.Run("version only still guarded", func(t *testing.T) {
		store := NewSecureStore(NewMemoryBackend(), testSecret)
		require.NoError(t, store.Set("x", `{"version":2}`))

		got, ok := store.Get("x")
		require.True(t, ok)
		assert.Equal(t, `{"version":2}`, got)
	})

	t.Run("null members do not trigger guard", func(t *testing.T) {
		store := NewSecureStore(NewMemoryBackend(), testSecret)
		require.NoError(t, store.Set("x", `{"state":null,"other":1}`))

		got, ok := store.Get("x")
		require.True(t, ok)
		assert.Equal(t, map[string]any{"state": nil, "other": float64(1)}, got)
	})

	t.Run("disabled guard decodes", func(t *testing.T) {
		store := NewSecureStore(NewMemoryBackend(), testSecret, WithoutEnvelopeGuard())
		require.NoError(t, store.Set("user", envelope))

		got, ok := store.Get("user")
		require.True(t, ok)
		assert.IsType(t, map[string]any{}, got)
	})
}

func TestSecureStoreDecode(t *testing.T) {
	store := NewSecureStore(NewMemoryBackend(), testSecret)

	type user struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	require.NoError(t, store.Set("user", user{ID: "1", Username: "alice"}))

	var got user
	require.True(t, store.Decode("user", &got))
	assert.Equal(t, user{ID: "1", Username: "alice"}, got)

	assert.False(t, store.Decode("missing", &got))

	require.NoError(t, store.Set("bad", "not json"))
	assert.False(t, store.Decode("bad", &got))
}

func TestSecureStoreRemoveAndClear(t *testing.T) {
	store := NewSecureStore(NewMemoryBackend(), testSecret)
	require.NoError(t, store.Set("a", "1"))
	require.NoError(t, store.Set("b", "2"))

	require.NoError(t, store.Remove("a"))
	require.NoError(t, store.Remove("a"), "removing twice is fine")

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)

	require.NoError(t, store.Clear())
	_, ok := store.Get("b")
	assert.False(t, ok)
}

func TestSecureStoreFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	backend, err := NewFileBackend(path)
	require.NoError(t, err)

	store := NewSecureStore(backend, testSecret)
	require.NoError(t, store.Set("token", "abc123"))

	// A second backend on the same file sees the write.
	again, err := NewFileBackend(path)
	require.NoError(t, err)
	got, ok := NewSecureStore(again, testSecret).GetString("token")
	require.True(t, ok)
	assert.Equal(t, "abc123", got)
}
