package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	file, err := NewFileBackend(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)

	return map[string]Backend{
		"memory":  NewMemoryBackend(),
		"file":    file,
		"keyring": NewKeyringBackendFrom(keyring.NewArrayKeyring(nil)),
	}
}

func TestBackendContract(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get("missing")
			assert.ErrorIs(t, err, ErrNotFound)
			if err := b.Delete("missing"); err != nil {
				assert.ErrorIs(t, err, ErrNotFound)
			}

			require.NoError(t, b.Set("b", "2"))
			require.NoError(t, b.Set("a", "1"))
			require.NoError(t, b.Set("a", "one"))

			v, err := b.Get("a")
			require.NoError(t, err)
			assert.Equal(t, "one", v)

			keys, err := b.Keys()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b"}, keys)

			require.NoError(t, b.Delete("a"))
			_, err = b.Get("a")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Clear())
			keys, err = b.Keys()
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestFileBackendPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	b, err := NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, b.Set("token", "ciphertext"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	b, err := NewFileBackend(path)
	require.NoError(t, err)

	_, err = b.Get("token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	// SecureStore absorbs the failure.
	_, ok := NewSecureStore(b, testSecret).Get("token")
	assert.False(t, ok)
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(KindNone, nil)
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, "none", Describe(b))

	b, err = NewBackend(KindMemory, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", Describe(b))

	_, err = NewBackend("floppy", nil)
	assert.ErrorContains(t, err, "unknown store backend")
}
