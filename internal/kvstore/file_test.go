package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	t.Run("get missing key returns nil", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		value, err := store.Get("reports")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("put then get round trips", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Put("reports", []byte(`[{"id":"a"}]`)))

		value, err := store.Get("reports")
		require.NoError(t, err)
		assert.Equal(t, []byte(`[{"id":"a"}]`), value)
	})

	t.Run("put replaces previous blob whole", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Put("reports", []byte("first blob with extra length")))
		require.NoError(t, store.Put("reports", []byte("second")))

		value, err := store.Get("reports")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), value)
	})

	t.Run("delete removes key", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Put("favorites", []byte("x")))
		require.NoError(t, store.Delete("favorites"))

		value, err := store.Get("favorites")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("delete missing key is not an error", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		assert.NoError(t, store.Delete("never_written"))
	})

	t.Run("rejects keys that are not safe file names", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		assert.Error(t, store.Put("../escape", []byte("x")))
		_, err = store.Get("bad/key")
		assert.Error(t, err)
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFileStore(dir)
		require.NoError(t, err)

		require.NoError(t, store.Put("reports", []byte("x")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "reports", filepath.Base(entries[0].Name()))
	})
}

func TestMemoryStore(t *testing.T) {
	t.Run("round trip and delete", func(t *testing.T) {
		store := NewMemoryStore()

		value, err := store.Get("reports")
		require.NoError(t, err)
		assert.Nil(t, value)

		require.NoError(t, store.Put("reports", []byte("blob")))
		value, err = store.Get("reports")
		require.NoError(t, err)
		assert.Equal(t, []byte("blob"), value)

		require.NoError(t, store.Delete("reports"))
		value, err = store.Get("reports")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("returned blob is a copy", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Put("reports", []byte("abc")))

		value, err := store.Get("reports")
		require.NoError(t, err)
		value[0] = 'z'

		again, err := store.Get("reports")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})
}
