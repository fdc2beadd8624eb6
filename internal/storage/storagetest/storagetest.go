// Package storagetest holds the behavior every storage backend must share.
package storagetest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mybooks/internal/storage"
)

// Run exercises s with the contract of storage.Storage. s must be
// initialized and must not contain the keys used here.
func Run(t *testing.T, s storage.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		value, ok, err := s.Get(ctx, "storagetest-missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "storagetest-a", `[{"id":1}]`))

		value, ok, err := s.Get(ctx, "storagetest-a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[{"id":1}]`, value)
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "storagetest-b", "first"))
		require.NoError(t, s.Set(ctx, "storagetest-b", "second"))

		value, ok, err := s.Get(ctx, "storagetest-b")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", value)
	})

	t.Run("empty value is present", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "storagetest-c", ""))

		value, ok, err := s.Get(ctx, "storagetest-c")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, value)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "storagetest-d1", "one"))
		require.NoError(t, s.Set(ctx, "storagetest-d2", "two"))

		v1, _, err := s.Get(ctx, "storagetest-d1")
		require.NoError(t, err)
		v2, _, err := s.Get(ctx, "storagetest-d2")
		require.NoError(t, err)
		assert.Equal(t, "one", v1)
		assert.Equal(t, "two", v2)
	})

	t.Run("large unicode value", func(t *testing.T) {
		big := `[{"id":"ñ","title":"` + strings.Repeat("Cien años de soledad ", 5000) + `"}]`
		require.NoError(t, s.Set(ctx, "storagetest-e", big))

		value, ok, err := s.Get(ctx, "storagetest-e")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, big, value)
	})
}
