package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/tada/internal/store"
)

// NewTestStore opens a private in-memory store with the schema applied.
// The store closes when the test ends.
func NewTestStore(t testing.TB) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening in-memory store")
	t.Cleanup(func() {
		require.NoError(t, s.Close(), "closing in-memory store")
	})
	return s
}

// WithFileStore opens the database file at path, runs fn and closes the
// store again, so that whatever the test opens next sees a released file.
func WithFileStore(t testing.TB, path string, fn func(*store.SQLiteStore)) {
	t.Helper()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err, "opening store %s", path)
	defer func() {
		require.NoError(t, s.Close(), "closing store %s", path)
	}()
	fn(s)
}
