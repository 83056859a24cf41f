package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
)

// TempDir creates a directory removed at the end of the test.
func TempDir(t testing.TB) string {
	dir, err := os.MkdirTemp("", "wirecodec")
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// NewPebble opens an on-disk Pebble database removed at the end of the test.
func NewPebble(t testing.TB) *pebble.DB {
	t.Helper()

	dir := TempDir(t)

	db, err := pebble.Open(filepath.Join(dir, "pebble"), &pebble.Options{})
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// NewMemPebble opens an in-memory Pebble database.
// The caller owns the database and must close it.
func NewMemPebble(t testing.TB) *pebble.DB {
	t.Helper()

	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)

	return db
}
