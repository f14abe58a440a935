package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalStore(tmpDir)
	require.NoError(t, err)

	ctx := context.Background()

	blobName := "lib/snapshot-001.tmx"
	data := []byte("hello templix, this is a test snapshot blob")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	// Verify file exists on disk
	_, err = os.Stat(filepath.Join(tmpDir, "lib", "snapshot-001.tmx"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 7)
	n, err = blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, "templix", string(buf))

	rangeReader, err := blob.ReadRange(ctx, 14, 4)
	require.NoError(t, err)
	defer rangeReader.Close()

	rangeContent, err := io.ReadAll(rangeReader)
	require.NoError(t, err)
	require.Equal(t, "this", string(rangeContent))

	// List
	require.NoError(t, store.Put(ctx, "lib/snapshot-002.tmx", []byte("x")))
	names, err := store.List(ctx, "lib/")
	require.NoError(t, err)
	require.Equal(t, []string{"lib/snapshot-001.tmx", "lib/snapshot-002.tmx"}, names)

	// Delete is idempotent
	require.NoError(t, store.Delete(ctx, blobName))
	require.NoError(t, store.Delete(ctx, blobName))

	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_AtomicCreate(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalStore(tmpDir)
	require.NoError(t, err)

	ctx := context.Background()

	w, err := store.Create(ctx, "partial.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("half-written"))
	require.NoError(t, err)

	// Not closed yet: the blob must not be visible.
	_, err = store.Open(ctx, "partial.bin")
	require.ErrorIs(t, err, ErrNotFound)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, w.Close())

	_, err = store.Open(ctx, "partial.bin")
	require.NoError(t, err)
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "a/one", []byte("first")))

	w, err := store.Create(ctx, "a/two")
	require.NoError(t, err)
	_, err = w.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	require.Equal(t, []string{"a/one", "a/two"}, names)

	data, err := ReadAll(ctx, store, "a/two")
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	// Open returns an isolated copy.
	blob, err := store.Open(ctx, "a/one")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "a/one", []byte("mutated")))

	buf := make([]byte, 5)
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "first", string(buf))
}

func TestReadAll_Empty(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "empty", nil))
	data, err := ReadAll(ctx, store, "empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}
