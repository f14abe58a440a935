package minio

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/templix/blobstore"
)

// TestStore_Integration requires a running MinIO instance at
// localhost:9000 with the default credentials. It skips otherwise.
func TestStore_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	const bucket = "templix-test"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "libs/")

	data := []byte("templix snapshot payload")
	require.NoError(t, store.Put(ctx, "gaas.tmxl", data))

	blob, err := store.Open(ctx, "gaas.tmxl")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 8)
	n, err := blob.ReadAt(ctx, buf, 8)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(buf[:n]))

	rc, err := blob.ReadRange(ctx, 0, 7)
	require.NoError(t, err)
	head, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "templix", string(head))
	require.NoError(t, blob.Close())

	_, err = store.Open(ctx, "missing.tmxl")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	w, err := store.Create(ctx, "streamed.tmxl")
	require.NoError(t, err)
	payload := bytes.Repeat([]byte{0xA5}, 4*1024)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := blobstore.ReadAll(ctx, store, "streamed.tmxl")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "gaas.tmxl")
	assert.Contains(t, names, "streamed.tmxl")

	require.NoError(t, store.Delete(ctx, "gaas.tmxl"))
	require.NoError(t, store.Delete(ctx, "streamed.tmxl"))
	require.NoError(t, store.Delete(ctx, "missing.tmxl"))
}
