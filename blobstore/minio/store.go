package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/hupe1980/templix/blobstore"
	"github.com/minio/minio-go/v7"
)

// Store implements blobstore.BlobStore on top of a MinIO client, which
// also speaks to any S3-compatible endpoint.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore wraps client as a blob store rooted at rootPrefix inside
// bucket (e.g. "libraries/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: rootPrefix}
}

func (s *Store) key(name string) string { return path.Join(s.prefix, name) }

func isMissing(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Open opens an existing blob for reading. The size is resolved up
// front with a stat call so ranged reads can clamp against it.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMissing(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &objectBlob{store: s, key: key, size: info.Size}, nil
}

// Put writes a blob atomically.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Create creates a new blob for streaming writes. Bytes are piped into
// an unsized PutObject running in the background; the object becomes
// visible when Close returns nil.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	w := &objectWriter{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, minio.PutObjectOptions{})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w, nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isMissing(err) {
		return err
	}
	return nil
}

// List returns all blob names under prefix, sorted, with the store's
// root prefix stripped off.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: s.key(prefix), Recursive: true}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(strings.TrimPrefix(obj.Key, s.prefix), "/")
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names, nil
}

type objectBlob struct {
	store *Store
	key   string
	size  int64
}

func (b *objectBlob) Size() int64 { return b.size }

// rangeOpts builds GetObjectOptions for [off, off+n), clamped to the
// blob size.
func (b *objectBlob) rangeOpts(off, n int64) (minio.GetObjectOptions, int64, error) {
	end := off + n - 1
	if end >= b.size {
		end = b.size - 1
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return opts, 0, err
	}
	return opts, end - off + 1, nil
}

func (b *objectBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}

	opts, avail, err := b.rangeOpts(off, int64(len(p)))
	if err != nil {
		return 0, err
	}

	obj, err := b.store.client.GetObject(ctx, b.store.bucket, b.key, opts)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	n, err := io.ReadFull(obj, p[:avail])
	if err == nil && int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, err
}

func (b *objectBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	opts, _, err := b.rangeOpts(off, length)
	if err != nil {
		return nil, err
	}
	return b.store.client.GetObject(ctx, b.store.bucket, b.key, opts)
}

func (b *objectBlob) Close() error { return nil }

type objectWriter struct {
	pw     *io.PipeWriter
	done   chan error
	closed atomic.Bool
}

func (w *objectWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

// Close finishes the streaming upload and reports its outcome.
func (w *objectWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return errors.New("minio: writer already closed")
	}
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

// Sync is a no-op; the upload is not durable until Close.
func (w *objectWriter) Sync() error { return nil }
