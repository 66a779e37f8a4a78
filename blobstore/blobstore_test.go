package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootphon/h5features-sub000/internal/cache"
	"github.com/bootphon/h5features-sub000/internal/fs"
)

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, s BlobStore) {
	ctx := t.Context()

	_, err := s.Open(ctx, "g/CURRENT")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "g/features/1.chk", []byte("hello world")))
	require.NoError(t, s.Put(ctx, "g/times/1.chk", []byte("times")))
	require.NoError(t, s.Put(ctx, "h/CURRENT", []byte("MANIFEST-1")))

	got, err := ReadAll(ctx, s, "g/features/1.chk")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))

	b, err := s.Open(ctx, "g/features/1.chk")
	require.NoError(t, err)
	assert.Equal(t, int64(11), b.Size())
	part, err := ReadRange(ctx, b, 6, 5)
	require.NoError(t, err)
	assert.Equal(t, "world", string(part))
	_, err = ReadRange(ctx, b, 6, 6)
	assert.Error(t, err)
	require.NoError(t, b.Close())

	names, err := s.List(ctx, "g/")
	require.NoError(t, err)
	assert.Equal(t, []string{"g/features/1.chk", "g/times/1.chk"}, names)

	names, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, names, 3)

	require.NoError(t, s.Put(ctx, "h/CURRENT", []byte("MANIFEST-2")))
	got, err = ReadAll(ctx, s, "h/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-2", string(got))

	require.NoError(t, s.Delete(ctx, "g/times/1.chk"))
	require.NoError(t, s.Delete(ctx, "g/times/1.chk"))
	ok, err := Exists(ctx, s, "g/times/1.chk")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, s.Put(ctx, "../escape", nil))
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	storeContract(t, NewLocalStore(dir))

	_, err := os.Stat(filepath.Join(dir, "g", "features", "1.chk"))
	assert.NoError(t, err)
}

func TestLocalStoreListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)
	require.NoError(t, s.Put(t.Context(), "g/CURRENT", []byte("x")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "g", ".CURRENT.tmp-123"), nil, 0o644))

	names, err := s.List(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"g/CURRENT"}, names)
}

func TestLocalStorePutFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	s := NewLocalStore(dir, WithFileSystem(ffs))
	require.NoError(t, s.Put(t.Context(), "g/CURRENT", []byte("MANIFEST-1")))

	ffs.AddRule("CURRENT", fs.Fault{FailAfterBytes: -1, FailOnRename: true})
	assert.ErrorIs(t, s.Put(t.Context(), "g/CURRENT", []byte("MANIFEST-2")), fs.ErrInjected)

	got, err := ReadAll(t.Context(), s, "g/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-1", string(got))
}

func TestLocalStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	s := NewLocalStore(t.TempDir())
	assert.ErrorIs(t, s.Put(ctx, "a", nil), context.Canceled)
	_, err := s.Open(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

type countingStore struct {
	BlobStore
	mu    sync.Mutex
	reads int
}

type countingBlob struct {
	Blob
	s *countingStore
}

func (c *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := c.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &countingBlob{Blob: b, s: c}, nil
}

func (b *countingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	b.s.mu.Lock()
	b.s.reads++
	b.s.mu.Unlock()
	return b.Blob.ReadAt(ctx, p, off)
}

func TestCachingStore(t *testing.T) {
	ctx := t.Context()
	mem := NewMemoryStore()
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, mem.Put(ctx, "g/features/1.chk", data))

	inner := &countingStore{BlobStore: mem}
	s := NewCachingStore(inner, cache.NewLRU(1<<20, nil), 64)
	storeContract(t, NewCachingStore(NewMemoryStore(), cache.NewLRU(1<<20, nil), 4))

	b, err := s.Open(ctx, "g/features/1.chk")
	require.NoError(t, err)

	for _, r := range []struct{ off, n int64 }{{0, 10}, {60, 10}, {100, 500}, {990, 10}} {
		got, err := ReadRange(ctx, b, r.off, r.n)
		require.NoError(t, err)
		assert.Equal(t, data[r.off:r.off+r.n], got, fmt.Sprintf("range %d+%d", r.off, r.n))
	}
	before := inner.reads
	got, err := ReadRange(ctx, b, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	// only the gaps left by the first reads hit the backend
	assert.Less(t, inner.reads-before, 5)

	after := inner.reads
	_, err = ReadRange(ctx, b, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, after, inner.reads)

	n, err := b.ReadAt(ctx, make([]byte, 20), 990)
	assert.Equal(t, 10, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestCachingStorePutInvalidates(t *testing.T) {
	ctx := t.Context()
	s := NewCachingStore(NewMemoryStore(), cache.NewLRU(1<<20, nil), 4)
	require.NoError(t, s.Put(ctx, "g/CURRENT", []byte("MANIFEST-1")))
	got, err := ReadAll(ctx, s, "g/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-1", string(got))

	require.NoError(t, s.Put(ctx, "g/CURRENT", []byte("MANIFEST-2")))
	got, err = ReadAll(ctx, s, "g/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-2", string(got))
}
