package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/bootphon/h5features-sub000/internal/cache"
)

// CachingStore puts a block cache in front of a slow store. Reads are served
// in blockSize-aligned blocks; contiguous missing blocks are fetched with one
// backend request each run.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
}

// NewCachingStore wraps inner. blockSize defaults to 64 KiB if <= 0.
func NewCachingStore(inner BlobStore, c cache.BlockCache, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = 64 << 10
	}
	return &CachingStore{inner: inner, cache: c, blockSize: blockSize}
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{inner: b, cache: s.cache, name: name, blockSize: s.blockSize}, nil
}

// Put invalidates cached blocks of name first: pointer blobs such as CURRENT
// are rewritten in place.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(blobKeys(name))
	err := s.inner.Put(ctx, name, data)
	s.cache.Invalidate(blobKeys(name))
	return err
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(blobKeys(name))
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func blobKeys(name string) func(cache.Key) bool {
	return func(k cache.Key) bool { return k.Kind == cache.KindBlob && k.Path == name }
}

type cachingBlob struct {
	inner     Blob
	cache     cache.BlockCache
	name      string
	blockSize int64
}

func (b *cachingBlob) Close() error { return b.inner.Close() }

func (b *cachingBlob) Size() int64 { return b.inner.Size() }

func (b *cachingBlob) key(blk int64) cache.Key {
	return cache.Key{Kind: cache.KindBlob, Path: b.name, Offset: uint64(blk)}
}

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off >= size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), size-off)
	first := off / b.blockSize
	last := (off + want - 1) / b.blockSize

	blocks, err := b.fetch(ctx, first, last)
	if err != nil {
		return 0, err
	}

	read := 0
	for blk := first; blk <= last; blk++ {
		data := blocks[blk-first]
		start := blk * b.blockSize
		from := max(start, off) - start
		to := min(start+int64(len(data)), off+want) - start
		if to <= from {
			break
		}
		read += copy(p[max(start, off)-off:], data[from:to])
	}
	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

// fetch returns blocks [first, last], loading missing runs concurrently.
func (b *cachingBlob) fetch(ctx context.Context, first, last int64) ([][]byte, error) {
	blocks := make([][]byte, last-first+1)
	type run struct{ start, count int64 }
	var missing []run
	for blk := first; blk <= last; blk++ {
		if data, ok := b.cache.Get(ctx, b.key(blk)); ok {
			blocks[blk-first] = data
			continue
		}
		if n := len(missing); n > 0 && missing[n-1].start+missing[n-1].count == blk {
			missing[n-1].count++
		} else {
			missing = append(missing, run{start: blk, count: 1})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, r := range missing {
		g.Go(func() error {
			byteStart := r.start * b.blockSize
			byteLen := min(r.count*b.blockSize, b.Size()-byteStart)
			buf := make([]byte, byteLen)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]
			for i := int64(0); i < r.count; i++ {
				lo := i * b.blockSize
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+b.blockSize, int64(len(buf)))
				// copy so a cached block does not pin the whole run
				block := append([]byte(nil), buf[lo:hi]...)
				b.cache.Set(gctx, b.key(r.start+i), block)
				blocks[r.start+i-first] = block
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}
