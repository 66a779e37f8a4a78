package cache

import "context"

// Kind separates key spaces.
type Kind uint8

const (
	KindBlob  Kind = iota + 1 // raw blob block, Offset is the block number
	KindChunk                 // decoded chunk payload, Offset is unused
)

// Key identifies a cached block.
type Key struct {
	Kind   Kind
	Path   string
	Offset uint64
}

// BlockCache is a byte-oriented cache. Returned slices are read-only.
type BlockCache interface {
	Get(ctx context.Context, key Key) ([]byte, bool)
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
	Close() error
}

// ForPath matches every entry of a blob.
func ForPath(path string) func(Key) bool {
	return func(k Key) bool { return k.Path == path }
}
