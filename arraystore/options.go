package arraystore

import (
	"github.com/bootphon/h5features-sub000/internal/cache"
	"github.com/bootphon/h5features-sub000/internal/resource"
)

// Mode selects how a container is opened.
type Mode uint8

const (
	// ModeRead opens an existing container read-only.
	ModeRead Mode = iota
	// ModeWriteCreate creates a new container and fails if one exists.
	ModeWriteCreate
	// ModeWriteAppend opens a container for writing, creating it if the
	// location is empty.
	ModeWriteAppend
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWriteCreate:
		return "create"
	case ModeWriteAppend:
		return "append"
	default:
		return "invalid"
	}
}

// DefaultCacheBytes is the capacity of the decoded-chunk cache created when
// no cache is supplied.
const DefaultCacheBytes = 32 << 20

type options struct {
	cache      cache.BlockCache
	ownsCache  bool
	rc         *resource.Controller
	cacheBytes int64
}

// Option configures Open.
type Option func(*options)

// WithCache uses c for decoded chunks. The caller keeps ownership of c.
func WithCache(c cache.BlockCache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithCacheSize sizes the default chunk cache. Zero or less disables caching.
func WithCacheSize(bytes int64) Option {
	return func(o *options) {
		o.cacheBytes = bytes
	}
}

// WithResourceController bounds parallel fetches, I/O throughput and cache
// memory.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func buildOptions(opts []Option) options {
	o := options{cacheBytes: DefaultCacheBytes}
	for _, fn := range opts {
		fn(&o)
	}
	if o.rc == nil {
		o.rc = resource.NewController(resource.Config{})
	}
	if o.cache == nil && o.cacheBytes > 0 {
		o.cache = cache.NewShardedLRU(o.cacheBytes, o.rc)
		o.ownsCache = true
	}
	return o
}
