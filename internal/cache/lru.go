package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/bootphon/h5features-sub000/internal/resource"
)

// LRU is a size-bounded least-recently-used BlockCache.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value []byte
}

// NewLRU creates a cache holding at most capacity bytes. If rc is not nil,
// cached bytes are also charged to it.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

func (c *LRU) Get(_ context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(el)
		return el.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

func (c *LRU) Set(_ context.Context, key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(b))
	if n > c.capacity {
		return
	}
	if el, ok := c.items[key]; ok {
		// blocks are immutable; a second Set only refreshes recency
		c.evictList.MoveToFront(el)
		return
	}
	for c.size+n > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			break
		}
		c.remove(el)
	}
	if !c.rc.TryAcquireMemory(n) {
		return
	}
	c.items[key] = c.evictList.PushFront(&entry{key: key, value: b})
	c.size += n
}

func (c *LRU) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var doomed []*list.Element
	for k, el := range c.items {
		if predicate(k) {
			doomed = append(doomed, el)
		}
	}
	for _, el := range doomed {
		c.remove(el)
	}
}

func (c *LRU) Stats() (hits, misses int64) { return c.hits.Load(), c.misses.Load() }

// Size returns the cached bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Close drops every entry and returns its memory to the controller.
func (c *LRU) Close() error {
	c.Invalidate(func(Key) bool { return true })
	return nil
}

func (c *LRU) remove(el *list.Element) {
	c.evictList.Remove(el)
	e := el.Value.(*entry)
	delete(c.items, e.key)
	n := int64(len(e.value))
	c.size -= n
	c.rc.ReleaseMemory(n)
}
