package arraystore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bootphon/h5features-sub000/blobstore"
	"github.com/bootphon/h5features-sub000/internal/cache"
	"github.com/bootphon/h5features-sub000/internal/resource"
)

const (
	// MarkerName is the blob identifying a container.
	MarkerName   = "CONTAINER"
	markerPrefix = "h5features container v1\n"

	currentName = "CURRENT"
)

// Container is a set of groups stored in a blob store.
type Container struct {
	store    blobstore.BlobStore
	mode     Mode
	cache    cache.BlockCache
	ownCache bool
	rc       *resource.Controller

	mu     sync.Mutex
	closed bool
}

// Open opens the container held by store.
func Open(ctx context.Context, store blobstore.BlobStore, mode Mode, opts ...Option) (*Container, error) {
	if mode > ModeWriteAppend {
		return nil, fmt.Errorf("arraystore: invalid mode %d", mode)
	}
	o := buildOptions(opts)
	c := &Container{store: store, mode: mode, cache: o.cache, ownCache: o.ownsCache, rc: o.rc}

	marker, err := blobstore.ReadAll(ctx, store, MarkerName)
	switch {
	case err == nil:
		if !bytes.HasPrefix(marker, []byte(markerPrefix)) {
			c.release()
			return nil, ErrNotAContainer
		}
		if mode == ModeWriteCreate {
			c.release()
			return nil, fmt.Errorf("%w: container", ErrExists)
		}
		return c, nil
	case !errors.Is(err, blobstore.ErrNotFound):
		c.release()
		return nil, err
	}

	names, err := store.List(ctx, "")
	if err != nil {
		c.release()
		return nil, err
	}
	if len(names) > 0 {
		c.release()
		return nil, ErrNotAContainer
	}
	if mode == ModeRead {
		c.release()
		return nil, ErrNotFound
	}
	if err := store.Put(ctx, MarkerName, []byte(markerPrefix)); err != nil {
		c.release()
		return nil, err
	}
	return c, nil
}

// Mode returns the mode the container was opened with.
func (c *Container) Mode() Mode { return c.mode }

// Store returns the underlying blob store.
func (c *Container) Store() blobstore.BlobStore { return c.store }

// ListGroups returns the sorted names of committed groups.
func (c *Container) ListGroups(ctx context.Context) ([]string, error) {
	if err := c.check(false); err != nil {
		return nil, err
	}
	names, err := c.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var groups []string
	for _, n := range names {
		g, rest, ok := strings.Cut(n, "/")
		if ok && rest == currentName {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// HasGroup reports whether a group is committed.
func (c *Container) HasGroup(ctx context.Context, name string) (bool, error) {
	if err := c.check(false); err != nil {
		return false, err
	}
	if err := ValidGroupName(name); err != nil {
		return false, err
	}
	return blobstore.Exists(ctx, c.store, name+"/"+currentName)
}

// Group loads the committed state of a group.
func (c *Container) Group(ctx context.Context, name string) (*Group, error) {
	if err := c.check(false); err != nil {
		return nil, err
	}
	if err := ValidGroupName(name); err != nil {
		return nil, err
	}
	g := &Group{c: c, name: name}
	if err := g.Refresh(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// NewGroup returns a handle on a group that is not yet committed. The
// group exists once a Tx begun on it commits; until then nothing is stored.
func (c *Container) NewGroup(ctx context.Context, name string) (*Group, error) {
	if err := c.check(true); err != nil {
		return nil, err
	}
	if err := ValidGroupName(name); err != nil {
		return nil, err
	}
	ok, err := c.HasGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, fmt.Errorf("%w: group %q", ErrExists, name)
	}
	return &Group{c: c, name: name, m: newManifest(name)}, nil
}

// CreateGroup commits an empty group with the given attributes.
func (c *Container) CreateGroup(ctx context.Context, name string, attrs map[string]string) (*Group, error) {
	g, err := c.NewGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	tx := g.Begin()
	for k, v := range attrs {
		if err := tx.SetAttr(k, v); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// Close releases the chunk cache if the container owns it. It is
// idempotent.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.release()
}

func (c *Container) release() error {
	if c.ownCache && c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

func (c *Container) check(write bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if write && c.mode == ModeRead {
		return ErrReadOnly
	}
	return nil
}

// ValidGroupName rejects names that can not be used as a blob prefix.
func ValidGroupName(name string) error {
	switch {
	case name == "", name == MarkerName:
		return fmt.Errorf("arraystore: invalid group name %q", name)
	case strings.ContainsAny(name, "/\\"), strings.HasPrefix(name, "."):
		return fmt.Errorf("arraystore: invalid group name %q", name)
	}
	return nil
}
