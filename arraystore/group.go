package arraystore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/bootphon/h5features-sub000/blobstore"
	"github.com/bootphon/h5features-sub000/internal/cache"
	"github.com/bootphon/h5features-sub000/internal/h5err"
	"github.com/bootphon/h5features-sub000/internal/hash"
)

// Group is a snapshot of a committed group. Commit through a Tx advances
// the snapshot; Refresh reloads it from the store.
type Group struct {
	c    *Container
	name string
	m    *manifest
}

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// Generation returns the id of the committed manifest.
func (g *Group) Generation() uint64 { return g.m.ID }

// CommittedAt returns the time of the last commit.
func (g *Group) CommittedAt() time.Time { return g.m.CreatedAt }

// Attr returns an inline attribute.
func (g *Group) Attr(key string) (string, bool) {
	v, ok := g.m.Attrs[key]
	return v, ok
}

// Attrs returns a copy of the inline attributes.
func (g *Group) Attrs() map[string]string { return maps.Clone(g.m.Attrs) }

// BlobAttrs returns the keys of the blob attributes.
func (g *Group) BlobAttrs() []string {
	return slices.Sorted(maps.Keys(g.m.BlobAttrs))
}

// GetAttr reads a blob attribute. ok is false if the key is not set.
func (g *Group) GetAttr(ctx context.Context, key string) (data []byte, ok bool, err error) {
	ref, ok := g.m.BlobAttrs[key]
	if !ok {
		return nil, false, nil
	}
	if err := g.c.check(false); err != nil {
		return nil, false, err
	}
	if err := g.c.rc.AcquireIO(ctx, int(ref.Size)); err != nil {
		return nil, false, err
	}
	b, err := blobstore.ReadAll(ctx, g.c.store, ref.Blob)
	if err != nil {
		return nil, false, fmt.Errorf("arraystore: attribute %q: %w", key, err)
	}
	if uint64(len(b)) != ref.Size || !hash.Match(ref.CRC, b) {
		return nil, false, h5err.New(h5err.KindCorrupt, "arraystore.GetAttr", "%s: checksum mismatch", ref.Blob)
	}
	return b, true, nil
}

// Columns returns the column names in creation order.
func (g *Group) Columns() []string {
	out := make([]string, len(g.m.Columns))
	for i, c := range g.m.Columns {
		out[i] = c.Name
	}
	return out
}

// HasColumn reports whether the group has a column.
func (g *Group) HasColumn(name string) bool { return g.m.column(name) != nil }

// Column returns a read handle on a committed column.
func (g *Group) Column(name string) (*Column, error) {
	info := g.m.column(name)
	if info == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrColumnNotFound, g.name, name)
	}
	return newColumn(g, *info), nil
}

// CreateColumn adds an empty column in its own transaction.
func (g *Group) CreateColumn(ctx context.Context, name string, spec ColumnSpec) (*Column, error) {
	tx := g.Begin()
	if err := tx.CreateColumn(name, spec); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return g.Column(name)
}

// Refresh reloads the committed state.
func (g *Group) Refresh(ctx context.Context) error {
	cur, err := blobstore.ReadAll(ctx, g.c.store, g.name+"/"+currentName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrGroupNotFound, g.name)
	}
	if err != nil {
		return err
	}
	name := strings.TrimSpace(string(cur))
	if !strings.HasPrefix(name, g.name+"/") {
		return h5err.New(h5err.KindCorrupt, "arraystore.Refresh", "%s/%s points outside the group: %q", g.name, currentName, name)
	}
	b, err := blobstore.ReadAll(ctx, g.c.store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return h5err.Wrap(err, h5err.KindCorrupt, "arraystore.Refresh", "manifest %s", name)
		}
		return err
	}
	m, err := decodeManifest(name, b)
	if err != nil {
		return err
	}
	if m.Group != g.name {
		return h5err.New(h5err.KindCorrupt, "arraystore.Refresh", "%s belongs to group %q", name, m.Group)
	}
	g.m = m
	return nil
}

func (g *Group) manifestName(id uint64) string {
	return fmt.Sprintf("%s/MANIFEST-%06d.bin", g.name, id)
}

func (g *Group) chunkName(column string, id uint32) string {
	return fmt.Sprintf("%s/%s/%08d.chk", g.name, column, id)
}

func (g *Group) attrName(key string, id uint32) string {
	return fmt.Sprintf("%s/attr-%s-%08d.bin", g.name, key, id)
}

// fetchChunk returns the decoded rows of a chunk. The result is shared with
// the cache and must not be modified.
func (g *Group) fetchChunk(ctx context.Context, col *columnInfo, ref ChunkRef, useCache bool) ([]byte, error) {
	name := g.chunkName(col.Name, ref.ID)
	key := cache.Key{Kind: cache.KindChunk, Path: name}
	if useCache && g.c.cache != nil {
		if raw, ok := g.c.cache.Get(ctx, key); ok {
			return raw, nil
		}
	}
	if err := g.c.rc.AcquireIO(ctx, int(ref.Size)); err != nil {
		return nil, err
	}
	b, err := blobstore.ReadAll(ctx, g.c.store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, h5err.Wrap(err, h5err.KindCorrupt, "arraystore.fetchChunk", "missing chunk %s", name)
		}
		return nil, err
	}
	if uint32(len(b)) != ref.Size {
		return nil, h5err.New(h5err.KindCorrupt, "arraystore.fetchChunk", "%s: %d bytes, manifest says %d", name, len(b), ref.Size)
	}
	raw, err := decodeChunk(name, ref, col.Spec, b)
	if err != nil {
		return nil, err
	}
	if useCache && g.c.cache != nil {
		g.c.cache.Set(ctx, key, raw)
	}
	return raw, nil
}

func validColumnName(name string) error {
	switch {
	case name == "", name == currentName, strings.HasPrefix(name, "."):
		return fmt.Errorf("arraystore: invalid column name %q", name)
	case strings.ContainsAny(name, "/\\"), len(name) > 255:
		return fmt.Errorf("arraystore: invalid column name %q", name)
	}
	return nil
}

func validAttrKey(key string) error {
	if key == "" || len(key) > 255 {
		return fmt.Errorf("arraystore: invalid attribute key %q", key)
	}
	for _, r := range key {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.') {
			return fmt.Errorf("arraystore: invalid attribute key %q", key)
		}
	}
	return nil
}
