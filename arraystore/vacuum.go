package arraystore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/bootphon/h5features-sub000/internal/cache"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// liveSet is the set of blobs referenced by a manifest.
type liveSet struct {
	chunks  map[string]*roaring.Bitmap // per column
	attrs   map[string]bool
	current string
}

func (g *Group) liveSet() liveSet {
	ls := liveSet{
		chunks:  make(map[string]*roaring.Bitmap, len(g.m.Columns)),
		attrs:   make(map[string]bool, len(g.m.BlobAttrs)),
		current: g.manifestName(g.m.ID),
	}
	for _, c := range g.m.Columns {
		bm := roaring.New()
		for _, ch := range c.Chunks {
			bm.Add(ch.ID)
		}
		ls.chunks[c.Name] = bm
	}
	for _, a := range g.m.BlobAttrs {
		ls.attrs[a.Blob] = true
	}
	return ls
}

func (ls liveSet) contains(group, name string) bool {
	rel, ok := strings.CutPrefix(name, group+"/")
	if !ok {
		return true
	}
	switch {
	case rel == currentName, name == ls.current, ls.attrs[name]:
		return true
	}
	col, file := path.Split(rel)
	if col == "" {
		return false
	}
	bm, ok := ls.chunks[strings.TrimSuffix(col, "/")]
	if !ok {
		return false
	}
	id, ok := parseChunkID(file)
	return ok && bm.Contains(id)
}

func parseChunkID(file string) (uint32, bool) {
	s, ok := strings.CutSuffix(file, ".chk")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// Vacuum reloads the group and deletes every blob under it that the
// committed manifest does not reference: superseded manifests, chunks left
// by failed commits and replaced attributes. It returns the deleted names.
func (g *Group) Vacuum(ctx context.Context) ([]string, error) {
	if err := g.c.check(true); err != nil {
		return nil, err
	}
	if err := g.Refresh(ctx); err != nil {
		return nil, err
	}
	live := g.liveSet()
	names, err := g.c.store.List(ctx, g.name+"/")
	if err != nil {
		return nil, err
	}
	var deleted []string
	for _, name := range names {
		if live.contains(g.name, name) {
			continue
		}
		if err := g.c.store.Delete(ctx, name); err != nil {
			return deleted, fmt.Errorf("arraystore: vacuum %s: %w", name, err)
		}
		if g.c.cache != nil {
			g.c.cache.Invalidate(cache.ForPath(name))
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// Verify reads every chunk and attribute blob of the committed manifest,
// bypassing the cache, and returns all integrity failures joined.
func (g *Group) Verify(ctx context.Context) error {
	if err := g.c.check(false); err != nil {
		return err
	}
	seen := roaring.New()
	var errs []error
	for i := range g.m.Columns {
		col := &g.m.Columns[i]
		for _, ch := range col.Chunks {
			if !seen.CheckedAdd(ch.ID) {
				errs = append(errs, h5err.New(h5err.KindCorrupt, "arraystore.Verify",
					"chunk id %d referenced twice (column %s)", ch.ID, col.Name))
				continue
			}
			if _, err := g.fetchChunk(ctx, col, ch, false); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errs = append(errs, err)
			}
		}
	}
	for _, key := range g.BlobAttrs() {
		if _, _, err := g.GetAttr(ctx, key); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
