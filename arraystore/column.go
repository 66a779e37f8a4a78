package arraystore

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Column reads the rows of one committed column.
type Column struct {
	g      *Group
	info   columnInfo
	starts []int64 // starts[i] is the first row of chunk i; starts[len] is Rows
}

func newColumn(g *Group, info columnInfo) *Column {
	starts := make([]int64, len(info.Chunks)+1)
	for i, ch := range info.Chunks {
		starts[i+1] = starts[i] + int64(ch.Rows)
	}
	return &Column{g: g, info: info, starts: starts}
}

// Name returns the column name.
func (c *Column) Name() string { return c.info.Name }

// Spec returns the column layout.
func (c *Column) Spec() ColumnSpec { return c.info.Spec }

// Rows returns the number of committed rows.
func (c *Column) Rows() int64 { return c.starts[len(c.starts)-1] }

// Chunks returns the chunk references in row order.
func (c *Column) Chunks() []ChunkRef { return slices.Clone(c.info.Chunks) }

// StoredBytes returns the size of the chunk blobs.
func (c *Column) StoredBytes() int64 {
	var n int64
	for _, ch := range c.info.Chunks {
		n += int64(ch.Size)
	}
	return n
}

// ReadRows returns the raw bytes of rows start..end, both inclusive, of a
// fixed column.
func (c *Column) ReadRows(ctx context.Context, start, end int64) ([]byte, error) {
	if c.info.Spec.Kind != Fixed {
		return nil, fmt.Errorf("arraystore: column %q holds strings", c.info.Name)
	}
	return c.read(ctx, start, end+1)
}

// ReadStrings returns rows start..end, both inclusive, of a strings column.
func (c *Column) ReadStrings(ctx context.Context, start, end int64) ([]string, error) {
	if c.info.Spec.Kind != Strings {
		return nil, fmt.Errorf("arraystore: column %q holds fixed rows", c.info.Name)
	}
	raw, err := c.read(ctx, start, end+1)
	if err != nil {
		return nil, err
	}
	out, err := decodeStrings(raw, int(end-start+1))
	if err != nil {
		return nil, h5err.Wrap(err, h5err.KindCorrupt, "arraystore.ReadStrings", "%s/%s", c.g.name, c.info.Name)
	}
	return out, nil
}

// read returns the encoded rows [start, end). Chunks are fetched in
// parallel, bounded by the resource controller.
func (c *Column) read(ctx context.Context, start, end int64) ([]byte, error) {
	if start < 0 || end > c.Rows() || start > end {
		return nil, h5err.OutOfRange("arraystore.read", "rows [%d, %d] of %s/%s with %d rows",
			start, end-1, c.g.name, c.info.Name, c.Rows())
	}
	if start == end {
		return []byte{}, nil
	}
	if err := c.g.c.check(false); err != nil {
		return nil, err
	}
	first := sort.Search(len(c.info.Chunks), func(i int) bool { return c.starts[i+1] > start })
	last := sort.Search(len(c.info.Chunks), func(i int) bool { return c.starts[i+1] >= end })

	parts := make([][]byte, last-first+1)
	eg, ctx := errgroup.WithContext(ctx)
	rc := c.g.c.rc
	for i := first; i <= last; i++ {
		eg.Go(func() error {
			if err := rc.AcquireSlot(ctx); err != nil {
				return err
			}
			defer rc.ReleaseSlot()
			raw, err := c.g.fetchChunk(ctx, &c.info, c.info.Chunks[i], true)
			if err != nil {
				return err
			}
			lo := max(start, c.starts[i]) - c.starts[i]
			hi := min(end, c.starts[i+1]) - c.starts[i]
			from, err := rowOffset(c.info.Spec, raw, int(lo))
			if err != nil {
				return h5err.Wrap(err, h5err.KindCorrupt, "arraystore.read", "%s/%s", c.g.name, c.info.Name)
			}
			to, err := rowOffset(c.info.Spec, raw[from:], int(hi-lo))
			if err != nil {
				return h5err.Wrap(err, h5err.KindCorrupt, "arraystore.read", "%s/%s", c.g.name, c.info.Name)
			}
			parts[i-first] = raw[from : from+to]
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(parts...), nil
}
