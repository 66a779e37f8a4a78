package arraystore

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bootphon/h5features-sub000/internal/cache"
	"github.com/bootphon/h5features-sub000/internal/hash"
)

// Tx stages changes to a group. Nothing is visible to readers until Commit
// switches the group's CURRENT pointer to a new manifest.
//
// A Tx is not safe for concurrent use.
type Tx struct {
	g         *Group
	m         *manifest
	pending   map[string]*pendingRows
	blobAttrs map[string][]byte
	obsolete  []string
	done      bool
}

// pendingRows are encoded rows appended after the committed chunks of a
// column. A partial tail chunk is moved here on first append so chunks fill
// up to ChunkRows.
type pendingRows struct {
	buf  []byte
	rows int
}

// Begin starts a transaction on the committed state of g.
func (g *Group) Begin() *Tx {
	return &Tx{
		g:         g,
		m:         g.m.clone(),
		pending:   map[string]*pendingRows{},
		blobAttrs: map[string][]byte{},
	}
}

// CreateColumn adds an empty column.
func (tx *Tx) CreateColumn(name string, spec ColumnSpec) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := validColumnName(name); err != nil {
		return err
	}
	if err := spec.validate(name); err != nil {
		return err
	}
	if spec.Kind == Strings {
		spec.RowSize = 0
	}
	if tx.m.column(name) != nil {
		return fmt.Errorf("%w: column %s/%s", ErrExists, tx.g.name, name)
	}
	tx.m.Columns = append(tx.m.Columns, columnInfo{Name: name, Spec: spec})
	return nil
}

// DropColumn removes a column. Its chunks are deleted after Commit.
func (tx *Tx) DropColumn(name string) error {
	if err := tx.check(); err != nil {
		return err
	}
	i := slices.IndexFunc(tx.m.Columns, func(c columnInfo) bool { return c.Name == name })
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", ErrColumnNotFound, tx.g.name, name)
	}
	for _, ch := range tx.m.Columns[i].Chunks {
		tx.obsolete = append(tx.obsolete, tx.g.chunkName(name, ch.ID))
	}
	tx.m.Columns = slices.Delete(tx.m.Columns, i, i+1)
	delete(tx.pending, name)
	return nil
}

// Rows returns the number of rows of a column including staged rows.
func (tx *Tx) Rows(column string) (int64, error) {
	info := tx.m.column(column)
	if info == nil {
		return 0, fmt.Errorf("%w: %s/%s", ErrColumnNotFound, tx.g.name, column)
	}
	n := info.rows()
	if p := tx.pending[column]; p != nil {
		n += int64(p.rows)
	}
	return n, nil
}

// AppendRows stages raw rows for a fixed column. len(raw) must be a
// multiple of the column's row size.
func (tx *Tx) AppendRows(ctx context.Context, column string, raw []byte) error {
	if err := tx.check(); err != nil {
		return err
	}
	info := tx.m.column(column)
	if info == nil {
		return fmt.Errorf("%w: %s/%s", ErrColumnNotFound, tx.g.name, column)
	}
	if info.Spec.Kind != Fixed {
		return fmt.Errorf("arraystore: column %q holds strings", column)
	}
	if len(raw)%info.Spec.RowSize != 0 {
		return fmt.Errorf("arraystore: column %q: %d bytes is not a whole number of %d-byte rows",
			column, len(raw), info.Spec.RowSize)
	}
	if len(raw) == 0 {
		return nil
	}
	p, err := tx.pendingFor(ctx, info)
	if err != nil {
		return err
	}
	p.buf = append(p.buf, raw...)
	p.rows += len(raw) / info.Spec.RowSize
	return nil
}

// AppendStrings stages rows for a strings column.
func (tx *Tx) AppendStrings(ctx context.Context, column string, values []string) error {
	if err := tx.check(); err != nil {
		return err
	}
	info := tx.m.column(column)
	if info == nil {
		return fmt.Errorf("%w: %s/%s", ErrColumnNotFound, tx.g.name, column)
	}
	if info.Spec.Kind != Strings {
		return fmt.Errorf("arraystore: column %q holds fixed rows", column)
	}
	if len(values) == 0 {
		return nil
	}
	p, err := tx.pendingFor(ctx, info)
	if err != nil {
		return err
	}
	for _, s := range values {
		p.buf = appendString(p.buf, s)
	}
	p.rows += len(values)
	return nil
}

func (tx *Tx) pendingFor(ctx context.Context, info *columnInfo) (*pendingRows, error) {
	if p := tx.pending[info.Name]; p != nil {
		return p, nil
	}
	p := &pendingRows{}
	if n := len(info.Chunks); n > 0 && int(info.Chunks[n-1].Rows) < info.Spec.ChunkRows {
		tail := info.Chunks[n-1]
		raw, err := tx.g.fetchChunk(ctx, info, tail, true)
		if err != nil {
			return nil, err
		}
		p.buf = slices.Clone(raw)
		p.rows = int(tail.Rows)
		info.Chunks = info.Chunks[:n-1]
		tx.obsolete = append(tx.obsolete, tx.g.chunkName(info.Name, tail.ID))
	}
	tx.pending[info.Name] = p
	return p, nil
}

// Truncate shrinks a column to rows rows.
func (tx *Tx) Truncate(ctx context.Context, column string, rows int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	info := tx.m.column(column)
	if info == nil {
		return fmt.Errorf("%w: %s/%s", ErrColumnNotFound, tx.g.name, column)
	}
	total, _ := tx.Rows(column)
	if rows < 0 || rows > total {
		return fmt.Errorf("arraystore: cannot truncate %s/%s with %d rows to %d", tx.g.name, column, total, rows)
	}
	committed := info.rows()
	if rows >= committed {
		p := tx.pending[column]
		if p == nil {
			return nil
		}
		off, err := rowOffset(info.Spec, p.buf, int(rows-committed))
		if err != nil {
			return err
		}
		p.buf = p.buf[:off]
		p.rows = int(rows - committed)
		return nil
	}

	delete(tx.pending, column)
	var start int64
	keep := len(info.Chunks)
	var tail *pendingRows
	for i, ch := range info.Chunks {
		end := start + int64(ch.Rows)
		if end <= rows {
			start = end
			continue
		}
		if keep == len(info.Chunks) {
			keep = i
		}
		if start < rows {
			raw, err := tx.g.fetchChunk(ctx, info, ch, true)
			if err != nil {
				return err
			}
			off, err := rowOffset(info.Spec, raw, int(rows-start))
			if err != nil {
				return err
			}
			tail = &pendingRows{buf: slices.Clone(raw[:off]), rows: int(rows - start)}
		}
		tx.obsolete = append(tx.obsolete, tx.g.chunkName(info.Name, ch.ID))
		start = end
	}
	info.Chunks = info.Chunks[:keep]
	if tail != nil {
		tx.pending[column] = tail
	}
	return nil
}

// SetAttr sets an inline attribute.
func (tx *Tx) SetAttr(key, value string) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := validAttrKey(key); err != nil {
		return err
	}
	tx.m.Attrs[key] = value
	return nil
}

// PutAttr stages a blob attribute. The blob is written on Commit.
func (tx *Tx) PutAttr(key string, data []byte) error {
	if err := tx.check(); err != nil {
		return err
	}
	if err := validAttrKey(key); err != nil {
		return err
	}
	tx.blobAttrs[key] = slices.Clone(data)
	return nil
}

// DeleteAttr removes an inline or blob attribute.
func (tx *Tx) DeleteAttr(key string) error {
	if err := tx.check(); err != nil {
		return err
	}
	delete(tx.m.Attrs, key)
	delete(tx.blobAttrs, key)
	if ref, ok := tx.m.BlobAttrs[key]; ok {
		tx.obsolete = append(tx.obsolete, ref.Blob)
		delete(tx.m.BlobAttrs, key)
	}
	return nil
}

type stagedBlob struct {
	name string
	data []byte
}

// Commit writes the staged chunks and attributes, then the manifest, then
// switches CURRENT. If any step fails the committed state is unchanged and
// the staged blobs are removed best-effort. The Tx can not be reused.
func (tx *Tx) Commit(ctx context.Context) error {
	if err := tx.check(); err != nil {
		return err
	}
	tx.done = true
	if err := tx.g.c.check(true); err != nil {
		return err
	}
	g, m := tx.g, tx.m

	var blobs []stagedBlob
	for _, name := range slices.Sorted(maps.Keys(tx.pending)) {
		info := m.column(name)
		p := tx.pending[name]
		buf := p.buf
		for left := p.rows; left > 0; {
			n := min(left, info.Spec.ChunkRows)
			size, err := rowOffset(info.Spec, buf, n)
			if err != nil {
				return err
			}
			id, err := m.allocID()
			if err != nil {
				return err
			}
			chunk, err := encodeChunk(info.Spec.Kind, info.Spec.Compression, n, buf[:size])
			if err != nil {
				return err
			}
			blobs = append(blobs, stagedBlob{name: g.chunkName(name, id), data: chunk})
			info.Chunks = append(info.Chunks, ChunkRef{ID: id, Rows: uint32(n), Size: uint32(len(chunk))})
			buf = buf[size:]
			left -= n
		}
	}
	for _, key := range slices.Sorted(maps.Keys(tx.blobAttrs)) {
		data := tx.blobAttrs[key]
		id, err := m.allocID()
		if err != nil {
			return err
		}
		name := g.attrName(key, id)
		if old, ok := m.BlobAttrs[key]; ok {
			tx.obsolete = append(tx.obsolete, old.Blob)
		}
		m.BlobAttrs[key] = BlobAttr{Blob: name, Size: uint64(len(data)), CRC: hash.CRC32C(data)}
		blobs = append(blobs, stagedBlob{name: name, data: data})
	}

	prev := g.m.ID
	m.ID = prev + 1
	m.CreatedAt = time.Now()
	enc, err := m.encode()
	if err != nil {
		return err
	}
	manifestName := g.manifestName(m.ID)

	staged := make([]string, 0, len(blobs)+1)
	cleanup := func() {
		tx.removeBestEffort(context.WithoutCancel(ctx), staged)
	}

	if err := tx.putAll(ctx, blobs, &staged); err != nil {
		cleanup()
		return err
	}
	if err := g.c.store.Put(ctx, manifestName, enc); err != nil {
		cleanup()
		return fmt.Errorf("arraystore: write manifest %s: %w", manifestName, err)
	}
	staged = append(staged, manifestName)
	if err := g.c.store.Put(ctx, g.name+"/"+currentName, []byte(manifestName)); err != nil {
		cleanup()
		return fmt.Errorf("arraystore: switch %s/%s: %w", g.name, currentName, err)
	}

	if prev > 0 {
		tx.obsolete = append(tx.obsolete, g.manifestName(prev))
	}
	tx.removeBestEffort(context.WithoutCancel(ctx), tx.obsolete)
	g.m = m
	return nil
}

// putAll uploads blobs in parallel. staged receives the names written, in
// no particular order.
func (tx *Tx) putAll(ctx context.Context, blobs []stagedBlob, staged *[]string) error {
	rc := tx.g.c.rc
	written := make([]bool, len(blobs))
	eg, ctx := errgroup.WithContext(ctx)
	for i, b := range blobs {
		eg.Go(func() error {
			if err := rc.AcquireSlot(ctx); err != nil {
				return err
			}
			defer rc.ReleaseSlot()
			if err := rc.AcquireIO(ctx, len(b.data)); err != nil {
				return err
			}
			// A failed Put may still leave a blob behind on some stores.
			written[i] = true
			if err := tx.g.c.store.Put(ctx, b.name, b.data); err != nil {
				return fmt.Errorf("arraystore: stage %s: %w", b.name, err)
			}
			return nil
		})
	}
	err := eg.Wait()
	for i, ok := range written {
		if ok {
			*staged = append(*staged, blobs[i].name)
		}
	}
	return err
}

func (tx *Tx) removeBestEffort(ctx context.Context, names []string) {
	c := tx.g.c
	for _, name := range names {
		_ = c.store.Delete(ctx, name)
		if c.cache != nil {
			c.cache.Invalidate(cache.ForPath(name))
		}
	}
}

// Rollback discards the staged changes. Nothing has been written before
// Commit, so it only invalidates the Tx.
func (tx *Tx) Rollback(context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.pending = nil
	tx.blobAttrs = nil
	return nil
}

func (tx *Tx) check() error {
	if tx.done {
		return ErrTxDone
	}
	return nil
}

func (m *manifest) allocID() (uint32, error) {
	if m.NextChunkID == math.MaxUint32 {
		return 0, fmt.Errorf("arraystore: group %q exhausted blob ids", m.Group)
	}
	id := m.NextChunkID
	m.NextChunkID++
	return id, nil
}
