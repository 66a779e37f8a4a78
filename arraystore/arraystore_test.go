package arraystore

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootphon/h5features-sub000/blobstore"
	"github.com/bootphon/h5features-sub000/internal/compress"
	"github.com/bootphon/h5features-sub000/internal/fs"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

func int64Rows(vals ...int64) []byte {
	out := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, uint64(v))
	}
	return out
}

func seq(from, to int64) []int64 {
	var out []int64
	for v := from; v < to; v++ {
		out = append(out, v)
	}
	return out
}

func newGroup(t *testing.T, store blobstore.BlobStore) (*Container, *Group) {
	t.Helper()
	ctx := t.Context()
	c, err := Open(ctx, store, ModeWriteAppend)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	g, err := c.CreateGroup(ctx, "g", map[string]string{"version": "1.1"})
	require.NoError(t, err)
	tx := g.Begin()
	require.NoError(t, tx.CreateColumn("vals", ColumnSpec{Kind: Fixed, RowSize: 8, ChunkRows: 4, Compression: compress.Zstd}))
	require.NoError(t, tx.CreateColumn("names", ColumnSpec{Kind: Strings, ChunkRows: 3, Compression: compress.S2}))
	require.NoError(t, tx.Commit(ctx))
	return c, g
}

func TestOpenModes(t *testing.T) {
	ctx := t.Context()

	t.Run("read empty", func(t *testing.T) {
		_, err := Open(ctx, blobstore.NewMemoryStore(), ModeRead)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("not a container", func(t *testing.T) {
		s := blobstore.NewMemoryStore()
		require.NoError(t, s.Put(ctx, "notes.txt", []byte("hello")))
		_, err := Open(ctx, s, ModeRead)
		assert.ErrorIs(t, err, ErrNotAContainer)
		_, err = Open(ctx, s, ModeWriteAppend)
		assert.ErrorIs(t, err, ErrNotAContainer)
	})

	t.Run("bad marker", func(t *testing.T) {
		s := blobstore.NewMemoryStore()
		require.NoError(t, s.Put(ctx, MarkerName, []byte("something else")))
		_, err := Open(ctx, s, ModeRead)
		assert.ErrorIs(t, err, ErrNotAContainer)
	})

	t.Run("create then read", func(t *testing.T) {
		s := blobstore.NewMemoryStore()
		c, err := Open(ctx, s, ModeWriteCreate)
		require.NoError(t, err)
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())

		_, err = Open(ctx, s, ModeWriteCreate)
		assert.ErrorIs(t, err, ErrExists)

		r, err := Open(ctx, s, ModeRead)
		require.NoError(t, err)
		defer r.Close()
		groups, err := r.ListGroups(ctx)
		require.NoError(t, err)
		assert.Empty(t, groups)
		_, err = r.CreateGroup(ctx, "g", nil)
		assert.ErrorIs(t, err, ErrReadOnly)
	})
}

func TestGroupLifecycle(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()
	c, g := newGroup(t, store)

	_, err := c.CreateGroup(ctx, "g", nil)
	assert.ErrorIs(t, err, ErrExists)
	_, err = c.Group(ctx, "missing")
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Error(t, ValidGroupName("a/b"))

	groups, err := c.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, groups)

	v, ok := g.Attr("version")
	assert.True(t, ok)
	assert.Equal(t, "1.1", v)
	assert.Equal(t, []string{"vals", "names"}, g.Columns())
	assert.Equal(t, uint64(2), g.Generation())
}

func TestNewGroupIsStagedUntilCommit(t *testing.T) {
	ctx := t.Context()
	c, err := Open(ctx, blobstore.NewMemoryStore(), ModeWriteAppend)
	require.NoError(t, err)
	defer c.Close()

	g, err := c.NewGroup(ctx, "staged")
	require.NoError(t, err)
	ok, err := c.HasGroup(ctx, "staged")
	require.NoError(t, err)
	assert.False(t, ok)

	tx := g.Begin()
	require.NoError(t, tx.SetAttr("version", "1.1"))
	require.NoError(t, tx.CreateColumn("vals", ColumnSpec{Kind: Fixed, RowSize: 8, ChunkRows: 4}))
	require.NoError(t, tx.AppendRows(ctx, "vals", int64Rows(1, 2)))
	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, uint64(1), g.Generation())

	fresh, err := c.Group(ctx, "staged")
	require.NoError(t, err)
	col, err := fresh.Column("vals")
	require.NoError(t, err)
	assert.Equal(t, int64(2), col.Rows())

	_, err = c.NewGroup(ctx, "staged")
	assert.ErrorIs(t, err, ErrExists)
}

func TestAppendAcrossChunks(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()
	c, g := newGroup(t, store)

	// three commits of 3 rows each produce chunks of 4, 4, 1 rows
	for i := int64(0); i < 3; i++ {
		tx := g.Begin()
		require.NoError(t, tx.AppendRows(ctx, "vals", int64Rows(seq(3*i, 3*i+3)...)))
		require.NoError(t, tx.AppendStrings(ctx, "names", []string{fmt.Sprintf("item-%d", i), "", "ü"}))
		n, err := tx.Rows("vals")
		require.NoError(t, err)
		assert.Equal(t, 3*i+3, n)
		require.NoError(t, tx.Commit(ctx))
	}

	reopened, err := c.Group(ctx, "g")
	require.NoError(t, err)
	col, err := reopened.Column("vals")
	require.NoError(t, err)
	assert.Equal(t, int64(9), col.Rows())
	rows := make([]uint32, 0)
	for _, ch := range col.Chunks() {
		rows = append(rows, ch.Rows)
	}
	assert.Equal(t, []uint32{4, 4, 1}, rows)

	got, err := col.ReadRows(ctx, 2, 6)
	require.NoError(t, err)
	assert.Equal(t, int64Rows(2, 3, 4, 5, 6), got)

	all, err := col.ReadRows(ctx, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, int64Rows(seq(0, 9)...), all)

	_, err = col.ReadRows(ctx, 5, 9)
	assert.ErrorIs(t, err, h5err.ErrOutOfRange)

	names, err := reopened.Column("names")
	require.NoError(t, err)
	s, err := names.ReadStrings(ctx, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"ü", "item-1", ""}, s)

	// replaced tail chunks are deleted after each commit
	left, err := store.List(ctx, "g/vals/")
	require.NoError(t, err)
	assert.Len(t, left, 3)
}

func TestTruncate(t *testing.T) {
	ctx := t.Context()
	_, g := newGroup(t, blobstore.NewMemoryStore())

	tx := g.Begin()
	require.NoError(t, tx.AppendRows(ctx, "vals", int64Rows(seq(0, 10)...)))
	require.NoError(t, tx.Commit(ctx))

	tx = g.Begin()
	require.NoError(t, tx.Truncate(ctx, "vals", 6))
	require.NoError(t, tx.AppendRows(ctx, "vals", int64Rows(100)))
	assert.Error(t, tx.Truncate(ctx, "vals", 8))
	require.NoError(t, tx.Commit(ctx))

	col, err := g.Column("vals")
	require.NoError(t, err)
	got, err := col.ReadRows(ctx, 0, col.Rows()-1)
	require.NoError(t, err)
	assert.Equal(t, int64Rows(0, 1, 2, 3, 4, 5, 100), got)

	tx = g.Begin()
	require.NoError(t, tx.Truncate(ctx, "vals", 0))
	require.NoError(t, tx.Commit(ctx))
	col, err = g.Column("vals")
	require.NoError(t, err)
	assert.Zero(t, col.Rows())
}

func TestBlobAttrs(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()
	_, g := newGroup(t, store)

	_, ok, err := g.GetAttr(ctx, "properties")
	require.NoError(t, err)
	assert.False(t, ok)

	tx := g.Begin()
	require.NoError(t, tx.PutAttr("properties", []byte(`[{"a":1}]`)))
	assert.Error(t, tx.PutAttr("bad key", nil))
	require.NoError(t, tx.Commit(ctx))

	got, ok, err := g.GetAttr(ctx, "properties")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"a":1}]`, string(got))

	tx = g.Begin()
	require.NoError(t, tx.PutAttr("properties", []byte(`[]`)))
	require.NoError(t, tx.Commit(ctx))
	attrs, err := store.List(ctx, "g/attr-")
	require.NoError(t, err)
	assert.Len(t, attrs, 1)

	tx = g.Begin()
	require.NoError(t, tx.DeleteAttr("properties"))
	require.NoError(t, tx.Commit(ctx))
	assert.Empty(t, g.BlobAttrs())
}

func TestTxDone(t *testing.T) {
	ctx := t.Context()
	_, g := newGroup(t, blobstore.NewMemoryStore())
	tx := g.Begin()
	require.NoError(t, tx.Rollback(ctx))
	assert.ErrorIs(t, tx.Rollback(ctx), ErrTxDone)
	assert.ErrorIs(t, tx.AppendRows(ctx, "vals", int64Rows(1)), ErrTxDone)
	assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
}

func TestCommitFailureKeepsPreviousState(t *testing.T) {
	ctx := t.Context()
	ffs := fs.NewFaultyFS(nil)
	store := blobstore.NewLocalStore(t.TempDir(), blobstore.WithFileSystem(ffs))
	c, g := newGroup(t, store)

	tx := g.Begin()
	require.NoError(t, tx.AppendRows(ctx, "vals", int64Rows(1, 2, 3)))
	require.NoError(t, tx.Commit(ctx))

	for _, pattern := range []string{".chk", "MANIFEST-", "CURRENT"} {
		t.Run(pattern, func(t *testing.T) {
			ffs.AddRule(pattern, fs.Fault{FailAfterBytes: -1, FailOnRename: true})
			defer ffs.Reset()

			tx := g.Begin()
			require.NoError(t, tx.AppendRows(ctx, "vals", int64Rows(4, 5, 6, 7, 8)))
			require.NoError(t, tx.AppendStrings(ctx, "names", []string{"x"}))
			assert.ErrorIs(t, tx.Commit(ctx), fs.ErrInjected)

			fresh, err := c.Group(ctx, "g")
			require.NoError(t, err)
			col, err := fresh.Column("vals")
			require.NoError(t, err)
			got, err := col.ReadRows(ctx, 0, col.Rows()-1)
			require.NoError(t, err)
			assert.Equal(t, int64Rows(1, 2, 3), got)
			require.NoError(t, fresh.Verify(ctx))
		})
	}
}

func TestVacuum(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()
	_, g := newGroup(t, store)

	tx := g.Begin()
	require.NoError(t, tx.AppendRows(ctx, "vals", int64Rows(1, 2)))
	require.NoError(t, tx.Commit(ctx))

	// leftovers of an interrupted commit
	require.NoError(t, store.Put(ctx, "g/vals/00009999.chk", []byte("junk")))
	require.NoError(t, store.Put(ctx, "g/MANIFEST-000099.bin", []byte("junk")))
	require.NoError(t, store.Put(ctx, "g/gone/00000001.chk", []byte("junk")))
	require.NoError(t, store.Put(ctx, "other/CURRENT", []byte("untouched")))

	deleted, err := g.Vacuum(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g/vals/00009999.chk", "g/MANIFEST-000099.bin", "g/gone/00000001.chk"}, deleted)

	again, err := g.Vacuum(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	col, err := g.Column("vals")
	require.NoError(t, err)
	got, err := col.ReadRows(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64Rows(1, 2), got)
	ok, err := blobstore.Exists(ctx, store, "other/CURRENT")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()
	_, g := newGroup(t, store)

	tx := g.Begin()
	require.NoError(t, tx.AppendRows(ctx, "vals", int64Rows(seq(0, 8)...)))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, g.Verify(ctx))

	col, err := g.Column("vals")
	require.NoError(t, err)
	name := g.chunkName("vals", col.Chunks()[1].ID)
	b, err := blobstore.ReadAll(ctx, store, name)
	require.NoError(t, err)
	b[len(b)-1] ^= 0xff
	require.NoError(t, store.Put(ctx, name, b))

	err = g.Verify(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	// bypass the warm cache through a fresh container
	r, err := Open(ctx, store, ModeRead)
	require.NoError(t, err)
	defer r.Close()
	fresh, err := r.Group(ctx, "g")
	require.NoError(t, err)
	col, err = fresh.Column("vals")
	require.NoError(t, err)
	_, err = col.ReadRows(ctx, 0, 7)
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = col.ReadRows(ctx, 0, 3)
	assert.NoError(t, err)
}

func TestClosedContainer(t *testing.T) {
	ctx := t.Context()
	c, g := newGroup(t, blobstore.NewMemoryStore())
	require.NoError(t, c.Close())
	_, err := c.ListGroups(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, g.Begin().Commit(context.Background()), ErrClosed)
}

func TestDropColumn(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()
	_, g := newGroup(t, store)

	tx := g.Begin()
	require.NoError(t, tx.AppendRows(ctx, "vals", int64Rows(seq(0, 6)...)))
	require.NoError(t, tx.Commit(ctx))

	tx = g.Begin()
	require.NoError(t, tx.DropColumn("vals"))
	assert.ErrorIs(t, tx.DropColumn("vals"), ErrColumnNotFound)
	require.NoError(t, tx.CreateColumn("vals", ColumnSpec{Kind: Fixed, RowSize: 4, ChunkRows: 2}))
	require.NoError(t, tx.AppendRows(ctx, "vals", []byte{1, 0, 0, 0}))
	require.NoError(t, tx.Commit(ctx))

	col, err := g.Column("vals")
	require.NoError(t, err)
	assert.Equal(t, 4, col.Spec().RowSize)
	assert.Equal(t, int64(1), col.Rows())
	left, err := store.List(ctx, "g/vals/")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
