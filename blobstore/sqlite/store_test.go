package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootphon/h5features-sub000/blobstore"
)

func TestStore(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "features.db")
	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Open(ctx, "g/CURRENT")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, s.Put(ctx, "g/features/1.chk", []byte("chunk")))
	require.NoError(t, s.Put(ctx, "g/CURRENT", []byte("MANIFEST-1")))
	require.NoError(t, s.Put(ctx, "g_x/CURRENT", []byte("MANIFEST-1")))
	require.NoError(t, s.Put(ctx, "g/CURRENT", []byte("MANIFEST-2")))
	require.NoError(t, s.Put(ctx, "g/empty", nil))

	got, err := blobstore.ReadAll(ctx, s, "g/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-2", string(got))

	got, err = blobstore.ReadAll(ctx, s, "g/empty")
	require.NoError(t, err)
	assert.Empty(t, got)

	names, err := s.List(ctx, "g/")
	require.NoError(t, err)
	assert.Equal(t, []string{"g/CURRENT", "g/empty", "g/features/1.chk"}, names)

	names, err = s.List(ctx, "g_")
	require.NoError(t, err)
	assert.Equal(t, []string{"g_x/CURRENT"}, names)

	size, err := s.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5+10+10), size)

	require.NoError(t, s.Delete(ctx, "g/features/1.chk"))
	require.NoError(t, s.Delete(ctx, "g/features/1.chk"))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Open(ctx, "g/CURRENT")
	assert.Error(t, err)

	// reopening sees committed rows
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err = blobstore.ReadAll(ctx, s2, "g/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-2", string(got))
}

func TestOpenConfigRequiresPath(t *testing.T) {
	_, err := OpenConfig(Config{})
	assert.Error(t, err)
}
