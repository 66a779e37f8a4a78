package minio

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootphon/h5features-sub000/blobstore"
)

func TestKeyMapping(t *testing.T) {
	s := NewStore(nil, "bucket", "/buckeye/")
	assert.Equal(t, "buckeye/g/CURRENT", s.key("g/CURRENT"))
	assert.Equal(t, "g/CURRENT", s.name("buckeye/g/CURRENT"))

	bare := NewStore(nil, "bucket", "")
	assert.Equal(t, "g/CURRENT", bare.key("g/CURRENT"))
	assert.Equal(t, "g/CURRENT", bare.name("g/CURRENT"))
}

// TestIntegration requires a MinIO server; set H5F_MINIO_ENDPOINT to run it.
func TestIntegration(t *testing.T) {
	endpoint := os.Getenv("H5F_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("H5F_MINIO_ENDPOINT not set")
	}
	store, err := Dial(endpoint, "minioadmin", "minioadmin", false, "h5features-test", "it/")
	require.NoError(t, err)

	ctx := t.Context()
	exists, err := store.client.BucketExists(ctx, store.bucket)
	require.NoError(t, err)
	if !exists {
		t.Skip("bucket h5features-test does not exist")
	}

	require.NoError(t, store.Put(ctx, "g/features/1.chk", []byte("hello minio")))
	got, err := blobstore.ReadAll(ctx, store, "g/features/1.chk")
	require.NoError(t, err)
	assert.Equal(t, "hello minio", string(got))

	names, err := store.List(ctx, "g/")
	require.NoError(t, err)
	assert.Contains(t, names, "g/features/1.chk")

	require.NoError(t, store.Delete(ctx, "g/features/1.chk"))
	_, err = store.Open(ctx, "g/features/1.chk")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
