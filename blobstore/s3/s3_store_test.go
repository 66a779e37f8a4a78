package s3

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bootphon/h5features-sub000/blobstore"
)

func TestStoreOpen(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "bucket", "corpus/")

	client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return *in.Key == "corpus/g/CURRENT"
	})).Return(nil, &types.NotFound{}).Once()
	client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return *in.Key == "corpus/g/features/1.chk"
	})).Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(100)}, nil).Once()

	_, err := store.Open(t.Context(), "g/CURRENT")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	b, err := store.Open(t.Context(), "g/features/1.chk")
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.Size())
	client.AssertExpectations(t)
}

func TestStorePutSmallBlobWithChecksum(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "bucket", "")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "bucket" && *in.Key == "g/CURRENT" &&
			in.ChecksumCRC32C != nil && *in.ContentLength == 10
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(t.Context(), "g/CURRENT", []byte("MANIFEST-1")))
	assert.Error(t, store.Put(t.Context(), "../x", nil))
	client.AssertExpectations(t)
}

func TestStoreDeleteMissing(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "bucket", "p")
	client.On("DeleteObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{}).Once()
	assert.NoError(t, store.Delete(t.Context(), "gone"))
}

func TestStoreListPaginates(t *testing.T) {
	client := new(MockS3Client)
	store := NewStore(client, "bucket", "prefix/")

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil && *in.Prefix == "prefix/g/"
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("token"),
		Contents:              []types.Object{{Key: aws.String("prefix/g/times/1.chk")}},
	}, nil).Once()
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken != nil && *in.ContinuationToken == "token"
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated: aws.Bool(false),
		Contents:    []types.Object{{Key: aws.String("prefix/g/features/1.chk")}},
	}, nil).Once()

	names, err := store.List(t.Context(), "g/")
	require.NoError(t, err)
	assert.Equal(t, []string{"g/features/1.chk", "g/times/1.chk"}, names)
}

func TestBlobReadAt(t *testing.T) {
	client := new(MockS3Client)
	b := &s3Blob{client: client, bucket: "b", key: "k", size: 10}

	client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Range == "bytes=0-4"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("hello"))}, nil).Once()
	client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Range == "bytes=7-9"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("rld"))}, nil).Once()

	buf := make([]byte, 5)
	n, err := b.ReadAt(t.Context(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	n, err = b.ReadAt(t.Context(), buf, 7)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "rld", string(buf[:n]))

	_, err = b.ReadAt(t.Context(), buf, 10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestIntegrationStore(t *testing.T) {
	bucket := os.Getenv("H5F_S3_BUCKET")
	if bucket == "" {
		t.Skip("H5F_S3_BUCKET not set")
	}
	store, err := New(t.Context(), bucket, "h5features-test/")
	require.NoError(t, err)

	require.NoError(t, store.Put(t.Context(), "g/blob", []byte("payload")))
	got, err := blobstore.ReadAll(t.Context(), store, "g/blob")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
	require.NoError(t, store.Delete(t.Context(), "g/blob"))
}
