package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnstream/internal/models"
)

type memObject struct {
	body        []byte
	contentType string
}

// memBucket is an in-memory bucketAPI.
type memBucket struct {
	exists    bool
	existsErr error
	makeErr   error
	made      int
	putErr    error
	statErr   error
	objects   map[string]memObject
}

func newMemBucket() *memBucket {
	return &memBucket{exists: true, objects: map[string]memObject{}}
}

func (b *memBucket) BucketExists(context.Context, string) (bool, error) {
	return b.exists, b.existsErr
}

func (b *memBucket) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	b.made++
	return b.makeErr
}

func (b *memBucket) PutObject(_ context.Context, _, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if b.putErr != nil {
		return minio.UploadInfo{}, b.putErr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	b.objects[key] = memObject{body: body, contentType: opts.ContentType}
	return minio.UploadInfo{Key: key, Size: int64(len(body))}, nil
}

func (b *memBucket) StatObject(_ context.Context, _, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if b.statErr != nil {
		return minio.ObjectInfo{}, b.statErr
	}
	o, ok := b.objects[key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(o.body)), ContentType: o.contentType}, nil
}

func (b *memBucket) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	delete(b.objects, key)
	return nil
}

func (b *memBucket) read(_ context.Context, _, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.objects[key].body)), nil
}

func newTestClient(t *testing.T, b *memBucket) *Client {
	t.Helper()
	c, err := newClient(context.Background(), b, b.read, "learnstream")
	require.NoError(t, err)
	return c
}

func TestNewClient_PreparesBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("already there", func(t *testing.T) {
		b := newMemBucket()
		newTestClient(t, b)
		assert.Zero(t, b.made)
	})

	t.Run("created", func(t *testing.T) {
		b := newMemBucket()
		b.exists = false
		newTestClient(t, b)
		assert.Equal(t, 1, b.made)
	})

	t.Run("created concurrently by another replica", func(t *testing.T) {
		b := newMemBucket()
		b.exists = false
		b.makeErr = minio.ErrorResponse{Code: "BucketAlreadyOwnedByYou"}
		newTestClient(t, b)
	})

	t.Run("lookup fails", func(t *testing.T) {
		b := newMemBucket()
		b.existsErr = errors.New("dial tcp: connection refused")
		_, err := newClient(ctx, b, b.read, "learnstream")
		require.Error(t, err)
	})

	t.Run("create denied", func(t *testing.T) {
		b := newMemBucket()
		b.exists = false
		b.makeErr = minio.ErrorResponse{Code: "AccessDenied"}
		_, err := newClient(ctx, b, b.read, "learnstream")
		require.Error(t, err)
	})
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newMemBucket()
	c := newTestClient(t, b)

	require.NoError(t, c.Upload(ctx, "narration/1/0.mp3", strings.NewReader("ID3audio"), 8, "audio/mpeg"))

	ok, err := c.Exists(ctx, "narration/1/0.mp3")
	require.NoError(t, err)
	assert.True(t, ok)

	obj, err := c.Open(ctx, "narration/1/0.mp3")
	require.NoError(t, err)
	defer obj.Close()
	assert.Equal(t, int64(8), obj.Size)
	assert.Equal(t, "audio/mpeg", obj.ContentType)
	body, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "ID3audio", string(body))

	require.NoError(t, c.Remove(ctx, "narration/1/0.mp3"))
	ok, err = c.Exists(ctx, "narration/1/0.mp3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_Missing(t *testing.T) {
	ctx := context.Background()
	b := newMemBucket()
	c := newTestClient(t, b)

	_, err := c.Open(ctx, "creations/none.txt")
	require.ErrorIs(t, err, models.ErrNotFound)

	b.statErr = errors.New("503 slow down")
	_, err = c.Exists(ctx, "creations/none.txt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)

	b.putErr = errors.New("quota")
	require.Error(t, c.Upload(ctx, "k", strings.NewReader("x"), 1, ""))
}

func TestContentKey(t *testing.T) {
	a := ContentKey("creations/u/1", []byte("same"), ".txt")
	b := ContentKey("creations/u/1", []byte("same"), ".txt")
	c := ContentKey("creations/u/1", []byte("other"), ".txt")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "creations/u/1/"))
	assert.True(t, strings.HasSuffix(a, ".txt"))
	assert.Len(t, a, len("creations/u/1/")+32+len(".txt"))
}
