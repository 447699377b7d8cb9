// Package storage keeps You Do submissions and narration audio in an
// S3-compatible bucket.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/crypto/blake2b"

	"learnstream/internal/config"
	"learnstream/internal/models"
)

// bucketAPI is satisfied by *minio.Client.
type bucketAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// readFunc opens an object body. *minio.Object cannot be built outside
// minio-go, so reads go through a function tests can swap.
type readFunc func(ctx context.Context, bucket, key string) (io.ReadCloser, error)

var _ models.ObjectStorage = (*Client)(nil)

// Client stores objects in a single bucket.
type Client struct {
	api    bucketAPI
	read   readFunc
	bucket string
}

// Dial connects to the configured endpoint and prepares the bucket.
func Dial(ctx context.Context, cfg config.Storage) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	read := func(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
		obj, err := mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		return obj, nil
	}
	return newClient(ctx, mc, read, cfg.Bucket)
}

func newClient(ctx context.Context, api bucketAPI, read readFunc, bucket string) (*Client, error) {
	c := &Client{api: api, read: read, bucket: bucket}
	if err := c.prepareBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare bucket %q: %w", bucket, err)
	}
	return c, nil
}

// prepareBucket creates the bucket on first start. Another replica may win
// the race, which counts as success.
func (c *Client) prepareBucket(ctx context.Context) error {
	ok, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	err = c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	switch minio.ToErrorResponse(err).Code {
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return nil
	}
	return err
}

// Upload stores the reader under key. size may be -1 when unknown.
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if _, err := c.api.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Open stats key before reading it, so a missing object surfaces as
// models.ErrNotFound instead of failing mid-stream.
func (c *Client) Open(ctx context.Context, key string) (*models.Object, error) {
	info, err := c.stat(ctx, key)
	if err != nil {
		return nil, err
	}
	body, err := c.read(ctx, c.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return &models.Object{ReadCloser: body, Size: info.Size, ContentType: info.ContentType}, nil
}

func (c *Client) Remove(ctx context.Context, key string) error {
	if err := c.api.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.stat(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, models.ErrNotFound):
		return false, nil
	}
	return false, err
}

func (c *Client) stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	info, err := c.api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return minio.ObjectInfo{}, fmt.Errorf("object %s: %w", key, models.ErrNotFound)
		}
		return minio.ObjectInfo{}, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return info, nil
}

// ContentKey builds an object key under prefix from a digest of data, so
// identical uploads land on the same object.
func ContentKey(prefix string, data []byte, ext string) string {
	sum := blake2b.Sum256(data)
	return path.Join(prefix, hex.EncodeToString(sum[:16])+ext)
}
