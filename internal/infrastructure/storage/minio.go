package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hszk-dev/tripreel/internal/domain/repository"
)

// objectReader is the part of *minio.Object the client uses.
type objectReader interface {
	io.ReadCloser
	Stat() (minio.ObjectInfo, error)
}

type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// minioAdapter narrows GetObject's return type to objectReader.
type minioAdapter struct {
	*minio.Client
}

func (a minioAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
	return a.Client.GetObject(ctx, bucketName, objectName, opts)
}

// ClientConfig holds configuration for the MinIO client.
type ClientConfig struct {
	Endpoint       string
	PublicEndpoint string // optional host used when signing download URLs
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	CreateBucket   bool // create Bucket on startup instead of failing
}

// Client stores highlight reel manifests and implements repository.ObjectStorage.
type Client struct {
	client    minioClient
	presigner minioClient
	bucket    string
}

var _ repository.ObjectStorage = (*Client)(nil)

// NewClient connects to MinIO and checks the bucket. Download URLs are signed
// against PublicEndpoint when it is set so browsers can reach them.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	client, err := newMinio(cfg.Endpoint, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	presigner := client
	if cfg.PublicEndpoint != "" {
		presigner, err = newMinio(cfg.PublicEndpoint, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create presigning minio client: %w", err)
		}
	}

	return newClientWithMinioClient(ctx, client, presigner, cfg.Bucket, cfg.CreateBucket)
}

func newMinio(endpoint string, cfg ClientConfig) (minioClient, error) {
	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return minioAdapter{c}, nil
}

func newClientWithMinioClient(ctx context.Context, client, presigner minioClient, bucket string, create bool) (*Client, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if !create {
			return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
		}
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return &Client{client: client, presigner: presigner, bucket: bucket}, nil
}

// GeneratePresignedDownloadURL signs a GET for key. It returns
// repository.ErrObjectNotFound when the object is missing, so callers never
// hand out a URL that would 404.
func (c *Client) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	exists, err := c.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", repository.ErrObjectNotFound
	}

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))

	u, err := c.presigner.PresignedGetObject(ctx, c.bucket, key, expiry, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return u.String(), nil
}

// Upload stores an object of unknown size.
func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Download returns the object body. The caller closes it.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	// GetObject is lazy; Stat surfaces a missing key before the first read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNotFound(err) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return obj, nil
}

// Delete removes an object. Removing a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists reports whether key is present in the bucket.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// Ping checks that the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.BucketExists(ctx, c.bucket); err != nil {
		return fmt.Errorf("failed to ping minio: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}
