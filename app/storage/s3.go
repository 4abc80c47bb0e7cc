package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"smartcache/app/cfg"
)

// S3Backend stores media in an S3-compatible bucket.
type S3Backend struct {
	client *minio.Client
	bucket string
	region string
}

var _ Backend = (*S3Backend)(nil)

func NewS3Backend(c *cfg.Cfg) (*S3Backend, error) {
	if c.S3AccessKey == "" || c.S3SecretKey == "" {
		return nil, fmt.Errorf("storage provider 's3' selected but S3_ACCESS_KEY/S3_SECRET_KEY not configured")
	}
	if c.S3Bucket == "" {
		return nil, fmt.Errorf("storage provider 's3' selected but S3_BUCKET not configured")
	}

	client, err := minio.New(c.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.S3AccessKey, c.S3SecretKey, ""),
		Secure: true,
		Region: c.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &S3Backend{
		client: client,
		bucket: c.S3Bucket,
		region: c.S3Region,
	}, nil
}

func (b *S3Backend) UploadFile(ctx context.Context, localPath, objectKey string) (string, error) {
	_, err := b.client.FPutObject(ctx, b.bucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: ContentTypeForFile(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", objectKey, b.bucket, err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.region, objectKey), nil
}

func (b *S3Backend) GetDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	signed, err := b.client.PresignedGetObject(ctx, b.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectKey, err)
	}
	return signed.String(), nil
}

func (b *S3Backend) Provider() string {
	return ProviderS3
}
