package clients

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
}

// S3Client stores generated export sheets and hands out presigned download
// links, so the files never pass through the API again.
type S3Client struct {
	raw    *minio.Client
	bucket string
	prefix string
}

func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 connect %q: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("s3 bucket check %q: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist", cfg.Bucket)
	}

	return &S3Client{
		raw:    client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UploadXLSX stores the sheet under the configured prefix and returns the
// object key.
func (c *S3Client) UploadXLSX(ctx context.Context, fileName string, data []byte) (string, error) {
	if c == nil || c.raw == nil {
		return "", fmt.Errorf("s3 client not configured")
	}

	key := c.prefix + fileName

	_, err := c.raw.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}

	return key, nil
}

// GetTemporaryURL presigns a GET for the object; the link expires with the
// export's redis status entry or shortly after.
func (c *S3Client) GetTemporaryURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if c == nil || c.raw == nil {
		return "", fmt.Errorf("s3 client not configured")
	}

	u, err := c.raw.PresignedGetObject(ctx, c.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", key, err)
	}

	return u.String(), nil
}
