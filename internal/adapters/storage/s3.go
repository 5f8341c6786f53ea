package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"venue_enrichment_backend/platform/config"
)

// S3Store implements ObjectStore on S3-compatible services such as R2.
type S3Store struct {
	client      *s3.Client
	bucket      string
	endpoint    string
	publicBase  string
	maxFileSize int64
}

// NewS3Store creates a new S3 object store.
func NewS3Store(cfg config.StorageConfig) (*S3Store, error) {
	if cfg.GetS3AccessKey() == "" || cfg.GetS3SecretKey() == "" {
		return nil, fmt.Errorf("S3 credentials are not configured")
	}

	opts := s3.Options{
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.GetS3AccessKey(),
			cfg.GetS3SecretKey(),
			"",
		),
		Region: cfg.GetS3Region(),
	}
	if endpoint := cfg.GetS3Endpoint(); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}

	return &S3Store{
		client:      s3.New(opts),
		bucket:      cfg.GetStorageBucket(),
		endpoint:    cfg.GetS3Endpoint(),
		publicBase:  cfg.GetStoragePublicBaseURL(),
		maxFileSize: cfg.GetStorageMaxFileSize(),
	}, nil
}

// EnsureBucket creates the bucket if HeadBucket fails.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return nil
	}
	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads data and returns its public URL.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ValidateFileSize(int64(len(data)), s.maxFileSize); err != nil {
		return "", err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s: %w", key, err)
	}
	return publicURL(s.publicBase, s.endpoint, s.bucket, key), nil
}

// Get downloads an object.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}
