// Package storage provides durable object storage for re-hosted listing media.
// MinIO and S3-compatible backends (AWS S3, Cloudflare R2) share one interface.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"venue_enrichment_backend/platform/config"
)

const (
	DriverMinIO = "minio"
	DriverS3    = "s3"
)

// ObjectStore stores objects under namespaced keys.
type ObjectStore interface {
	// Put uploads data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get downloads the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// EnsureBucket creates the configured bucket if it doesn't exist.
	EnsureBucket(ctx context.Context) error
}

// New builds the object store selected by STORAGE_DRIVER.
func New(cfg config.StorageConfig) (ObjectStore, error) {
	switch strings.ToLower(cfg.GetStorageDriver()) {
	case DriverMinIO:
		return NewMinIOStore(cfg)
	case DriverS3:
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.GetStorageDriver())
	}
}

// publicURL joins the configured public base with the key, falling back to
// path-style <endpoint>/<bucket>/<key>.
func publicURL(publicBase, endpoint, bucket, key string) string {
	escaped := escapeKey(key)
	if publicBase != "" {
		return strings.TrimRight(publicBase, "/") + "/" + escaped
	}
	return strings.TrimRight(endpoint, "/") + "/" + bucket + "/" + escaped
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
