package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/onairfm/apiserver/config"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// New constructs the backend named in config. It returns (nil, nil) when
// no backend is configured.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		return NewMinioBackend(cfg.Minio)
	case "gcs":
		return NewGCSBackend(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
