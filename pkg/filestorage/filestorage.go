package filestorage

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"site-entry/pkg/config"
)

// FileStorage stores uploaded blobs and hands back a reference that the
// workflow persists.
type FileStorage interface {
	Put(ctx context.Context, path string, body io.Reader, contentType string) (url string, err error)
	Delete(ctx context.Context, url string) error
}

func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (FileStorage, error) {
	switch cfg.Driver {
	case "", "local":
		logger.Info("file storage: local", zap.String("basePath", cfg.BasePath))
		return NewLocalFileStorage(cfg.BasePath)
	case "s3":
		logger.Info("file storage: s3", zap.String("bucket", cfg.S3.Bucket), zap.String("region", cfg.S3.Region))
		return NewS3FileStorage(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
