package blobstore

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/mediafusion/core/internal/config"
)

// New builds the configured Store backend: "local" (afero on the real
// filesystem) or "s3".
func New(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(afero.NewOsFs(), cfg.LocalDir, "/blobs/nzb")
	case "s3":
		return NewS3(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3PublicURLBase)
	default:
		return nil, fmt.Errorf("blobstore: unknown backend %q", cfg.Backend)
	}
}
