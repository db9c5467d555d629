// Package artifact persists generated session files and run manifests to a
// local directory or an S3-compatible bucket.
package artifact

import (
	"context"

	"github.com/ricesearch/driftbench/internal/config"
	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
)

// Store is a flat namespace of immutable named blobs.
type Store interface {
	// Put writes data under name, replacing any previous blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads the blob stored under name.
	Get(ctx context.Context, name string) ([]byte, error)

	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes name. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// Location returns a human-readable address of name.
	Location(name string) string
}

// NewStore creates the store selected by cfg.Type.
func NewStore(ctx context.Context, cfg config.ArtifactConfig) (Store, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(cfg.Dir), nil
	case "minio":
		return NewMinioStore(ctx, cfg)
	default:
		return nil, apperrors.ValidationError("unknown artifact store type: " + cfg.Type).
			WithDetail("type", cfg.Type)
	}
}
