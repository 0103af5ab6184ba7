package repositories

import (
	"context"

	"github.com/asakaida/contentkit/internal/entities"
)

// ContentTypeRepository defines the interface for versioned content type definitions
type ContentTypeRepository interface {
	// Create stores a new definition version and returns the version ID
	Create(ctx context.Context, source string) (string, error)

	// GetLatestVersion retrieves the most recent definition version.
	// Only Version, Source and CreatedAt are set; parsing belongs to the service layer.
	GetLatestVersion(ctx context.Context) (*entities.ContentTypeSet, error)

	// GetByVersion retrieves a specific definition version
	GetByVersion(ctx context.Context, version string) (*entities.ContentTypeSet, error)

	// Delete removes a definition version
	Delete(ctx context.Context, version string) error
}
