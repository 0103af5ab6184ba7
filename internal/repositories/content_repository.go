package repositories

import (
	"context"

	"github.com/asakaida/contentkit/internal/storage"
)

// ContentRepository defines the interface for content record data access
type ContentRepository interface {
	// Query runs a record query and returns the raw rows
	Query(ctx context.Context, query *storage.Query) ([]storage.Row, error)

	// Execute runs all queued writes in a single transaction and returns the write revision
	Execute(ctx context.Context, queue *storage.QuerySet) (string, error)

	// NextID reserves the ID of a new record
	NextID(ctx context.Context) (string, error)

	// Delete removes a record with its field values and relations from or to it
	Delete(ctx context.Context, contenttype, id string) error
}
