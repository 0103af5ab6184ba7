package repositories

import (
	"context"

	"github.com/asakaida/contentkit/internal/entities"
)

// RelationFilter defines filter criteria for querying relations
type RelationFilter struct {
	FromContenttype string   // Filter by owner content type (optional)
	FromID          string   // Filter by owner ID (optional)
	FromIDs         []string // Filter by several owner IDs (optional, takes precedence over FromID)
	ToContenttype   string   // Filter by target content type (optional)
	ToID            string   // Filter by target ID (optional)
	ToIDs           []string // Filter by several target IDs (optional, takes precedence over ToID)
}

// RelationRepository defines the interface for relation data access
type RelationRepository interface {
	// Read retrieves relations matching the filter ordered by sortorder
	Read(ctx context.Context, filter *RelationFilter) ([]*entities.Relation, error)

	// BatchWrite stores multiple relations in a single transaction.
	// Relations that already exist take the given sortorder.
	BatchWrite(ctx context.Context, relations []*entities.Relation) error

	// BatchDelete removes multiple relations, matched by identity, in a single transaction
	BatchDelete(ctx context.Context, relations []*entities.Relation) error

	// DeleteByFilter removes relations matching the filter
	DeleteByFilter(ctx context.Context, filter *RelationFilter) error
}
