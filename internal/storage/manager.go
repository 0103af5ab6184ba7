package storage

import (
	"context"
	"fmt"

	"github.com/asakaida/contentkit/internal/entities"
)

// Manager is the data-access collaborator handed to field type hooks and relation collections
type Manager interface {
	// Find loads and hydrates one record
	Find(ctx context.Context, contenttype, id string) (*entities.Content, error)

	// PersistedRelations returns the stored relations of a record, in sort order
	PersistedRelations(ctx context.Context, contenttype, id string) ([]*entities.Relation, error)
}

// Handle is a deferred reference to a content record.
// The record is loaded on the first Resolve and memoized afterwards.
type Handle struct {
	Contenttype string
	ID          string

	manager Manager
	entity  *entities.Content
}

// NewHandle creates a handle that resolves through the given manager
func NewHandle(contenttype, id string, manager Manager) (*Handle, error) {
	if manager == nil {
		return nil, fmt.Errorf("%w: cannot create handle for %s without a manager",
			ErrConfiguration, entities.Reference(contenttype, id))
	}
	return &Handle{Contenttype: contenttype, ID: id, manager: manager}, nil
}

// Reference returns the "contenttype:id" key of the referenced record
func (h *Handle) Reference() string {
	return entities.Reference(h.Contenttype, h.ID)
}

// Loaded reports whether the record has been resolved
func (h *Handle) Loaded() bool {
	return h.entity != nil
}

// Resolve loads the referenced record
func (h *Handle) Resolve(ctx context.Context) (*entities.Content, error) {
	if h.entity != nil {
		return h.entity, nil
	}
	if h.manager == nil {
		return nil, fmt.Errorf("%w: handle %s has no manager", ErrConfiguration, h.Reference())
	}

	entity, err := h.manager.Find(ctx, h.Contenttype, h.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", h.Reference(), err)
	}
	h.entity = entity
	return entity, nil
}
