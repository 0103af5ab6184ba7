package collection

import (
	"context"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/storage"
)

// LazyCollection holds deferred handles to related records
type LazyCollection struct {
	handles []*storage.Handle
}

// Handles returns the deferred handles in relation order
func (l *LazyCollection) Handles() []*storage.Handle {
	return l.handles
}

// Len returns the number of handles
func (l *LazyCollection) Len() int {
	return len(l.handles)
}

// ResolveAll loads every referenced record, stopping at the first error
func (l *LazyCollection) ResolveAll(ctx context.Context) ([]*entities.Content, error) {
	result := make([]*entities.Content, 0, len(l.handles))
	for _, h := range l.handles {
		entity, err := h.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}
	return result, nil
}
