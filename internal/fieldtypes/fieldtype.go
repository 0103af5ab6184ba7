// Package fieldtypes adapts content field types to storage.
//
// Every field type plugs into the same four lifecycle hooks:
//   - Load extends the query that fetches records of a content type
//   - Hydrate sets the field value on a record from a fetched row
//   - Persist queues the writes that store the field value
//   - Present returns the display value of the field
//
// Field types embed Base and override only the hooks they need.
package fieldtypes

import (
	"context"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/storage"
)

// StorageType is the column type a field is stored as
type StorageType string

const (
	StorageText StorageType = "text"
	StorageJSON StorageType = "json"
)

// FieldType is the adapter between one field definition and storage
type FieldType interface {
	// Name returns the field type name (e.g., "textlist")
	Name() string

	// StorageType returns the storage column type
	StorageType() StorageType

	// Field returns the name of the field the type is bound to
	Field() string

	// Mapping returns the storage mapping of the field
	Mapping() map[string]interface{}

	// Load extends the record query and returns it
	Load(query *storage.Query, metadata *storage.Metadata) *storage.Query

	// Hydrate sets the field value on entity from a fetched row
	Hydrate(row storage.Row, entity *entities.Content, manager storage.Manager) error

	// Persist queues the writes storing the field value of entity
	Persist(ctx context.Context, queue *storage.QuerySet, entity *entities.Content, manager storage.Manager) error

	// Present returns the display value of the field
	Present(entity *entities.Content) interface{}
}

// Base implements every hook as a no-op
type Base struct {
	Definition *entities.FieldDefinition
}

// Name returns "text"
func (b *Base) Name() string {
	return "text"
}

// StorageType returns StorageText
func (b *Base) StorageType() StorageType {
	return StorageText
}

// Field returns the bound field name
func (b *Base) Field() string {
	if b.Definition == nil {
		return ""
	}
	return b.Definition.Name
}

// Mapping returns the field name and storage type
func (b *Base) Mapping() map[string]interface{} {
	return map[string]interface{}{
		"fieldname": b.Field(),
		"type":      string(b.StorageType()),
	}
}

// Load returns the query unchanged
func (b *Base) Load(query *storage.Query, metadata *storage.Metadata) *storage.Query {
	return query
}

// Hydrate does nothing
func (b *Base) Hydrate(row storage.Row, entity *entities.Content, manager storage.Manager) error {
	return nil
}

// Persist does nothing
func (b *Base) Persist(ctx context.Context, queue *storage.QuerySet, entity *entities.Content, manager storage.Manager) error {
	return nil
}

// Present returns the field value as held by the entity
func (b *Base) Present(entity *entities.Content) interface{} {
	v, _ := entity.Get(b.Field())
	return v
}
