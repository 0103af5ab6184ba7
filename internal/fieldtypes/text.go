package fieldtypes

import (
	"context"
	"fmt"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/storage"
)

// TextType stores a plain string value
type TextType struct {
	Base
}

// NewTextType creates a text field type bound to def
func NewTextType(def *entities.FieldDefinition) *TextType {
	return &TextType{Base: Base{Definition: def}}
}

// Hydrate copies the raw column value
func (t *TextType) Hydrate(row storage.Row, entity *entities.Content, manager storage.Manager) error {
	if !row.Has(t.Field()) {
		return nil
	}
	entity.Set(t.Field(), row.String(t.Field()))
	return nil
}

// Persist upserts the raw value into the field table
func (t *TextType) Persist(ctx context.Context, queue *storage.QuerySet, entity *entities.Content, manager storage.Manager) error {
	v, ok := entity.Get(t.Field())
	if !ok {
		return nil
	}

	var value string
	switch val := v.(type) {
	case nil:
		value = ""
	case string:
		value = val
	case fmt.Stringer:
		value = val.String()
	default:
		value = fmt.Sprintf("%v", val)
	}

	queueFieldValue(queue, entity, t.Field(), value)
	return nil
}

func queueFieldValue(queue *storage.QuerySet, entity *entities.Content, field, value string) {
	queue.Upsert(storage.ContentFieldsTable, []string{"content_id", "name"},
		storage.Col("content_id", entity.ID),
		storage.Col("name", field),
		storage.Col("value", value),
	)
}
