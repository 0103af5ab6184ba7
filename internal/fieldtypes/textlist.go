package fieldtypes

import (
	"context"
	"fmt"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/storage"
)

// TextListType stores an ordered list of titled items as one JSON column
type TextListType struct {
	Base
	constraint *Constraint
}

// NewTextListType creates a textlist field type bound to def.
// The definition's validate expression, if any, is compiled into a constraint.
func NewTextListType(def *entities.FieldDefinition) (*TextListType, error) {
	t := &TextListType{Base: Base{Definition: def}}
	if def != nil && def.Validate != "" {
		constraint, err := NewConstraint(def.Validate)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", def.Name, err)
		}
		t.constraint = constraint
	}
	return t, nil
}

// Name returns "textlist"
func (t *TextListType) Name() string {
	return "textlist"
}

// StorageType returns StorageJSON
func (t *TextListType) StorageType() StorageType {
	return StorageJSON
}

// Mapping returns the field name and storage type
func (t *TextListType) Mapping() map[string]interface{} {
	return map[string]interface{}{
		"fieldname": t.Field(),
		"type":      string(t.StorageType()),
	}
}

// Hydrate parses the stored JSON into an entities.TextList.
// A missing column yields an empty list.
func (t *TextListType) Hydrate(row storage.Row, entity *entities.Content, manager storage.Manager) error {
	list, err := entities.ParseTextList(row.String(t.Field()))
	if err != nil {
		return fmt.Errorf("field %s: %w", t.Field(), err)
	}
	entity.Set(t.Field(), list)
	return nil
}

// Persist validates the list and upserts its JSON form
func (t *TextListType) Persist(ctx context.Context, queue *storage.QuerySet, entity *entities.Content, manager storage.Manager) error {
	v, ok := entity.Get(t.Field())
	if !ok {
		return nil
	}

	list, err := ToTextList(v)
	if err != nil {
		return fmt.Errorf("field %s: %w", t.Field(), err)
	}

	if t.constraint != nil {
		if err := t.constraint.Check(t.Field(), list.Titles()); err != nil {
			return err
		}
	}

	raw, err := list.Marshal()
	if err != nil {
		return fmt.Errorf("field %s: %w", t.Field(), err)
	}

	queueFieldValue(queue, entity, t.Field(), raw)
	return nil
}

// Present returns the item titles
func (t *TextListType) Present(entity *entities.Content) interface{} {
	v, ok := entity.Get(t.Field())
	if !ok {
		return []string{}
	}
	list, err := ToTextList(v)
	if err != nil {
		return v
	}
	return list.Titles()
}

// ToTextList converts the accepted value shapes of a textlist field.
// Accepted: entities.TextList, []entities.ListItem, []string, the serialized JSON string,
// and decoded JSON ([]interface{} of strings or {"title": ...} objects).
func ToTextList(v interface{}) (entities.TextList, error) {
	switch val := v.(type) {
	case nil:
		return entities.TextList{}, nil
	case entities.TextList:
		return val, nil
	case []entities.ListItem:
		return entities.TextList(val), nil
	case []string:
		return entities.NewTextList(val...), nil
	case string:
		return entities.ParseTextList(val)
	case []interface{}:
		list := make(entities.TextList, 0, len(val))
		for i, item := range val {
			switch it := item.(type) {
			case string:
				list = append(list, entities.ListItem{Title: it})
			case map[string]interface{}:
				title, _ := it["title"].(string)
				list = append(list, entities.ListItem{Title: title})
			default:
				return nil, fmt.Errorf("%w: item %d has type %T", ErrInvalidValue, i, item)
			}
		}
		return list, nil
	}
	return nil, fmt.Errorf("%w: cannot use %T as text list", ErrInvalidValue, v)
}
