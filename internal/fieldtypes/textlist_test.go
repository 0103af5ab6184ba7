package fieldtypes

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/storage"
)

func TestTextListType_Hooks(t *testing.T) {
	ft, err := NewTextListType(&entities.FieldDefinition{Name: "checklist", Type: "textlist"})
	if err != nil {
		t.Fatalf("NewTextListType() error = %v", err)
	}

	if ft.Name() != "textlist" || ft.StorageType() != StorageJSON {
		t.Errorf("Name()/StorageType() = %s/%s", ft.Name(), ft.StorageType())
	}
	if got := ft.Mapping()["type"]; got != "json" {
		t.Errorf("Mapping()[type] = %v, want json", got)
	}

	entity := entities.NewContent("pages", "1")
	row := storage.Row{"checklist": `[{"title":"a"},{"title":"b"},{"title":"a"}]`}
	if err := ft.Hydrate(row, entity, nil); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}

	want := entities.NewTextList("a", "b", "a")
	if v, _ := entity.Get("checklist"); !reflect.DeepEqual(v, want) {
		t.Errorf("hydrated = %#v, want %#v", v, want)
	}
	if got := ft.Present(entity); !reflect.DeepEqual(got, []string{"a", "b", "a"}) {
		t.Errorf("Present() = %v", got)
	}

	queue := storage.NewQuerySet()
	if err := ft.Persist(context.Background(), queue, entity, nil); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	ops := queue.Filter(storage.OpUpsert, storage.ContentFieldsTable)
	if len(ops) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(ops))
	}
	if v, _ := ops[0].Value("value"); v != `[{"title":"a"},{"title":"b"},{"title":"a"}]` {
		t.Errorf("persisted value = %v", v)
	}
}

func TestTextListType_HydrateMissingColumn(t *testing.T) {
	ft, _ := NewTextListType(&entities.FieldDefinition{Name: "checklist"})
	entity := entities.NewContent("pages", "1")

	if err := ft.Hydrate(storage.Row{}, entity, nil); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	v, ok := entity.Get("checklist")
	if !ok {
		t.Fatal("expected an empty list to be set")
	}
	if list := v.(entities.TextList); len(list) != 0 {
		t.Errorf("expected empty list, got %v", list)
	}
}

func TestTextListType_HydrateInvalidJSON(t *testing.T) {
	ft, _ := NewTextListType(&entities.FieldDefinition{Name: "checklist"})
	if err := ft.Hydrate(storage.Row{"checklist": "{broken"}, entities.NewContent("pages", "1"), nil); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestTextListType_PersistEmptyList(t *testing.T) {
	ft, _ := NewTextListType(&entities.FieldDefinition{Name: "checklist"})
	entity := entities.NewContent("pages", "1")
	entity.Set("checklist", entities.TextList(nil))

	queue := storage.NewQuerySet()
	if err := ft.Persist(context.Background(), queue, entity, nil); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if v, _ := queue.Operations()[0].Value("value"); v != "[]" {
		t.Errorf("persisted value = %v, want []", v)
	}
}

func TestTextListType_Constraint(t *testing.T) {
	ft, err := NewTextListType(&entities.FieldDefinition{
		Name:     "checklist",
		Type:     "textlist",
		Validate: `count <= 2 && items.all(i, size(i) > 0)`,
	})
	if err != nil {
		t.Fatalf("NewTextListType() error = %v", err)
	}

	tests := []struct {
		name    string
		value   interface{}
		wantErr bool
	}{
		{name: "within limit", value: []string{"a", "b"}},
		{name: "too many items", value: []string{"a", "b", "c"}, wantErr: true},
		{name: "blank title", value: []string{"a", ""}, wantErr: true},
		{name: "empty list", value: entities.TextList{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity := entities.NewContent("pages", "1")
			entity.Set("checklist", tt.value)

			queue := storage.NewQuerySet()
			err := ft.Persist(context.Background(), queue, entity, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrConstraintViolation) {
					t.Fatalf("Persist() error = %v, want ErrConstraintViolation", err)
				}
				if queue.Len() != 0 {
					t.Error("nothing should be queued when the constraint fails")
				}
				return
			}
			if err != nil {
				t.Fatalf("Persist() error = %v", err)
			}
			if queue.Len() != 1 {
				t.Errorf("expected 1 queued write, got %d", queue.Len())
			}
		})
	}
}

func TestNewTextListType_InvalidConstraint(t *testing.T) {
	_, err := NewTextListType(&entities.FieldDefinition{Name: "checklist", Validate: "count +"})
	if err == nil {
		t.Error("expected error for invalid expression")
	}
}

func TestToTextList(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    entities.TextList
		wantErr bool
	}{
		{name: "nil", value: nil, want: entities.TextList{}},
		{name: "text list", value: entities.NewTextList("a"), want: entities.NewTextList("a")},
		{name: "items", value: []entities.ListItem{{Title: "a"}}, want: entities.NewTextList("a")},
		{name: "strings", value: []string{"a", "b"}, want: entities.NewTextList("a", "b")},
		{name: "serialized", value: `[{"title":"x"}]`, want: entities.NewTextList("x")},
		{name: "decoded JSON objects", value: []interface{}{map[string]interface{}{"title": "y"}, "z"}, want: entities.NewTextList("y", "z")},
		{name: "unsupported item", value: []interface{}{1}, wantErr: true},
		{name: "unsupported value", value: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToTextList(tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidValue) {
					t.Errorf("ToTextList() error = %v, want ErrInvalidValue", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToTextList() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToTextList() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
