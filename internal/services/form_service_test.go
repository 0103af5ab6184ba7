package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/fieldtypes"
	"github.com/asakaida/contentkit/internal/storage"
)

func TestFormService_Submit_Create(t *testing.T) {
	types, m, store := newTestServices(t)
	service := NewFormService(m, types)
	ctx := context.Background()

	entry1 := saveRecord(t, m, "entries", map[string]interface{}{"title": "First"})
	entry2 := saveRecord(t, m, "entries", map[string]interface{}{"title": "Second"})

	saved, revision, err := service.Submit(ctx, "pages", "", map[string]interface{}{
		"title":     "New page",
		"checklist": []interface{}{"x", map[string]interface{}{"title": "y"}},
		"relation": map[string]interface{}{
			"entries": []interface{}{entry2.ID, "", entry1.ID},
		},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if revision == "" {
		t.Error("expected a revision")
	}
	if saved.ID == "" {
		t.Fatal("expected the record to get an ID")
	}
	if v, _ := saved.Get("title"); v != "New page" {
		t.Errorf("title = %v", v)
	}
	if v, _ := saved.Get("checklist"); !reflect.DeepEqual(v, entities.NewTextList("x", "y")) {
		t.Errorf("checklist = %v", v)
	}

	want := []string{
		"pages:" + saved.ID + "->entries:" + entry2.ID + "#0",
		"pages:" + saved.ID + "->entries:" + entry1.ID + "#1",
	}
	if got := store.relationStrings("pages", saved.ID); !reflect.DeepEqual(got, want) {
		t.Errorf("relations = %v, want %v", got, want)
	}
}

func TestFormService_Submit_Update(t *testing.T) {
	types, m, store := newTestServices(t)
	service := NewFormService(m, types)
	ctx := context.Background()

	entry1, entry2, page := seedRecords(t, m)

	t.Run("fields missing from the form keep their value", func(t *testing.T) {
		saved, _, err := service.Submit(ctx, "pages", page.ID, map[string]interface{}{"title": "Renamed"})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if v, _ := saved.Get("title"); v != "Renamed" {
			t.Errorf("title = %v", v)
		}
		if v, _ := saved.Get("checklist"); !reflect.DeepEqual(v, entities.NewTextList("a", "b")) {
			t.Errorf("checklist = %v", v)
		}
		want := []string{"pages:3->entries:2#0", "pages:3->entries:1#1"}
		if got := store.relationStrings("pages", page.ID); !reflect.DeepEqual(got, want) {
			t.Errorf("relations = %v, want %v", got, want)
		}
	})

	t.Run("submitted relation field is replaced in order", func(t *testing.T) {
		_, _, err := service.Submit(ctx, "pages", page.ID, map[string]interface{}{
			"entries": []string{entry1.ID, entry2.ID},
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		want := []string{"pages:3->entries:1#0", "pages:3->entries:2#1"}
		if got := store.relationStrings("pages", page.ID); !reflect.DeepEqual(got, want) {
			t.Errorf("relations = %v, want %v", got, want)
		}
	})

	t.Run("empty list clears the field", func(t *testing.T) {
		_, _, err := service.Submit(ctx, "pages", page.ID, map[string]interface{}{
			"relation": map[string]interface{}{"entries": []interface{}{}},
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if got := store.relationStrings("pages", page.ID); len(got) != 0 {
			t.Errorf("relations = %v, want none", got)
		}
	})

	t.Run("updating a target keeps relations pointing at it", func(t *testing.T) {
		if _, _, err := service.Submit(ctx, "pages", page.ID, map[string]interface{}{
			"entries": []string{entry1.ID},
		}); err != nil {
			t.Fatal(err)
		}
		if _, _, err := service.Submit(ctx, "entries", entry1.ID, map[string]interface{}{"title": "Edited"}); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		want := []string{"pages:3->entries:1#0"}
		if got := store.relationStrings("pages", page.ID); !reflect.DeepEqual(got, want) {
			t.Errorf("relations = %v, want %v", got, want)
		}
	})
}

func TestFormService_Submit_Errors(t *testing.T) {
	types, m, _ := newTestServices(t)
	service := NewFormService(m, types)
	ctx := context.Background()
	page := saveRecord(t, m, "pages", map[string]interface{}{"title": "About"})

	tests := []struct {
		name        string
		contenttype string
		id          string
		form        map[string]interface{}
		wantErr     error
	}{
		{
			name:        "unknown field",
			contenttype: "pages",
			id:          page.ID,
			form:        map[string]interface{}{"body": "text"},
			wantErr:     ErrInvalidArgument,
		},
		{
			name:        "unknown relation field",
			contenttype: "pages",
			id:          page.ID,
			form:        map[string]interface{}{"relation": map[string]interface{}{"products": []interface{}{"1"}}},
			wantErr:     ErrInvalidArgument,
		},
		{
			name:        "textlist with invalid items",
			contenttype: "pages",
			id:          page.ID,
			form:        map[string]interface{}{"checklist": []interface{}{true}},
			wantErr:     ErrInvalidArgument,
		},
		{
			name:        "textlist constraint",
			contenttype: "pages",
			id:          page.ID,
			form:        map[string]interface{}{"checklist": []string{"a", "b", "c", "d"}},
			wantErr:     fieldtypes.ErrConstraintViolation,
		},
		{
			name:        "missing record",
			contenttype: "pages",
			id:          "99",
			form:        map[string]interface{}{"title": "x"},
			wantErr:     storage.ErrNotFound,
		},
		{
			name:        "unknown content type",
			contenttype: "products",
			form:        map[string]interface{}{},
			wantErr:     ErrContentTypeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := service.Submit(ctx, tt.contenttype, tt.id, tt.form)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Submit() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
