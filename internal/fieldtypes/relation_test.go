package fieldtypes

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/storage"
)

func storedRelation(id int64, to string, sortorder int) *entities.Relation {
	rel := entities.NewRelation("pages", "1", "entries", to, sortorder)
	rel.ID = id
	return rel
}

func TestRelationType_Load(t *testing.T) {
	ct := &entities.ContentType{
		Slug: "pages",
		Relations: []*entities.RelationDefinition{
			{Name: "entries", Multiple: true},
			{Name: "showcases"},
		},
	}
	metadata := storage.NewMetadata(ct)
	query := metadata.BaseQuery()
	before := len(query.Columns())

	for _, def := range ct.Relations {
		query = NewRelationType(def).Load(query, metadata)
	}

	if got := len(query.Columns()); got != before+1 {
		t.Fatalf("expected exactly one added column, got %d", got-before)
	}
	if !query.HasColumn(RelationRowsColumn) {
		t.Fatal("relation_rows column missing")
	}

	sql, args := query.SQL()
	if !strings.Contains(sql, "FROM relations r") || !strings.Contains(sql, "AS relation_rows") {
		t.Errorf("unexpected SQL: %s", sql)
	}
	if len(args) != 1 || args[0] != "pages" {
		t.Errorf("args = %v", args)
	}
}

func TestRelationType_Hydrate(t *testing.T) {
	ft := NewRelationType(&entities.RelationDefinition{Name: "entries", Multiple: true})
	entity := entities.NewContent("pages", "1")

	row := storage.Row{RelationRowsColumn: `[
		{"id": 4, "from_contenttype": "pages", "from_id": "1", "to_contenttype": "entries", "to_id": "3", "sortorder": 0},
		{"id": 9, "from_contenttype": "entries", "from_id": "7", "to_contenttype": "pages", "to_id": "1", "sortorder": 2}
	]`}
	if err := ft.Hydrate(row, entity, &fakeManager{}); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}

	if len(entity.Relations) != 2 {
		t.Fatalf("expected 2 relations, got %d", len(entity.Relations))
	}
	if entity.Relations[0].ID != 4 || entity.Relations[1].String() != "entries:7->pages:1#2" {
		t.Errorf("unexpected relations %v", entity.Relations)
	}

	// a second relation field must not rebuild the shared relations
	other := NewRelationType(&entities.RelationDefinition{Name: "showcases"})
	if err := other.Hydrate(storage.Row{RelationRowsColumn: `[]`}, entity, nil); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if len(entity.Relations) != 2 {
		t.Errorf("relations were rebuilt: %v", entity.Relations)
	}

	empty := entities.NewContent("pages", "2")
	if err := ft.Hydrate(storage.Row{}, empty, nil); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if empty.Relations == nil || len(empty.Relations) != 0 {
		t.Errorf("expected empty relations, got %v", empty.Relations)
	}
}

func TestRelationType_Persist(t *testing.T) {
	tests := []struct {
		name        string
		persisted   []*entities.Relation
		incoming    []*entities.Relation
		wantInserts []string
		wantUpdates map[int64]int
		wantDeletes []int64
	}{
		{
			name:        "sortorder change is an update",
			persisted:   []*entities.Relation{storedRelation(10, "B", 1)},
			incoming:    []*entities.Relation{entities.NewRelation("pages", "1", "entries", "B", 5)},
			wantUpdates: map[int64]int{10: 5},
		},
		{
			name:        "missing relation is deleted",
			persisted:   []*entities.Relation{storedRelation(10, "B", 0), storedRelation(11, "C", 1)},
			incoming:    []*entities.Relation{entities.NewRelation("pages", "1", "entries", "B", 0)},
			wantDeletes: []int64{11},
		},
		{
			name:        "new relation is inserted",
			persisted:   nil,
			incoming:    []*entities.Relation{entities.NewRelation("pages", "", "entries", "D", 0)},
			wantInserts: []string{"pages:1->entries:D#0"},
		},
		{
			name: "other fields and inverse relations are left alone",
			persisted: []*entities.Relation{
				storedRelation(10, "B", 0),
				{ID: 12, FromContenttype: "pages", FromID: "1", ToContenttype: "showcases", ToID: "2"},
			},
			incoming: []*entities.Relation{
				entities.NewRelation("pages", "1", "entries", "B", 0),
				entities.NewRelation("entries", "8", "pages", "1", 0),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := NewRelationType(&entities.RelationDefinition{Name: "entries", Multiple: true})
			entity := entities.NewContent("pages", "1")
			entity.Relations = tt.incoming

			queue := storage.NewQuerySet()
			if err := ft.Persist(context.Background(), queue, entity, &fakeManager{persisted: tt.persisted}); err != nil {
				t.Fatalf("Persist() error = %v", err)
			}

			var inserts []string
			for _, op := range queue.Filter(storage.OpInsert, storage.RelationsTable) {
				fromCT, _ := op.Value("from_contenttype")
				fromID, _ := op.Value("from_id")
				toCT, _ := op.Value("to_contenttype")
				toID, _ := op.Value("to_id")
				sortorder, _ := op.Value("sortorder")
				rel := entities.NewRelation(fromCT.(string), fromID.(string), toCT.(string), toID.(string), sortorder.(int))
				inserts = append(inserts, rel.String())
			}
			if !reflect.DeepEqual(inserts, tt.wantInserts) {
				t.Errorf("inserts = %v, want %v", inserts, tt.wantInserts)
			}

			updates := map[int64]int{}
			for _, op := range queue.Filter(storage.OpUpdate, storage.RelationsTable) {
				id, _ := op.Value("id")
				sortorder, _ := op.Value("sortorder")
				updates[id.(int64)] = sortorder.(int)
			}
			if len(updates) != len(tt.wantUpdates) {
				t.Errorf("updates = %v, want %v", updates, tt.wantUpdates)
			}
			for id, sortorder := range tt.wantUpdates {
				if updates[id] != sortorder {
					t.Errorf("update of %d = %d, want %d", id, updates[id], sortorder)
				}
			}

			var deletes []int64
			for _, op := range queue.Filter(storage.OpDelete, storage.RelationsTable) {
				id, _ := op.Value("id")
				deletes = append(deletes, id.(int64))
			}
			if !reflect.DeepEqual(deletes, tt.wantDeletes) {
				t.Errorf("deletes = %v, want %v", deletes, tt.wantDeletes)
			}
		})
	}
}

func TestRelationType_PersistErrors(t *testing.T) {
	ft := NewRelationType(&entities.RelationDefinition{Name: "entries"})

	t.Run("no manager", func(t *testing.T) {
		err := ft.Persist(context.Background(), storage.NewQuerySet(), entities.NewContent("pages", "1"), nil)
		if !errors.Is(err, storage.ErrConfiguration) {
			t.Errorf("Persist() error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("unsaved record", func(t *testing.T) {
		err := ft.Persist(context.Background(), storage.NewQuerySet(), entities.NewContent("pages", ""), &fakeManager{})
		if err == nil {
			t.Error("expected error for unsaved record")
		}
	})

	t.Run("single relation field", func(t *testing.T) {
		entity := entities.NewContent("pages", "1")
		entity.Relations = []*entities.Relation{
			entities.NewRelation("pages", "1", "entries", "2", 0),
			entities.NewRelation("pages", "1", "entries", "3", 1),
		}
		err := ft.Persist(context.Background(), storage.NewQuerySet(), entity, &fakeManager{})
		if !errors.Is(err, ErrConstraintViolation) {
			t.Errorf("Persist() error = %v, want ErrConstraintViolation", err)
		}
	})

	t.Run("single relation field with a repeated target", func(t *testing.T) {
		entity := entities.NewContent("pages", "1")
		entity.Relations = []*entities.Relation{
			entities.NewRelation("pages", "1", "entries", "5", 0),
			entities.NewRelation("pages", "1", "entries", "5", 1),
		}
		queue := storage.NewQuerySet()
		if err := ft.Persist(context.Background(), queue, entity, &fakeManager{}); err != nil {
			t.Fatalf("Persist() error = %v", err)
		}
		if inserts := queue.Filter(storage.OpInsert, storage.RelationsTable); len(inserts) != 1 {
			t.Errorf("inserts = %d, want 1", len(inserts))
		}
	})

	t.Run("reader failure", func(t *testing.T) {
		boom := errors.New("boom")
		err := ft.Persist(context.Background(), storage.NewQuerySet(), entities.NewContent("pages", "1"), &fakeManager{err: boom})
		if !errors.Is(err, boom) {
			t.Errorf("Persist() error = %v, want wrapped boom", err)
		}
	})
}

func TestRelationType_Present(t *testing.T) {
	entity := entities.NewContent("pages", "1")
	entity.Relations = []*entities.Relation{
		entities.NewRelation("pages", "1", "entries", "3", 0),
		entities.NewRelation("entries", "5", "pages", "1", 0),
	}

	oneWay := NewRelationType(&entities.RelationDefinition{Name: "entries"}).Present(entity)
	want := []map[string]interface{}{{"contenttype": "entries", "id": "3"}}
	if !reflect.DeepEqual(oneWay, want) {
		t.Errorf("Present() = %v, want %v", oneWay, want)
	}

	both := NewRelationType(&entities.RelationDefinition{Name: "entries", BiDirectional: true}).Present(entity)
	want = append(want, map[string]interface{}{"contenttype": "entries", "id": "5"})
	if !reflect.DeepEqual(both, want) {
		t.Errorf("Present() = %v, want %v", both, want)
	}
}

func TestRelationType_PresentSelfReference(t *testing.T) {
	target := entities.NewContent("pages", "1")
	target.Relations = []*entities.Relation{entities.NewRelation("pages", "2", "pages", "1", 0)}

	ft := NewRelationType(&entities.RelationDefinition{Name: "pages"})
	if got := ft.Present(target); !reflect.DeepEqual(got, []map[string]interface{}{}) {
		t.Errorf("Present() = %v, want no targets for a record that is only pointed at", got)
	}

	owner := entities.NewContent("pages", "2")
	owner.Relations = target.Relations
	want := []map[string]interface{}{{"contenttype": "pages", "id": "1"}}
	if got := ft.Present(owner); !reflect.DeepEqual(got, want) {
		t.Errorf("Present() = %v, want %v", got, want)
	}
}
