package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/storage"
)

type stubManager struct {
	finds []string
}

func (m *stubManager) Find(ctx context.Context, contenttype, id string) (*entities.Content, error) {
	m.finds = append(m.finds, entities.Reference(contenttype, id))
	return entities.NewContent(contenttype, id), nil
}

func (m *stubManager) PersistedRelations(ctx context.Context, contenttype, id string) ([]*entities.Relation, error) {
	return nil, nil
}

func TestRelations_SetFromSubmittedValues(t *testing.T) {
	owner := entities.NewContent("pages", "1")

	tests := []struct {
		name string
		form map[string]interface{}
		want []string
	}{
		{
			name: "flat mapping",
			form: map[string]interface{}{
				"entries": []interface{}{"3", "4"},
			},
			want: []string{"pages:1->entries:3#0", "pages:1->entries:4#1"},
		},
		{
			name: "wrapped under relation key",
			form: map[string]interface{}{
				"relation": map[string]interface{}{
					"entries": []string{"9"},
				},
				"title": "ignored",
			},
			want: []string{"pages:1->entries:9#0"},
		},
		{
			name: "falsy ids are skipped",
			form: map[string]interface{}{
				"entries": []interface{}{"", "0", float64(0), nil, false, "5", float64(6)},
			},
			want: []string{"pages:1->entries:5#0", "pages:1->entries:6#1"},
		},
		{
			name: "non list values are skipped",
			form: map[string]interface{}{
				"entries": "3",
				"pages":   []interface{}{"2"},
			},
			want: []string{"pages:1->pages:2#0"},
		},
		{
			name: "fields are processed in name order",
			form: map[string]interface{}{
				"showcases": []interface{}{"1"},
				"entries":   []interface{}{"2"},
			},
			want: []string{"pages:1->entries:2#0", "pages:1->showcases:1#0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(nil, nil)
			c.SetFromSubmittedValues(tt.form, owner)
			assertRelations(t, "relations", c.All(), tt.want)
		})
	}
}

func TestRelations_SetFromPersistedValues(t *testing.T) {
	rows := []storage.Row{
		{"id": int64(11), "from_contenttype": "pages", "from_id": "1", "to_contenttype": "entries", "to_id": "3", "sortorder": int64(2)},
		{"id": float64(12), "from_contenttype": "pages", "from_id": float64(1), "to_contenttype": "entries", "to_id": float64(4), "sortorder": float64(0)},
	}

	c := New(nil, nil)
	if err := c.SetFromPersistedValues(rows); err != nil {
		t.Fatalf("SetFromPersistedValues() error = %v", err)
	}

	assertRelations(t, "relations", c.All(), []string{"pages:1->entries:3#2", "pages:1->entries:4#0"})
	if c.All()[0].ID != 11 || c.All()[1].ID != 12 {
		t.Errorf("storage IDs = %d, %d, want 11, 12", c.All()[0].ID, c.All()[1].ID)
	}

	bad := New(nil, nil)
	if err := bad.SetFromPersistedValues([]storage.Row{{"sortorder": "first"}}); err == nil {
		t.Error("expected error for non numeric sortorder")
	}
}

func TestRelations_SelectByField(t *testing.T) {
	c := New([]*entities.Relation{
		entities.NewRelation("pages", "1", "entries", "3", 0),   // outgoing to entries
		entities.NewRelation("entries", "5", "pages", "1", 0),   // incoming from entries
		entities.NewRelation("pages", "1", "pages", "2", 0),     // self reference, outgoing
		entities.NewRelation("pages", "8", "pages", "1", 0),     // self reference, incoming
		entities.NewRelation("pages", "1", "showcases", "4", 0), // other field
	}, nil)

	t.Run("single direction", func(t *testing.T) {
		got := c.SelectByField("entries", false, "pages", "1")
		assertRelations(t, "entries", got.All(), []string{"pages:1->entries:3#0"})
		if got.All()[0].IsInverse() {
			t.Error("same direction record must not be marked inverse")
		}
	})

	t.Run("single direction self reference keeps only owned records", func(t *testing.T) {
		got := c.SelectByField("pages", false, "pages", "1")
		assertRelations(t, "pages", got.All(), []string{"pages:1->pages:2#0"})

		target := New([]*entities.Relation{entities.NewRelation("pages", "2", "pages", "1", 0)}, nil)
		if got := target.SelectByField("pages", false, "pages", "1"); got.Len() != 0 {
			t.Errorf("record pointing at the owner selected: %v", got.All())
		}
	})

	t.Run("single direction without owner", func(t *testing.T) {
		got := c.SelectByField("pages", false, "", "")
		assertRelations(t, "pages", got.All(), []string{"pages:1->pages:2#0", "pages:8->pages:1#0"})
	})

	t.Run("bi-directional includes inverse records", func(t *testing.T) {
		got := c.SelectByField("entries", true, "pages", "1")
		assertRelations(t, "entries", got.All(), []string{"pages:1->entries:3#0", "entries:5->pages:1#0"})
		if got.All()[0].IsInverse() {
			t.Error("same direction record must not be marked inverse")
		}
		if !got.All()[1].IsInverse() {
			t.Error("inverse record must be marked inverse")
		}
		ct, id := got.All()[1].Target()
		if ct != "entries" || id != "5" {
			t.Errorf("inverse Target() = %s:%s, want entries:5", ct, id)
		}
	})

	t.Run("bi-directional self reference", func(t *testing.T) {
		got := c.SelectByField("pages", true, "pages", "1")
		assertRelations(t, "pages", got.All(), []string{"pages:1->pages:2#0", "pages:8->pages:1#0"})
		if got.All()[0].IsInverse() || !got.All()[1].IsInverse() {
			t.Error("only the record pointing at the owner should be inverse")
		}
	})

	t.Run("marking does not leak into the collection", func(t *testing.T) {
		c.SelectByField("entries", true, "pages", "1")
		for _, r := range c.All() {
			if r.IsInverse() {
				t.Errorf("held record %s was marked inverse", r)
			}
		}
	})

	t.Run("unknown field is empty", func(t *testing.T) {
		if got := c.SelectByField("nothing", true, "pages", "1"); got.Len() != 0 {
			t.Errorf("expected empty selection, got %d", got.Len())
		}
	})
}

func TestRelations_IncomingTo(t *testing.T) {
	c := New([]*entities.Relation{
		entities.NewRelation("entries", "5", "pages", "1", 0),
		entities.NewRelation("pages", "1", "entries", "5", 0),
		entities.NewRelation("entries", "6", "pages", "2", 0),
	}, nil)

	got := c.IncomingTo(entities.NewContent("pages", "1"))
	assertRelations(t, "incoming", got.All(), []string{"entries:5->pages:1#0"})

	if none := c.IncomingTo(entities.NewContent("showcases", "1")); none.Len() != 0 {
		t.Errorf("expected no incoming relations, got %d", none.Len())
	}
}

func TestRelations_Field(t *testing.T) {
	records := []*entities.Relation{
		entities.NewRelation("pages", "1", "entries", "3", 0),
		entities.NewRelation("pages", "1", "entries", "4", 1),
		entities.NewRelation("pages", "1", "showcases", "9", 0),
	}

	t.Run("without manager", func(t *testing.T) {
		c := New(records, nil)
		lazy, err := c.Field("entries")
		if !errors.Is(err, storage.ErrConfiguration) {
			t.Fatalf("Field() error = %v, want ErrConfiguration", err)
		}
		if lazy != nil {
			t.Error("Field() should return no collection on error")
		}
	})

	t.Run("handles are deferred", func(t *testing.T) {
		m := &stubManager{}
		c := New(records, nil)
		c.SetManager(m)

		lazy, err := c.Field("entries")
		if err != nil {
			t.Fatalf("Field() error = %v", err)
		}
		if lazy.Len() != 2 {
			t.Fatalf("Field() returned %d handles, want 2", lazy.Len())
		}
		if len(m.finds) != 0 {
			t.Fatalf("Field() loaded %v eagerly", m.finds)
		}
		if lazy.Handles()[0].Reference() != "entries:3" {
			t.Errorf("first handle = %s, want entries:3", lazy.Handles()[0].Reference())
		}

		resolved, err := lazy.ResolveAll(context.Background())
		if err != nil {
			t.Fatalf("ResolveAll() error = %v", err)
		}
		if len(resolved) != 2 || len(m.finds) != 2 {
			t.Errorf("resolved %d records with %d loads, want 2 and 2", len(resolved), len(m.finds))
		}
	})
	t.Run("self reference skips records pointing at the owner", func(t *testing.T) {
		c := New([]*entities.Relation{
			entities.NewRelation("pages", "1", "pages", "3", 0),
			entities.NewRelation("pages", "2", "pages", "1", 0),
		}, &stubManager{})
		c.SetOwner("pages", "1")

		lazy, err := c.Field("pages")
		if err != nil {
			t.Fatalf("Field() error = %v", err)
		}
		if lazy.Len() != 1 || lazy.Handles()[0].Reference() != "pages:3" {
			t.Errorf("Field() handles = %d, want only pages:3", lazy.Len())
		}
	})
}
