package fieldtypes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/asakaida/contentkit/internal/collection"
	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/storage"
)

// RelationRowsColumn is the aggregated JSON column carrying a record's relations
const RelationRowsColumn = "relation_rows"

// RelationType links a record to records of the content type named by the field
type RelationType struct {
	Base
	relation *entities.RelationDefinition
}

// NewRelationType creates a relation field type bound to def
func NewRelationType(def *entities.RelationDefinition) *RelationType {
	return &RelationType{
		Base: Base{Definition: &entities.FieldDefinition{
			Name:  def.Name,
			Type:  "relation",
			Label: def.Label,
		}},
		relation: def,
	}
}

// Name returns "relation"
func (t *RelationType) Name() string {
	return "relation"
}

// Mapping returns the field name, target and direction of the relation
func (t *RelationType) Mapping() map[string]interface{} {
	return map[string]interface{}{
		"fieldname":     t.Field(),
		"type":          "relation",
		"target":        t.relation.Name,
		"multiple":      t.relation.Multiple,
		"bidirectional": t.relation.BiDirectional,
	}
}

// Load adds the relation_rows column holding every relation from or to the record.
// Several relation fields share the column, so it is added only once.
func (t *RelationType) Load(query *storage.Query, metadata *storage.Metadata) *storage.Query {
	if query.HasColumn(RelationRowsColumn) {
		return query
	}

	alias := query.Alias()
	if alias == "" {
		alias = query.Table()
	}

	expr := "(SELECT COALESCE(json_agg(json_build_object(" +
		"'id', r.id, " +
		"'from_contenttype', r.from_contenttype, " +
		"'from_id', r.from_id, " +
		"'to_contenttype', r.to_contenttype, " +
		"'to_id', r.to_id, " +
		"'sortorder', r.sortorder" +
		") ORDER BY r.sortorder, r.id), '[]'::json) FROM " + storage.RelationsTable + " r " +
		"WHERE (r.from_contenttype = " + alias + ".contenttype AND r.from_id = " + alias + ".id::text) " +
		"OR (r.to_contenttype = " + alias + ".contenttype AND r.to_id = " + alias + ".id::text))"

	return query.Select(expr, RelationRowsColumn)
}

// Hydrate builds the record's relations from the relation_rows column.
// The relations are shared by all relation fields and built once.
func (t *RelationType) Hydrate(row storage.Row, entity *entities.Content, manager storage.Manager) error {
	if entity.Relations != nil {
		return nil
	}

	rows, err := ParseRelationRows(row.String(RelationRowsColumn))
	if err != nil {
		return fmt.Errorf("field %s: %w", t.Field(), err)
	}

	relations := collection.New(nil, manager)
	if err := relations.SetFromPersistedValues(rows); err != nil {
		return fmt.Errorf("field %s: %w", t.Field(), err)
	}

	entity.Relations = relations.All()
	if entity.Relations == nil {
		entity.Relations = []*entities.Relation{}
	}
	return nil
}

// Persist reconciles the record's relations of this field with the stored ones.
// New relations are inserted, moved ones get their sortorder updated and
// stored relations missing from the record are deleted.
func (t *RelationType) Persist(ctx context.Context, queue *storage.QuerySet, entity *entities.Content, manager storage.Manager) error {
	if manager == nil {
		return fmt.Errorf("%w: cannot persist relation field %s without a manager",
			storage.ErrConfiguration, t.Field())
	}
	if entity.IsNew() {
		return fmt.Errorf("cannot persist relation field %s of an unsaved record", t.Field())
	}

	incoming := t.outgoing(entity)

	persisted, err := manager.PersistedRelations(ctx, entity.Contenttype, entity.ID)
	if err != nil {
		return fmt.Errorf("failed to read relations of %s: %w", entity.Reference(), err)
	}
	var old []*entities.Relation
	for _, rel := range persisted {
		if rel.ToContenttype == t.Field() {
			old = append(old, rel)
		}
	}

	// repeated targets collapse before the single-value constraint applies
	kept, deleted := collection.Reconcile(old, incoming)
	if !t.relation.Multiple && len(kept) > 1 {
		return fmt.Errorf("%w: %s accepts a single relation, got %d",
			ErrConstraintViolation, t.Field(), len(kept))
	}

	stored := make(map[int64]*entities.Relation, len(old))
	for _, rel := range old {
		stored[rel.ID] = rel
	}

	for _, rel := range kept {
		if err := rel.Validate(); err != nil {
			return fmt.Errorf("field %s: %w", t.Field(), err)
		}
		if rel.ID == 0 {
			queue.Insert(storage.RelationsTable,
				storage.Col("from_contenttype", rel.FromContenttype),
				storage.Col("from_id", rel.FromID),
				storage.Col("to_contenttype", rel.ToContenttype),
				storage.Col("to_id", rel.ToID),
				storage.Col("sortorder", rel.Sortorder),
			)
			continue
		}
		if original, ok := stored[rel.ID]; ok && original.Sortorder != rel.Sortorder {
			queue.Update(storage.RelationsTable,
				[]storage.Column{storage.Col("sortorder", rel.Sortorder)},
				[]storage.Column{storage.Col("id", rel.ID)},
			)
		}
	}

	for _, rel := range deleted {
		queue.Delete(storage.RelationsTable, storage.Col("id", rel.ID))
	}

	return nil
}

// Present returns the {contenttype, id} references of the field's targets
func (t *RelationType) Present(entity *entities.Content) interface{} {
	relations := collection.New(entity.Relations, nil).
		SelectByField(t.Field(), t.relation.BiDirectional, entity.Contenttype, entity.ID)

	result := make([]map[string]interface{}, 0, relations.Len())
	for _, rel := range relations.All() {
		contenttype, id := rel.Target()
		result = append(result, map[string]interface{}{
			"contenttype": contenttype,
			"id":          id,
		})
	}
	return result
}

// outgoing returns copies of the record's relations owned by this field.
// Relations built before the record had an ID are attributed to it.
func (t *RelationType) outgoing(entity *entities.Content) []*entities.Relation {
	var result []*entities.Relation
	for _, rel := range entity.Relations {
		if rel.IsInverse() || rel.ToContenttype != t.Field() || rel.FromContenttype != entity.Contenttype {
			continue
		}
		if rel.FromID != "" && rel.FromID != entity.ID {
			continue
		}
		clone := rel.Clone()
		clone.FromID = entity.ID
		result = append(result, clone)
	}
	return result
}

// ParseRelationRows decodes the relation_rows JSON column
func ParseRelationRows(raw string) ([]storage.Row, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal relation rows: %w", err)
	}

	rows := make([]storage.Row, 0, len(decoded))
	for _, d := range decoded {
		rows = append(rows, storage.Row(d))
	}
	return rows, nil
}
