package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/asakaida/contentkit/internal/collection"
	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/repositories"
	"github.com/asakaida/contentkit/internal/storage"
	"github.com/asakaida/contentkit/pkg/cache"
)

// DefaultNotifyChannel is the LISTEN/NOTIFY channel record changes are announced on
const DefaultNotifyChannel = "content_changed"

// EntityManager loads, saves and presents content records through their field types.
// It implements storage.Manager for field types and relation collections.
type EntityManager struct {
	contents  repositories.ContentRepository
	relations repositories.RelationRepository
	types     ContentTypeProvider
	cache     cache.Cache // optional

	notifyChannel string
	cacheTTL      time.Duration
}

var _ storage.Manager = (*EntityManager)(nil)

// NewEntityManager creates a new EntityManager. A nil cache disables caching.
func NewEntityManager(
	contents repositories.ContentRepository,
	relations repositories.RelationRepository,
	types ContentTypeProvider,
	entityCache cache.Cache,
) *EntityManager {
	return &EntityManager{
		contents:      contents,
		relations:     relations,
		types:         types,
		cache:         entityCache,
		notifyChannel: DefaultNotifyChannel,
	}
}

// SetNotifyChannel overrides the channel record changes are announced on
func (m *EntityManager) SetNotifyChannel(channel string) {
	if channel != "" {
		m.notifyChannel = channel
	}
}

// NotifyChannel returns the channel record changes are announced on
func (m *EntityManager) NotifyChannel() string {
	return m.notifyChannel
}

// SetCacheTTL sets the lifetime of cached records. Zero uses the cache default.
func (m *EntityManager) SetCacheTTL(ttl time.Duration) {
	m.cacheTTL = ttl
}

// Find loads and hydrates one record.
// The base query is extended by every field type's Load hook and each
// field type then hydrates the record from the single result row.
func (m *EntityManager) Find(ctx context.Context, contenttype, id string) (*entities.Content, error) {
	ref := entities.Reference(contenttype, id)
	if m.cache != nil {
		if cached, ok := m.cache.Get(ctx, ref); ok {
			if entity, ok := cached.(*entities.Content); ok {
				return copyContent(entity), nil
			}
		}
	}

	ct, fieldTypes, err := m.types.FieldTypes(ctx, contenttype)
	if err != nil {
		return nil, err
	}

	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, ref)
	}

	metadata := storage.NewMetadata(ct)
	query := metadata.BaseQuery().Where(metadata.Alias+".id = ?", numericID)
	for _, ft := range fieldTypes {
		query = ft.Load(query, metadata)
	}

	rows, err := m.contents.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", ref, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, ref)
	}

	row, err := flattenFieldValues(rows[0])
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", ref, err)
	}

	entity := entities.NewContent(contenttype, row.String("id"))
	if t, ok := row["created_at"].(time.Time); ok {
		entity.CreatedAt = t
	}
	if t, ok := row["updated_at"].(time.Time); ok {
		entity.UpdatedAt = t
	}

	for _, ft := range fieldTypes {
		if err := ft.Hydrate(row, entity, m); err != nil {
			return nil, fmt.Errorf("failed to hydrate %s: %w", ref, err)
		}
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, ref, copyContent(entity), m.cacheTTL); err != nil {
			log.Printf("Warning: failed to cache %s: %v", ref, err)
		}
	}

	return entity, nil
}

// PersistedRelations returns the stored relations owned by a record, in sort order
func (m *EntityManager) PersistedRelations(ctx context.Context, contenttype, id string) ([]*entities.Relation, error) {
	if id == "" {
		return nil, nil
	}
	return m.relations.Read(ctx, &repositories.RelationFilter{
		FromContenttype: contenttype,
		FromID:          id,
	})
}

// Save stores a record. New records get an ID first so relation rows can reference it.
// Every field type queues its writes on one QuerySet which executes as a single
// transaction, announcing the change on the notify channel. Returns the write revision.
func (m *EntityManager) Save(ctx context.Context, entity *entities.Content) (string, error) {
	if entity == nil || entity.Contenttype == "" {
		return "", fmt.Errorf("%w: content type is required", ErrInvalidArgument)
	}

	ct, fieldTypes, err := m.types.FieldTypes(ctx, entity.Contenttype)
	if err != nil {
		return "", err
	}

	// stored targets, so records that lose a relation are announced too
	var previous []*entities.Relation
	if !entity.IsNew() && len(ct.Relations) > 0 {
		previous, err = m.PersistedRelations(ctx, entity.Contenttype, entity.ID)
		if err != nil {
			return "", fmt.Errorf("failed to read relations of %s: %w", entity.Reference(), err)
		}
	}

	now := time.Now()
	queue := storage.NewQuerySet()
	created := entity.IsNew()
	if created {
		id, err := m.contents.NextID(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", entity.Contenttype, err)
		}
		entity.ID = id
		queue.Insert(storage.ContentsTable,
			storage.Col("id", id),
			storage.Col("contenttype", entity.Contenttype),
			storage.Col("created_at", now),
			storage.Col("updated_at", now),
		)
	} else {
		queue.Update(storage.ContentsTable,
			[]storage.Column{storage.Col("updated_at", now)},
			[]storage.Column{storage.Col("id", entity.ID), storage.Col("contenttype", entity.Contenttype)},
		)
	}

	for _, ft := range fieldTypes {
		if err := ft.Persist(ctx, queue, entity, m); err != nil {
			if created {
				entity.ID = ""
			}
			return "", fmt.Errorf("failed to persist %s: %w", entity.Reference(), err)
		}
	}

	refs := m.changedRefs(ctx, entity, previous, entity.Relations)
	queue.Notify(m.notifyChannel, storage.ChangePayload(refs))

	revision, err := m.contents.Execute(ctx, queue)
	if err != nil {
		if created {
			entity.ID = ""
		}
		return "", fmt.Errorf("failed to save %s: %w", entity.Reference(), err)
	}

	if created {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now
	m.evict(ctx, refs)

	return revision, nil
}

// Delete removes a record, its field values and every relation from or to it
func (m *EntityManager) Delete(ctx context.Context, contenttype, id string) error {
	if _, err := m.types.GetContentType(ctx, contenttype); err != nil {
		return err
	}

	entity, err := m.Find(ctx, contenttype, id)
	if err != nil {
		return err
	}

	if err := m.contents.Delete(ctx, contenttype, id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", entity.Reference(), err)
	}

	refs := m.changedRefs(ctx, entity, entity.Relations)
	m.evict(ctx, refs)
	m.announce(ctx, refs)
	return nil
}

// Present returns the display values of a record keyed by field name
func (m *EntityManager) Present(ctx context.Context, entity *entities.Content) (map[string]interface{}, error) {
	_, fieldTypes, err := m.types.FieldTypes(ctx, entity.Contenttype)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"id":          entity.ID,
		"contenttype": entity.Contenttype,
	}
	for _, ft := range fieldTypes {
		result[ft.Field()] = ft.Present(entity)
	}
	return result, nil
}

// Related loads the records a relation field of a record points at, in sort order.
// For bi-directional fields, records pointing at this one through the field are included.
func (m *EntityManager) Related(ctx context.Context, contenttype, id, field string) ([]*entities.Content, error) {
	ct, err := m.types.GetContentType(ctx, contenttype)
	if err != nil {
		return nil, err
	}
	def := ct.GetRelation(field)
	if def == nil {
		return nil, fmt.Errorf("%w: %s has no relation field %s", ErrInvalidArgument, contenttype, field)
	}

	entity, err := m.Find(ctx, contenttype, id)
	if err != nil {
		return nil, err
	}

	relations := collection.New(entity.Relations, m)
	relations.SetOwner(entity.Contenttype, entity.ID)
	if !def.BiDirectional {
		lazy, err := relations.Field(field)
		if err != nil {
			return nil, err
		}
		return lazy.ResolveAll(ctx)
	}

	selected := relations.SelectByField(field, true, entity.Contenttype, entity.ID)
	result := make([]*entities.Content, 0, selected.Len())
	for _, rel := range selected.All() {
		targetType, targetID := rel.Target()
		target, err := m.Find(ctx, targetType, targetID)
		if err != nil {
			return nil, err
		}
		result = append(result, target)
	}
	return result, nil
}

// Incoming returns the stored relations pointing at a record
func (m *EntityManager) Incoming(ctx context.Context, contenttype, id string) ([]*entities.Relation, error) {
	entity, err := m.Find(ctx, contenttype, id)
	if err != nil {
		return nil, err
	}

	if entity.Relations != nil {
		return collection.New(entity.Relations, m).IncomingTo(entity).All(), nil
	}

	return m.relations.Read(ctx, &repositories.RelationFilter{
		ToContenttype: contenttype,
		ToID:          id,
	})
}

// Relate appends targets to a relation field of a record, after its current targets.
// Targets already related keep their position.
func (m *EntityManager) Relate(ctx context.Context, contenttype, id, field string, targetIDs []string) error {
	def, owned, err := m.relationField(ctx, contenttype, id, field)
	if err != nil {
		return err
	}

	position := 0
	existing := make(map[string]bool, len(owned))
	for _, rel := range owned {
		existing[rel.ToID] = true
		if rel.Sortorder >= position {
			position = rel.Sortorder + 1
		}
	}

	var added []*entities.Relation
	for _, targetID := range targetIDs {
		if targetID == "" || existing[targetID] {
			continue
		}
		if _, err := m.Find(ctx, field, targetID); err != nil {
			return err
		}
		existing[targetID] = true
		added = append(added, entities.NewRelation(contenttype, id, field, targetID, position))
		position++
	}

	if !def.Multiple && len(owned)+len(added) > 1 {
		return fmt.Errorf("%w: %s accepts a single relation", ErrInvalidArgument, field)
	}
	if len(added) == 0 {
		return nil
	}

	if err := m.relations.BatchWrite(ctx, added); err != nil {
		return fmt.Errorf("failed to relate %s: %w", entities.Reference(contenttype, id), err)
	}

	refs := relationRefs(contenttype, id, added)
	m.evict(ctx, refs)
	m.announce(ctx, refs)
	return nil
}

// Unrelate removes targets from a relation field of a record
func (m *EntityManager) Unrelate(ctx context.Context, contenttype, id, field string, targetIDs []string) error {
	_, owned, err := m.relationField(ctx, contenttype, id, field)
	if err != nil {
		return err
	}

	remove := make(map[string]bool, len(targetIDs))
	for _, targetID := range targetIDs {
		remove[targetID] = true
	}

	var removed []*entities.Relation
	for _, rel := range owned {
		if remove[rel.ToID] {
			removed = append(removed, rel)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	if err := m.relations.BatchDelete(ctx, removed); err != nil {
		return fmt.Errorf("failed to unrelate %s: %w", entities.Reference(contenttype, id), err)
	}

	refs := relationRefs(contenttype, id, removed)
	m.evict(ctx, refs)
	m.announce(ctx, refs)
	return nil
}

// Invalidate drops a cached record by its "contenttype:id" reference
func (m *EntityManager) Invalidate(ctx context.Context, ref string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Delete(ctx, ref); err != nil {
		log.Printf("Warning: failed to evict %s: %v", ref, err)
	}
}

// InvalidateContentType drops every cached record of a content type
func (m *EntityManager) InvalidateContentType(ctx context.Context, contenttype string) {
	if m.cache == nil {
		return
	}
	if _, err := m.cache.DeletePrefix(ctx, contenttype+":"); err != nil {
		log.Printf("Warning: failed to evict %s records: %v", contenttype, err)
	}
}

// InvalidateAll drops every cached record
func (m *EntityManager) InvalidateAll(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Clear(ctx); err != nil {
		log.Printf("Warning: failed to clear entity cache: %v", err)
	}
}

// relationField checks a relation field exists and returns it with the stored relations it owns
func (m *EntityManager) relationField(ctx context.Context, contenttype, id, field string) (*entities.RelationDefinition, []*entities.Relation, error) {
	ct, err := m.types.GetContentType(ctx, contenttype)
	if err != nil {
		return nil, nil, err
	}
	def := ct.GetRelation(field)
	if def == nil {
		return nil, nil, fmt.Errorf("%w: %s has no relation field %s", ErrInvalidArgument, contenttype, field)
	}
	if _, err := m.Find(ctx, contenttype, id); err != nil {
		return nil, nil, err
	}

	persisted, err := m.relations.Read(ctx, &repositories.RelationFilter{
		FromContenttype: contenttype,
		FromID:          id,
		ToContenttype:   field,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read relations of %s: %w", entities.Reference(contenttype, id), err)
	}
	return def, persisted, nil
}

// announce publishes a change notification for writes made outside Save
func (m *EntityManager) announce(ctx context.Context, refs []string) {
	queue := storage.NewQuerySet()
	queue.Notify(m.notifyChannel, storage.ChangePayload(refs))
	if _, err := m.contents.Execute(ctx, queue); err != nil {
		log.Printf("Warning: failed to announce change of %v: %v", refs, err)
	}
}

// changedRefs returns the references a write to entity touches: the record itself and
// every record it was or is related to. Related records embed the relation rows pointing at them.
func (m *EntityManager) changedRefs(ctx context.Context, entity *entities.Content, relations ...[]*entities.Relation) []string {
	if m.cache != nil {
		if cached, ok := m.cache.Get(ctx, entity.Reference()); ok {
			if previous, ok := cached.(*entities.Content); ok {
				relations = append(relations, previous.Relations)
			}
		}
	}
	return relationRefs(entity.Contenttype, entity.ID, relations...)
}

func (m *EntityManager) evict(ctx context.Context, refs []string) {
	for _, ref := range refs {
		m.Invalidate(ctx, ref)
	}
}

// relationRefs lists the owner reference followed by both ends of every relation, without duplicates.
// Ends without an ID belong to an unsaved owner and are skipped.
func relationRefs(contenttype, id string, relations ...[]*entities.Relation) []string {
	seen := make(map[string]bool)
	var refs []string
	add := func(contenttype, id string) {
		if contenttype == "" || id == "" {
			return
		}
		ref := entities.Reference(contenttype, id)
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	add(contenttype, id)
	for _, list := range relations {
		for _, rel := range list {
			if rel == nil {
				continue
			}
			add(rel.FromContenttype, rel.FromID)
			add(rel.ToContenttype, rel.ToID)
		}
	}
	return refs
}

// flattenFieldValues copies the aggregated field_values JSON object into the row,
// so field types read their stored value by field name
func flattenFieldValues(row storage.Row) (storage.Row, error) {
	flat := make(storage.Row, len(row))
	for k, v := range row {
		flat[k] = v
	}

	raw := row.String("field_values")
	if raw == "" {
		return flat, nil
	}

	var values map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal field values: %w", err)
	}
	for name, v := range values {
		if _, reserved := flat[name]; reserved {
			continue
		}
		flat[name] = v
	}
	return flat, nil
}

// copyContent returns a copy safe to mutate without touching the cached record
func copyContent(c *entities.Content) *entities.Content {
	clone := *c
	clone.Values = make(map[string]interface{}, len(c.Values))
	for k, v := range c.Values {
		if list, ok := v.(entities.TextList); ok && list != nil {
			copied := make(entities.TextList, len(list))
			copy(copied, list)
			v = copied
		}
		clone.Values[k] = v
	}
	if c.Relations != nil {
		clone.Relations = make([]*entities.Relation, len(c.Relations))
		for i, rel := range c.Relations {
			clone.Relations[i] = rel.Clone()
		}
	}
	return &clone
}

// IsNotFound reports whether err means a record or content type does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, ErrContentTypeNotFound)
}
