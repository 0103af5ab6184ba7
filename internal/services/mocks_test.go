package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/fieldtypes"
	"github.com/asakaida/contentkit/internal/repositories"
	"github.com/asakaida/contentkit/internal/storage"
)

const testContentTypes = `
pages:
  name: Pages
  fields:
    title: text
    checklist:
      type: textlist
      validate: "count <= 3"
  relations:
    entries: { multiple: true }
    showcases: { multiple: false }
entries:
  fields:
    title: text
  relations:
    pages: { bidirectional: true }
showcases:
  fields:
    title: text
`

// Mock ContentTypeRepository
type mockContentTypeRepository struct {
	versions []*entities.ContentTypeSet
}

func (m *mockContentTypeRepository) Create(ctx context.Context, source string) (string, error) {
	version := strconv.Itoa(len(m.versions) + 1)
	m.versions = append(m.versions, &entities.ContentTypeSet{Version: version, Source: source, CreatedAt: time.Now()})
	return version, nil
}

func (m *mockContentTypeRepository) GetLatestVersion(ctx context.Context) (*entities.ContentTypeSet, error) {
	if len(m.versions) == 0 {
		return nil, repositories.ErrContentTypesNotFound
	}
	return m.versions[len(m.versions)-1], nil
}

func (m *mockContentTypeRepository) GetByVersion(ctx context.Context, version string) (*entities.ContentTypeSet, error) {
	for _, v := range m.versions {
		if v.Version == version {
			return v, nil
		}
	}
	return nil, repositories.ErrContentTypesNotFound
}

func (m *mockContentTypeRepository) Delete(ctx context.Context, version string) error {
	for i, v := range m.versions {
		if v.Version == version {
			m.versions = append(m.versions[:i], m.versions[i+1:]...)
			return nil
		}
	}
	return repositories.ErrContentTypesNotFound
}

type memoryRecord struct {
	contenttype string
	fields      map[string]string
	createdAt   time.Time
	updatedAt   time.Time
}

// memoryStore implements ContentRepository and RelationRepository in memory.
// It interprets queued operations the way the PostgreSQL repositories execute them.
type memoryStore struct {
	mu            sync.Mutex
	nextID        int64
	nextRelID     int64
	records       map[string]*memoryRecord
	relations     []*entities.Relation
	notifications []string
	queries       int
	executeErr    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*memoryRecord)}
}

func (s *memoryStore) Query(ctx context.Context, query *storage.Query) ([]storage.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++

	_, args := query.SQL()
	if len(args) != 2 {
		return nil, fmt.Errorf("unexpected query args: %v", args)
	}
	contenttype, _ := args[0].(string)
	id := strconv.FormatInt(args[1].(int64), 10)

	rec, ok := s.records[id]
	if !ok || rec.contenttype != contenttype {
		return nil, nil
	}

	values, _ := json.Marshal(rec.fields)
	row := storage.Row{
		"id":           args[1],
		"contenttype":  contenttype,
		"created_at":   rec.createdAt,
		"updated_at":   rec.updatedAt,
		"field_values": string(values),
	}

	if query.HasColumn(fieldtypes.RelationRowsColumn) {
		var rows []map[string]interface{}
		for _, rel := range s.sortedRelations() {
			if (rel.FromContenttype == contenttype && rel.FromID == id) ||
				(rel.ToContenttype == contenttype && rel.ToID == id) {
				rows = append(rows, map[string]interface{}{
					"id":               rel.ID,
					"from_contenttype": rel.FromContenttype,
					"from_id":          rel.FromID,
					"to_contenttype":   rel.ToContenttype,
					"to_id":            rel.ToID,
					"sortorder":        rel.Sortorder,
				})
			}
		}
		if rows == nil {
			rows = []map[string]interface{}{}
		}
		encoded, _ := json.Marshal(rows)
		row[fieldtypes.RelationRowsColumn] = string(encoded)
	}

	return []storage.Row{row}, nil
}

func (s *memoryStore) Execute(ctx context.Context, queue *storage.QuerySet) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.executeErr != nil {
		return "", s.executeErr
	}
	for _, op := range queue.Operations() {
		if _, _, err := op.SQL(); err != nil {
			return "", err
		}
	}

	for _, op := range queue.Operations() {
		if err := s.apply(op); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%d:%d:", s.nextID, s.nextID+1), nil
}

func (s *memoryStore) apply(op *storage.Operation) error {
	switch {
	case op.Kind == storage.OpNotify:
		s.notifications = append(s.notifications, op.Channel+" "+op.Payload)

	case op.Kind == storage.OpInsert && op.Table == storage.ContentsTable:
		id := value(op.Columns, "id")
		s.records[id] = &memoryRecord{
			contenttype: value(op.Columns, "contenttype"),
			fields:      make(map[string]string),
			createdAt:   time.Now(),
			updatedAt:   time.Now(),
		}

	case op.Kind == storage.OpUpdate && op.Table == storage.ContentsTable:
		if rec, ok := s.records[value(op.Where, "id")]; ok {
			rec.updatedAt = time.Now()
		}

	case op.Kind == storage.OpUpsert && op.Table == storage.ContentFieldsTable:
		rec, ok := s.records[value(op.Columns, "content_id")]
		if !ok {
			return fmt.Errorf("foreign key violation: content %s", value(op.Columns, "content_id"))
		}
		rec.fields[value(op.Columns, "name")] = value(op.Columns, "value")

	case op.Kind == storage.OpInsert && op.Table == storage.RelationsTable:
		sortorder, _ := strconv.Atoi(value(op.Columns, "sortorder"))
		rel := entities.NewRelation(
			value(op.Columns, "from_contenttype"), value(op.Columns, "from_id"),
			value(op.Columns, "to_contenttype"), value(op.Columns, "to_id"), sortorder)
		for _, existing := range s.relations {
			if existing.SameIdentity(rel) {
				return fmt.Errorf("unique violation: %s", rel)
			}
		}
		s.nextRelID++
		rel.ID = s.nextRelID
		s.relations = append(s.relations, rel)

	case op.Kind == storage.OpUpdate && op.Table == storage.RelationsTable:
		id, _ := strconv.ParseInt(value(op.Where, "id"), 10, 64)
		sortorder, _ := strconv.Atoi(value(op.Columns, "sortorder"))
		for _, rel := range s.relations {
			if rel.ID == id {
				rel.Sortorder = sortorder
			}
		}

	case op.Kind == storage.OpDelete && op.Table == storage.RelationsTable:
		id, _ := strconv.ParseInt(value(op.Where, "id"), 10, 64)
		s.removeRelations(func(rel *entities.Relation) bool { return rel.ID == id })

	default:
		return fmt.Errorf("unsupported operation %s on %s", op.Kind, op.Table)
	}
	return nil
}

func (s *memoryStore) NextID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return strconv.FormatInt(s.nextID, 10), nil
}

func (s *memoryStore) Delete(ctx context.Context, contenttype, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.contenttype != contenttype {
		return fmt.Errorf("%w: %s:%s", storage.ErrNotFound, contenttype, id)
	}
	delete(s.records, id)
	s.removeRelations(func(rel *entities.Relation) bool {
		return (rel.FromContenttype == contenttype && rel.FromID == id) ||
			(rel.ToContenttype == contenttype && rel.ToID == id)
	})
	return nil
}

func (s *memoryStore) Read(ctx context.Context, filter *repositories.RelationFilter) ([]*entities.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*entities.Relation
	for _, rel := range s.sortedRelations() {
		if matches(filter, rel) {
			result = append(result, rel.Clone())
		}
	}
	return result, nil
}

func (s *memoryStore) BatchWrite(ctx context.Context, relations []*entities.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rel := range relations {
		if err := rel.Validate(); err != nil {
			return err
		}
		updated := false
		for _, existing := range s.relations {
			if existing.SameIdentity(rel) {
				existing.Sortorder = rel.Sortorder
				updated = true
			}
		}
		if !updated {
			s.nextRelID++
			stored := rel.Clone()
			stored.ID = s.nextRelID
			s.relations = append(s.relations, stored)
		}
	}
	return nil
}

func (s *memoryStore) BatchDelete(ctx context.Context, relations []*entities.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rel := range relations {
		target := rel
		s.removeRelations(func(existing *entities.Relation) bool { return existing.SameIdentity(target) })
	}
	return nil
}

func (s *memoryStore) DeleteByFilter(ctx context.Context, filter *repositories.RelationFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeRelations(func(rel *entities.Relation) bool { return matches(filter, rel) })
	return nil
}

// relationStrings returns the stored relations of a record in sort order
func (s *memoryStore) relationStrings(contenttype, id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []string
	for _, rel := range s.sortedRelations() {
		if rel.FromContenttype == contenttype && rel.FromID == id {
			result = append(result, rel.String())
		}
	}
	return result
}

func (s *memoryStore) sortedRelations() []*entities.Relation {
	sorted := append([]*entities.Relation(nil), s.relations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Sortorder != sorted[j].Sortorder {
			return sorted[i].Sortorder < sorted[j].Sortorder
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func (s *memoryStore) removeRelations(match func(*entities.Relation) bool) {
	kept := s.relations[:0]
	for _, rel := range s.relations {
		if !match(rel) {
			kept = append(kept, rel)
		}
	}
	s.relations = kept
}

func matches(filter *repositories.RelationFilter, rel *entities.Relation) bool {
	if filter == nil {
		return true
	}
	if filter.FromContenttype != "" && rel.FromContenttype != filter.FromContenttype {
		return false
	}
	if filter.FromID != "" && rel.FromID != filter.FromID {
		return false
	}
	if filter.ToContenttype != "" && rel.ToContenttype != filter.ToContenttype {
		return false
	}
	if filter.ToID != "" && rel.ToID != filter.ToID {
		return false
	}
	return true
}

func value(columns []storage.Column, name string) string {
	for _, c := range columns {
		if c.Name == name {
			return fmt.Sprintf("%v", c.Value)
		}
	}
	return ""
}

// newTestServices wires the services over in-memory repositories
func newTestServices(t *testing.T) (*ContentTypeService, *EntityManager, *memoryStore) {
	t.Helper()

	types := NewContentTypeService(&mockContentTypeRepository{}, nil)
	if _, err := types.WriteContentTypes(context.Background(), testContentTypes); err != nil {
		t.Fatalf("WriteContentTypes() error = %v", err)
	}

	store := newMemoryStore()
	return types, NewEntityManager(store, store, types, nil), store
}
