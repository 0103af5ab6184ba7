package storage

import "github.com/asakaida/contentkit/internal/entities"

// Table names shared by the query builders and the repositories
const (
	ContentsTable      = "contents"
	ContentFieldsTable = "content_fields"
	RelationsTable     = "relations"
)

// Metadata describes how one content type maps onto storage
type Metadata struct {
	Contenttype string
	Table       string
	Alias       string
	Fields      []*entities.FieldDefinition
	Relations   []*entities.RelationDefinition
}

// NewMetadata builds the storage mapping for a content type
func NewMetadata(ct *entities.ContentType) *Metadata {
	return &Metadata{
		Contenttype: ct.Slug,
		Table:       ContentsTable,
		Alias:       "c",
		Fields:      ct.Fields,
		Relations:   ct.Relations,
	}
}

// BaseQuery returns the query loading records of this content type before load hooks run.
// Field values are aggregated into a single JSON object column named "field_values".
func (m *Metadata) BaseQuery() *Query {
	q := NewQuery(m.Table, m.Alias)
	q.Select(m.Alias+".id", "id")
	q.Select(m.Alias+".contenttype", "contenttype")
	q.Select(m.Alias+".created_at", "created_at")
	q.Select(m.Alias+".updated_at", "updated_at")
	q.Select("(SELECT COALESCE(json_object_agg(f.name, f.value), '{}'::json) FROM "+
		ContentFieldsTable+" f WHERE f.content_id = "+m.Alias+".id)", "field_values")
	q.Where(m.Alias+".contenttype = ?", m.Contenttype)
	return q
}
