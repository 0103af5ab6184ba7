// Package collection manages the relation records of one content record:
// building them from form submissions and stored rows, reconciling incoming
// against persisted records, and filtered or deferred lookups by field.
package collection

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/storage"
)

// RelationFormKey is the optional wrapper key of submitted relation values
const RelationFormKey = "relation"

// Relations is an ordered collection of relation records scoped to one owner record.
// It is not safe for concurrent use.
type Relations struct {
	elements         []*entities.Relation
	manager          storage.Manager
	ownerContenttype string
	ownerID          string
}

// New creates a collection over the given records.
// The manager is only needed for deferred lookups and may be nil.
func New(elements []*entities.Relation, manager storage.Manager) *Relations {
	c := &Relations{manager: manager}
	for _, el := range elements {
		c.Add(el)
	}
	return c
}

// SetManager attaches the data-access layer used by Field
func (c *Relations) SetManager(manager storage.Manager) {
	c.manager = manager
}

// SetOwner scopes single-direction lookups to the records owned by the given record
func (c *Relations) SetOwner(contenttype, id string) {
	c.ownerContenttype = contenttype
	c.ownerID = id
}

// Add appends a record
func (c *Relations) Add(rel *entities.Relation) {
	if rel == nil {
		return
	}
	c.elements = append(c.elements, rel)
}

// Clear removes all records
func (c *Relations) Clear() {
	c.elements = nil
}

// Len returns the number of records
func (c *Relations) Len() int {
	return len(c.elements)
}

// All returns the records in collection order
func (c *Relations) All() []*entities.Relation {
	return c.elements
}

// SetFromSubmittedValues adds records built from a form submission.
// The accepted shape is {targetContenttype: [targetID, ...]}, optionally wrapped
// under the "relation" key. Non-list values and empty or falsy IDs are skipped.
// Sortorder is the position of the ID within its list.
func (c *Relations) SetFromSubmittedValues(formValues map[string]interface{}, owner *entities.Content) {
	values := formValues
	if wrapped, ok := formValues[RelationFormKey].(map[string]interface{}); ok {
		values = wrapped
	}

	fields := make([]string, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		ids, ok := toList(values[field])
		if !ok {
			continue
		}
		position := 0
		for _, raw := range ids {
			id, ok := submittedID(raw)
			if !ok {
				continue
			}
			c.Add(entities.NewRelation(owner.Contenttype, owner.ID, field, id, position))
			position++
		}
	}
}

// SetFromPersistedValues adds records built from stored rows, keeping their sortorder.
// Rows carry id, from_contenttype, from_id, to_contenttype, to_id and sortorder.
func (c *Relations) SetFromPersistedValues(rows []storage.Row) error {
	for i, row := range rows {
		rel := &entities.Relation{
			FromContenttype: row.String("from_contenttype"),
			FromID:          row.String("from_id"),
			ToContenttype:   row.String("to_contenttype"),
			ToID:            row.String("to_id"),
		}
		if row.Has("id") {
			id, err := strconv.ParseInt(row.String("id"), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid relation id at row %d: %w", i, err)
			}
			rel.ID = id
		}
		if row.Has("sortorder") {
			sortorder, err := strconv.Atoi(row.String("sortorder"))
			if err != nil {
				return fmt.Errorf("invalid sortorder at row %d: %w", i, err)
			}
			rel.Sortorder = sortorder
		}
		c.Add(rel)
	}
	return nil
}

// Original returns the held record with the same identity as rel, or rel itself when none matches
func (c *Relations) Original(rel *entities.Relation) *entities.Relation {
	if existing := find(c.elements, rel); existing != nil {
		return existing
	}
	return rel
}

// Update reconciles the collection against an incoming set and keeps the result.
// Held records missing from incoming are removed and returned.
func (c *Relations) Update(incoming *Relations) []*entities.Relation {
	var in []*entities.Relation
	if incoming != nil {
		in = incoming.elements
	}
	kept, deleted := Reconcile(c.elements, in)
	c.elements = kept
	return deleted
}

// SelectByField returns the records of a relation field.
// Without biDirectional a record matches when its target content type is the field name
// and it is owned by the owner; an empty ownerContenttype matches any owner.
// With biDirectional, records pointing at the owner from the field's content type
// match too and are returned marked as inverse. Returned records are copies.
func (c *Relations) SelectByField(field string, biDirectional bool, ownerContenttype, ownerID string) *Relations {
	result := &Relations{manager: c.manager}

	for _, el := range c.elements {
		if !biDirectional {
			if el.ToContenttype == field && !el.IsInverse() && ownedBy(el, ownerContenttype, ownerID) {
				result.Add(el.Clone())
			}
			continue
		}

		switch {
		case el.FromContenttype == field && el.FromContenttype == el.ToContenttype && el.ToID == ownerID:
			// self-referencing relation pointing at the owner
			inverse := el.Clone()
			inverse.ActAsInverse()
			result.Add(inverse)
		case el.ToContenttype == field && el.FromContenttype == ownerContenttype:
			result.Add(el.Clone())
		case el.FromContenttype == field && el.ToContenttype == ownerContenttype:
			inverse := el.Clone()
			inverse.ActAsInverse()
			result.Add(inverse)
		}
	}

	return result
}

// IncomingTo returns the records whose target is the given record
func (c *Relations) IncomingTo(entity *entities.Content) *Relations {
	result := &Relations{manager: c.manager}
	for _, el := range c.elements {
		if el.ToContenttype == entity.Contenttype && el.ToID == entity.ID {
			result.Add(el)
		}
	}
	return result
}

// Field returns deferred handles to the targets of a relation field.
// Targets are not loaded until resolved. With an owner set, only its own records count.
func (c *Relations) Field(name string) (*LazyCollection, error) {
	if c.manager == nil {
		return nil, fmt.Errorf("%w: unable to load collection values, no manager is set on the relation collection",
			storage.ErrConfiguration)
	}

	lazy := &LazyCollection{}
	for _, rel := range c.SelectByField(name, false, c.ownerContenttype, c.ownerID).All() {
		handle, err := storage.NewHandle(rel.ToContenttype, rel.ToID, c.manager)
		if err != nil {
			return nil, err
		}
		lazy.handles = append(lazy.handles, handle)
	}
	return lazy, nil
}

// ownedBy reports whether rel starts at the owner. Records without a source ID
// belong to an owner that has not been stored yet.
func ownedBy(rel *entities.Relation, ownerContenttype, ownerID string) bool {
	if ownerContenttype == "" {
		return true
	}
	if rel.FromContenttype != ownerContenttype {
		return false
	}
	return ownerID == "" || rel.FromID == "" || rel.FromID == ownerID
}

func find(elements []*entities.Relation, rel *entities.Relation) *entities.Relation {
	for _, existing := range elements {
		if existing.SameIdentity(rel) {
			return existing
		}
	}
	return nil
}

func toList(v interface{}) ([]interface{}, bool) {
	switch list := v.(type) {
	case []interface{}:
		return list, true
	case []string:
		out := make([]interface{}, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// submittedID normalizes a submitted ID, rejecting empty and falsy values
func submittedID(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		if id == "" || id == "0" {
			return "", false
		}
		return id, true
	case float64:
		if id == 0 {
			return "", false
		}
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case int:
		if id == 0 {
			return "", false
		}
		return strconv.Itoa(id), true
	case int64:
		if id == 0 {
			return "", false
		}
		return strconv.FormatInt(id, 10), true
	}
	return "", false
}
