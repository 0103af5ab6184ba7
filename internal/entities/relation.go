package entities

import (
	"fmt"
)

// Relation represents a directed edge between two content records
// Example: pages:1->entries:7#2
// This means: page "1" relates to entry "7" at sort position 2
type Relation struct {
	ID              int64  // Storage row ID (0 until persisted)
	FromContenttype string // Owner content type (e.g., "pages")
	FromID          string // Owner content ID
	ToContenttype   string // Target content type, also the relation field name (e.g., "entries")
	ToID            string // Target content ID
	Sortorder       int    // Position within the relation field; not part of identity

	inverse bool
}

// RelationIdentity is the identity tuple used to match relation records.
// Sortorder is deliberately excluded.
type RelationIdentity struct {
	FromContenttype string
	FromID          string
	ToContenttype   string
	ToID            string
}

// NewRelation creates a relation between two records
func NewRelation(fromContenttype, fromID, toContenttype, toID string, sortorder int) *Relation {
	return &Relation{
		FromContenttype: fromContenttype,
		FromID:          fromID,
		ToContenttype:   toContenttype,
		ToID:            toID,
		Sortorder:       sortorder,
	}
}

// Identity returns the identity tuple of the relation
func (r *Relation) Identity() RelationIdentity {
	return RelationIdentity{
		FromContenttype: r.FromContenttype,
		FromID:          r.FromID,
		ToContenttype:   r.ToContenttype,
		ToID:            r.ToID,
	}
}

// SameIdentity reports whether both relations connect the same records in the same direction.
// Comparison is exact and case-sensitive.
func (r *Relation) SameIdentity(other *Relation) bool {
	if r == nil || other == nil {
		return false
	}
	return r.Identity() == other.Identity()
}

// ActAsInverse marks the relation as seen from its target side
func (r *Relation) ActAsInverse() {
	r.inverse = true
}

// IsInverse reports whether the relation was matched in the inverse direction
func (r *Relation) IsInverse() bool {
	return r.inverse
}

// Clone returns a copy of the relation, including its inverse marker
func (r *Relation) Clone() *Relation {
	clone := *r
	return &clone
}

// Target returns the record on the far side of the relation.
// For inverse relations this is the source record.
func (r *Relation) Target() (contenttype, id string) {
	if r.inverse {
		return r.FromContenttype, r.FromID
	}
	return r.ToContenttype, r.ToID
}

// String returns a string representation of the relation
// Format: from_contenttype:from_id->to_contenttype:to_id#sortorder
func (r *Relation) String() string {
	return fmt.Sprintf("%s:%s->%s:%s#%d",
		r.FromContenttype, r.FromID,
		r.ToContenttype, r.ToID,
		r.Sortorder)
}

// Validate checks if the relation is valid
func (r *Relation) Validate() error {
	if r.FromContenttype == "" {
		return fmt.Errorf("from contenttype is required")
	}
	if r.FromID == "" {
		return fmt.Errorf("from ID is required")
	}
	if r.ToContenttype == "" {
		return fmt.Errorf("to contenttype is required")
	}
	if r.ToID == "" {
		return fmt.Errorf("to ID is required")
	}
	return nil
}
