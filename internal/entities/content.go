package entities

import (
	"fmt"
	"time"
)

// Content represents one content record of a content type
// Example: pages:1 with values {"title": "About", "checklist": TextList{...}}
type Content struct {
	Contenttype string                 // Content type slug (e.g., "pages")
	ID          string                 // Record ID, empty until first save
	Values      map[string]interface{} // Hydrated field values keyed by field name
	Relations   []*Relation            // Relations owned by or pointing to this record
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewContent creates an empty record of the given content type
func NewContent(contenttype, id string) *Content {
	return &Content{
		Contenttype: contenttype,
		ID:          id,
		Values:      make(map[string]interface{}),
	}
}

// Get returns a field value
func (c *Content) Get(field string) (interface{}, bool) {
	if c.Values == nil {
		return nil, false
	}
	v, ok := c.Values[field]
	return v, ok
}

// Set sets a field value
func (c *Content) Set(field string, value interface{}) {
	if c.Values == nil {
		c.Values = make(map[string]interface{})
	}
	c.Values[field] = value
}

// IsNew reports whether the record has not been stored yet
func (c *Content) IsNew() bool {
	return c.ID == ""
}

// Reference returns the "contenttype:id" key of the record
func (c *Content) Reference() string {
	return Reference(c.Contenttype, c.ID)
}

// Reference formats a record key
// Format: contenttype:id
func Reference(contenttype, id string) string {
	return fmt.Sprintf("%s:%s", contenttype, id)
}
