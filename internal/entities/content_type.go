package entities

import "time"

// ContentType represents a content type definition
// Example:
//
//	pages:
//	  fields:
//	    checklist: { type: textlist }
//	  relations:
//	    entries: { multiple: true }
type ContentType struct {
	Slug      string                // Content type slug (e.g., "pages")
	Name      string                // Human readable name (e.g., "Pages")
	Fields    []*FieldDefinition    // Field definitions, in declaration order
	Relations []*RelationDefinition // Relation field definitions
}

// FieldDefinition describes one field of a content type
type FieldDefinition struct {
	Name     string                 // Field name, also the storage key
	Type     string                 // Field type name (e.g., "text", "textlist", "relation")
	Label    string                 // Display label
	Validate string                 // Optional CEL constraint evaluated before persist
	Options  map[string]interface{} // Type specific options
}

// RelationDefinition describes a relation field.
// The field name is the target content type slug.
type RelationDefinition struct {
	Name          string // Target content type (e.g., "entries")
	Label         string
	Multiple      bool // Whether more than one target may be selected
	BiDirectional bool // Whether inverse relations are listed as well
}

// ContentTypeSet is a versioned upload of content type definitions
type ContentTypeSet struct {
	Version   string         // Definition version
	Source    string         // Original YAML text
	Types     []*ContentType // Parsed content types
	CreatedAt time.Time
}

// GetField returns the field definition by name
func (ct *ContentType) GetField(name string) *FieldDefinition {
	for _, f := range ct.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// GetRelation returns the relation definition by name
func (ct *ContentType) GetRelation(name string) *RelationDefinition {
	for _, r := range ct.Relations {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// GetType returns the content type by slug
func (s *ContentTypeSet) GetType(slug string) *ContentType {
	for _, ct := range s.Types {
		if ct.Slug == slug {
			return ct
		}
	}
	return nil
}
