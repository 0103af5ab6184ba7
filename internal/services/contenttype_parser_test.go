package services

import (
	"errors"
	"testing"
)

func TestParseContentTypes(t *testing.T) {
	types, err := ParseContentTypes(testContentTypes)
	if err != nil {
		t.Fatalf("ParseContentTypes() error = %v", err)
	}

	if len(types) != 3 {
		t.Fatalf("expected 3 content types, got %d", len(types))
	}

	pages := types[0]
	if pages.Slug != "pages" || pages.Name != "Pages" {
		t.Errorf("pages = %s (%s)", pages.Slug, pages.Name)
	}
	if types[1].Name != "entries" {
		t.Errorf("expected name to default to slug, got %q", types[1].Name)
	}

	// declaration order is kept
	if len(pages.Fields) != 2 || pages.Fields[0].Name != "title" || pages.Fields[1].Name != "checklist" {
		t.Fatalf("unexpected fields: %+v", pages.Fields)
	}
	if pages.Fields[0].Type != "text" {
		t.Errorf("shorthand type = %q, want text", pages.Fields[0].Type)
	}
	if pages.Fields[1].Type != "textlist" || pages.Fields[1].Validate != "count <= 3" {
		t.Errorf("checklist = %+v", pages.Fields[1])
	}

	if len(pages.Relations) != 2 {
		t.Fatalf("expected 2 relations, got %d", len(pages.Relations))
	}
	if !pages.Relations[0].Multiple || pages.Relations[1].Multiple {
		t.Errorf("multiple flags = %v, %v", pages.Relations[0].Multiple, pages.Relations[1].Multiple)
	}
	if !types[1].Relations[0].BiDirectional {
		t.Error("expected entries.pages to be bi-directional")
	}
}

func TestParseContentTypes_Defaults(t *testing.T) {
	types, err := ParseContentTypes("notes:\n  relations:\n    notes:\n")
	if err != nil {
		t.Fatalf("ParseContentTypes() error = %v", err)
	}
	if len(types) != 1 || len(types[0].Fields) != 0 {
		t.Fatalf("unexpected result: %+v", types)
	}
	if rel := types[0].Relations[0]; !rel.Multiple || rel.BiDirectional {
		t.Errorf("relation defaults = %+v, want multiple and single direction", rel)
	}
}

func TestParseContentTypes_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{name: "empty", source: ""},
		{name: "not a mapping", source: "- pages\n- entries\n"},
		{name: "fields not a mapping", source: "pages:\n  fields: [title]\n"},
		{name: "invalid yaml", source: "pages: [\n"},
		{name: "field with wrong shape", source: "pages:\n  fields:\n    title: [a, b]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContentTypes(tt.source)
			if !errors.Is(err, ErrInvalidContentTypes) {
				t.Errorf("ParseContentTypes() error = %v, want ErrInvalidContentTypes", err)
			}
		})
	}
}
