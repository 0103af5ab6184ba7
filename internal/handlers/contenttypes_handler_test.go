package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/repositories"
	"github.com/asakaida/contentkit/internal/services"
	"google.golang.org/grpc/codes"
)

// === Content Type Management Tests ===

func TestContentTypesHandler_Write_Success(t *testing.T) {
	service := &mockContentTypeService{
		writeFunc: func(ctx context.Context, source string) (string, error) {
			return "3", nil
		},
		getSetFunc: func(ctx context.Context, version string) (*entities.ContentTypeSet, error) {
			if version != "3" {
				t.Errorf("expected version 3, got %s", version)
			}
			return &entities.ContentTypeSet{
				Version: "3",
				Types:   []*entities.ContentType{{Slug: "pages"}, {Slug: "entries"}},
			}, nil
		},
	}
	invalidator := &mockInvalidator{}
	handler := NewContentTypesHandler(service, invalidator)

	resp, err := handler.Write(context.Background(), mustStruct(t, map[string]interface{}{
		"source": "pages:\n  fields:\n    title: text\n",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.AsMap()["version"] != "3" {
		t.Errorf("expected version 3, got %v", resp.AsMap()["version"])
	}
	if !reflect.DeepEqual(invalidator.invalidated, []string{"pages", "entries"}) {
		t.Errorf("expected pages and entries to be invalidated, got %v", invalidator.invalidated)
	}
}

func TestContentTypesHandler_Write_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      map[string]interface{}
		writeErr error
		want     codes.Code
	}{
		{
			name: "empty source",
			req:  map[string]interface{}{"source": ""},
			want: codes.InvalidArgument,
		},
		{
			name:     "invalid definitions",
			req:      map[string]interface{}{"source": "pages: {}"},
			writeErr: fmt.Errorf("%w: pages has no fields", services.ErrInvalidContentTypes),
			want:     codes.InvalidArgument,
		},
		{
			name:     "storage failure",
			req:      map[string]interface{}{"source": "pages: {}"},
			writeErr: errors.New("connection reset"),
			want:     codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockContentTypeService{
				writeFunc: func(ctx context.Context, source string) (string, error) {
					return "", tt.writeErr
				},
			}
			invalidator := &mockInvalidator{}
			handler := NewContentTypesHandler(service, invalidator)

			_, err := handler.Write(context.Background(), mustStruct(t, tt.req))
			assertCode(t, err, tt.want)
			if len(invalidator.invalidated) != 0 {
				t.Errorf("expected no invalidation on failure, got %v", invalidator.invalidated)
			}
		})
	}
}

func TestContentTypesHandler_Read(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service := &mockContentTypeService{
		getSetFunc: func(ctx context.Context, version string) (*entities.ContentTypeSet, error) {
			switch version {
			case "", "2":
				return &entities.ContentTypeSet{
					Version:   "2",
					Source:    "pages: {}",
					Types:     []*entities.ContentType{{Slug: "pages"}},
					CreatedAt: createdAt,
				}, nil
			}
			return nil, fmt.Errorf("%w: version %s", repositories.ErrContentTypesNotFound, version)
		},
	}
	handler := NewContentTypesHandler(service, nil)

	t.Run("latest", func(t *testing.T) {
		resp, err := handler.Read(context.Background(), mustStruct(t, map[string]interface{}{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result := resp.AsMap()
		if result["version"] != "2" || result["source"] != "pages: {}" {
			t.Errorf("unexpected response: %v", result)
		}
		if result["created_at"] != "2024-05-01T12:00:00Z" {
			t.Errorf("expected RFC3339 created_at, got %v", result["created_at"])
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := handler.Read(context.Background(), mustStruct(t, map[string]interface{}{"version": "9"}))
		assertCode(t, err, codes.NotFound)
	})
}

func TestContentTypesHandler_Validate(t *testing.T) {
	service := &mockContentTypeService{
		validateFunc: func(ctx context.Context, source string) error {
			if source == "bad" {
				return fmt.Errorf("%w: undefined relation target", services.ErrInvalidContentTypes)
			}
			return nil
		},
	}
	handler := NewContentTypesHandler(service, nil)

	resp, err := handler.Validate(context.Background(), mustStruct(t, map[string]interface{}{"source": "good"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AsMap()["valid"] != true {
		t.Errorf("expected valid definitions, got %v", resp.AsMap())
	}

	resp, err = handler.Validate(context.Background(), mustStruct(t, map[string]interface{}{"source": "bad"}))
	if err != nil {
		t.Fatalf("validation failures should be reported in the response: %v", err)
	}
	if resp.AsMap()["valid"] != false {
		t.Errorf("expected invalid definitions, got %v", resp.AsMap())
	}
	if errs := resp.AsMap()["errors"].([]interface{}); len(errs) != 1 {
		t.Errorf("expected one error, got %v", errs)
	}
}

func TestContentTypesHandler_Delete(t *testing.T) {
	service := &mockContentTypeService{
		deleteFunc: func(ctx context.Context, version string) error {
			if version != "4" {
				return fmt.Errorf("%w: version %s", repositories.ErrContentTypesNotFound, version)
			}
			return nil
		},
	}
	handler := NewContentTypesHandler(service, nil)

	if _, err := handler.Delete(context.Background(), mustStruct(t, map[string]interface{}{"version": "4"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := handler.Delete(context.Background(), mustStruct(t, map[string]interface{}{"version": "5"}))
	assertCode(t, err, codes.NotFound)

	_, err = handler.Delete(context.Background(), mustStruct(t, map[string]interface{}{}))
	assertCode(t, err, codes.InvalidArgument)
}
