package handlers

import (
	"context"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/fieldtypes"
)

// Mock ContentManager
type mockContentManager struct {
	findFunc     func(ctx context.Context, contenttype, id string) (*entities.Content, error)
	relatedFunc  func(ctx context.Context, contenttype, id, field string) ([]*entities.Content, error)
	incomingFunc func(ctx context.Context, contenttype, id string) ([]*entities.Relation, error)
	relateFunc   func(ctx context.Context, contenttype, id, field string, targetIDs []string) error
	unrelateFunc func(ctx context.Context, contenttype, id, field string, targetIDs []string) error
	deleteFunc   func(ctx context.Context, contenttype, id string) error
}

func (m *mockContentManager) Find(ctx context.Context, contenttype, id string) (*entities.Content, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, contenttype, id)
	}
	return entities.NewContent(contenttype, id), nil
}

// Present returns id, contenttype and every held value
func (m *mockContentManager) Present(ctx context.Context, entity *entities.Content) (map[string]interface{}, error) {
	result := map[string]interface{}{
		"id":          entity.ID,
		"contenttype": entity.Contenttype,
	}
	for field, value := range entity.Values {
		result[field] = value
	}
	return result, nil
}

func (m *mockContentManager) Related(ctx context.Context, contenttype, id, field string) ([]*entities.Content, error) {
	if m.relatedFunc != nil {
		return m.relatedFunc(ctx, contenttype, id, field)
	}
	return nil, nil
}

func (m *mockContentManager) Incoming(ctx context.Context, contenttype, id string) ([]*entities.Relation, error) {
	if m.incomingFunc != nil {
		return m.incomingFunc(ctx, contenttype, id)
	}
	return nil, nil
}

func (m *mockContentManager) Relate(ctx context.Context, contenttype, id, field string, targetIDs []string) error {
	if m.relateFunc != nil {
		return m.relateFunc(ctx, contenttype, id, field, targetIDs)
	}
	return nil
}

func (m *mockContentManager) Unrelate(ctx context.Context, contenttype, id, field string, targetIDs []string) error {
	if m.unrelateFunc != nil {
		return m.unrelateFunc(ctx, contenttype, id, field, targetIDs)
	}
	return nil
}

func (m *mockContentManager) Delete(ctx context.Context, contenttype, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, contenttype, id)
	}
	return nil
}

// Mock FormService
type mockFormService struct {
	submitFunc func(ctx context.Context, contenttype, id string, form map[string]interface{}) (*entities.Content, string, error)
}

func (m *mockFormService) Submit(ctx context.Context, contenttype, id string, form map[string]interface{}) (*entities.Content, string, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, contenttype, id, form)
	}
	return entities.NewContent(contenttype, "1"), "1", nil
}

// Mock ContentTypeService
type mockContentTypeService struct {
	getTypeFunc  func(ctx context.Context, slug string) (*entities.ContentType, error)
	writeFunc    func(ctx context.Context, source string) (string, error)
	getSetFunc   func(ctx context.Context, version string) (*entities.ContentTypeSet, error)
	validateFunc func(ctx context.Context, source string) error
	deleteFunc   func(ctx context.Context, version string) error
}

func (m *mockContentTypeService) GetContentType(ctx context.Context, slug string) (*entities.ContentType, error) {
	if m.getTypeFunc != nil {
		return m.getTypeFunc(ctx, slug)
	}
	return &entities.ContentType{Slug: slug}, nil
}

func (m *mockContentTypeService) FieldTypes(ctx context.Context, slug string) (*entities.ContentType, []fieldtypes.FieldType, error) {
	return &entities.ContentType{Slug: slug}, nil, nil
}

func (m *mockContentTypeService) WriteContentTypes(ctx context.Context, source string) (string, error) {
	if m.writeFunc != nil {
		return m.writeFunc(ctx, source)
	}
	return "1", nil
}

func (m *mockContentTypeService) ReadContentTypes(ctx context.Context) (*entities.ContentTypeSet, error) {
	return m.GetContentTypeSet(ctx, "")
}

func (m *mockContentTypeService) ValidateContentTypes(ctx context.Context, source string) error {
	if m.validateFunc != nil {
		return m.validateFunc(ctx, source)
	}
	return nil
}

func (m *mockContentTypeService) DeleteContentTypes(ctx context.Context, version string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, version)
	}
	return nil
}

func (m *mockContentTypeService) GetContentTypeSet(ctx context.Context, version string) (*entities.ContentTypeSet, error) {
	if m.getSetFunc != nil {
		return m.getSetFunc(ctx, version)
	}
	return &entities.ContentTypeSet{Version: "1"}, nil
}

// Mock TypeInvalidator
type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) InvalidateContentType(ctx context.Context, contenttype string) {
	m.invalidated = append(m.invalidated, contenttype)
}
