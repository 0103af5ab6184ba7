package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/asakaida/contentkit/internal/collection"
	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/fieldtypes"
)

// FormServiceInterface defines the interface for edit form submissions
type FormServiceInterface interface {
	Submit(ctx context.Context, contenttype, id string, form map[string]interface{}) (*entities.Content, string, error)
}

// FormService applies submitted edit forms to content records
type FormService struct {
	manager *EntityManager
	types   ContentTypeProvider
}

// NewFormService creates a new FormService
func NewFormService(manager *EntityManager, types ContentTypeProvider) *FormService {
	return &FormService{manager: manager, types: types}
}

// Submit applies submitted values to a record and saves it.
// An empty id creates a new record. Fields missing from the form keep their value;
// a submitted relation field replaces that field's targets, in submitted order.
// Returns the reloaded record and the write revision.
func (s *FormService) Submit(ctx context.Context, contenttype, id string, form map[string]interface{}) (*entities.Content, string, error) {
	ct, err := s.types.GetContentType(ctx, contenttype)
	if err != nil {
		return nil, "", err
	}

	entity := entities.NewContent(contenttype, "")
	if id != "" {
		entity, err = s.manager.Find(ctx, contenttype, id)
		if err != nil {
			return nil, "", err
		}
	}

	if err := applyFieldValues(ct, entity, form); err != nil {
		return nil, "", err
	}
	if err := applyRelationValues(ct, entity, form); err != nil {
		return nil, "", err
	}

	revision, err := s.manager.Save(ctx, entity)
	if err != nil {
		return nil, "", err
	}

	saved, err := s.manager.Find(ctx, contenttype, entity.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to reload %s: %w", entity.Reference(), err)
	}
	return saved, revision, nil
}

// applyFieldValues sets submitted values of the content type's fields.
// Unknown keys are rejected so typos do not silently drop input.
func applyFieldValues(ct *entities.ContentType, entity *entities.Content, form map[string]interface{}) error {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == collection.RelationFormKey || ct.GetRelation(key) != nil {
			continue
		}

		def := ct.GetField(key)
		if def == nil {
			return fmt.Errorf("%w: %s has no field %s", ErrInvalidArgument, ct.Slug, key)
		}

		value := form[key]
		if def.Type == "textlist" {
			list, err := fieldtypes.ToTextList(value)
			if err != nil {
				return fmt.Errorf("%w: field %s: %v", ErrInvalidArgument, key, err)
			}
			value = list
		}
		entity.Set(key, value)
	}
	return nil
}

// applyRelationValues replaces the relations of every submitted relation field.
// Relations of other fields and relations pointing at the record are kept.
func applyRelationValues(ct *entities.ContentType, entity *entities.Content, form map[string]interface{}) error {
	submitted := make(map[string]interface{})
	if wrapped, ok := form[collection.RelationFormKey].(map[string]interface{}); ok {
		for field, value := range wrapped {
			if ct.GetRelation(field) == nil {
				return fmt.Errorf("%w: %s has no relation field %s", ErrInvalidArgument, ct.Slug, field)
			}
			submitted[field] = value
		}
	}
	for _, def := range ct.Relations {
		if value, ok := form[def.Name]; ok {
			submitted[def.Name] = value
		}
	}
	if len(submitted) == 0 {
		return nil
	}

	incoming := collection.New(nil, nil)
	incoming.SetFromSubmittedValues(submitted, entity)

	relations := make([]*entities.Relation, 0, len(entity.Relations)+incoming.Len())
	for _, rel := range entity.Relations {
		if _, replaced := submitted[rel.ToContenttype]; replaced && rel.FromContenttype == entity.Contenttype && rel.FromID == entity.ID {
			continue
		}
		relations = append(relations, rel)
	}
	entity.Relations = append(relations, incoming.All()...)
	return nil
}
