package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/fieldtypes"
	"github.com/asakaida/contentkit/internal/repositories"
)

// ContentTypeProvider resolves content types and their field types
type ContentTypeProvider interface {
	GetContentType(ctx context.Context, slug string) (*entities.ContentType, error)
	FieldTypes(ctx context.Context, slug string) (*entities.ContentType, []fieldtypes.FieldType, error)
}

// ContentTypeServiceInterface defines the interface for content type management operations
type ContentTypeServiceInterface interface {
	ContentTypeProvider
	WriteContentTypes(ctx context.Context, source string) (string, error)
	ReadContentTypes(ctx context.Context) (*entities.ContentTypeSet, error)
	ValidateContentTypes(ctx context.Context, source string) error
	DeleteContentTypes(ctx context.Context, version string) error
	GetContentTypeSet(ctx context.Context, version string) (*entities.ContentTypeSet, error)
}

// ContentTypeService handles versioned content type definitions
type ContentTypeService struct {
	repo     repositories.ContentTypeRepository
	registry *fieldtypes.Registry

	mu         sync.RWMutex
	current    *entities.ContentTypeSet
	fieldTypes map[string][]fieldtypes.FieldType
}

// NewContentTypeService creates a new ContentTypeService
func NewContentTypeService(repo repositories.ContentTypeRepository, registry *fieldtypes.Registry) *ContentTypeService {
	if registry == nil {
		registry = fieldtypes.NewRegistry()
	}
	return &ContentTypeService{
		repo:     repo,
		registry: registry,
	}
}

// Registry returns the field type registry definitions are validated against
func (s *ContentTypeService) Registry() *fieldtypes.Registry {
	return s.registry
}

// WriteContentTypes parses and validates definitions and stores them as a new version
func (s *ContentTypeService) WriteContentTypes(ctx context.Context, source string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("%w: content type definitions are required", ErrInvalidArgument)
	}

	set, built, err := s.build(source)
	if err != nil {
		return "", err
	}

	// Always create a new version
	version, err := s.repo.Create(ctx, source)
	if err != nil {
		return "", fmt.Errorf("failed to create content type version: %w", err)
	}

	set.Version = version
	s.activate(set, built)
	return version, nil
}

// ReadContentTypes retrieves the latest definitions
func (s *ContentTypeService) ReadContentTypes(ctx context.Context) (*entities.ContentTypeSet, error) {
	return s.GetContentTypeSet(ctx, "")
}

// ValidateContentTypes validates definitions without saving them
func (s *ContentTypeService) ValidateContentTypes(ctx context.Context, source string) error {
	if source == "" {
		return fmt.Errorf("%w: content type definitions are required", ErrInvalidArgument)
	}
	_, _, err := s.build(source)
	return err
}

// DeleteContentTypes deletes a definition version.
// The active definitions are reloaded on next use.
func (s *ContentTypeService) DeleteContentTypes(ctx context.Context, version string) error {
	if version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidArgument)
	}

	if err := s.repo.Delete(ctx, version); err != nil {
		return fmt.Errorf("failed to delete content types: %w", err)
	}

	s.mu.Lock()
	if s.current != nil && s.current.Version == version {
		s.current = nil
		s.fieldTypes = nil
	}
	s.mu.Unlock()
	return nil
}

// GetContentTypeSet retrieves parsed definitions.
// version="" means use the latest version
func (s *ContentTypeService) GetContentTypeSet(ctx context.Context, version string) (*entities.ContentTypeSet, error) {
	var stored *entities.ContentTypeSet
	var err error

	if version == "" {
		stored, err = s.repo.GetLatestVersion(ctx)
	} else {
		stored, err = s.repo.GetByVersion(ctx, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content types: %w", err)
	}

	set, _, err := s.build(stored.Source)
	if err != nil {
		return nil, fmt.Errorf("stored version %s: %w", stored.Version, err)
	}

	// Preserve metadata from database
	set.Version = stored.Version
	set.CreatedAt = stored.CreatedAt
	return set, nil
}

// GetContentType returns an active content type by slug
func (s *ContentTypeService) GetContentType(ctx context.Context, slug string) (*entities.ContentType, error) {
	ct, _, err := s.FieldTypes(ctx, slug)
	return ct, err
}

// FieldTypes returns an active content type together with its field types,
// fields first and relations last, each in declaration order
func (s *ContentTypeService) FieldTypes(ctx context.Context, slug string) (*entities.ContentType, []fieldtypes.FieldType, error) {
	if slug == "" {
		return nil, nil, fmt.Errorf("%w: content type is required", ErrInvalidArgument)
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ct := s.current.GetType(slug)
	if ct == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrContentTypeNotFound, slug)
	}
	return ct, s.fieldTypes[slug], nil
}

func (s *ContentTypeService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.current != nil
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	stored, err := s.repo.GetLatestVersion(ctx)
	if errors.Is(err, repositories.ErrContentTypesNotFound) {
		return fmt.Errorf("%w: no content types defined", ErrContentTypeNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get content types: %w", err)
	}

	set, built, err := s.build(stored.Source)
	if err != nil {
		return fmt.Errorf("stored version %s: %w", stored.Version, err)
	}
	set.Version = stored.Version
	set.CreatedAt = stored.CreatedAt

	s.activate(set, built)
	return nil
}

func (s *ContentTypeService) activate(set *entities.ContentTypeSet, built map[string][]fieldtypes.FieldType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = set
	s.fieldTypes = built
}

// build parses and validates definitions and creates the field types of every content type
func (s *ContentTypeService) build(source string) (*entities.ContentTypeSet, map[string][]fieldtypes.FieldType, error) {
	types, err := ParseContentTypes(source)
	if err != nil {
		return nil, nil, err
	}

	set := &entities.ContentTypeSet{Source: source, Types: types}
	if err := validateContentTypes(set); err != nil {
		return nil, nil, err
	}

	built := make(map[string][]fieldtypes.FieldType, len(types))
	for _, ct := range types {
		fts, err := s.registry.ForContentType(ct)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidContentTypes, err)
		}
		built[ct.Slug] = fts
	}

	return set, built, nil
}

// reservedFieldNames are the columns every record query selects
var reservedFieldNames = map[string]bool{
	"id":                          true,
	"contenttype":                 true,
	"created_at":                  true,
	"updated_at":                  true,
	"field_values":                true,
	fieldtypes.RelationRowsColumn: true,
}

// validateContentTypes checks the rules the field type registry does not cover
func validateContentTypes(set *entities.ContentTypeSet) error {
	seen := make(map[string]bool, len(set.Types))
	for _, ct := range set.Types {
		if seen[ct.Slug] {
			return fmt.Errorf("%w: duplicate content type %s", ErrInvalidContentTypes, ct.Slug)
		}
		seen[ct.Slug] = true
	}

	for _, ct := range set.Types {
		names := make(map[string]bool)
		for _, f := range ct.Fields {
			if names[f.Name] {
				return fmt.Errorf("%w: duplicate field %s.%s", ErrInvalidContentTypes, ct.Slug, f.Name)
			}
			names[f.Name] = true

			if reservedFieldNames[f.Name] {
				return fmt.Errorf("%w: field %s.%s: name is reserved", ErrInvalidContentTypes, ct.Slug, f.Name)
			}
			if f.Validate != "" && f.Type != "textlist" {
				return fmt.Errorf("%w: field %s.%s: validate is only supported on textlist fields",
					ErrInvalidContentTypes, ct.Slug, f.Name)
			}
		}

		for _, r := range ct.Relations {
			if names[r.Name] {
				return fmt.Errorf("%w: relation %s.%s conflicts with a field of the same name",
					ErrInvalidContentTypes, ct.Slug, r.Name)
			}
			names[r.Name] = true

			if !seen[r.Name] {
				return fmt.Errorf("%w: relation %s.%s targets undefined content type %s",
					ErrInvalidContentTypes, ct.Slug, r.Name, r.Name)
			}
		}
	}

	return nil
}
