package fieldtypes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/asakaida/contentkit/internal/entities"
)

// Constructor builds a field type bound to a definition
type Constructor func(def *entities.FieldDefinition) (FieldType, error)

// Registry maps field type names to constructors
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates a registry with the built-in text and textlist types.
// Relation fields are built from relation definitions, see ForContentType.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register("text", func(def *entities.FieldDefinition) (FieldType, error) {
		return NewTextType(def), nil
	})
	r.Register("textlist", func(def *entities.FieldDefinition) (FieldType, error) {
		return NewTextListType(def)
	})
	return r
}

// Register adds or replaces a field type
func (r *Registry) Register(name string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = constructor
}

// Has reports whether a field type is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[name]
	return ok
}

// Names returns the registered type names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the field type of a definition. An empty type means "text".
func (r *Registry) Build(def *entities.FieldDefinition) (FieldType, error) {
	name := def.Type
	if name == "" {
		name = "text"
	}

	r.mu.RLock()
	constructor, ok := r.constructors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (field %s)", ErrUnknownType, name, def.Name)
	}

	return constructor(def)
}

// ForContentType builds the field types of every field and relation of a content type,
// fields first, each group in declaration order
func (r *Registry) ForContentType(ct *entities.ContentType) ([]FieldType, error) {
	types := make([]FieldType, 0, len(ct.Fields)+len(ct.Relations))
	for _, def := range ct.Fields {
		ft, err := r.Build(def)
		if err != nil {
			return nil, fmt.Errorf("content type %s: %w", ct.Slug, err)
		}
		types = append(types, ft)
	}
	for _, def := range ct.Relations {
		types = append(types, NewRelationType(def))
	}
	return types, nil
}
