package services

import (
	"fmt"

	"github.com/asakaida/contentkit/internal/entities"
	"gopkg.in/yaml.v3"
)

// Content type definitions are a YAML mapping of slug to definition.
// Mappings are walked as nodes so fields keep their declaration order.
//
//	pages:
//	  name: Pages
//	  fields:
//	    title: text
//	    checklist:
//	      type: textlist
//	      validate: "count <= 10"
//	  relations:
//	    entries: { multiple: true }

type contentTypeDoc struct {
	Name      string    `yaml:"name"`
	Fields    yaml.Node `yaml:"fields"`
	Relations yaml.Node `yaml:"relations"`
}

type fieldDoc struct {
	Type     string                 `yaml:"type"`
	Label    string                 `yaml:"label"`
	Validate string                 `yaml:"validate"`
	Options  map[string]interface{} `yaml:"options"`
}

// UnmarshalYAML accepts the "title: text" shorthand as well as a full mapping
func (f *fieldDoc) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		f.Type = value.Value
		return nil
	}

	type plain fieldDoc
	return value.Decode((*plain)(f))
}

type relationDoc struct {
	Label         string `yaml:"label"`
	Multiple      *bool  `yaml:"multiple"`
	BiDirectional bool   `yaml:"bidirectional"`
}

// ParseContentTypes parses YAML content type definitions in declaration order
func ParseContentTypes(source string) ([]*entities.ContentType, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(source), &root); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidContentTypes, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: no content types defined", ErrInvalidContentTypes)
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: expected a mapping of content types", ErrInvalidContentTypes, doc.Line)
	}

	var types []*entities.ContentType
	err := eachPair(doc, func(key, value *yaml.Node) error {
		var d contentTypeDoc
		if value.Kind != 0 && value.Tag != "!!null" {
			if err := value.Decode(&d); err != nil {
				return fmt.Errorf("content type %s: %v", key.Value, err)
			}
		}

		ct := &entities.ContentType{Slug: key.Value, Name: d.Name}
		if ct.Name == "" {
			ct.Name = key.Value
		}

		if err := eachPair(&d.Fields, func(name, node *yaml.Node) error {
			var f fieldDoc
			if err := node.Decode(&f); err != nil {
				return fmt.Errorf("field %s.%s: %v", ct.Slug, name.Value, err)
			}
			ct.Fields = append(ct.Fields, &entities.FieldDefinition{
				Name:     name.Value,
				Type:     f.Type,
				Label:    f.Label,
				Validate: f.Validate,
				Options:  f.Options,
			})
			return nil
		}); err != nil {
			return err
		}

		if err := eachPair(&d.Relations, func(name, node *yaml.Node) error {
			var r relationDoc
			if node.Tag != "!!null" {
				if err := node.Decode(&r); err != nil {
					return fmt.Errorf("relation %s.%s: %v", ct.Slug, name.Value, err)
				}
			}
			multiple := true
			if r.Multiple != nil {
				multiple = *r.Multiple
			}
			ct.Relations = append(ct.Relations, &entities.RelationDefinition{
				Name:          name.Value,
				Label:         r.Label,
				Multiple:      multiple,
				BiDirectional: r.BiDirectional,
			})
			return nil
		}); err != nil {
			return err
		}

		types = append(types, ct)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContentTypes, err)
	}

	return types, nil
}

// eachPair calls fn for every key/value pair of a mapping node.
// An absent or null node has no pairs.
func eachPair(node *yaml.Node, fn func(key, value *yaml.Node) error) error {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i], node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
