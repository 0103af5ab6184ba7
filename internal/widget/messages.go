package widget

import (
	_ "embed"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Message keys used by the textlist widget
const (
	MsgTextlistRemove      = "field.textlist.message.remove"
	MsgTextlistRemoveMulti = "field.textlist.message.removeMulti"
	MsgTextlistEmpty       = "field.textlist.template.empty"
)

//go:embed messages.yaml
var defaultMessages []byte

// Messages resolves message keys to display text
type Messages interface {
	Get(key string) string
}

// Catalog is a flat key → text message table.
// Unknown keys resolve to the key itself.
type Catalog map[string]string

// Get returns the text of key, or key when missing
func (c Catalog) Get(key string) string {
	if text, ok := c[key]; ok {
		return text
	}
	return key
}

// Keys returns the message keys, sorted
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge overrides entries of c with other
func (c Catalog) Merge(other Catalog) Catalog {
	merged := make(Catalog, len(c)+len(other))
	for k, v := range c {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// ParseCatalog decodes a YAML message file.
// Nested mappings are flattened with "." separators, so
// "field: {textlist: {message: {remove: ...}}}" and
// "field.textlist.message.remove: ..." are equivalent.
func ParseCatalog(data []byte) (Catalog, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse message catalog: %w", err)
	}

	catalog := make(Catalog)
	if err := flatten(catalog, "", raw); err != nil {
		return nil, err
	}
	return catalog, nil
}

// LoadCatalog reads a YAML message file and merges it over the defaults
func LoadCatalog(r io.Reader) (Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message catalog: %w", err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	return DefaultCatalog().Merge(catalog), nil
}

// DefaultCatalog returns the built-in English messages
func DefaultCatalog() Catalog {
	catalog, err := ParseCatalog(defaultMessages)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded messages: %v", err))
	}
	return catalog
}

func flatten(into Catalog, prefix string, node map[string]interface{}) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			if err := flatten(into, key, val); err != nil {
				return err
			}
		case string:
			into[key] = val
		case nil:
			into[key] = ""
		case int, float64, bool:
			into[key] = fmt.Sprintf("%v", val)
		default:
			return fmt.Errorf("message %s: unsupported value of type %T", key, v)
		}
	}
	return nil
}
