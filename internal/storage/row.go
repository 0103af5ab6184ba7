package storage

import (
	"fmt"
	"strconv"
)

// Row holds the raw column values of one result row keyed by column name
type Row map[string]interface{}

// String returns the column value as text. Missing and NULL values return "".
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Has reports whether the row carries a non-NULL value for key
func (r Row) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}
