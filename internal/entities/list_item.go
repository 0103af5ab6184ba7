package entities

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ListItem represents a single entry of a text list field
// Example: {"title": "Buy milk"}
type ListItem struct {
	Title string `json:"title"`
}

// TextList is an ordered list of items stored as one JSON-encoded column value.
// Order is meaningful and duplicates are allowed.
type TextList []ListItem

// NewTextList creates a text list from plain titles
func NewTextList(titles ...string) TextList {
	list := make(TextList, 0, len(titles))
	for _, title := range titles {
		list = append(list, ListItem{Title: title})
	}
	return list
}

// Titles returns the item titles in list order
func (l TextList) Titles() []string {
	titles := make([]string, 0, len(l))
	for _, item := range l {
		titles = append(titles, item.Title)
	}
	return titles
}

// Marshal serializes the list to its stored JSON form.
// A nil list is encoded as "[]".
func (l TextList) Marshal() (string, error) {
	if l == nil {
		l = TextList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("failed to marshal text list: %w", err)
	}
	return string(data), nil
}

// ParseTextList deserializes a stored JSON value.
// Blank input yields an empty list.
func ParseTextList(raw string) (TextList, error) {
	if strings.TrimSpace(raw) == "" || strings.TrimSpace(raw) == "null" {
		return TextList{}, nil
	}

	var list TextList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal text list: %w", err)
	}
	if list == nil {
		list = TextList{}
	}
	return list, nil
}
