// Package textlist implements the textlist form widget: an editable,
// reorderable list of titled items mirrored into a hidden JSON form value.
package textlist

import (
	"fmt"
	"time"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/widget"
)

// Item is one visible row of the list
type Item struct {
	Title     string // Text of the item's textarea
	TitleAttr string // Hover title mirrored from Title
	Zombie    bool   // Marked for removal while waiting for confirmation
}

// List is the state of one textlist widget
type List struct {
	name      string
	items     []*Item
	selection *widget.Selection
	messages  widget.Messages
	threshold widget.DragThreshold
	value     string
}

// Option configures a List
type Option func(*List)

// WithMessages sets the message catalog
func WithMessages(messages widget.Messages) Option {
	return func(l *List) {
		l.messages = messages
	}
}

// WithDragThreshold sets the drag start threshold
func WithDragThreshold(threshold widget.DragThreshold) Option {
	return func(l *List) {
		l.threshold = threshold
	}
}

// New creates a widget for the form field name from its serialized value
func New(name, value string, opts ...Option) (*List, error) {
	list, err := entities.ParseTextList(value)
	if err != nil {
		return nil, fmt.Errorf("textlist %s: %w", name, err)
	}

	l := &List{
		name:      name,
		messages:  widget.DefaultCatalog(),
		threshold: widget.DefaultDragThreshold,
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, item := range list {
		l.items = append(l.items, &Item{Title: item.Title, TitleAttr: item.Title})
	}
	l.selection = widget.NewSelection(len(l.items))

	if err := l.serialize(); err != nil {
		return nil, err
	}
	return l, nil
}

// Name returns the form field name
func (l *List) Name() string {
	return l.name
}

// Items returns the visible items in list order
func (l *List) Items() []*Item {
	return l.items
}

// Len returns the number of visible items
func (l *List) Len() int {
	return len(l.items)
}

// Selection returns the selection state
func (l *List) Selection() *widget.Selection {
	return l.selection
}

// Value returns the serialized hidden form value
func (l *List) Value() string {
	return l.value
}

// Placeholder returns the empty-list message, or "" when the list has items
func (l *List) Placeholder() string {
	if len(l.items) > 0 {
		return ""
	}
	return l.messages.Get(widget.MsgTextlistEmpty)
}

// Add appends a blank item and returns its index
func (l *List) Add() (int, error) {
	l.items = append(l.items, &Item{})
	l.selection.Append()
	return len(l.items) - 1, l.serialize()
}

// Remove removes item i after confirmation. When i is selected the whole
// selection is removed, otherwise only i. Declining leaves the list unchanged.
// It reports whether anything was removed.
func (l *List) Remove(i int, confirmer widget.Confirmer) (bool, error) {
	if i < 0 || i >= len(l.items) {
		return false, fmt.Errorf("textlist %s: item %d out of range", l.name, i)
	}

	targets := []int{i}
	if l.selection.IsSelected(i) {
		targets = l.selection.Selected()
	}

	key := widget.MsgTextlistRemove
	if len(targets) > 1 {
		key = widget.MsgTextlistRemoveMulti
	}

	for _, idx := range targets {
		l.items[idx].Zombie = true
	}

	if confirmer == nil || !confirmer.Confirm(l.messages.Get(key)) {
		for _, idx := range targets {
			l.items[idx].Zombie = false
		}
		return false, nil
	}

	remaining := make([]*Item, 0, len(l.items)-len(targets))
	for _, item := range l.items {
		if !item.Zombie {
			remaining = append(remaining, item)
		}
	}
	l.items = remaining
	l.selection.Remove(targets...)

	return true, l.serialize()
}

// Click applies a click with modifiers on item i
func (l *List) Click(i int, mod widget.Modifiers) {
	l.selection.Click(i, mod)
}

// Drag moves item from, together with the rest of the selection, so the block
// lands at position to of the remaining items. Gestures below the drag
// threshold are clicks and move nothing. Only vertical movement reorders.
// It reports whether the list was reordered.
func (l *List) Drag(from, to int, elapsed time.Duration, dx, dy float64) (bool, error) {
	if from < 0 || from >= len(l.items) {
		return false, fmt.Errorf("textlist %s: item %d out of range", l.name, from)
	}
	if !l.threshold.Started(elapsed, 0, dy) {
		return false, nil
	}

	// the dragged item always travels, even when it was not selected
	l.selection.Select(from)

	order := l.selection.MoveBlock(l.selection.Selected(), to)
	moved := make([]*Item, len(order))
	for newIdx, oldIdx := range order {
		moved[newIdx] = l.items[oldIdx]
	}
	l.items = moved

	return true, l.serialize()
}

// SetTitle changes the text of item i and mirrors it into the hover title
func (l *List) SetTitle(i int, title string) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("textlist %s: item %d out of range", l.name, i)
	}
	l.items[i].Title = title
	l.items[i].TitleAttr = title
	return l.serialize()
}

// TextList returns the current items as a value
func (l *List) TextList() entities.TextList {
	list := make(entities.TextList, 0, len(l.items))
	for _, item := range l.items {
		list = append(list, entities.ListItem{Title: item.Title})
	}
	return list
}

func (l *List) serialize() error {
	value, err := l.TextList().Marshal()
	if err != nil {
		return fmt.Errorf("textlist %s: %w", l.name, err)
	}
	l.value = value
	return nil
}
