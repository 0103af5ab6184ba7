package widget

import "sort"

// Modifiers are the keyboard modifiers held during a click
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Meta  bool
}

// SelectionState summarizes how many items are selected
type SelectionState int

const (
	NoSelection SelectionState = iota
	SingleSelected
	MultiSelected
)

func (s SelectionState) String() string {
	switch s {
	case SingleSelected:
		return "single-selected"
	case MultiSelected:
		return "multi-selected"
	default:
		return "no-selection"
	}
}

// Selection tracks which items of a list are selected.
//
// Plain click selects the item exclusively, or toggles it when nothing else
// was selected. Shift-click selects the contiguous range between the last
// clicked item and the clicked one. Ctrl/Cmd-click toggles one item.
type Selection struct {
	selected  []bool
	lastClick int
}

// NewSelection creates an empty selection over n items
func NewSelection(n int) *Selection {
	if n < 0 {
		n = 0
	}
	return &Selection{selected: make([]bool, n)}
}

// Len returns the number of items
func (s *Selection) Len() int {
	return len(s.selected)
}

// LastClick returns the index shift-click ranges start from
func (s *Selection) LastClick() int {
	return s.lastClick
}

// Click applies a click on item i. Out of range clicks are ignored.
func (s *Selection) Click(i int, mod Modifiers) {
	if i < 0 || i >= len(s.selected) {
		return
	}

	switch {
	case mod.Shift:
		begin, end := s.lastClick, i
		if begin > end {
			begin, end = end, begin
		}
		for idx := range s.selected {
			s.selected[idx] = idx >= begin && idx <= end
		}

	case mod.Ctrl || mod.Meta:
		s.selected[i] = !s.selected[i]
		s.lastClick = i

	default:
		others := 0
		for idx, sel := range s.selected {
			if sel && idx != i {
				others++
				s.selected[idx] = false
			}
		}
		if others > 0 {
			s.selected[i] = true
		} else {
			s.selected[i] = !s.selected[i]
		}
		s.lastClick = i
	}
}

// Select marks item i as selected
func (s *Selection) Select(i int) {
	if i >= 0 && i < len(s.selected) {
		s.selected[i] = true
	}
}

// Clear deselects all items
func (s *Selection) Clear() {
	for i := range s.selected {
		s.selected[i] = false
	}
}

// IsSelected reports whether item i is selected
func (s *Selection) IsSelected(i int) bool {
	return i >= 0 && i < len(s.selected) && s.selected[i]
}

// Selected returns the selected indices in ascending order
func (s *Selection) Selected() []int {
	var result []int
	for i, sel := range s.selected {
		if sel {
			result = append(result, i)
		}
	}
	return result
}

// State returns the selection state
func (s *Selection) State() SelectionState {
	switch n := len(s.Selected()); {
	case n == 0:
		return NoSelection
	case n == 1:
		return SingleSelected
	default:
		return MultiSelected
	}
}

// Append adds an unselected item at the end
func (s *Selection) Append() {
	s.selected = append(s.selected, false)
}

// Remove drops the given items, keeping the selection of the others.
// The shift-click anchor follows its item, or resets to 0 when it is removed.
func (s *Selection) Remove(indices ...int) {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}

	anchor := 0
	kept := s.selected[:0]
	for i, sel := range s.selected {
		if drop[i] {
			continue
		}
		if i == s.lastClick {
			anchor = len(kept)
		}
		kept = append(kept, sel)
	}
	s.selected = kept
	s.lastClick = anchor
}

// MoveBlock moves the given items, in their current order, so that the block
// starts at position to of the list that remains once the block is taken out.
// It returns the resulting order as old indices.
func (s *Selection) MoveBlock(indices []int, to int) []int {
	order := BlockOrder(len(s.selected), indices, to)

	moved := make([]bool, len(order))
	anchor := s.lastClick
	for newIdx, oldIdx := range order {
		moved[newIdx] = s.selected[oldIdx]
		if oldIdx == s.lastClick {
			anchor = newIdx
		}
	}
	s.selected = moved
	s.lastClick = anchor
	return order
}

// BlockOrder computes the item order after moving a block of items.
// Indices out of range are ignored and to is clamped.
func BlockOrder(n int, indices []int, to int) []int {
	inBlock := make(map[int]bool, len(indices))
	var block []int
	for _, i := range indices {
		if i >= 0 && i < n && !inBlock[i] {
			inBlock[i] = true
			block = append(block, i)
		}
	}
	sort.Ints(block)

	rest := make([]int, 0, n-len(block))
	for i := 0; i < n; i++ {
		if !inBlock[i] {
			rest = append(rest, i)
		}
	}

	if to < 0 {
		to = 0
	}
	if to > len(rest) {
		to = len(rest)
	}

	order := make([]int, 0, n)
	order = append(order, rest[:to]...)
	order = append(order, block...)
	order = append(order, rest[to:]...)
	return order
}
