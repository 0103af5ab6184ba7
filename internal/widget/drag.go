package widget

import "time"

// DragThreshold decides when a pointer gesture becomes a drag instead of a click.
// Both the delay and the distance have to be reached.
type DragThreshold struct {
	Delay    time.Duration
	Distance float64
}

// DefaultDragThreshold is 100ms and 5px
var DefaultDragThreshold = DragThreshold{Delay: 100 * time.Millisecond, Distance: 5}

// Started reports whether a gesture held for elapsed and moved by (dx, dy) is a drag
func (t DragThreshold) Started(elapsed time.Duration, dx, dy float64) bool {
	if elapsed < t.Delay {
		return false
	}
	return abs(dx) >= t.Distance || abs(dy) >= t.Distance
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
