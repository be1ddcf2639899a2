package triage

import "github.com/kingrea/retorno/internal/roster"

// Navigator is a cursor into the untouched queue. The queue shrinks as
// records are contacted, so every method takes the current queue length and
// clamps against it rather than caching a length.
type Navigator struct {
	cursor int
}

// NewNavigator starts at position start (negative values become 0).
func NewNavigator(start int) *Navigator {
	if start < 0 {
		start = 0
	}
	return &Navigator{cursor: start}
}

// Position clamps the cursor into [0, max(0, length-1)] and returns it.
func (n *Navigator) Position(length int) int {
	if length <= 0 || n.cursor < 0 {
		n.cursor = 0
	} else if n.cursor > length-1 {
		n.cursor = length - 1
	}
	return n.cursor
}

// Next moves forward one step. It reports false at the last position.
func (n *Navigator) Next(length int) bool {
	pos := n.Position(length)
	if pos >= length-1 {
		return false
	}
	n.cursor = pos + 1
	return true
}

// Prev moves back one step. It reports false at position 0.
func (n *Navigator) Prev(length int) bool {
	pos := n.Position(length)
	if pos == 0 {
		return false
	}
	n.cursor = pos - 1
	return true
}

// Current returns queue[cursor]. ok is false when the queue is exhausted.
func (n *Navigator) Current(queue []roster.Record) (rec roster.Record, ok bool) {
	if len(queue) == 0 {
		n.cursor = 0
		return roster.Record{}, false
	}
	return queue[n.Position(len(queue))], true
}
