package store

import "transcription-editor/pkg/block"

// Allocator hands out logical ids from a monotonically increasing counter.
// Retired ids are never handed out again.
type Allocator struct {
	next block.ID
}

// NewAllocator returns an allocator whose first id is start (1 if start is 0).
func NewAllocator(start block.ID) *Allocator {
	if start == 0 {
		start = 1
	}
	return &Allocator{next: start}
}

// Next returns a fresh id.
func (a *Allocator) Next() block.ID {
	if a.next == 0 {
		a.next = 1
	}
	id := a.next
	a.next++
	return id
}

// Peek returns the id the next call to Next will return.
func (a *Allocator) Peek() block.ID {
	if a.next == 0 {
		return 1
	}
	return a.next
}

// observe keeps the counter ahead of an id that entered the store from outside.
func (a *Allocator) observe(id block.ID) {
	if id >= a.next {
		a.next = id + 1
	}
}
