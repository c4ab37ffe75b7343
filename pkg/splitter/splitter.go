package splitter

import "transcription-editor/pkg/block"

// Allocator hands out fresh logical ids.
type Allocator interface {
	Next() block.ID
}

// Result describes how one block is replaced by the blocks cut from it.
type Result struct {
	// Removed is the target as it was before the split.
	Removed block.Snapshot
	// Inserted are the fragments in document order, each with a fresh id.
	Inserted []*block.Block
}

// Changed reports whether the split produced anything. Content-free targets
// cannot be split.
func (r Result) Changed() bool {
	return len(r.Inserted) > 0
}

// Focused returns the fragment marked for focus, or nil.
func (r Result) Focused() *block.Block {
	for _, b := range r.Inserted {
		if b.Focus {
			return b
		}
	}
	return nil
}

// Splitter cuts blocks at selections counted in Units.
type Splitter struct {
	Units Units
}

// New returns a Splitter counting selections in units.
func New(units Units) *Splitter {
	return &Splitter{Units: units}
}

// Split cuts target at sel into up to three blocks: the text before the
// selection and after it keep target's type and secondary fields, the
// selected text becomes a focused block of newType. Every fragment gets a
// fresh id, so the target's id is retired.
//
// A selection covering the whole text produces a single block of newType.
// The target itself is not modified.
func (s *Splitter) Split(target *block.Block, sel Selection, newType block.Type, alloc Allocator) Result {
	content, ok := target.Content()
	if !ok {
		return Result{Removed: target.Snapshot()}
	}
	start, end := Bounds(content, sel, s.Units)

	frags := target.Variant.SplitAt(start, end, newType)
	res := Result{
		Removed:  target.Snapshot(),
		Inserted: make([]*block.Block, 0, len(frags)),
	}
	for _, f := range frags {
		res.Inserted = append(res.Inserted, &block.Block{
			ID:      alloc.Next(),
			Variant: f.Variant,
			Focus:   f.Focus,
		})
	}
	return res
}

// NewEmpty returns a focused, empty block of type t with a fresh id. It is
// what a command produces when nothing is selected.
func NewEmpty(t block.Type, lang string, alloc Allocator) *block.Block {
	return block.NewBlock(alloc.Next(), t, lang, "", true)
}
