// Package store keeps the ordered block sequence of one editing session.
//
// Physical position is the only document order and is unstable under mutation;
// the logical block id is the stable identity. The mutators here are the only
// way the sequence changes.
package store

import (
	"errors"
	"fmt"

	"transcription-editor/pkg/block"
)

var (
	// ErrPositionOutOfRange indicates a physical position outside the sequence.
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrDuplicateID indicates a block whose id is already present.
	ErrDuplicateID = errors.New("duplicate block id")
)

// Store is an ordered sequence of live blocks plus the session id counter.
type Store struct {
	blocks []*block.Block
	alloc  Allocator
}

// New returns an empty store whose first allocated id is 1.
func New() *Store {
	return &Store{alloc: Allocator{next: 1}}
}

// Load hydrates snapshots into a new store and seeds the id counter past the
// largest loaded id.
func Load(snapshots []block.Snapshot) (*Store, error) {
	s := New()
	seen := make(map[block.ID]struct{}, len(snapshots))
	s.blocks = make([]*block.Block, 0, len(snapshots))
	for i, snap := range snapshots {
		if err := snap.Variant.Validate(); err != nil {
			return nil, fmt.Errorf("block %d at position %d: %w", snap.ID, i, err)
		}
		if _, ok := seen[snap.ID]; ok {
			return nil, fmt.Errorf("block %d at position %d: %w", snap.ID, i, ErrDuplicateID)
		}
		seen[snap.ID] = struct{}{}
		s.blocks = append(s.blocks, snap.Hydrate(false))
		s.alloc.observe(snap.ID)
	}
	return s, nil
}

// Snapshot returns a deep copy of the current sequence.
func (s *Store) Snapshot() []block.Snapshot {
	out := make([]block.Snapshot, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.Snapshot()
	}
	return out
}

// Len returns the number of blocks.
func (s *Store) Len() int {
	return len(s.blocks)
}

// At returns the live block at pos, or nil when pos is out of range.
func (s *Store) At(pos int) *block.Block {
	if pos < 0 || pos >= len(s.blocks) {
		return nil
	}
	return s.blocks[pos]
}

// Blocks returns the live blocks in order. The slice is a copy; the blocks are not.
func (s *Store) Blocks() []*block.Block {
	out := make([]*block.Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// FindPosition returns the physical position of the block with the given id.
// A missing id means the target no longer exists.
func (s *Store) FindPosition(id block.ID) (int, bool) {
	for i, b := range s.blocks {
		if b.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Get returns the live block with the given id.
func (s *Store) Get(id block.ID) (*block.Block, bool) {
	pos, ok := s.FindPosition(id)
	if !ok {
		return nil, false
	}
	return s.blocks[pos], true
}

// Contains reports whether a block with the given id is present.
func (s *Store) Contains(id block.ID) bool {
	_, ok := s.FindPosition(id)
	return ok
}

// Insert places b at pos, shifting later blocks right.
func (s *Store) Insert(pos int, b *block.Block) error {
	if pos < 0 || pos > len(s.blocks) {
		return fmt.Errorf("insert at %d of %d: %w", pos, len(s.blocks), ErrPositionOutOfRange)
	}
	if s.Contains(b.ID) {
		return fmt.Errorf("insert block %d: %w", b.ID, ErrDuplicateID)
	}
	s.blocks = append(s.blocks, nil)
	copy(s.blocks[pos+1:], s.blocks[pos:])
	s.blocks[pos] = b
	s.alloc.observe(b.ID)
	return nil
}

// Remove takes the block at pos out of the sequence and returns it.
func (s *Store) Remove(pos int) (*block.Block, error) {
	if pos < 0 || pos >= len(s.blocks) {
		return nil, fmt.Errorf("remove at %d of %d: %w", pos, len(s.blocks), ErrPositionOutOfRange)
	}
	b := s.blocks[pos]
	s.blocks = append(s.blocks[:pos], s.blocks[pos+1:]...)
	return b, nil
}

// Swap exchanges the blocks at a and b. Equal positions are a no-op.
func (s *Store) Swap(a, b int) error {
	if a == b {
		return nil
	}
	if a < 0 || b < 0 || a >= len(s.blocks) || b >= len(s.blocks) {
		return fmt.Errorf("swap %d and %d of %d: %w", a, b, len(s.blocks), ErrPositionOutOfRange)
	}
	s.blocks[a], s.blocks[b] = s.blocks[b], s.blocks[a]
	return nil
}

// Splice replaces the count blocks starting at pos with blocks and returns the
// removed ones. New ids must not collide with any block that stays.
func (s *Store) Splice(pos, count int, blocks ...*block.Block) ([]*block.Block, error) {
	if pos < 0 || count < 0 || pos+count > len(s.blocks) {
		return nil, fmt.Errorf("splice %d+%d of %d: %w", pos, count, len(s.blocks), ErrPositionOutOfRange)
	}
	leaving := make(map[block.ID]struct{}, count)
	for _, b := range s.blocks[pos : pos+count] {
		leaving[b.ID] = struct{}{}
	}
	incoming := make(map[block.ID]struct{}, len(blocks))
	for _, b := range blocks {
		if _, dup := incoming[b.ID]; dup {
			return nil, fmt.Errorf("splice block %d: %w", b.ID, ErrDuplicateID)
		}
		incoming[b.ID] = struct{}{}
		if _, ok := leaving[b.ID]; ok {
			continue
		}
		if s.Contains(b.ID) {
			return nil, fmt.Errorf("splice block %d: %w", b.ID, ErrDuplicateID)
		}
	}

	removed := make([]*block.Block, count)
	copy(removed, s.blocks[pos:pos+count])

	out := make([]*block.Block, 0, len(s.blocks)-count+len(blocks))
	out = append(out, s.blocks[:pos]...)
	out = append(out, blocks...)
	out = append(out, s.blocks[pos+count:]...)
	s.blocks = out
	for _, b := range blocks {
		s.alloc.observe(b.ID)
	}
	return removed, nil
}

// Replace overwrites the variant of the block at pos.
func (s *Store) Replace(pos int, v block.Variant) error {
	if pos < 0 || pos >= len(s.blocks) {
		return fmt.Errorf("replace at %d of %d: %w", pos, len(s.blocks), ErrPositionOutOfRange)
	}
	s.blocks[pos].Variant = v
	return nil
}

// NextID allocates a fresh logical id.
func (s *Store) NextID() block.ID {
	return s.alloc.Next()
}

// Allocator exposes the session id counter to the splitter.
func (s *Store) Allocator() *Allocator {
	return &s.alloc
}
