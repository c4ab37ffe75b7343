// Package undo records every mutation of a block store as an invertible action
// and replays inverses to undo and redo them.
package undo

import (
	"fmt"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/store"
)

// Action is one recorded mutation. The set of actions is closed: ContentChange,
// Swap, Insertion, Deletion and RangeReplace.
//
// Replay verifies the store holds the expected pre-state before it mutates
// anything, so a failed replay leaves the store untouched.
type Action interface {
	// Kind names the action for logs and transports.
	Kind() string
	// Invert returns the action that undoes this one.
	Invert() Action
	// Replay applies the action to st.
	Replay(st *store.Store) error

	action()
}

// ContentChange replaces the variant of one block.
type ContentChange struct {
	ID  block.ID
	Old block.Variant
	New block.Variant
}

// Swap exchanges the blocks at two positions.
type Swap struct {
	PosA int
	PosB int
}

// Insertion places Block at Pos.
type Insertion struct {
	Pos   int
	Block block.Snapshot
}

// Deletion removes Block from Pos.
type Deletion struct {
	Pos   int
	Block block.Snapshot
}

// RangeReplace replaces the contiguous run Removed starting at Pos with Inserted.
// Splitting a block records one of these.
type RangeReplace struct {
	Pos      int
	Removed  []block.Snapshot
	Inserted []block.Snapshot
}

var (
	_ Action = ContentChange{}
	_ Action = Swap{}
	_ Action = Insertion{}
	_ Action = Deletion{}
	_ Action = RangeReplace{}
)

func (ContentChange) action() {}
func (Swap) action()          {}
func (Insertion) action()     {}
func (Deletion) action()      {}
func (RangeReplace) action()  {}

func (ContentChange) Kind() string { return "content_change" }
func (Swap) Kind() string          { return "swap" }
func (Insertion) Kind() string     { return "insertion" }
func (Deletion) Kind() string      { return "deletion" }
func (RangeReplace) Kind() string  { return "range_replace" }

func (a ContentChange) String() string {
	return fmt.Sprintf("content_change(id=%d %s->%s)", a.ID, a.Old.Type, a.New.Type)
}

func (a Swap) String() string {
	return fmt.Sprintf("swap(%d,%d)", a.PosA, a.PosB)
}

func (a Insertion) String() string {
	return fmt.Sprintf("insertion(pos=%d id=%d)", a.Pos, a.Block.ID)
}

func (a Deletion) String() string {
	return fmt.Sprintf("deletion(pos=%d id=%d)", a.Pos, a.Block.ID)
}

func (a RangeReplace) String() string {
	return fmt.Sprintf("range_replace(pos=%d removed=%v inserted=%v)", a.Pos, snapshotIDs(a.Removed), snapshotIDs(a.Inserted))
}

func (a ContentChange) Invert() Action {
	return ContentChange{ID: a.ID, Old: a.New, New: a.Old}
}

func (a Swap) Invert() Action {
	return Swap{PosA: a.PosB, PosB: a.PosA}
}

func (a Insertion) Invert() Action {
	return Deletion(a)
}

func (a Deletion) Invert() Action {
	return Insertion(a)
}

func (a RangeReplace) Invert() Action {
	return RangeReplace{Pos: a.Pos, Removed: a.Inserted, Inserted: a.Removed}
}

// Replay overwrites the block's variant after checking it still holds Old.
func (a ContentChange) Replay(st *store.Store) error {
	pos, ok := st.FindPosition(a.ID)
	if !ok {
		return &BlockNotFoundError{ID: a.ID}
	}
	if !st.At(pos).Variant.Equal(a.Old) {
		return inconsistent("block %d does not hold the expected content", a.ID)
	}
	return st.Replace(pos, a.New.Clone())
}

// Replay swaps the two positions. Equal positions succeed without a change.
func (a Swap) Replay(st *store.Store) error {
	if a.PosA == a.PosB {
		return nil
	}
	if !inBounds(st, a.PosA) || !inBounds(st, a.PosB) {
		return inconsistent("swap %d and %d outside %d blocks", a.PosA, a.PosB, st.Len())
	}
	return st.Swap(a.PosA, a.PosB)
}

// Replay inserts the block after checking its id is free.
func (a Insertion) Replay(st *store.Store) error {
	if st.Contains(a.Block.ID) {
		return inconsistent("block %d already present", a.Block.ID)
	}
	if a.Pos < 0 || a.Pos > st.Len() {
		return inconsistent("insert at %d outside %d blocks", a.Pos, st.Len())
	}
	return st.Insert(a.Pos, a.Block.Hydrate(false))
}

// Replay removes the block after checking Pos holds exactly Block.
func (a Deletion) Replay(st *store.Store) error {
	if err := expectAt(st, a.Pos, a.Block); err != nil {
		return err
	}
	_, err := st.Remove(a.Pos)
	return err
}

// Replay splices Inserted in place of Removed after checking every removed
// block is where it is expected and no inserted id collides with a block that stays.
func (a RangeReplace) Replay(st *store.Store) error {
	if a.Pos < 0 || a.Pos+len(a.Removed) > st.Len() {
		return inconsistent("replace %d+%d outside %d blocks", a.Pos, len(a.Removed), st.Len())
	}
	leaving := make(map[block.ID]struct{}, len(a.Removed))
	for i, snap := range a.Removed {
		if err := expectAt(st, a.Pos+i, snap); err != nil {
			return err
		}
		leaving[snap.ID] = struct{}{}
	}
	for _, snap := range a.Inserted {
		if _, ok := leaving[snap.ID]; ok {
			continue
		}
		if st.Contains(snap.ID) {
			return inconsistent("block %d already present", snap.ID)
		}
	}

	blocks := make([]*block.Block, len(a.Inserted))
	for i, snap := range a.Inserted {
		blocks[i] = snap.Hydrate(false)
	}
	if _, err := st.Splice(a.Pos, len(a.Removed), blocks...); err != nil {
		return fmt.Errorf("%w: %w", ErrOldStateInconsistent, err)
	}
	return nil
}

func expectAt(st *store.Store, pos int, want block.Snapshot) error {
	got := st.At(pos)
	if got == nil || got.ID != want.ID {
		if !st.Contains(want.ID) {
			return &BlockNotFoundError{ID: want.ID}
		}
		return inconsistent("block %d is not at position %d", want.ID, pos)
	}
	if !got.Matches(want) {
		return inconsistent("block %d at position %d has changed", want.ID, pos)
	}
	return nil
}

func inBounds(st *store.Store, pos int) bool {
	return pos >= 0 && pos < st.Len()
}

func snapshotIDs(snaps []block.Snapshot) []block.ID {
	out := make([]block.ID, len(snaps))
	for i, s := range snaps {
		out[i] = s.ID
	}
	return out
}
