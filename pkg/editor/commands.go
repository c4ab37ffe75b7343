package editor

import (
	"fmt"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/splitter"
	"transcription-editor/pkg/undo"
)

// NewBlock creates a block of type t at the focused block.
//
// With nothing selected, or when the focused block has no text, an empty
// block is inserted right after it. Otherwise the focused block is split at
// the selection and the selected text becomes the new block. In both cases
// the new block is marked for focus.
//
// Text typed into the focused block but not yet committed is committed first,
// as its own undo step. No focus, or focus on a block that no longer exists,
// is ignored.
func (s *Session) NewBlock(focus FocusProvider, t block.Type) error {
	if !t.Valid() {
		return fmt.Errorf("new block: %w: type %d", block.ErrInvalidVariant, int(t))
	}
	target, ok := focus.ActiveTarget()
	if !ok {
		return nil
	}
	pos, ok := s.store.FindPosition(target.ID)
	if !ok {
		s.log.Debug("new block: focused block gone", "id", target.ID)
		return nil
	}

	if err := s.commitText(target); err != nil {
		return err
	}

	b := s.store.At(pos)
	if target.Selection == nil || !b.Variant.Type.ContentBearing() {
		nb := splitter.NewEmpty(t, s.langOf(b), s.store.Allocator())
		if err := s.apply(undo.Insertion{Pos: pos + 1, Block: nb.Snapshot()}); err != nil {
			return err
		}
		s.focus(nb.ID)
		return nil
	}

	res := s.splitter.Split(b, *target.Selection, t, s.store.Allocator())
	if !res.Changed() {
		return nil
	}
	inserted := make([]block.Snapshot, len(res.Inserted))
	for i, nb := range res.Inserted {
		inserted[i] = nb.Snapshot()
	}
	err := s.apply(undo.RangeReplace{
		Pos:      pos,
		Removed:  []block.Snapshot{res.Removed},
		Inserted: inserted,
	})
	if err != nil {
		return err
	}
	if f := res.Focused(); f != nil {
		s.focus(f.ID)
	}
	return nil
}

// commitText records the text in the target's input when it differs from the
// stored content. A target without text commits nothing.
func (s *Session) commitText(target Target) error {
	if target.FullText == nil {
		return nil
	}
	b, ok := s.store.Get(target.ID)
	if !ok {
		return nil
	}
	current, ok := b.Content()
	if !ok || current == *target.FullText {
		return nil
	}
	return s.apply(undo.ContentChange{
		ID:  b.ID,
		Old: b.Variant.Clone(),
		New: b.Variant.WithNewContent(*target.FullText),
	})
}

// EditContent replaces the variant of block id with v, as one undo step.
// Unknown ids and unchanged variants are ignored.
func (s *Session) EditContent(id block.ID, v block.Variant) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("edit block %d: %w", id, err)
	}
	b, ok := s.store.Get(id)
	if !ok || b.Variant.Equal(v) {
		return nil
	}
	return s.apply(undo.ContentChange{ID: id, Old: b.Variant.Clone(), New: v.Clone()})
}

// Append adds a focused block of type t holding content at the end of the document.
func (s *Session) Append(t block.Type, content string) error {
	if !t.Valid() {
		return fmt.Errorf("append: %w: type %d", block.ErrInvalidVariant, int(t))
	}
	nb := block.NewBlock(s.store.NextID(), t, s.lang, content, true)
	if err := s.apply(undo.Insertion{Pos: s.store.Len(), Block: nb.Snapshot()}); err != nil {
		return err
	}
	s.focus(nb.ID)
	return nil
}

// Delete removes block id. Unknown ids are ignored.
func (s *Session) Delete(id block.ID) error {
	pos, ok := s.store.FindPosition(id)
	if !ok {
		return nil
	}
	return s.apply(undo.Deletion{Pos: pos, Block: s.store.At(pos).Snapshot()})
}

// MoveUp swaps block id with its predecessor. The first block stays put.
func (s *Session) MoveUp(id block.ID) error {
	pos, ok := s.store.FindPosition(id)
	if !ok || pos == 0 {
		return nil
	}
	return s.apply(undo.Swap{PosA: pos - 1, PosB: pos})
}

// MoveDown swaps block id with its successor. The last block stays put.
func (s *Session) MoveDown(id block.ID) error {
	pos, ok := s.store.FindPosition(id)
	if !ok || pos == s.store.Len()-1 {
		return nil
	}
	return s.apply(undo.Swap{PosA: pos, PosB: pos + 1})
}

// Undo reverts the most recent change. An empty history returns an error
// matching undo.ErrNothingToReplay, which callers show as a notice.
func (s *Session) Undo() error {
	inv, err := s.history.Undo(s.store)
	if err != nil {
		return s.fail("undo", inv, err)
	}
	s.log.Debug("undone", "action", inv)
	return nil
}

// Redo reapplies the most recently undone change.
func (s *Session) Redo() error {
	inv, err := s.history.Redo(s.store)
	if err != nil {
		return s.fail("redo", inv, err)
	}
	s.log.Debug("redone", "action", inv)
	return nil
}

func (s *Session) langOf(b *block.Block) string {
	if lang, ok := b.Variant.Lang(); ok && lang != "" {
		return lang
	}
	return s.lang
}
