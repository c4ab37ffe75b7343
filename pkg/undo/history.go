package undo

import (
	"fmt"

	"transcription-editor/pkg/store"
)

// History is the pair of undo and redo stacks of one editing session.
// There is no undo tree: a new action discards the redo stack.
type History struct {
	undo []Action
	redo []Action
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Push records an action that has already been applied.
func (h *History) Push(a Action) {
	h.undo = append(h.undo, a)
	h.redo = nil
}

// Do applies a to st and records it. Nothing is recorded if the mutation fails.
func (h *History) Do(st *store.Store, a Action) error {
	if err := a.Replay(st); err != nil {
		return fmt.Errorf("apply %s: %w", a.Kind(), err)
	}
	h.Push(a)
	return nil
}

// Undo replays the inverse of the most recent action and moves it to the redo
// stack. It returns the inverse that was replayed.
//
// If the replay fails the store is left untouched and the action is dropped.
// The inverse is still returned with the error so the caller can report it.
func (h *History) Undo(st *store.Store) (Action, error) {
	a, ok := pop(&h.undo)
	if !ok {
		return nil, fmt.Errorf("undo: %w", ErrNothingToReplay)
	}
	inv := a.Invert()
	if err := inv.Replay(st); err != nil {
		return inv, fmt.Errorf("undo %s: %w", a.Kind(), err)
	}
	h.redo = append(h.redo, inv)
	return inv, nil
}

// Redo is the mirror of Undo.
func (h *History) Redo(st *store.Store) (Action, error) {
	a, ok := pop(&h.redo)
	if !ok {
		return nil, fmt.Errorf("redo: %w", ErrNothingToReplay)
	}
	inv := a.Invert()
	if err := inv.Replay(st); err != nil {
		return inv, fmt.Errorf("redo %s: %w", a.Kind(), err)
	}
	h.undo = append(h.undo, inv)
	return inv, nil
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }
func (h *History) UndoLen() int  { return len(h.undo) }
func (h *History) RedoLen() int  { return len(h.redo) }

// Clear drops both stacks. Used when a session loads a new document.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

func pop(stack *[]Action) (Action, bool) {
	s := *stack
	if len(s) == 0 {
		return nil, false
	}
	a := s[len(s)-1]
	s[len(s)-1] = nil
	*stack = s[:len(s)-1]
	return a, true
}
