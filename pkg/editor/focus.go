package editor

import (
	"transcription-editor/pkg/block"
	"transcription-editor/pkg/splitter"
)

// Target is the block being edited when a command fires.
type Target struct {
	ID block.ID
	// Selection is nil when nothing is selected.
	Selection *splitter.Selection
	// FullText is the text currently in the block's input, which may be ahead
	// of the stored content. Nil means the caller does not know it and the
	// stored content is kept.
	FullText *string
}

// FocusProvider answers which block has focus and what is selected in it.
// It is read synchronously when a command fires.
type FocusProvider interface {
	ActiveTarget() (Target, bool)
}

// FocusFunc adapts a function to FocusProvider.
type FocusFunc func() (Target, bool)

func (f FocusFunc) ActiveTarget() (Target, bool) {
	return f()
}

// StaticFocus is a fixed answer, as carried by a transport message.
// A nil Target means nothing has focus.
type StaticFocus struct {
	Target *Target
}

func (f StaticFocus) ActiveTarget() (Target, bool) {
	if f.Target == nil {
		return Target{}, false
	}
	return *f.Target, true
}

// NoFocus is a provider for which nothing has focus.
var NoFocus FocusProvider = StaticFocus{}

// Caret returns a focus on id with a caret at the end of text.
func Caret(id block.ID, text string, units splitter.Units) StaticFocus {
	n := splitter.CharCount(text, units)
	return StaticFocus{Target: &Target{ID: id, Selection: &splitter.Selection{Start: n, End: n}, FullText: &text}}
}
