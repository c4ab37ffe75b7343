// Package editor is the edit orchestrator: a Session owns one document's block
// store and undo history, resolves the focused block for each command and
// records every mutation it makes.
//
// A Session is not safe for concurrent use. Its owner runs every command on
// one goroutine.
package editor

import (
	"fmt"
	"log/slog"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/logging"
	"transcription-editor/pkg/splitter"
	"transcription-editor/pkg/store"
	"transcription-editor/pkg/undo"
)

// DefaultLanguage is used for new blocks when Options leaves it empty.
const DefaultLanguage = "grc"

// Options configures a Session.
type Options struct {
	Logger *slog.Logger
	// Units is how selection offsets count characters.
	Units splitter.Units
	// DefaultLanguage is the language of new blocks that cannot inherit one.
	DefaultLanguage string
}

// Session is one open document.
type Session struct {
	store    *store.Store
	history  *undo.History
	splitter *splitter.Splitter
	lang     string
	log      *slog.Logger
}

// NewSession returns a session over an empty document.
func NewSession(opts Options) *Session {
	lang := opts.DefaultLanguage
	if lang == "" {
		lang = DefaultLanguage
	}
	return &Session{
		store:    store.New(),
		history:  undo.NewHistory(),
		splitter: splitter.New(opts.Units),
		lang:     lang,
		log:      logging.Component(opts.Logger, "editor"),
	}
}

// Load replaces the document with snapshots. The id counter is seeded past
// the largest loaded id and the history is cleared.
func (s *Session) Load(snapshots []block.Snapshot) error {
	st, err := store.Load(snapshots)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	s.store = st
	s.history.Clear()
	return nil
}

// Snapshot returns a deep copy of the document for persistence.
func (s *Session) Snapshot() []block.Snapshot {
	return s.store.Snapshot()
}

// Blocks returns the live blocks for rendering.
func (s *Session) Blocks() []*block.Block {
	return s.store.Blocks()
}

// Len returns the number of blocks.
func (s *Session) Len() int {
	return s.store.Len()
}

func (s *Session) CanUndo() bool { return s.history.CanUndo() }
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// Units returns how the session counts selection offsets.
func (s *Session) Units() splitter.Units {
	return s.splitter.Units
}

// TakeFocus returns the block marked for focus and clears every focus hint.
func (s *Session) TakeFocus() (block.ID, bool) {
	var (
		id    block.ID
		found bool
	)
	for _, b := range s.store.Blocks() {
		if b.Focus && !found {
			id, found = b.ID, true
		}
		b.Focus = false
	}
	return id, found
}

func (s *Session) focus(id block.ID) {
	if b, ok := s.store.Get(id); ok {
		b.Focus = true
	}
}

// apply mutates the store through a and records it.
func (s *Session) apply(a undo.Action) error {
	if err := s.history.Do(s.store, a); err != nil {
		return s.fail("apply", a, err)
	}
	s.log.Debug("applied", "action", a, "blocks", s.store.Len())
	return nil
}

// fail logs a replay error at the level its severity calls for. a is the
// action that could not be replayed, nil when there was none.
func (s *Session) fail(op string, a undo.Action, err error) error {
	var action string
	if a != nil {
		action = fmt.Sprint(a)
	}
	switch undo.Classify(err) {
	case undo.SeverityUser:
		s.log.Debug(op+" skipped", "reason", err)
		return err
	case undo.SeverityProgrammer:
		s.log.Error(op+" failed: action log and store out of sync",
			"action", action,
			"error", err,
			"blocks", s.store.Len(),
			"undo_len", s.history.UndoLen(),
			"redo_len", s.history.RedoLen(),
		)
	default:
		s.log.Error(op+" failed", "action", action, "error", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
