package room

import (
	"transcription-editor/pkg/block"
	"transcription-editor/pkg/editor"
)

// Request is one command for a room's session, already decoded from the wire.
type Request struct {
	Command   editor.Command
	BlockType block.Type
	// ID addresses edit, delete and move commands.
	ID block.ID
	// Target is the focus carried by new_block. Nil means nothing has focus.
	Target  *editor.Target
	Variant block.Variant
	// Content fills the block created by append.
	Content string
	// Title and Language are set by document_update.
	Title    *string
	Language *string
	ClientID string
	Seq      uint64
}

// CmdDocumentUpdate changes a document's title or language. It is handled by
// the room, not the session, and is not undoable.
const CmdDocumentUpdate editor.Command = "document_update"

// SnapshotMessage carries the whole block sequence after every command.
type SnapshotMessage struct {
	Type       string           `json:"type"`
	DocumentID string           `json:"id"`
	Title      string           `json:"title"`
	Language   string           `json:"language"`
	Blocks     []block.Snapshot `json:"blocks"`
	// Focus is the block the client should focus next, if any.
	Focus   *block.ID `json:"focus,omitempty"`
	CanUndo bool      `json:"can_undo"`
	CanRedo bool      `json:"can_redo"`
	Users   []User    `json:"users"`
	Seq     uint64    `json:"seq"`
}

// NoticeMessage is a transient, dismissible note for one client.
type NoticeMessage struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Message string `json:"message"`
}

// ErrorMessage reports a failed command or save.
type ErrorMessage struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Error   string `json:"error"`
}

// SavedMessage reports a completed save.
type SavedMessage struct {
	Type     string `json:"type"`
	Version  int    `json:"version"`
	Checksum string `json:"checksum"`
}

// MetadataUpdate is broadcast when the title or language changes.
type MetadataUpdate struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Language  string `json:"language"`
	ClientID  string `json:"client_id"`
	Timestamp int64  `json:"timestamp"`
}

// Presence tells the other clients which block a user is in.
type Presence struct {
	Type     string   `json:"type"`
	ClientID string   `json:"client_id"`
	Username string   `json:"username"`
	BlockID  block.ID `json:"block_id"`
}

// Ack confirms a command was processed.
type Ack struct {
	Type      string `json:"type"`  // "ack"
	Event     string `json:"event"` // the command
	Seq       uint64 `json:"seq,omitempty"`
	Timestamp int64  `json:"ts"`
}
