package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/db"
	"transcription-editor/pkg/editor"
	"transcription-editor/pkg/undo"
)

// ErrUnknownCommand is reported for commands the room does not handle.
var ErrUnknownCommand = errors.New("unknown command")

// saveTimeout bounds a single save against the document store.
const saveTimeout = 30 * time.Second

// execute runs one request on the room goroutine.
func (r *Room) execute(req Request) {
	var err error
	switch req.Command {
	case editor.CmdNewBlock:
		err = r.session.NewBlock(editor.StaticFocus{Target: req.Target}, req.BlockType)
	case editor.CmdEdit:
		err = r.session.EditContent(req.ID, req.Variant)
	case editor.CmdAppend:
		err = r.session.Append(req.BlockType, req.Content)
	case editor.CmdDelete:
		err = r.session.Delete(req.ID)
	case editor.CmdMoveUp:
		err = r.session.MoveUp(req.ID)
	case editor.CmdMoveDown:
		err = r.session.MoveDown(req.ID)
	case editor.CmdUndo:
		err = r.session.Undo()
	case editor.CmdRedo:
		err = r.session.Redo()
	case editor.CmdSave:
		r.save(req)
		r.ack(req)
		return
	case CmdDocumentUpdate:
		r.updateMetadata(req)
		return
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}

	if err != nil {
		r.reject(req, err)
		return
	}
	r.broadcast(r.snapshot())
	r.ack(req)
}

// reject reports a failed command to the client that sent it. Empty undo and
// redo stacks are a notice, anything else is an error.
func (r *Room) reject(req Request, err error) {
	if undo.Classify(err) == undo.SeverityUser {
		r.sendTo(req.ClientID, NoticeMessage{Type: "notice", Command: string(req.Command), Message: err.Error()})
		return
	}
	r.log.Warn("command failed", "command", req.Command, "client", req.ClientID, "error", err)
	r.sendTo(req.ClientID, ErrorMessage{Type: "error", Command: string(req.Command), Error: err.Error()})
}

// snapshot builds the state message and consumes any pending focus hint.
func (r *Room) snapshot() SnapshotMessage {
	r.seq++
	msg := SnapshotMessage{
		Type:       "snapshot",
		DocumentID: r.ID,
		Blocks:     r.session.Snapshot(),
		CanUndo:    r.session.CanUndo(),
		CanRedo:    r.session.CanRedo(),
		Users:      r.GetUsers(),
		Seq:        r.seq,
	}
	r.mutex.RLock()
	msg.Title = r.Document.Title
	msg.Language = r.Document.Language
	r.mutex.RUnlock()
	if id, ok := r.session.TakeFocus(); ok {
		msg.Focus = &id
	}
	return msg
}

// save persists the current blocks without blocking further commands. The
// outcome is broadcast once the store answers.
func (r *Room) save(req Request) {
	var saved *db.Document
	result := r.session.DispatchSave(context.Background(), func(ctx context.Context, blocks []block.Snapshot) error {
		ctx, cancel := context.WithTimeout(ctx, saveTimeout)
		defer cancel()
		doc, err := r.store.UpdateDocument(ctx, r.ID, &db.DocumentUpdate{Blocks: &blocks})
		if err != nil {
			return err
		}
		saved = doc
		return nil
	})
	go func() {
		select {
		case err := <-result:
			if err != nil {
				r.post(ErrorMessage{Type: "error", Command: string(req.Command), Error: err.Error()})
				return
			}
			r.mutex.Lock()
			r.Document.Version = saved.Version
			r.Document.Checksum = saved.Checksum
			r.Document.UpdatedAt = saved.UpdatedAt
			r.mutex.Unlock()
			r.post(SavedMessage{Type: "saved", Version: saved.Version, Checksum: saved.Checksum})
		case <-r.done:
		}
	}()
}

// updateMetadata changes the title or language and tells every client.
func (r *Room) updateMetadata(req Request) {
	if req.Title == nil && req.Language == nil {
		r.reject(req, errors.New("document_update needs a title or a language"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	doc, err := r.store.UpdateDocument(ctx, r.ID, &db.DocumentUpdate{Title: req.Title, Language: req.Language})
	if err != nil {
		r.reject(req, err)
		return
	}
	r.mutex.Lock()
	r.Document.Title = doc.Title
	r.Document.Language = doc.Language
	r.Document.Version = doc.Version
	r.mutex.Unlock()

	r.broadcast(MetadataUpdate{
		Type:      "metadata_update",
		Title:     doc.Title,
		Language:  doc.Language,
		ClientID:  req.ClientID,
		Timestamp: time.Now().UnixNano(),
	})
	r.ack(req)
}
