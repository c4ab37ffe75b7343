package room

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/db"
	"transcription-editor/pkg/editor"
	"transcription-editor/pkg/logging"
	"transcription-editor/pkg/splitter"
)

func setup(t *testing.T, blocks ...block.Snapshot) (*RoomManager, *Room, db.IDocumentStore) {
	t.Helper()
	store := db.NewMemoryDocumentStore()
	doc, err := store.CreateDocument(context.Background(), "Codex", "grc", blocks)
	require.NoError(t, err)

	rm := NewRoomManager(store, editor.Options{Logger: logging.Discard()})
	t.Cleanup(rm.Close)
	r, err := rm.GetOrCreateRoom(context.Background(), doc.ID)
	require.NoError(t, err)
	return rm, r, store
}

func newClient(id string) *Client {
	return &Client{ID: id, ClientID: id, Username: "user-" + id, Send: make(chan []byte, 64)}
}

// expect reads messages from c until one of type typ arrives.
func expect(t *testing.T, c *Client, typ string, into any) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case data, ok := <-c.Send:
			require.True(t, ok, "client channel closed while waiting for %s", typ)
			var head struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(data, &head))
			if head.Type != typ {
				continue
			}
			if into != nil {
				require.NoError(t, json.Unmarshal(data, into))
			}
			return
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func join(t *testing.T, r *Room, c *Client) SnapshotMessage {
	t.Helper()
	require.NoError(t, r.Join(c))
	var snap SnapshotMessage
	expect(t, c, "snapshot", &snap)
	return snap
}

func TestJoinSendsSnapshot(t *testing.T) {
	_, r, _ := setup(t, block.Snapshot{ID: 1, Variant: block.NewText("grc", "λόγος")})
	snap := join(t, r, newClient("a"))

	assert.Equal(t, r.ID, snap.DocumentID)
	assert.Equal(t, "Codex", snap.Title)
	require.Len(t, snap.Blocks, 1)
	assert.Equal(t, "λόγος", snap.Blocks[0].Variant.Text.Content)
	assert.False(t, snap.CanUndo)
}

func TestCommandBroadcastsToAllClients(t *testing.T) {
	_, r, _ := setup(t, block.Snapshot{ID: 1, Variant: block.NewText("grc", "abc")})
	a, b := newClient("a"), newClient("b")
	join(t, r, a)
	join(t, r, b)

	require.NoError(t, r.Submit(Request{Command: editor.CmdAppend, BlockType: block.TypeLacuna, Content: "xyz", ClientID: "a", Seq: 1}))

	var sa, sb SnapshotMessage
	expect(t, a, "snapshot", &sa)
	expect(t, b, "snapshot", &sb)
	require.Len(t, sa.Blocks, 2)
	assert.Equal(t, sa.Blocks, sb.Blocks)
	assert.Equal(t, block.TypeLacuna, sa.Blocks[1].Variant.Type)
	assert.True(t, sa.CanUndo)
	require.NotNil(t, sa.Focus)
	assert.Equal(t, block.ID(2), *sa.Focus)

	var ack Ack
	expect(t, a, "ack", &ack)
	assert.Equal(t, uint64(1), ack.Seq)
	assert.Equal(t, "append", ack.Event)
}

func TestNewBlockSplitsTarget(t *testing.T) {
	_, r, _ := setup(t, block.Snapshot{ID: 1, Variant: block.NewText("grc", "abcdef")})
	a := newClient("a")
	join(t, r, a)

	full := "abcdef"
	target := &editor.Target{ID: 1, Selection: &splitter.Selection{Start: 2, End: 4}, FullText: &full}
	require.NoError(t, r.Submit(Request{Command: editor.CmdNewBlock, BlockType: block.TypeUncertain, Target: target, ClientID: "a"}))

	var snap SnapshotMessage
	expect(t, a, "snapshot", &snap)
	require.Len(t, snap.Blocks, 3)
	assert.Equal(t, "ab", snap.Blocks[0].Variant.Text.Content)
	assert.Equal(t, block.TypeUncertain, snap.Blocks[1].Variant.Type)
	assert.Equal(t, "cd", snap.Blocks[1].Variant.Uncertain.Content)
	assert.Equal(t, "ef", snap.Blocks[2].Variant.Text.Content)

	require.NoError(t, r.Submit(Request{Command: editor.CmdUndo, ClientID: "a"}))
	expect(t, a, "snapshot", &snap)
	require.Len(t, snap.Blocks, 1)
	assert.Equal(t, "abcdef", snap.Blocks[0].Variant.Text.Content)
}

func TestEmptyUndoIsNoticeForSenderOnly(t *testing.T) {
	_, r, _ := setup(t)
	a, b := newClient("a"), newClient("b")
	join(t, r, a)
	join(t, r, b)

	require.NoError(t, r.Submit(Request{Command: editor.CmdUndo, ClientID: "a"}))
	var notice NoticeMessage
	expect(t, a, "notice", &notice)
	assert.Equal(t, "undo", notice.Command)

	// b sees the next broadcast, not the notice.
	require.NoError(t, r.Submit(Request{Command: editor.CmdAppend, BlockType: block.TypeText, Content: "x", ClientID: "a"}))
	data := <-b.Send
	for {
		var head struct{ Type string }
		require.NoError(t, json.Unmarshal(data, &head))
		assert.NotEqual(t, "notice", head.Type)
		if head.Type == "snapshot" {
			var snap SnapshotMessage
			require.NoError(t, json.Unmarshal(data, &snap))
			if len(snap.Blocks) == 1 {
				break
			}
		}
		data = <-b.Send
	}
}

func TestUnknownCommandIsError(t *testing.T) {
	_, r, _ := setup(t)
	a := newClient("a")
	join(t, r, a)

	require.NoError(t, r.Submit(Request{Command: "paint", ClientID: "a"}))
	var msg ErrorMessage
	expect(t, a, "error", &msg)
	assert.Contains(t, msg.Error, "unknown command")
}

func TestSavePersistsBlocks(t *testing.T) {
	_, r, store := setup(t, block.Snapshot{ID: 1, Variant: block.NewText("grc", "abc")})
	a := newClient("a")
	join(t, r, a)

	require.NoError(t, r.Submit(Request{Command: editor.CmdAppend, BlockType: block.TypeText, Content: "def", ClientID: "a"}))
	expect(t, a, "snapshot", nil)
	require.NoError(t, r.Submit(Request{Command: editor.CmdSave, ClientID: "a"}))

	var saved SavedMessage
	expect(t, a, "saved", &saved)
	assert.Equal(t, 2, saved.Version)
	assert.NotEmpty(t, saved.Checksum)

	doc, err := store.GetDocument(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "def", doc.Blocks[1].Variant.Text.Content)
	assert.Equal(t, saved.Checksum, doc.Checksum)
}

func TestDocumentUpdate(t *testing.T) {
	_, r, store := setup(t)
	a, b := newClient("a"), newClient("b")
	join(t, r, a)
	join(t, r, b)

	title := "Codex Sinaiticus"
	require.NoError(t, r.Submit(Request{Command: CmdDocumentUpdate, Title: &title, ClientID: "a"}))

	var update MetadataUpdate
	expect(t, b, "metadata_update", &update)
	assert.Equal(t, title, update.Title)
	assert.Equal(t, "grc", update.Language)
	assert.Equal(t, "a", update.ClientID)

	doc, err := store.GetDocument(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, title, doc.Title)

	require.NoError(t, r.Submit(Request{Command: CmdDocumentUpdate, ClientID: "a"}))
	expect(t, a, "error", nil)
}

func TestPresenceSkipsSender(t *testing.T) {
	_, r, _ := setup(t)
	a, b := newClient("a"), newClient("b")
	join(t, r, a)
	join(t, r, b)

	r.BroadcastPresence(&Presence{ClientID: "a", Username: "user-a", BlockID: 3}, "a")

	var p Presence
	expect(t, b, "presence_user", &p)
	assert.Equal(t, block.ID(3), p.BlockID)
	for len(a.Send) > 0 {
		var head struct{ Type string }
		require.NoError(t, json.Unmarshal(<-a.Send, &head))
		assert.NotEqual(t, "presence_user", head.Type)
	}
}

func TestLeaveAndUsers(t *testing.T) {
	_, r, _ := setup(t)
	a, b := newClient("a"), newClient("b")
	join(t, r, a)
	join(t, r, b)
	assert.Len(t, r.GetUsers(), 2)

	r.Leave(b)
	expect(t, a, "user_left", nil)
	assert.Len(t, r.GetUsers(), 1)
}

func TestCloseRoom(t *testing.T) {
	rm, r, _ := setup(t)
	a := newClient("a")
	join(t, r, a)

	rm.CloseRoom(r.ID)
	_, ok := rm.Get(r.ID)
	assert.False(t, ok)

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("room not stopped")
	}
	assert.ErrorIs(t, r.Submit(Request{Command: editor.CmdUndo}), ErrRoomClosed)
}

func TestGetOrCreateRoomMissingDocument(t *testing.T) {
	rm, _, _ := setup(t)
	_, err := rm.GetOrCreateRoom(context.Background(), "nope")
	assert.ErrorIs(t, err, db.ErrDocumentNotFound)
}

func TestPanicStopsRoom(t *testing.T) {
	rm, r, _ := setup(t, block.Snapshot{ID: 1, Variant: block.NewText("grc", "abc")})
	a := newClient("a")
	join(t, r, a)

	// Undo on a missing session panics inside the room goroutine.
	r.session = nil
	require.NoError(t, r.Submit(Request{Command: editor.CmdUndo, ClientID: "a"}))

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room not stopped after panic")
	}
	assert.Eventually(t, func() bool {
		_, ok := rm.Get(r.ID)
		return !ok
	}, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, r.Join(newClient("b")), ErrRoomClosed)
	assert.ErrorIs(t, r.Submit(Request{Command: editor.CmdUndo}), ErrRoomClosed)

	reopened, err := rm.GetOrCreateRoom(context.Background(), r.ID)
	require.NoError(t, err)
	assert.NotSame(t, r, reopened)
	snap := join(t, reopened, newClient("c"))
	require.Len(t, snap.Blocks, 1)
	assert.Equal(t, "abc", snap.Blocks[0].Variant.Text.Content)
}

func TestClosedRoomIsReplaced(t *testing.T) {
	rm, r, _ := setup(t)
	r.Close()
	<-r.Done()

	reopened, err := rm.GetOrCreateRoom(context.Background(), r.ID)
	require.NoError(t, err)
	assert.NotSame(t, r, reopened)
	got, ok := rm.Get(r.ID)
	require.True(t, ok)
	assert.Same(t, reopened, got)

	// the old room's late cleanup must not drop its replacement
	rm.remove(r.ID, r)
	_, ok = rm.Get(r.ID)
	assert.True(t, ok)
}
