package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/db"
	"transcription-editor/pkg/editor"
	"transcription-editor/pkg/logging"
	"transcription-editor/pkg/room"
)

func newRouter(t *testing.T) (*mux.Router, db.IDocumentStore) {
	t.Helper()
	store := db.NewMemoryDocumentStore()
	rm := room.NewRoomManager(store, editor.Options{Logger: logging.Discard()})
	t.Cleanup(rm.Close)
	r := mux.NewRouter()
	NewHandlers(rm, logging.Discard()).Routes(r)
	return r, store
}

func createDoc(t *testing.T, store db.IDocumentStore, blocks ...block.Snapshot) *db.Document {
	t.Helper()
	doc, err := store.CreateDocument(context.Background(), "Codex", "grc", blocks)
	require.NoError(t, err)
	return doc
}

func TestCreateAndGetDocument(t *testing.T) {
	r, _ := newRouter(t)

	body := `{"title":"Psalter","language":"la","blocks":[{"id":1,"variant":{"type":"text","text":{"lang":"la","content":"beatus vir"}}}]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created db.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Psalter", created.Title)
	require.Len(t, created.Blocks, 1)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got db.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "beatus vir", got.Blocks[0].Variant.Text.Content)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []db.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestCreateDocumentRejectsDuplicateIDs(t *testing.T) {
	r, _ := newRouter(t)
	body := `{"title":"x","blocks":[
		{"id":1,"variant":{"type":"text","text":{"lang":"la","content":"a"}}},
		{"id":1,"variant":{"type":"text","text":{"lang":"la","content":"b"}}}]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingDocumentIs404(t *testing.T) {
	r, _ := newRouter(t)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/documents/nope", nil),
		httptest.NewRequest(http.MethodDelete, "/api/documents/nope", nil),
		httptest.NewRequest(http.MethodGet, "/api/documents/nope/tei", nil),
		httptest.NewRequest(http.MethodGet, "/api/rooms/nope/users", nil),
		httptest.NewRequest(http.MethodGet, "/ws/nope", nil),
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.URL.Path)
	}
}

func TestDeleteDocument(t *testing.T) {
	r, store := newRouter(t)
	doc := createDoc(t, store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/documents/"+doc.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := store.GetDocument(context.Background(), doc.ID)
	assert.ErrorIs(t, err, db.ErrDocumentNotFound)
}

func TestExportThenImport(t *testing.T) {
	r, store := newRouter(t)
	doc := createDoc(t, store,
		block.Snapshot{ID: 1, Variant: block.NewText("grc", "ἐν ἀρχῇ")},
		block.Snapshot{ID: 2, Variant: block.NewBreak(block.BreakLine)},
		block.Snapshot{ID: 3, Variant: block.NewLacuna("ἦν", "hole")},
	)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/"+doc.ID+"/tei", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "xml")
	assert.Contains(t, rec.Body.String(), "<lb></lb>")

	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/documents/import?title=Copy", strings.NewReader(rec.Body.String())))
	require.Equal(t, http.StatusCreated, rec2.Code, rec2.Body.String())

	var imported db.Document
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &imported))
	assert.Equal(t, "Copy", imported.Title)
	assert.Equal(t, "grc", imported.Language)
	require.Len(t, imported.Blocks, 3)
	for i := range doc.Blocks {
		assert.True(t, doc.Blocks[i].Variant.Equal(imported.Blocks[i].Variant), "block %d", i)
	}
}

func TestImportRejectsBadXML(t *testing.T) {
	r, _ := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/documents/import", strings.NewReader(`<TEI><text><body><figure/></body></text></TEI>`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListShortcuts(t *testing.T) {
	r, _ := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shortcuts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Shortcuts []editor.Shortcut `json:"shortcuts"`
		Types     []block.Type      `json:"types"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Shortcuts, len(editor.Shortcuts()))
	assert.Equal(t, block.Types(), out.Types)
}

func TestRequestFromShortcut(t *testing.T) {
	sel := [2]int{1, 2}
	full := "abc"
	msg := clientMessage{Type: "shortcut", Keys: "ctrl+alt+u", Target: &clientTarget{ID: 4, Selection: &sel, FullText: &full}}
	req, err := msg.request("c1")
	require.NoError(t, err)
	assert.Equal(t, editor.CmdNewBlock, req.Command)
	assert.Equal(t, block.TypeUncertain, req.BlockType)
	require.NotNil(t, req.Target.Selection)
	assert.Equal(t, 1, req.Target.Selection.Start)

	_, err = (&clientMessage{Type: "shortcut", Keys: "ctrl+q"}).request("c1")
	assert.Error(t, err)

	_, err = (&clientMessage{Type: "edit", ID: 1}).request("c1")
	assert.Error(t, err)
}

func TestRequestNeedsBlockType(t *testing.T) {
	for _, raw := range []string{
		`{"type":"new_block","target":{"id":1,"selection":null,"full_text":"a"}}`,
		`{"type":"append","content":"x"}`,
	} {
		var msg clientMessage
		require.NoError(t, json.Unmarshal([]byte(raw), &msg))
		_, err := msg.request("c1")
		assert.ErrorContains(t, err, "needs a block_type", raw)
	}

	var msg clientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"append","block_type":"text"}`), &msg))
	req, err := msg.request("c1")
	require.NoError(t, err)
	assert.Equal(t, block.TypeText, req.BlockType)
}

func TestTargetWithoutFullText(t *testing.T) {
	var msg clientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"new_block","block_type":"break","target":{"id":1,"selection":null}}`), &msg))
	req, err := msg.request("c1")
	require.NoError(t, err)
	require.NotNil(t, req.Target)
	assert.Nil(t, req.Target.FullText)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"new_block","block_type":"break","target":{"id":1,"selection":null,"full_text":""}}`), &msg))
	req, err = msg.request("c1")
	require.NoError(t, err)
	require.NotNil(t, req.Target.FullText)
	assert.Equal(t, "", *req.Target.FullText)
}

// readUntil reads socket messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, into any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &head))
		if head.Type == typ {
			if into != nil {
				require.NoError(t, json.Unmarshal(data, into))
			}
			return
		}
	}
}

func TestWebSocketEditing(t *testing.T) {
	r, store := newRouter(t)
	doc := createDoc(t, store, block.Snapshot{ID: 1, Variant: block.NewText("grc", "abcdef")})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + doc.ID + "?username=scribe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var snap room.SnapshotMessage
	readUntil(t, conn, "snapshot", &snap)
	require.Len(t, snap.Blocks, 1)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":       "new_block",
		"block_type": "lacuna",
		"target":     map[string]any{"id": 1, "selection": []int{3, 6}, "full_text": "abcdef"},
		"seq":        7,
	}))
	readUntil(t, conn, "snapshot", &snap)
	require.Len(t, snap.Blocks, 2)
	assert.Equal(t, "abc", snap.Blocks[0].Variant.Text.Content)
	assert.Equal(t, block.TypeLacuna, snap.Blocks[1].Variant.Type)
	assert.Equal(t, "def", snap.Blocks[1].Variant.Lacuna.Content)

	var ack room.Ack
	readUntil(t, conn, "ack", &ack)
	assert.Equal(t, uint64(7), ack.Seq)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "save"}))
	var saved room.SavedMessage
	readUntil(t, conn, "saved", &saved)

	stored, err := store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Blocks, 2)
	assert.Equal(t, stored.Checksum, saved.Checksum)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "redo"}))
	var notice room.NoticeMessage
	readUntil(t, conn, "notice", &notice)
	assert.Equal(t, "redo", notice.Command)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	readUntil(t, conn, "error", nil)
}
