package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/db"
	"transcription-editor/pkg/editor"
	"transcription-editor/pkg/logging"
	"transcription-editor/pkg/room"
	"transcription-editor/pkg/splitter"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	// maxMessageSize bounds one client message. Edits carry a whole variant.
	maxMessageSize = 1 << 20
)

// Handlers contains all HTTP and WebSocket handlers
type Handlers struct {
	roomManager *room.RoomManager
	log         *slog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(roomManager *room.RoomManager, logger *slog.Logger) *Handlers {
	return &Handlers{
		roomManager: roomManager,
		log:         logging.Component(logger, "handlers"),
	}
}

// Routes registers every endpoint on r.
func (h *Handlers) Routes(r *mux.Router) {
	// WebSocket endpoint for editing a document
	r.HandleFunc("/ws/{roomId}", h.HandleWebSocket)

	r.HandleFunc("/api/documents", h.CreateDocument).Methods("POST")
	r.HandleFunc("/api/documents", h.ListDocuments).Methods("GET")
	r.HandleFunc("/api/documents/import", h.ImportDocument).Methods("POST")
	r.HandleFunc("/api/documents/{id}", h.GetDocument).Methods("GET")
	r.HandleFunc("/api/documents/{id}", h.DeleteDocument).Methods("DELETE")
	r.HandleFunc("/api/documents/{id}/tei", h.ExportDocument).Methods("GET")
	r.HandleFunc("/api/rooms/{roomId}/users", h.GetRoomUsers).Methods("GET")
	r.HandleFunc("/api/shortcuts", h.ListShortcuts).Methods("GET")
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// clientMessage is everything a client can send over the socket. Which fields
// matter depends on Type.
type clientMessage struct {
	Type      string         `json:"type"`
	BlockType *block.Type    `json:"block_type,omitempty"`
	ID        block.ID       `json:"id,omitempty"`
	Target    *clientTarget  `json:"target,omitempty"`
	Variant   *block.Variant `json:"variant,omitempty"`
	Content   string         `json:"content,omitempty"`
	Title     *string        `json:"title,omitempty"`
	Language  *string        `json:"language,omitempty"`
	Username  string         `json:"username,omitempty"`
	Keys      string         `json:"keys,omitempty"`
	BlockID   block.ID       `json:"block_id,omitempty"`
	Seq       uint64         `json:"seq,omitempty"`
}

// clientTarget is the focused block as the client sees it. Selection is a
// [start, end] pair of character offsets, or null. A missing full_text keeps
// the stored content.
type clientTarget struct {
	ID        block.ID `json:"id"`
	Selection *[2]int  `json:"selection"`
	FullText  *string  `json:"full_text"`
}

func (t *clientTarget) target() *editor.Target {
	if t == nil {
		return nil
	}
	out := &editor.Target{ID: t.ID, FullText: t.FullText}
	if t.Selection != nil {
		out.Selection = &splitter.Selection{Start: t.Selection[0], End: t.Selection[1]}
	}
	return out
}

// request turns a command message into a room request.
func (m *clientMessage) request(clientID string) (room.Request, error) {
	req := room.Request{
		Command:  editor.Command(m.Type),
		ID:       m.ID,
		Target:   m.Target.target(),
		Content:  m.Content,
		Title:    m.Title,
		Language: m.Language,
		ClientID: clientID,
		Seq:      m.Seq,
	}
	hasType := m.BlockType != nil
	if hasType {
		req.BlockType = *m.BlockType
	}
	if m.Type == "shortcut" {
		sc, ok := editor.LookupShortcut(m.Keys)
		if !ok {
			return req, errors.New("unbound shortcut " + m.Keys)
		}
		req.Command = sc.Command
		if sc.BlockType != nil {
			req.BlockType = *sc.BlockType
			hasType = true
		}
	}
	if (req.Command == editor.CmdNewBlock || req.Command == editor.CmdAppend) && !hasType {
		return req, errors.New(string(req.Command) + " needs a block_type")
	}
	if req.Command == editor.CmdEdit {
		if m.Variant == nil {
			return req, errors.New("edit needs a variant")
		}
		req.Variant = *m.Variant
	}
	return req, nil
}

// HandleWebSocket attaches a client to the room of one document.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	log := logging.FromContext(r.Context(), h.log).With("room", roomID)

	roomInstance, err := h.roomManager.GetOrCreateRoom(r.Context(), roomID)
	if err != nil {
		log.Warn("open room", "error", err)
		writeStoreError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade", "error", err)
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		username = "Anonymous"
	}

	id := uuid.New().String()
	client := &room.Client{
		ID:       id,
		ClientID: id,
		Username: username,
		Conn:     conn,
		Room:     roomInstance,
		Send:     make(chan []byte, 256),
	}
	log = log.With("client", id)

	if err := roomInstance.Join(client); err != nil {
		log.Warn("join room", "error", err)
		conn.Close()
		return
	}

	go h.writePump(client, log)
	go h.readPump(client, log)
}

// readPump handles reading messages from the WebSocket
func (h *Handlers) readPump(c *room.Client, log *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in readPump", "panic", r, "stack", string(debug.Stack()))
		}
		c.Room.Leave(c)
		c.Conn.Close()
		log.Debug("readPump exiting")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket unexpected close", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug("bad message", "error", err)
			h.reply(c, room.ErrorMessage{Type: "error", Error: "invalid message: " + err.Error()})
			continue
		}

		switch msg.Type {
		case "ping":
			h.reply(c, map[string]string{"type": "pong"})
		case "presence":
			c.Room.BroadcastPresence(&room.Presence{ClientID: c.ClientID, Username: c.Username, BlockID: msg.BlockID}, c.ID)
		default:
			req, err := msg.request(c.ClientID)
			if err != nil {
				h.reply(c, room.ErrorMessage{Type: "error", Command: msg.Type, Error: err.Error()})
				continue
			}
			if err := c.Room.Submit(req); err != nil {
				return
			}
		}
	}
}

// reply queues a message for c only. It goes through the room so the send
// cannot race with the room closing c.Send.
func (h *Handlers) reply(c *room.Client, v any) {
	c.Room.Reply(c.ID, v)
}

// writePump handles writing messages to the WebSocket
func (h *Handlers) writePump(c *room.Client, log *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// closing the connection makes readPump unregister the client
		c.Conn.Close()
		log.Debug("writePump exiting")
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("websocket write", "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn("websocket ping", "error", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeStoreError maps document store errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrDocumentNotFound) {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
