// Package room hosts one editing session per open document. Every command for
// a document runs on that room's goroutine, one at a time.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"transcription-editor/pkg/db"
	"transcription-editor/pkg/editor"
	"transcription-editor/pkg/logging"
)

// ErrRoomClosed is returned when a command is submitted to a closed room.
var ErrRoomClosed = errors.New("room closed")

// Client represents a connected client in a room
type Client struct {
	ID       string          `json:"-"`
	ClientID string          `json:"id"`
	Username string          `json:"username"`
	Conn     *websocket.Conn `json:"-"`
	Room     *Room           `json:"-"`
	Send     chan []byte     `json:"-"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Room is one open document and the clients attached to it.
type Room struct {
	ID         string             `json:"id"`
	Document   *db.Document       `json:"document"`
	Clients    map[string]*Client `json:"clients"`
	Broadcast  chan []byte        `json:"-"`
	Register   chan *Client       `json:"-"`
	Unregister chan *Client       `json:"-"`
	Commands   chan Request       `json:"-"`

	session *editor.Session
	store   db.IDocumentStore
	log     *slog.Logger
	seq     uint64
	done    chan struct{}
	once    sync.Once
	mutex   sync.RWMutex
	// onStop runs when the room goroutine exits, however it exits.
	onStop func()
}

// RoomManager manages all rooms
type RoomManager struct {
	rooms   map[string]*Room
	mutex   sync.RWMutex
	Store   db.IDocumentStore
	options editor.Options
	log     *slog.Logger
}

// NewRoomManager creates a new room manager. Sessions are created with opts.
func NewRoomManager(store db.IDocumentStore, opts editor.Options) *RoomManager {
	logger := logging.Component(opts.Logger, "room")
	opts.Logger = logger
	return &RoomManager{
		rooms:   make(map[string]*Room),
		Store:   store,
		options: opts,
		log:     logger,
	}
}

// GetOrCreateRoom gets an existing room or loads the document into a new one.
func (rm *RoomManager) GetOrCreateRoom(ctx context.Context, roomID string) (*Room, error) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	room, ok := rm.rooms[roomID]
	if ok && !room.closed() {
		return room, nil
	}

	document, err := rm.Store.GetDocument(ctx, roomID)
	if err != nil {
		return nil, err
	}

	opts := rm.options
	if document.Language != "" {
		opts.DefaultLanguage = document.Language
	}
	opts.Logger = rm.log.With("room", roomID)
	session := editor.NewSession(opts)
	if err := session.Load(document.Blocks); err != nil {
		return nil, fmt.Errorf("room %s: %w", roomID, err)
	}

	room = &Room{
		ID:         roomID,
		Document:   document,
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte, 256),
		Commands:   make(chan Request, 64),
		session:    session,
		store:      rm.Store,
		log:        opts.Logger,
		done:       make(chan struct{}),
	}
	room.onStop = func() { rm.remove(roomID, room) }
	rm.rooms[roomID] = room

	go room.run()

	return room, nil
}

// Get returns an open room.
func (rm *RoomManager) Get(roomID string) (*Room, bool) {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()
	room, ok := rm.rooms[roomID]
	if !ok || room.closed() {
		return nil, false
	}
	return room, true
}

// remove drops room from the map unless roomID was reopened since.
func (rm *RoomManager) remove(roomID string, room *Room) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if rm.rooms[roomID] == room {
		delete(rm.rooms, roomID)
	}
}

// CloseRoom stops the room for roomID, if open. Unsaved edits are lost.
func (rm *RoomManager) CloseRoom(roomID string) {
	rm.mutex.Lock()
	room, ok := rm.rooms[roomID]
	delete(rm.rooms, roomID)
	rm.mutex.Unlock()
	if ok {
		room.Close()
	}
}

// Close stops every room.
func (rm *RoomManager) Close() {
	rm.mutex.Lock()
	rooms := rm.rooms
	rm.rooms = make(map[string]*Room)
	rm.mutex.Unlock()
	for _, room := range rooms {
		room.Close()
	}
}

// Close stops the room goroutine and disconnects its clients.
func (r *Room) Close() {
	r.once.Do(func() { close(r.done) })
}

// Done is closed when the room stops.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Submit queues a command for the room goroutine.
func (r *Room) Submit(req Request) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.Commands <- req:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// Join registers a client with the room.
func (r *Room) Join(c *Client) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.Register <- c:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// Leave unregisters a client without blocking if the room is gone.
func (r *Room) Leave(c *Client) {
	select {
	case r.Unregister <- c:
	case <-r.done:
	}
}

// run handles room operations. A panic stops the room like Close does.
func (r *Room) run() {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in room", "panic", rec, "stack", string(debug.Stack()))
		}
		if r.onStop != nil {
			r.onStop()
		}
		r.Close()
		r.disconnectAll()
	}()
	r.log.Info("room started", "blocks", r.session.Len())
	for {
		select {
		case <-r.done:
			r.log.Info("room stopped")
			return

		case client := <-r.Register:
			r.mutex.Lock()
			r.Clients[client.ID] = client
			r.mutex.Unlock()
			r.sendTo(client.ID, r.snapshot())
			r.broadcastUser("user_joined", client)
			r.log.Info("client joined", "client", client.ID, "username", client.Username)

		case client := <-r.Unregister:
			r.mutex.Lock()
			if _, ok := r.Clients[client.ID]; ok {
				delete(r.Clients, client.ID)
				close(client.Send)
			}
			r.mutex.Unlock()
			r.broadcastUser("user_left", client)
			r.log.Info("client left", "client", client.ID)

		case req := <-r.Commands:
			r.execute(req)

		case message := <-r.Broadcast:
			r.fanOut(message, "")
		}
	}
}

func (r *Room) disconnectAll() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for id, client := range r.Clients {
		close(client.Send)
		delete(r.Clients, id)
	}
}

// fanOut delivers message to every client except exclude. Clients whose
// buffer is full are dropped.
func (r *Room) fanOut(message []byte, exclude string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for id, client := range r.Clients {
		if id == exclude {
			continue
		}
		select {
		case client.Send <- message:
		default:
			r.log.Warn("dropping slow client", "client", id)
			close(client.Send)
			delete(r.Clients, id)
		}
	}
}

func (r *Room) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Error("encode message", "error", err)
		return
	}
	r.fanOut(data, "")
}

// post hands a message to the room goroutine from another goroutine.
func (r *Room) post(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Error("encode message", "error", err)
		return
	}
	select {
	case r.Broadcast <- data:
	case <-r.done:
	}
}

// Reply delivers v to one client of the room. Safe from any goroutine.
func (r *Room) Reply(clientID string, v any) {
	r.sendTo(clientID, v)
}

// sendTo delivers v to one client by id.
func (r *Room) sendTo(clientID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Error("encode message", "error", err)
		return
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	// Send is only closed under the write lock, so a member's channel is open here.
	if client, ok := r.Clients[clientID]; ok {
		select {
		case client.Send <- data:
		default:
			// drop on slow client
		}
	}
}

// broadcastUser notifies clients about a user joining or leaving
func (r *Room) broadcastUser(event string, client *Client) {
	r.broadcast(map[string]interface{}{
		"type":     event,
		"id":       client.ClientID,
		"username": client.Username,
	})
}

// BroadcastPresence tells everyone but the sender where the sender is editing.
func (r *Room) BroadcastPresence(presence *Presence, excludeClientID string) {
	presence.Type = "presence_user"
	data, err := json.Marshal(presence)
	if err != nil {
		return
	}
	r.fanOut(data, excludeClientID)
}

func (r *Room) ack(c Request) {
	if c.Seq == 0 {
		return
	}
	r.sendTo(c.ClientID, Ack{Type: "ack", Event: string(c.Command), Seq: c.Seq, Timestamp: time.Now().UnixNano()})
}

// GetUsers returns a list of users currently in the room
func (r *Room) GetUsers() []User {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	users := make([]User, 0, len(r.Clients))
	for _, client := range r.Clients {
		users = append(users, User{
			ID:       client.ClientID,
			Username: client.Username,
		})
	}

	return users
}
