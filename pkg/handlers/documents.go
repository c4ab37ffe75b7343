package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"transcription-editor/pkg/block"
	"transcription-editor/pkg/editor"
	"transcription-editor/pkg/logging"
	"transcription-editor/pkg/store"
	"transcription-editor/pkg/tei"
)

// maxImportSize bounds an uploaded TEI document.
const maxImportSize = 10 << 20

// CreateDocument creates a new document
func (h *Handlers) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string           `json:"title"`
		Language string           `json:"language"`
		Blocks   []block.Snapshot `json:"blocks"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Blocks == nil {
		req.Blocks = []block.Snapshot{}
	}
	// reject sequences a session could not load
	if _, err := store.Load(req.Blocks); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.roomManager.Store.CreateDocument(r.Context(), req.Title, req.Language, req.Blocks)
	if err != nil {
		logging.FromContext(r.Context(), h.log).Error("create document", "error", err)
		http.Error(w, "Failed to create document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// ImportDocument creates a document from a TEI upload. The title query
// parameter overrides the title found in the header.
func (h *Handlers) ImportDocument(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	meta, variants, err := tei.Decode(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	title := meta.Title
	if t := r.URL.Query().Get("title"); t != "" {
		title = t
	}

	doc, err := h.roomManager.Store.CreateDocument(r.Context(), title, meta.Language, tei.Snapshots(variants))
	if err != nil {
		logging.FromContext(r.Context(), h.log).Error("import document", "error", err)
		http.Error(w, "Failed to create document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments returns a list of documents
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.roomManager.Store.ListDocuments(r.Context())
	if err != nil {
		logging.FromContext(r.Context(), h.log).Error("list documents", "error", err)
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// GetDocument retrieves a document by ID
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.roomManager.Store.GetDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// ExportDocument renders the saved state of a document as TEI.
func (h *Handlers) ExportDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	doc, err := h.roomManager.Store.GetDocument(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	data, err := tei.Encode(tei.Meta{Title: doc.Title, Name: doc.ID, Language: doc.Language}, doc.Blocks)
	if err != nil {
		logging.FromContext(r.Context(), h.log).Error("export document", "id", id, "error", err)
		http.Error(w, "Failed to export document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/tei+xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.xml"`)
	w.Write(data)
}

// DeleteDocument deletes a document and closes its room.
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.roomManager.Store.DeleteDocument(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.roomManager.CloseRoom(id)

	w.WriteHeader(http.StatusNoContent)
}

// GetRoomUsers returns the list of users in a room
func (h *Handlers) GetRoomUsers(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	room, err := h.roomManager.GetOrCreateRoom(r.Context(), roomID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room_id": roomID,
		"users":   room.GetUsers(),
	})
}

// ListShortcuts returns the keyboard table and the block types it can create.
func (h *Handlers) ListShortcuts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"shortcuts": editor.Shortcuts(),
		"types":     block.Types(),
	})
}
