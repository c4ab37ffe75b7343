package db

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"transcription-editor/pkg/block"
)

// MemoryDocumentStore keeps documents in a map. Nothing survives a restart.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemoryDocumentStore returns an empty store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]*Document)}
}

func (s *MemoryDocumentStore) CreateDocument(_ context.Context, title, language string, blocks []block.Snapshot) (*Document, error) {
	_, sum, err := encodeBlocks(blocks)
	if err != nil {
		return nil, err
	}
	ts := now()
	doc := &Document{
		ID:        uuid.New().String(),
		Title:     title,
		Language:  language,
		Blocks:    cloneBlocks(blocks),
		Checksum:  sum,
		CreatedAt: ts,
		UpdatedAt: ts,
		Version:   1,
	}

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	return copyDocument(doc), nil
}

func (s *MemoryDocumentStore) GetDocument(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return copyDocument(doc), nil
}

func (s *MemoryDocumentStore) UpdateDocument(_ context.Context, id string, updates *DocumentUpdate) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	title, language, blocks, checksum, err := updates.changes(doc)
	if err != nil {
		return nil, err
	}
	if title == nil && language == nil && blocks == nil {
		return copyDocument(doc), nil
	}

	next := copyDocument(doc)
	if title != nil {
		next.Title = *title
	}
	if language != nil {
		next.Language = *language
	}
	if blocks != nil {
		next.Blocks = cloneBlocks(*updates.Blocks)
		next.Checksum = checksum
	}
	next.UpdatedAt = now()
	next.Version++
	s.docs[id] = next
	return copyDocument(next), nil
}

func (s *MemoryDocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryDocumentStore) ListDocuments(_ context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, copyDocument(doc))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Close is a no-op.
func (s *MemoryDocumentStore) Close() error {
	return nil
}

func copyDocument(doc *Document) *Document {
	out := *doc
	out.Blocks = cloneBlocks(doc.Blocks)
	return &out
}

func cloneBlocks(blocks []block.Snapshot) []block.Snapshot {
	if blocks == nil {
		return []block.Snapshot{}
	}
	return block.CloneSnapshots(blocks)
}

var _ IDocumentStore = (*MemoryDocumentStore)(nil)
