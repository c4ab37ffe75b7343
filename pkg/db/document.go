package db

import (
	"context"
	"time"

	"transcription-editor/pkg/block"
)

// Document is one stored transcription: its metadata and its block sequence.
type Document struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Language string           `json:"language,omitempty"`
	Blocks   []block.Snapshot `json:"blocks"`
	// Checksum is the blake3 digest of the encoded blocks.
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// IDocumentStore persists documents.
type IDocumentStore interface {
	CreateDocument(ctx context.Context, title, language string, blocks []block.Snapshot) (*Document, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	// UpdateDocument applies partial updates. Use pointer fields in DocumentUpdate
	// to indicate which fields should be modified.
	UpdateDocument(ctx context.Context, id string, updates *DocumentUpdate) (*Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context) ([]*Document, error)
	Close() error
}

// DocumentUpdate represents partial updates to a document. Pointer fields
// allow distinguishing between "not provided" (nil) and "set to empty".
type DocumentUpdate struct {
	Title    *string           `json:"title,omitempty"`
	Language *string           `json:"language,omitempty"`
	Blocks   *[]block.Snapshot `json:"blocks,omitempty"`
}

// changes returns the fields of u that differ from doc, with the new checksum
// when the blocks changed.
func (u *DocumentUpdate) changes(doc *Document) (title, language *string, blocks []byte, checksum string, err error) {
	if u == nil {
		return nil, nil, nil, "", nil
	}
	if u.Title != nil && *u.Title != doc.Title {
		title = u.Title
	}
	if u.Language != nil && *u.Language != doc.Language {
		language = u.Language
	}
	if u.Blocks != nil {
		data, sum, err := encodeBlocks(*u.Blocks)
		if err != nil {
			return nil, nil, nil, "", err
		}
		if sum != doc.Checksum {
			blocks, checksum = data, sum
		}
	}
	return title, language, blocks, checksum, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
