package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteDocumentStore implements IDocumentStore on a SQLite file. It serves
// local development and tests.
type SQLiteDocumentStore struct {
	*sqlDocumentStore
}

// NewSQLiteDocumentStore opens (or creates) the database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteDocumentStore(path string) (*SQLiteDocumentStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	store, err := newSQLDocumentStore(db, sqliteDialect)
	if err != nil {
		return nil, err
	}
	return &SQLiteDocumentStore{store}, nil
}

var _ IDocumentStore = (*SQLiteDocumentStore)(nil)
