package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresDocumentStore implements IDocumentStore using PostgreSQL
type PostgresDocumentStore struct {
	*sqlDocumentStore
}

// NewPostgresDocumentStore creates a new PostgreSQL document store
func NewPostgresDocumentStore(connStr string) (*PostgresDocumentStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store, err := newSQLDocumentStore(db, postgresDialect)
	if err != nil {
		return nil, err
	}
	return &PostgresDocumentStore{store}, nil
}

// Compile-time check to ensure PostgresDocumentStore implements IDocumentStore
var _ IDocumentStore = (*PostgresDocumentStore)(nil)
