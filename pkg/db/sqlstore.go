package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"transcription-editor/pkg/block"
)

// dialect is what differs between the SQL backends.
type dialect struct {
	name     string
	jsonType string
	timeType string
	// numbered placeholders ($1) rather than ?
	numbered bool
}

func (d dialect) placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

var (
	postgresDialect = dialect{name: "postgres", jsonType: "JSONB", timeType: "TIMESTAMP WITH TIME ZONE", numbered: true}
	sqliteDialect   = dialect{name: "sqlite", jsonType: "TEXT", timeType: "DATETIME"}
)

// sqlDocumentStore implements IDocumentStore over database/sql.
type sqlDocumentStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLDocumentStore(db *sql.DB, d dialect) (*sqlDocumentStore, error) {
	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.name, err)
	}

	store := &sqlDocumentStore{db: db, dialect: d}

	// Create the documents table if it doesn't exist
	if err := store.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create %s table: %w", d.name, err)
	}
	return store, nil
}

const documentColumns = `id, title, language, blocks, checksum, created_at, updated_at, version`

// Close closes the database connection
func (s *sqlDocumentStore) Close() error {
	return s.db.Close()
}

func (s *sqlDocumentStore) CreateDocument(ctx context.Context, title, language string, blocks []block.Snapshot) (*Document, error) {
	data, sum, err := encodeBlocks(blocks)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	ts := now()

	query := fmt.Sprintf(`
		INSERT INTO documents (%s)
		VALUES (%s)
	`, documentColumns, s.placeholders(1, 8))

	_, err = s.db.ExecContext(ctx, query, id, title, language, string(data), sum, ts, ts, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return s.GetDocument(ctx, id)
}

func (s *sqlDocumentStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM documents
		WHERE id = %s
	`, documentColumns, s.dialect.placeholder(1))

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (s *sqlDocumentStore) UpdateDocument(ctx context.Context, id string, updates *DocumentUpdate) (*Document, error) {
	current, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	title, language, blocks, checksum, err := updates.changes(current)
	if err != nil {
		return nil, err
	}

	// Build dynamic SET clauses for changed fields
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	if title != nil {
		sets = append(sets, "title = "+s.dialect.placeholder(argPos))
		args = append(args, *title)
		argPos++
	}
	if language != nil {
		sets = append(sets, "language = "+s.dialect.placeholder(argPos))
		args = append(args, *language)
		argPos++
	}
	if blocks != nil {
		sets = append(sets, "blocks = "+s.dialect.placeholder(argPos))
		args = append(args, string(blocks))
		argPos++
		sets = append(sets, "checksum = "+s.dialect.placeholder(argPos))
		args = append(args, checksum)
		argPos++
	}

	if len(sets) == 0 {
		// Nothing changed; return current document
		return current, nil
	}

	// Always update updated_at and version
	sets = append(sets, "updated_at = "+s.dialect.placeholder(argPos))
	args = append(args, now())
	argPos++
	sets = append(sets, "version = version + 1")

	// Add id and expected version params
	args = append(args, id, current.Version)

	query := fmt.Sprintf(`
		UPDATE documents
		SET %s
		WHERE id = %s AND version = %s
	`, strings.Join(sets, ", "), s.dialect.placeholder(argPos), s.dialect.placeholder(argPos+1))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// deleted, or another writer bumped the version first
		if _, err := s.GetDocument(ctx, id); err != nil {
			return nil, err
		}
		return s.UpdateDocument(ctx, id, updates)
	}

	return s.GetDocument(ctx, id)
}

func (s *sqlDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE id = ` + s.dialect.placeholder(1)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

func (s *sqlDocumentStore) ListDocuments(ctx context.Context) ([]*Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM documents
		ORDER BY updated_at DESC
	`, documentColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return documents, nil
}

func (s *sqlDocumentStore) placeholders(from, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.dialect.placeholder(from + i)
	}
	return strings.Join(out, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	doc := &Document{}
	var (
		blocks           []byte
		created, updated timestamp
	)
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Language,
		&blocks,
		&doc.Checksum,
		&created,
		&updated,
		&doc.Version,
	)
	if err != nil {
		return nil, err
	}
	if doc.Blocks, err = decodeBlocks(blocks); err != nil {
		return nil, err
	}
	doc.CreatedAt, doc.UpdatedAt = created.Time, updated.Time
	return doc, nil
}

// timestamp scans the time types both drivers hand back.
type timestamp struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

var _ IDocumentStore = (*sqlDocumentStore)(nil)
