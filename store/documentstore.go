package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Document is a schemaless record, as stored by the remote document store
type Document map[string]any

// DocumentStore is the remote record store the publish flow writes to. It is
// treated as eventually consistent: a write is not assumed to be visible to an
// immediately following read.
type DocumentStore interface {
	// CreateRecord stores doc under collection/id, replacing an existing record
	CreateRecord(ctx context.Context, collection, id string, doc Document) error
	// GetRecord returns the record, or nil if it does not exist
	GetRecord(ctx context.Context, collection, id string) (Document, error)
	// IncrementField adds delta to a numeric field, creating the record or field if needed
	IncrementField(ctx context.Context, collection, id, field string, delta int64) error
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteDocumentStore implements DocumentStore with one JSON column per record
type SQLiteDocumentStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteDocumentStore creates a new SQLite-based DocumentStore
func NewSQLiteDocumentStore(db *sql.DB) (*SQLiteDocumentStore, error) {
	s := &SQLiteDocumentStore{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteDocumentStore) createTables() error {
	createDocumentsTable := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);`

	_, err := s.db.Exec(createDocumentsTable)
	return err
}

func (s *SQLiteDocumentStore) CreateRecord(ctx context.Context, collection, id string, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode record %s/%s: %w", collection, id, err)
	}

	now := TimeToString(s.now())
	query := `
	INSERT INTO documents (collection, id, data, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, collection, id, string(data), now, now); err != nil {
		return fmt.Errorf("failed to create record %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLiteDocumentStore) GetRecord(ctx context.Context, collection, id string) (Document, error) {
	query := `SELECT data FROM documents WHERE collection = ? AND id = ?`

	var data string
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record %s/%s: %w", collection, id, err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode record %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *SQLiteDocumentStore) IncrementField(ctx context.Context, collection, id, field string, delta int64) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	path := "$." + field
	now := TimeToString(s.now())

	query := `
	INSERT INTO documents (collection, id, data, created_at, updated_at)
	VALUES (?, ?, json_object(?, ?), ?, ?)
	ON CONFLICT (collection, id) DO UPDATE SET
		data = json_set(documents.data, ?, COALESCE(json_extract(documents.data, ?), 0) + ?),
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		collection, id, field, delta, now, now,
		path, path, delta,
	)
	if err != nil {
		return fmt.Errorf("failed to increment %s on %s/%s: %w", field, collection, id, err)
	}
	return nil
}
