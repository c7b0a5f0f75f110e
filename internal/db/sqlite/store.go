// Package sqlite stores documents and serves full-text queries via FTS5.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/refbase-io/refbase/internal/domain"
)

// Store wraps a SQLite database holding the document catalog and its
// FTS5 shadow table.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at path and initializes the
// schema. An empty path opens an in-memory database.
func NewStore(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer keeps FTS5 updates free of lock contention.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		access_scope TEXT NOT NULL DEFAULT '',
		person_ids TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		embedded_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_documents_pending
		ON documents(updated_at) WHERE embedded_at IS NULL;

	CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents
		USING fts5(content, doc_id UNINDEXED);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertDocument inserts or replaces a document and its FTS row.
// The document is reset to pending since its content may have changed.
func (s *Store) UpsertDocument(ctx context.Context, doc *domain.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.EmbeddedAt = nil

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, content, category, department, access_scope, person_ids, created_at, updated_at, embedded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)
		 ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			category = excluded.category,
			department = excluded.department,
			access_scope = excluded.access_scope,
			person_ids = excluded.person_ids,
			updated_at = excluded.updated_at,
			embedded_at = NULL`,
		doc.ID, doc.Content, doc.Category, doc.Department, doc.AccessScope,
		domain.EncodePersonIDs(doc.PersonIDs), toMillis(doc.CreatedAt), toMillis(doc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_documents WHERE doc_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("reindex fts for %s: %w", doc.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO fts_documents (content, doc_id) VALUES (?, ?)`, doc.Content, doc.ID); err != nil {
		return fmt.Errorf("index fts for %s: %w", doc.ID, err)
	}

	return tx.Commit()
}

// GetDocument returns a document by ID, or domain.ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, category, department, access_scope, person_ids, created_at, updated_at, embedded_at
		 FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document and its FTS row.
// Deleting an unknown ID is a no-op.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_documents WHERE doc_id = ?`, id); err != nil {
		return fmt.Errorf("delete fts for %s: %w", id, err)
	}
	return tx.Commit()
}

// ListPending returns up to limit documents without an embedding,
// oldest update first so retries do not starve newer documents.
func (s *Store) ListPending(ctx context.Context, limit int) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, category, department, access_scope, person_ids, created_at, updated_at, embedded_at
		 FROM documents WHERE embedded_at IS NULL
		 ORDER BY updated_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// CountAll returns the total number of documents.
func (s *Store) CountAll(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountEmbedded returns the number of documents with an embedding.
func (s *Store) CountEmbedded(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE embedded_at IS NOT NULL`).Scan(&count)
	return count, err
}

// MarkEmbedded records the embedding timestamp for a document.
func (s *Store) MarkEmbedded(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET embedded_at = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("mark embedded %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkPending clears the embedding timestamp for a document.
func (s *Store) MarkPending(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET embedded_at = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark pending %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ResetAllPending clears the embedding timestamp on every document.
func (s *Store) ResetAllPending(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET embedded_at = NULL`)
	return err
}

// LexicalHit is one FTS5 match with its raw bm25 rank, where more
// negative means more relevant.
type LexicalHit struct {
	DocID string
	Rank  float64
}

// SearchLexical runs an FTS5 MATCH query joined against the document
// catalog so metadata filters apply as additional AND predicates.
func (s *Store) SearchLexical(ctx context.Context, match string, f domain.Filters, limit int) ([]LexicalHit, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT f.doc_id, bm25(fts_documents) AS rank
		FROM fts_documents f JOIN documents d ON d.id = f.doc_id
		WHERE fts_documents MATCH ?`)
	args := []any{match}

	if f.Category != "" {
		sb.WriteString(` AND d.category = ?`)
		args = append(args, f.Category)
	}
	if f.DeptName != "" {
		sb.WriteString(` AND d.department = ?`)
		args = append(args, f.DeptName)
	}
	if f.PersonID != "" {
		sb.WriteString(` AND instr(',' || d.person_ids || ',', ?) > 0`)
		args = append(args, ","+f.PersonID+",")
	}
	if f.DateFrom != nil {
		sb.WriteString(` AND d.created_at >= ?`)
		args = append(args, toMillis(*f.DateFrom))
	}
	if f.DateTo != nil {
		sb.WriteString(` AND d.created_at <= ?`)
		args = append(args, toMillis(*f.DateTo))
	}

	sb.WriteString(` ORDER BY rank LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var h LexicalHit
		if err := rows.Scan(&h.DocID, &h.Rank); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc        domain.Document
		personIDs  string
		createdAt  int64
		updatedAt  int64
		embeddedAt sql.NullInt64
	)
	err := row.Scan(&doc.ID, &doc.Content, &doc.Category, &doc.Department,
		&doc.AccessScope, &personIDs, &createdAt, &updatedAt, &embeddedAt)
	if err != nil {
		return nil, err
	}

	doc.PersonIDs = domain.DecodePersonIDs(personIDs)
	doc.CreatedAt = fromMillis(createdAt)
	doc.UpdatedAt = fromMillis(updatedAt)
	if embeddedAt.Valid {
		t := fromMillis(embeddedAt.Int64)
		doc.EmbeddedAt = &t
	}
	return &doc, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
