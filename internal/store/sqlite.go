package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danmuck/schemakit/internal/schema"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS schemas (
	schema_id  TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	doc        TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS schemas_user_id ON schemas(user_id);
`

// SQLite stores each document as a JSON text column next to its id and owner.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at dsn.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %q: %w", dsn, err)
	}
	// one writer; sqlite serializes writes anyway and this avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init sqlite schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

var _ Store = (*SQLite)(nil)

func (s *SQLite) Insert(ctx context.Context, doc schema.Document) error {
	id, err := docID(doc)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}
	ts := s.now().UnixMilli()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO schemas (schema_id, user_id, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, docOwner(doc), string(raw), ts, ts)
	if isPrimaryKeyViolation(err) {
		return ErrDuplicateID
	}
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) FindOne(ctx context.Context, schemaID, userID string) (schema.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM schemas WHERE schema_id = ? AND (? = '' OR user_id = ?)`,
		schemaID, userID, userID)
	return scanDoc(row, schemaID)
}

func (s *SQLite) UpdateOne(ctx context.Context, schemaID, userID string, set schema.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin update %s: %w", schemaID, err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT doc FROM schemas WHERE schema_id = ? AND (? = '' OR user_id = ?)`,
		schemaID, userID, userID)
	doc, err := scanDoc(row, schemaID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc.Merge(withoutKeys(set)))
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", schemaID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE schemas SET doc = ?, updated_at = ? WHERE schema_id = ?`,
		string(raw), s.now().UnixMilli(), schemaID); err != nil {
		return fmt.Errorf("store: update %s: %w", schemaID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit update %s: %w", schemaID, err)
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func scanDoc(row *sql.Row, schemaID string) (schema.Document, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: find %s: %w", schemaID, err)
	}
	return decodeDoc([]byte(raw))
}

func isPrimaryKeyViolation(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	code := sqlErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
