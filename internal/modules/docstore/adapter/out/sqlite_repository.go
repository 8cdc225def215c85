package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"timeblocks/internal/modules/docstore/domain"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	r := &SQLiteRepository{db: db}
	if err := r.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
  namespace TEXT NOT NULL,
  user_id TEXT NOT NULL,
  body TEXT NOT NULL,
  revision INTEGER NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (namespace, user_id)
);
`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, path domain.Path) (domain.Document, bool, error) {
	var (
		body      string
		revision  int64
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
SELECT body, revision, updated_at
FROM documents
WHERE namespace = ? AND user_id = ?;
`, path.Namespace, path.UserID).Scan(&body, &revision, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, false, nil
	}
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("query document: %w", err)
	}
	fields, err := domain.DecodeFields([]byte(body))
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("decode document body: %w", err)
	}
	stamp, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("parse updated_at: %w", err)
	}
	return domain.Document{Path: path, Fields: fields, Revision: revision, UpdatedAt: stamp}, true, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, doc domain.Document) error {
	body, err := doc.Fields.Encode()
	if err != nil {
		return fmt.Errorf("encode document body: %w", err)
	}
	const stmt = `
INSERT INTO documents (namespace, user_id, body, revision, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(namespace, user_id) DO UPDATE SET
  body = excluded.body,
  revision = excluded.revision,
  updated_at = excluded.updated_at;
`
	if _, err := r.db.ExecContext(ctx, stmt,
		doc.Path.Namespace, doc.Path.UserID, string(body), doc.Revision,
		doc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
