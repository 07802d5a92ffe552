package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	getDocumentSQL    = `SELECT body FROM documents WHERE key = ?`
	putDocumentSQL    = `INSERT INTO documents (key, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
	deleteDocumentSQL = `DELETE FROM documents WHERE key = ?`
	usageSQL          = `SELECT COALESCE(SUM(LENGTH(key) + LENGTH(body)), 0) FROM documents`
)

// SQLiteStore keeps documents in a single table of a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schema, err := fs.Sub(migrations, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	if err := applySchema(dbPath, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, getDocumentSQL, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}
	return body, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	if _, err := s.db.ExecContext(ctx, putDocumentSQL, key, data); err != nil {
		return fmt.Errorf("put document %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteDocumentSQL, key); err != nil {
		return fmt.Errorf("delete document %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Usage(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, usageSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage usage: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// applySchema brings the database at dbPath up to the newest migration in
// schema. It opens its own connection because the migrate driver closes the
// one it is given.
func applySchema(dbPath string, schema fs.FS) error {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer conn.Close()

	target, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migration driver: %w", err)
	}
	source, err := iofs.New(schema, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
