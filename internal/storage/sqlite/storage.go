// Package sqlite implements the storage adapter contract on a SQLite
// database. Schema changes ship as embedded goose migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mkravets/offsync/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage is the SQLite adapter implementation.
type Storage struct {
	db *sql.DB
}

var _ storage.Adapter = (*Storage)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx so the per-table helpers
// can run standalone or inside ApplyMutation's transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode supports concurrent readers but a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) runMigrations() error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// DB returns the underlying connection for testing purposes.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// ApplyMutation persists payload, metadata, and queue entry in one
// transaction, with a compare-and-set on the stored metadata version.
func (s *Storage) ApplyMutation(ctx context.Context, m storage.Mutation) error {
	if m.Entity == nil || m.Metadata == nil {
		return fmt.Errorf("mutation requires entity and metadata")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := saveEntity(ctx, tx, m.Entity); err != nil {
		return err
	}
	if err := setMetadata(ctx, tx, m.Metadata, m.Metadata.Version-1); err != nil {
		return err
	}
	if m.Operation != nil {
		if err := appendOperation(ctx, tx, m.Operation); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mutation: %w", err)
	}

	return nil
}
