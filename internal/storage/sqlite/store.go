// Package sqlite provides the durable implementation of the storage
// collaborator, backed by a single SQLite file.
//
// All records live in one records(relation, key, value) table with values
// as JSON text. SQLite's per-statement atomicity gives each Put the
// crash-atomicity the storage contract requires without explicit
// transactions.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/weft/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (records table + relation index)
const currentSchemaVersion = 1

// Store is a SQLite-backed storage.Storage.
// Uses WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

var _ storage.Storage = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1) // Keep one connection ready

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements storage.Storage.
func (s *Store) Get(ctx context.Context, relation, key string) (storage.Record, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM records WHERE relation = ? AND key = ?
	`, relation, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", relation, key, err)
	}

	rec, err := storage.DecodeRecord(value)
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", relation, key, err)
	}
	return rec, true, nil
}

// Put implements storage.Storage.
// Uses ON CONFLICT DO UPDATE so a rewrite of an existing record is a single
// atomic statement.
func (s *Store) Put(ctx context.Context, relation, key string, rec storage.Record) error {
	value, err := storage.EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", relation, key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (relation, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(relation, key) DO UPDATE SET value = excluded.value
	`, relation, key, value)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", relation, key, err)
	}
	return nil
}

// Delete implements storage.Storage. Deleting a missing record is a no-op.
func (s *Store) Delete(ctx context.Context, relation, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE relation = ? AND key = ?
	`, relation, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", relation, key, err)
	}
	return nil
}

// Find implements storage.Storage.
// Rows are scanned in key order (BINARY collation) so results are
// deterministic across calls; the filter is applied over decoded records.
func (s *Store) Find(ctx context.Context, relation string, filter storage.Filter) ([]storage.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM records
		WHERE relation = ?
		ORDER BY key COLLATE BINARY ASC
	`, relation)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", relation, err)
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("find %s: scan: %w", relation, err)
		}
		rec, err := storage.DecodeRecord(value)
		if err != nil {
			return nil, fmt.Errorf("find %s/%s: %w", relation, key, err)
		}
		if storage.Matches(rec, filter) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", relation, err)
	}
	return out, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps the schema
// version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}
