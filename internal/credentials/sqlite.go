package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps credentials in a single key-value table, keyed by
// backend name, so they survive between sessions.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the store at path. Use
// ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("credentials: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("credentials: open: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("credentials: init: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SetKey(ctx context.Context, backend, apiKey string) error {
	return s.put(ctx, backend, apiKey)
}

func (s *SQLiteStore) Key(ctx context.Context, backend string) (Credential, error) {
	v, _, err := s.get(ctx, backend)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Backend: backend, APIKey: v}, nil
}

func (s *SQLiteStore) SetSelectedBackend(ctx context.Context, backend string) error {
	return s.put(ctx, selectedBackendKey, backend)
}

func (s *SQLiteStore) SelectedBackend(ctx context.Context) (string, bool, error) {
	v, ok, err := s.get(ctx, selectedBackendKey)
	return v, ok && v != "", err
}

func (s *SQLiteStore) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("credentials: put %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("credentials: get %s: %w", key, err)
	}
	return v, true, nil
}
