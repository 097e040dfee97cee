// Package sqlite persists session local-storage slots in a SQLite file so a
// restarted dashboard keeps clients signed in.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite local storage.
type Config struct {
	DBPath string // path to the SQLite database file, e.g. "data/stocktrend.db"
}

// LocalStorage is a key/value table with local-storage semantics.
type LocalStorage struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database in WAL mode and ensures the schema.
func Open(cfg Config) (*LocalStorage, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite opened", "path", cfg.DBPath)
	return &LocalStorage{db: db, now: time.Now}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS local_storage (
			item_key   TEXT    NOT NULL PRIMARY KEY,
			item_value TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (s *LocalStorage) DB() *sql.DB { return s.db }

// GetItem returns the stored value and whether the key exists. A hit also
// refreshes updated_at, so PruneBefore only removes items nobody has read.
func (s *LocalStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`UPDATE local_storage SET updated_at = ? WHERE item_key = ? RETURNING item_value`,
		s.now().Unix(), key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get %q: %w", key, err)
	}
	return v, true, nil
}

// SetItem inserts or replaces the value for key.
func (s *LocalStorage) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_storage (item_key, item_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(item_key) DO UPDATE SET item_value = excluded.item_value, updated_at = excluded.updated_at
	`, key, value, s.now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite set %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *LocalStorage) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE item_key = ?`, key); err != nil {
		return fmt.Errorf("sqlite remove %q: %w", key, err)
	}
	return nil
}

// Len returns the number of stored items.
func (s *LocalStorage) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM local_storage`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return n, nil
}

// PruneBefore deletes items neither written nor read since cutoff and returns how many were removed.
func (s *LocalStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE updated_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *LocalStorage) Close() error {
	return s.db.Close()
}
