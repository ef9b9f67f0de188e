package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/state"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/data/db"
)

const (
	busyRetries = 3
	busyWait    = 50 * time.Millisecond
)

// SQLiteStorage implements state.Storage on the storage table.
type SQLiteStorage struct {
	db  *db.DB
	now func() time.Time
}

var _ state.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a storage on an open database.
func NewSQLiteStorage(database *db.DB) *SQLiteStorage {
	return &SQLiteStorage{db: database, now: time.Now}
}

// OpenSQLiteStorage opens the database at path. A corrupted database file is
// moved aside and replaced with an empty one.
func OpenSQLiteStorage(path string, logger zerolog.Logger) (*SQLiteStorage, error) {
	opts := db.DefaultOpenOptions()
	opts.Logger = logger

	database, err := db.Open(path, opts)
	if err != nil && IsCorruptionError(err) {
		backup, rerr := RecoverFromCorruption(path, time.Now())
		if rerr != nil {
			return nil, fmt.Errorf("recover corrupted database: %w", rerr)
		}
		logger.Warn().Err(err).Str("backup", backup).Msg("database corrupted, starting fresh")
		database, err = db.Open(path, opts)
	}
	if err != nil {
		return nil, err
	}

	return NewSQLiteStorage(database), nil
}

// Get returns the value stored under key, or state.ErrNotFound.
func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.Conn().QueryRowContext(ctx, "SELECT value FROM storage WHERE key = ?", key).Scan(&value)
	if IsNotFoundError(err) {
		return "", state.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage get %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, retrying briefly while the database is busy.
func (s *SQLiteStorage) Set(ctx context.Context, key, value string) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		_, err = s.db.Conn().ExecContext(ctx, `
			INSERT INTO storage (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, s.now().UnixNano())
		if !IsBusyError(err) {
			break
		}
		time.Sleep(busyWait)
	}
	if err != nil {
		return fmt.Errorf("storage set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Missing keys are not an error.
func (s *SQLiteStorage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.Conn().ExecContext(ctx, "DELETE FROM storage WHERE key = ?", key); err != nil {
		return fmt.Errorf("storage remove %q: %w", key, err)
	}
	return nil
}

// Keys returns every stored key in ascending order.
func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.Conn().QueryContext(ctx, "SELECT key FROM storage ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("storage keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("storage keys scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
