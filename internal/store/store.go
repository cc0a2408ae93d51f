// Package store provides the Persistent Mirror: a process-wide keyed string
// store that survives restarts and caches the last-fetched record pages.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Mirror is the key-value contract every cache consumer depends on.
// Values are opaque strings; writes are last-writer-wins.
type Mirror interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Clear(key string) error
}

// Well-known mirror keys. Paginated caches are keyed by the data source name.
const (
	KeyRenderItems         = "StoredRenderItems"
	KeyNotificationTargets = "NotificationTargets"
)

// Store is the SQLite-backed Mirror. Open one in main and hand it to every
// consumer; all methods may be called concurrently.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ Mirror = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS mirror (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL
)`

// Open opens (or creates) the mirror database at path. ":memory:" gives a
// private in-process database; file databases run in WAL mode.
func Open(path string) (*Store, error) {
	inMemory := path == ":memory:"
	dsn := path
	if inMemory {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mirror %s: %w", path, err)
	}
	if inMemory {
		// one connection, or each pool member would see its own database
		db.SetMaxOpenConns(1)
	}

	setup := []string{schema}
	if !inMemory {
		setup = append([]string{"PRAGMA journal_mode=WAL"}, setup...)
	}
	for _, stmt := range setup {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare mirror %s: %w", path, err)
		}
	}
	return &Store{db: db}, nil
}

// Close waits for in-flight calls and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM mirror WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO mirror (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Clear removes key. Clearing a missing key is not an error.
func (s *Store) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM mirror WHERE key = ?", key); err != nil {
		return fmt.Errorf("clear %q: %w", key, err)
	}
	return nil
}

// Keys lists every stored key in lexical order.
func (s *Store) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT key FROM mirror ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
