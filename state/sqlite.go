package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements StateStore on a SQLite file. It is the on-device
// durable cache: values survive restarts and every Put is committed before it
// returns.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	hub    watchHub
	closed atomic.Bool
}

// NewSQLiteStore opens (or creates) the cache database.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		modified INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get retrieves a value by key.
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRowContext(context.Background(),
		"SELECT value FROM cache_entries WHERE key = ?", key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	return value, nil
}

// Put stores value, replacing any previous entry.
func (s *SQLiteStore) Put(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	val := clone(value)
	if val == nil {
		val = []byte{}
	}

	s.mu.Lock()
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO cache_entries (key, value, modified) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, modified = excluded.modified`,
		key, val, time.Now().UnixNano(),
	)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}

	s.hub.notify(key, clone(val), OpPut)
	return nil
}

// Delete removes a key.
func (s *SQLiteStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	res, err := s.db.ExecContext(context.Background(), "DELETE FROM cache_entries WHERE key = ?", key)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		s.hub.notify(key, nil, OpDelete)
	}
	return nil
}

// Keys returns all keys matching a pattern.
func (s *SQLiteStore) Keys(pattern string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT key FROM cache_entries ORDER BY key"
	var args []any
	if pattern != "" && pattern != "*" && strings.HasSuffix(pattern, "*") {
		query = "SELECT key FROM cache_entries WHERE substr(key, 1, ?) = ? ORDER BY key"
		prefix := strings.TrimSuffix(pattern, "*")
		args = []any{len(prefix), prefix}
	}

	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		if MatchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return keys, nil
}

// Watch streams changes made through this store instance.
func (s *SQLiteStore) Watch(pattern string) (<-chan *KeyValue, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.hub.add(pattern), nil
}

// Close closes the database and all watch channels.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.hub.close()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
