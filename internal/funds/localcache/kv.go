// Package localcache is the node-local fallback for favorites and view
// settings. It is always available and never reaches the network.
package localcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MaxValueBytes bounds every stored value
const MaxValueBytes = 64 << 10

// ErrValueTooLarge is returned by Put for values above MaxValueBytes
var ErrValueTooLarge = errors.New("local cache value too large")

// KV is a bounded string store partitioned by scope (the user key)
type KV interface {
	Get(ctx context.Context, scope, name string) (string, bool, error)
	Put(ctx context.Context, scope, name, value string) error
	// PutAll writes every entry or none of them
	PutAll(ctx context.Context, scope string, values map[string]string) error
}

func checkSizes(values map[string]string) error {
	for name, v := range values {
		if len(v) > MaxValueBytes {
			return fmt.Errorf("%w: %s is %d bytes", ErrValueTooLarge, name, len(v))
		}
	}
	return nil
}

// MemoryKV keeps values in process memory
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV creates an empty in-memory store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, scope, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[scope+"\x00"+name]
	return v, ok, nil
}

func (m *MemoryKV) Put(_ context.Context, scope, name, value string) error {
	if len(value) > MaxValueBytes {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(value))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+"\x00"+name] = value
	return nil
}

func (m *MemoryKV) PutAll(_ context.Context, scope string, values map[string]string) error {
	if err := checkSizes(values); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, v := range values {
		m.values[scope+"\x00"+name] = v
	}
	return nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS local_kv (
	scope      TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (scope, name)
)`

// SQLiteKV persists values in a SQLite table
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV creates the table if needed
func NewSQLiteKV(db *sql.DB) (*SQLiteKV, error) {
	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create local_kv table: %w", err)
	}
	return &SQLiteKV{db: db}, nil
}

func (s *SQLiteKV) Get(ctx context.Context, scope, name string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM local_kv WHERE scope = ? AND name = ?`, scope, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return value, true, nil
}

const upsertSQL = `
	INSERT INTO local_kv (scope, name, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT (scope, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (s *SQLiteKV) Put(ctx context.Context, scope, name, value string) error {
	if len(value) > MaxValueBytes {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(value))
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, scope, name, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteKV) PutAll(ctx context.Context, scope string, values map[string]string) error {
	if err := checkSizes(values); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin local cache write: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for name, v := range values {
		if _, err := tx.ExecContext(ctx, upsertSQL, scope, name, v, now); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit local cache write: %w", err)
	}
	return nil
}
