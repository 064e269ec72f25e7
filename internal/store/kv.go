package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rogers-f/phasebook/internal/domain"
)

// KV is a durable string slot store keyed by name.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// SQLiteKV stores slots in the kv_slots table.
type SQLiteKV struct {
	DB *sql.DB
}

// Get returns the slot value, or ok=false when the key was never written.
func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT slot_value FROM kv_slots WHERE slot_key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, domain.WrapEngineError(domain.ErrStoreQuery.Code, "read slot "+key, err)
	}
	return value, true, nil
}

// Put overwrites the slot value.
func (s *SQLiteKV) Put(ctx context.Context, key, value string) error {
	const q = `INSERT INTO kv_slots (slot_key, slot_value, updated_at_unix) VALUES (?, ?, ?)
ON CONFLICT(slot_key) DO UPDATE SET slot_value = excluded.slot_value, updated_at_unix = excluded.updated_at_unix`
	if _, err := s.DB.ExecContext(ctx, q, key, value, time.Now().Unix()); err != nil {
		return domain.WrapEngineError(domain.ErrStoreWrite.Code, "write slot "+key, err)
	}
	return nil
}

// MemoryKV keeps slots in process memory. Used for ephemeral sessions and tests.
type MemoryKV struct {
	c *cache.Cache
}

// NewMemoryKV creates an empty in-memory slot store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (m *MemoryKV) Put(_ context.Context, key, value string) error {
	m.c.Set(key, value, cache.NoExpiration)
	return nil
}
