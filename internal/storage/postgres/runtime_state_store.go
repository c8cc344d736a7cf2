package postgres

import (
	"context"
	"fmt"

	"solana-sniper/internal/storage"
)

// RuntimeStateStore implements storage.RuntimeStateStore using PostgreSQL.
// Values are opaque JSON blobs stored as BYTEA.
type RuntimeStateStore struct {
	pool *Pool
}

// NewRuntimeStateStore creates a new RuntimeStateStore.
func NewRuntimeStateStore(pool *Pool) *RuntimeStateStore {
	return &RuntimeStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RuntimeStateStore = (*RuntimeStateStore)(nil)

// Set stores a JSON-encoded value under key, replacing any prior value.
func (s *RuntimeStateStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO runtime_state (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("set runtime state: %w", err)
	}
	return nil
}

// Get retrieves the value for key. Returns ErrNotFound if not exists.
func (s *RuntimeStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM runtime_state WHERE key = $1`

	var value []byte
	if err := s.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get runtime state: %w", err)
	}
	return value, nil
}
