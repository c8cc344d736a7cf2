package postgres

import (
	"context"
	"fmt"

	"solana-sniper/internal/storage"
)

// SeenPoolStore implements storage.SeenPoolStore using PostgreSQL.
type SeenPoolStore struct {
	pool *Pool
}

// NewSeenPoolStore creates a new SeenPoolStore.
func NewSeenPoolStore(pool *Pool) *SeenPoolStore {
	return &SeenPoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeenPoolStore = (*SeenPoolStore)(nil)

// MarkSeen records a pool id. Idempotent.
func (s *SeenPoolStore) MarkSeen(ctx context.Context, poolID string, seenAtMs int64) error {
	query := `
		INSERT INTO seen_pools (pool_id, seen_at)
		VALUES ($1, $2)
		ON CONFLICT (pool_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, poolID, seenAtMs); err != nil {
		return fmt.Errorf("mark pool seen: %w", err)
	}
	return nil
}

// IsSeen reports whether the pool id was recorded before.
func (s *SeenPoolStore) IsSeen(ctx context.Context, poolID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM seen_pools WHERE pool_id = $1)`

	var seen bool
	if err := s.pool.QueryRow(ctx, query, poolID).Scan(&seen); err != nil {
		return false, fmt.Errorf("check pool seen: %w", err)
	}
	return seen, nil
}
