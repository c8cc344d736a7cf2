package memory

import (
	"context"
	"sync"

	"solana-sniper/internal/storage"
)

// SeenPoolStore is an in-memory implementation of storage.SeenPoolStore.
type SeenPoolStore struct {
	mu   sync.RWMutex
	seen map[string]int64 // pool_id -> first seen_at_ms
}

// NewSeenPoolStore creates a new in-memory seen-pool store.
func NewSeenPoolStore() *SeenPoolStore {
	return &SeenPoolStore{
		seen: make(map[string]int64),
	}
}

// Compile-time interface check.
var _ storage.SeenPoolStore = (*SeenPoolStore)(nil)

// MarkSeen records a pool id. Idempotent; keeps the first seen timestamp.
func (s *SeenPoolStore) MarkSeen(_ context.Context, poolID string, seenAtMs int64) error {
	if poolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[poolID]; !exists {
		s.seen[poolID] = seenAtMs
	}
	return nil
}

// IsSeen reports whether the pool id was recorded before.
func (s *SeenPoolStore) IsSeen(_ context.Context, poolID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.seen[poolID]
	return exists, nil
}
