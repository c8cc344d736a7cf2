package memory

import (
	"context"
	"sync"

	"solana-sniper/internal/storage"
)

// RuntimeStateStore is an in-memory implementation of storage.RuntimeStateStore.
type RuntimeStateStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewRuntimeStateStore creates a new in-memory runtime state store.
func NewRuntimeStateStore() *RuntimeStateStore {
	return &RuntimeStateStore{
		data: make(map[string][]byte),
	}
}

// Compile-time interface check.
var _ storage.RuntimeStateStore = (*RuntimeStateStore)(nil)

// Set stores a value under key, replacing any prior value.
func (s *RuntimeStateStore) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

// Get retrieves the value for key. Returns ErrNotFound if not exists.
func (s *RuntimeStateStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}
