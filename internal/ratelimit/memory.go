package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore keeps bucket state in a mutex-guarded in-process map. Suitable
// for single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]Bucket
}

// NewMemoryStore creates an empty in-memory bucket store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]Bucket)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Bucket, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[key]
	return b, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, b Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[key] = b
	return nil
}
