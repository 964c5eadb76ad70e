package bookmark

import (
	"sync"
	"time"
)

// MemoryStore keeps bookmarks in process memory. Nothing survives a restart;
// it exists for tests and for full-refresh deployments that never resume.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]time.Time)}
}

func (s *MemoryStore) Get(streamName, partition string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[string(storeKey(streamName, partition))]
	return v, ok, nil
}

func (s *MemoryStore) Set(streamName, partition string, value time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[string(storeKey(streamName, partition))] = value
	return nil
}

func (s *MemoryStore) Close() error { return nil }
