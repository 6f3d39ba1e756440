package mirror

import (
	"context"
	"sync"
)

type memStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore returns a Store living in process memory.
func NewMemoryStore() *memStore {
	return &memStore{docs: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *memStore) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Close() error { return nil }
