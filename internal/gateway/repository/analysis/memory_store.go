package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(_ context.Context, id string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	id, err := NormalizeID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for id := range s.data {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
