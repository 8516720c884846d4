package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store intended for tests, examples and
// single-process hosts. It keys records by Ref.Identifier().
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Checkpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Checkpoint{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (Checkpoint, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Checkpoint{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return Checkpoint{}, false, nil
	}
	return clone(record), true, nil
}

func (s *MemoryStore) Save(_ context.Context, cp Checkpoint) (Checkpoint, error) {
	key, err := cp.Ref().Identifier()
	if err != nil {
		return Checkpoint{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	previous, found := s.records[key]
	saved, err := prepare(cp, previous, found)
	if err != nil {
		return Checkpoint{}, err
	}
	s.records[key] = saved
	return clone(saved), nil
}
