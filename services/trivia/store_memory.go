package trivia

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps active rounds in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	rounds map[string]Round
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rounds: make(map[string]Round)}
}

func (s *MemoryStore) Save(_ context.Context, r Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[r.ID] = r
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[id]
	if !ok {
		return Round{}, fmt.Errorf("%w: %s", ErrRoundNotFound, id)
	}
	return r, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rounds[id]; !ok {
		return false, nil
	}
	delete(s.rounds, id)
	return true, nil
}

// List returns rounds oldest first.
func (s *MemoryStore) List(_ context.Context) ([]Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Round, 0, len(s.rounds))
	for _, r := range s.rounds {
		out = append(out, r)
	}
	sortRounds(out)
	return out, nil
}

func sortRounds(rounds []Round) {
	sort.Slice(rounds, func(i, j int) bool {
		if rounds[i].PostedAt.Equal(rounds[j].PostedAt) {
			return rounds[i].ID < rounds[j].ID
		}
		return rounds[i].PostedAt.Before(rounds[j].PostedAt)
	})
}
