package memory

import (
	"context"
	"errors"
	"sync"
)

var errDuplicateKey = errors.New("E11000 duplicate key error")

// StateStore holds the active shard pointer in memory.
type StateStore struct {
	mu    sync.Mutex
	index int
	set   bool
	// Writes counts Set calls.
	Writes int
}

// NewStateStore creates an empty state store. Pass an index to start with a
// persisted value.
func NewStateStore(initial ...int) *StateStore {
	s := &StateStore{}
	if len(initial) > 0 {
		s.index, s.set = initial[0], true
	}
	return s
}

func (s *StateStore) Get(ctx context.Context) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.set, nil
}

func (s *StateStore) Set(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index, s.set = index, true
	s.Writes++
	return nil
}
