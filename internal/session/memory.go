package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps checkpoints for the lifetime of the process.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*Checkpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]*Checkpoint)}
}

func (s *MemoryStore) Save(ctx context.Context, cp *Checkpoint) error {
	if cp == nil || cp.SessionID == "" {
		return fmt.Errorf("checkpoint must have a session id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cp.Clone()
	if prev, ok := s.checkpoints[cp.SessionID]; ok && stored.CreatedAt.IsZero() {
		stored.CreatedAt = prev.CreatedAt
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	s.checkpoints[cp.SessionID] = stored
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return cp.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, sessionID)
	return nil
}

// List returns session ids in lexical order.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.checkpoints))
	for id := range s.checkpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }
