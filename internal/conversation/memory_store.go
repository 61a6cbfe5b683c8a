package conversation

import (
	"context"
	"sync"
	"time"

	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/repository"
)

var _ repository.StateRepository = (*MemoryStore)(nil)

// MemoryStore keeps states in process memory. A zero ttl never expires entries.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]model.StateEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[int64]model.StateEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, conv int64) (model.StateEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[conv]
	if !ok {
		return model.StateEntry{}, false, nil
	}
	if s.ttl > 0 && s.now().Sub(e.CreatedAt) > s.ttl {
		delete(s.entries, conv)
		return model.StateEntry{}, false, nil
	}
	return e, true, nil
}

func (s *MemoryStore) Set(_ context.Context, conv int64, entry model.StateEntry) error {
	s.mu.Lock()
	s.entries[conv] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, conv int64) error {
	s.mu.Lock()
	delete(s.entries, conv)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
