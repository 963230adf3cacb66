package memory

import (
	"context"
	"sync"
	"time"
)

// ActivityStore is the process-local idle clock.
type ActivityStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewActivityStore() *ActivityStore {
	return &ActivityStore{last: make(map[string]time.Time)}
}

func (s *ActivityStore) SetLastActivity(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last[userID] = at
	return nil
}

func (s *ActivityStore) GetLastActivity(_ context.Context, userID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.last[userID]
	return at, ok, nil
}

func (s *ActivityStore) DeleteActivity(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.last, userID)
	return nil
}
