package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/mohammad-safakhou/safequery/internal/crawler/seen"
)

type Store struct {
	entries map[string]time.Time
	mu      sync.Mutex
}

func NewSeenStore() seen.Store {
	return &Store{entries: make(map[string]time.Time)}
}

func (s *Store) Seen(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[url]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(s.entries, url)
		return false, nil
	}
	return true, nil
}

func (s *Store) Mark(_ context.Context, url string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[url] = time.Now().Add(ttl)
	return nil
}
