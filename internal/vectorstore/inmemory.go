package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

type entry struct {
	vec      []float32
	content  string
	metadata map[string]string
}

// InMemory is a brute-force cosine store for small corpora. Safe for
// concurrent use.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]entry)}
}

func (s *InMemory) Upsert(_ context.Context, id string, vector []float32, content string, metadata map[string]string) error {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	vec := append([]float32(nil), vector...)
	s.mu.Lock()
	s.entries[id] = entry{vec: vec, content: content, metadata: meta}
	s.mu.Unlock()
	return nil
}

func (s *InMemory) Get(_ context.Context, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var existing []string
	for _, id := range ids {
		if _, ok := s.entries[id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (s *InMemory) Query(_ context.Context, vector []float32, k int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]Match, 0, len(s.entries))
	for id, e := range s.entries {
		matches = append(matches, Match{
			ID:       id,
			Content:  e.content,
			Metadata: e.metadata,
			Distance: 1 - cosine(vector, e.vec),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
