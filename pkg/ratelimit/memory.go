package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxKeys = 10000

// MemoryStore keeps windows in process. The least recently used keys are evicted once
// maxKeys is reached, so idle callers do not accumulate forever.
type MemoryStore struct {
	mu      sync.Mutex
	windows *lru.Cache[string, []time.Time]
}

func NewMemoryStore(maxKeys int) *MemoryStore {
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	cache, err := lru.New[string, []time.Time](maxKeys)
	if err != nil {
		log.Printf("Error creating LRU cache: %v. Using size %d.", err, defaultMaxKeys)
		cache, _ = lru.New[string, []time.Time](defaultMaxKeys)
	}
	return &MemoryStore{windows: cache}
}

func (s *MemoryStore) Consume(_ context.Context, key string, now time.Time, period time.Duration, max int) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window, _ := s.windows.Get(key)

	kept := make([]time.Time, 0, len(window)+1)
	for _, t := range window {
		if now.Sub(t) < period {
			kept = append(kept, t)
		}
	}

	if len(kept) >= max {
		s.windows.Add(key, kept)
		var oldest time.Time
		for _, t := range kept {
			if oldest.IsZero() || t.Before(oldest) {
				oldest = t
			}
		}
		return Decision{Allowed: false, Oldest: oldest}, nil
	}

	kept = append(kept, now)
	s.windows.Add(key, kept)
	return Decision{Allowed: true}, nil
}

// Len reports how many keys are tracked.
func (s *MemoryStore) Len() int {
	return s.windows.Len()
}
