package admission

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// memoryStore implements the Store interface using an in-memory map guarded by
// a single mutex. One store backs one controller, so contention is bounded by
// that controller's traffic.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates a new in-memory counter store.
func NewMemoryStore() Store {
	return &memoryStore{
		entries: make(map[string]Entry),
	}
}

// Get implements the Store interface.
func (s *memoryStore) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return e, ok
}

// Upsert implements the Store interface.
func (s *memoryStore) Upsert(key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = e
}

// Update implements the Store interface. fn runs with the mutex held, so it
// must not block; the controller only does arithmetic inside it.
func (s *memoryStore) Update(key string, fn func(e *Entry, found bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[key]
	fn(&e, found)
	s.entries[key] = e
}

// Sweep implements the Store interface.
func (s *memoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(s.entries)).Msg("swept expired rate limit entries")
	}
	return removed
}

// Len implements the Store interface.
func (s *memoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
