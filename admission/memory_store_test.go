package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUpdateCreatesMissingEntry(t *testing.T) {
	s := NewMemoryStore()

	s.Update("k", func(e *Entry, found bool) {
		assert.False(t, found)
		e.Count = 1
		e.WindowResetAt = time.Date(2026, time.March, 1, 12, 1, 0, 0, time.UTC)
	})

	e, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, e.Count)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	s := NewMemoryStore()
	s.Upsert("k", Entry{Count: 5})
	s.Upsert("k", Entry{Count: 7})

	e, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, 7, e.Count)
}

func TestMemoryStoreSweep(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	s.Upsert("expired", Entry{Count: 1, WindowResetAt: now.Add(-time.Minute)})
	s.Upsert("live", Entry{Count: 1, WindowResetAt: now.Add(time.Minute)})
	s.Upsert("blocked", Entry{
		Count:         9,
		WindowResetAt: now.Add(-time.Hour),
		Blocked:       true,
		BlockedUntil:  now.Add(time.Hour),
	})

	removed := s.Sweep(now)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, s.Len())

	_, ok := s.Get("expired")
	assert.False(t, ok)
	_, ok = s.Get("blocked")
	assert.True(t, ok)
}

func TestMemoryStoreSweepAfterBlockExpiry(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()

	s.Upsert("served", Entry{
		Count:         9,
		WindowResetAt: now.Add(-2 * time.Hour),
		Blocked:       true,
		BlockedUntil:  now.Add(-time.Hour),
	})

	assert.Equal(t, 1, s.Sweep(now))
	assert.Equal(t, 0, s.Len())
}
