package admission

import (
	"time"
)

// Entry holds the counter state for a single key.
type Entry struct {
	Count         int       // requests observed in the current window
	WindowResetAt time.Time // when Count goes back to zero
	Blocked       bool      // set once Count exceeded the policy limit
	BlockedUntil  time.Time // admission denied unconditionally until this passes
}

// expired reports whether both the window and any block have passed, making
// the entry inert and safe to evict.
func (e Entry) expired(now time.Time) bool {
	if !now.After(e.WindowResetAt) {
		return false
	}
	return !e.Blocked || now.After(e.BlockedUntil)
}

// Store defines the interface for keeping per-key window counters.
type Store interface {
	// Get returns the entry for key, if present.
	Get(key string) (Entry, bool)

	// Upsert replaces or inserts the entry for key.
	Upsert(key string, e Entry)

	// Update runs fn on the entry for key under the store's exclusion, then
	// persists the result. A missing key is presented to fn as a zero Entry
	// with found=false. No other Update, Get or Sweep interleaves with fn,
	// which makes the controller's check-then-act sequence atomic per store.
	Update(key string, fn func(e *Entry, found bool))

	// Sweep removes entries whose window and block have both expired as of
	// now and returns how many were removed. Purely a memory bound, never
	// required for correctness.
	Sweep(now time.Time) int

	// Len returns the number of live entries.
	Len() int
}
