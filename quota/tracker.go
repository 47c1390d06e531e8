// Package quota meters expensive per-user features against tiered monthly
// allowances. Counters live in process memory and reset on calendar month
// boundaries.
package quota

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// UsageRecord is the metering state for one user.
type UsageRecord struct {
	UserID  string    `json:"userId"`
	Tier    Tier      `json:"tier"`
	Used    int       `json:"used"`    // metered operations this calendar month
	Limit   Limit     `json:"-"`       // ceiling for the current tier
	ResetAt time.Time `json:"resetAt"` // first instant of the next calendar month, UTC
}

// Remaining returns how many operations are left this month, and false when
// the tier is unlimited.
func (r UsageRecord) Remaining() (int, bool) {
	ceiling, ok := r.Limit.Ceiling()
	if !ok {
		return 0, false
	}
	left := ceiling - r.Used
	if left < 0 {
		left = 0
	}
	return left, true
}

// Decision is the outcome of a quota check. Exhaustion is data, not an error.
type Decision struct {
	Allowed bool
	Reason  string // human-readable denial message naming the reset date
	Usage   UsageRecord
}

// Tracker meters feature usage per user. All map access runs under one mutex;
// the check and any rollover happen in the same critical section, so a stale
// allowed flag can never be observed.
type Tracker struct {
	mu      sync.Mutex
	records map[string]*UsageRecord
	limits  map[Tier]Limit
	clock   func() time.Time
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces the time source, mainly for tests.
func WithClock(clock func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithTierLimits replaces the built-in tier allowance table.
func WithTierLimits(limits map[Tier]Limit) TrackerOption {
	return func(t *Tracker) {
		t.limits = limits
	}
}

// NewTracker creates an empty Tracker. Records are created lazily at the free
// tier on first use.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		records: make(map[string]*UsageRecord),
		limits:  DefaultTierLimits(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// nextMonthStart returns the first instant of the month after now, in UTC.
func nextMonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// record returns the live record for userID, creating it at the free tier and
// rolling the month over when needed. Callers must hold t.mu.
func (t *Tracker) record(userID string) *UsageRecord {
	now := t.clock()
	r, ok := t.records[userID]
	if !ok {
		r = &UsageRecord{
			UserID:  userID,
			Tier:    TierFree,
			Limit:   t.limits[TierFree],
			ResetAt: nextMonthStart(now),
		}
		t.records[userID] = r
		log.Debug().Str("user_id", userID).Time("reset_at", r.ResetAt).Msg("usage record created at free tier")
		return r
	}
	if !now.Before(r.ResetAt) {
		r.Used = 0
		r.ResetAt = nextMonthStart(now)
		log.Debug().Str("user_id", userID).Time("reset_at", r.ResetAt).Msg("monthly usage rolled over")
	}
	return r
}

// Usage returns the current record for userID, after any month rollover.
func (t *Tracker) Usage(userID string) UsageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	return *t.record(userID)
}

// CanUse reports whether userID may perform one more metered operation this
// month. The answer is recomputed from live state on every call.
func (t *Tracker) CanUse(userID string) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.record(userID)
	if r.Limit.Allows(r.Used) {
		return Decision{Allowed: true, Usage: *r}
	}

	reason := fmt.Sprintf("monthly limit of %s reached, quota resets on %s", r.Limit, r.ResetAt.Format("January 2, 2006"))
	log.Warn().Str("user_id", userID).Str("tier", string(r.Tier)).Int("used", r.Used).Msg("quota exhausted")
	return Decision{Allowed: false, Reason: reason, Usage: *r}
}

// Record charges one metered operation to userID. Call it only after the
// operation was attempted; denials must not be charged.
func (t *Tracker) Record(userID string) UsageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.record(userID)
	r.Used++
	log.Debug().Str("user_id", userID).Int("used", r.Used).Str("limit", r.Limit.String()).Msg("usage recorded")
	return *r
}

// SetTier is the administrative tier override. Current-month usage is kept;
// only the ceiling changes.
func (t *Tracker) SetTier(userID string, tier Tier) (UsageRecord, error) {
	limit, ok := t.limits[tier]
	if !ok {
		return UsageRecord{}, fmt.Errorf("no limit configured for tier %q", tier)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.record(userID)
	r.Tier = tier
	r.Limit = limit
	log.Info().Str("user_id", userID).Str("tier", string(tier)).Str("limit", limit.String()).Msg("tier updated")
	return *r, nil
}

// Sweep rolls over every stale record. Correctness never depends on it (reads
// roll over lazily); it only keeps long-idle records from reporting stale
// months to direct map inspection and bounds nothing otherwise.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rolled := 0
	for _, r := range t.records {
		if !now.Before(r.ResetAt) {
			r.Used = 0
			r.ResetAt = nextMonthStart(now)
			rolled++
		}
	}
	return rolled
}

// Len returns the number of tracked users.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.records)
}
