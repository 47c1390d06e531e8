package admission

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storyloom/gate/meta"
)

// Decision is the outcome of one admission check. Denials are data, not
// errors: the caller translates them into a throttling response.
type Decision struct {
	Allowed    bool          // whether the request may proceed
	Limit      int           // the policy ceiling, for response headers
	Remaining  int           // requests left in the current window
	ResetAt    time.Time     // when the current window ends
	RetryAfter time.Duration // how long to wait when denied, zero when allowed
	Blocked    bool          // whether the key is in a punitive block
}

// RetryAfterSeconds returns the retry hint rounded up to whole seconds, the
// granularity of the Retry-After header.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	secs := int(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// Controller decides per-request admission for one route class. It owns its
// counter store exclusively; all access goes through Check and Sweep.
type Controller struct {
	class   Class
	policy  Policy
	store   Store
	clock   func() time.Time
	metrics *Metrics
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithClock replaces the time source, mainly for tests.
func WithClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithStore replaces the default in-memory store.
func WithStore(store Store) ControllerOption {
	return func(c *Controller) {
		c.store = store
	}
}

// WithMetrics attaches decision counters. A nil Metrics is ignored.
func WithMetrics(m *Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

// NewController creates a Controller for the given class and policy. A nil
// policy KeyFunc defaults to keying by source address.
func NewController(class Class, policy Policy, opts ...ControllerOption) *Controller {
	if policy.KeyFunc == nil {
		policy.KeyFunc = IPKey
	}
	c := &Controller{
		class:  class,
		policy: policy,
		store:  NewMemoryStore(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Class returns the route class this controller serves.
func (c *Controller) Class() Class { return c.class }

// Policy returns the policy this controller enforces.
func (c *Controller) Policy() Policy { return c.policy }

// Check decides whether the request identified by id may proceed. The whole
// read-modify-write runs inside one store Update, so two concurrent checks on
// the same key can never both consume the last slot of a window.
func (c *Controller) Check(ctx context.Context, id meta.Identity) Decision {
	key := c.policy.KeyFunc(id)
	now := c.clock()

	var dec Decision
	dec.Limit = c.policy.MaxRequests

	c.store.Update(key, func(e *Entry, found bool) {
		// A fresh window starts when the key is new or the previous window
		// has ended, unless a block is still standing. Reset runs before the
		// count check, so a request landing exactly at the boundary counts
		// against the new window.
		if !found || (!now.Before(e.WindowResetAt) && !e.Blocked) {
			e.Count = 0
			e.WindowResetAt = now.Add(c.policy.Window)
		}

		if e.Blocked {
			if now.Before(e.BlockedUntil) {
				// Block dominates window state: no increment, no reset.
				dec.Allowed = false
				dec.Blocked = true
				dec.Remaining = 0
				dec.ResetAt = e.WindowResetAt
				dec.RetryAfter = e.BlockedUntil.Sub(now)
				return
			}
			// Block served; start clean.
			e.Blocked = false
			e.BlockedUntil = time.Time{}
			e.Count = 0
			e.WindowResetAt = now.Add(c.policy.Window)
		}

		if e.Count >= c.policy.MaxRequests {
			// Exceeding the window limit escalates into a block that outlives
			// the window itself.
			e.Blocked = true
			e.BlockedUntil = now.Add(c.policy.BlockDuration)
			dec.Allowed = false
			dec.Blocked = true
			dec.Remaining = 0
			dec.ResetAt = e.WindowResetAt
			dec.RetryAfter = c.policy.BlockDuration
			return
		}

		e.Count++
		dec.Allowed = true
		dec.Remaining = c.policy.MaxRequests - e.Count
		dec.ResetAt = e.WindowResetAt
	})

	if dec.Allowed {
		log.Debug().Str("class", string(c.class)).Str("key", key).Int("remaining", dec.Remaining).Msg("request admitted")
		c.metrics.incDecision(c.class, "allow")
	} else {
		log.Warn().Str("class", string(c.class)).Str("key", key).Int("retry_after_s", dec.RetryAfterSeconds()).Bool("blocked", dec.Blocked).Msg("request denied by rate limit")
		c.metrics.incDecision(c.class, "deny")
		if dec.Blocked {
			c.metrics.incBlocked(c.class)
		}
	}
	return dec
}

// Sweep drops expired entries from the controller's store and returns how
// many were removed. Safe to call concurrently with Check.
func (c *Controller) Sweep(ctx context.Context) int {
	return c.store.Sweep(c.clock())
}
