package quota

import (
	"fmt"
	"strconv"
)

// Tier is a named quota class mapping to a monthly allowance.
type Tier string

// Known tiers.
const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierGrowth  Tier = "growth"
	TierPro     Tier = "pro"
)

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierFree, TierStarter, TierGrowth, TierPro:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown tier: %q", s)
}

// Limit is a monthly allowance: either a finite ceiling or unlimited. A sum
// type avoids the magic-big-integer representation and its comparison edge
// cases.
type Limit struct {
	n         int
	unlimited bool
}

// Limited returns a finite limit of n operations per month.
func Limited(n int) Limit {
	return Limit{n: n}
}

// Unlimited returns a limit that always allows.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// Allows reports whether a user who has already used 'used' operations may
// perform one more.
func (l Limit) Allows(used int) bool {
	return l.unlimited || used < l.n
}

// IsUnlimited reports whether the limit is unbounded.
func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Ceiling returns the finite ceiling and true, or 0 and false when unlimited.
func (l Limit) Ceiling() (int, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// String implements fmt.Stringer.
func (l Limit) String() string {
	if l.unlimited {
		return "unlimited"
	}
	return strconv.Itoa(l.n)
}

// DefaultTierLimits returns the built-in tier allowance table.
func DefaultTierLimits() map[Tier]Limit {
	return map[Tier]Limit{
		TierFree:    Limited(10),
		TierStarter: Limited(100),
		TierGrowth:  Limited(500),
		TierPro:     Unlimited(),
	}
}
