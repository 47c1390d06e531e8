package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("growth")
	require.NoError(t, err)
	assert.Equal(t, TierGrowth, tier)

	_, err = ParseTier("platinum")
	assert.Error(t, err)
}

func TestLimitedAllows(t *testing.T) {
	l := Limited(2)
	assert.True(t, l.Allows(0))
	assert.True(t, l.Allows(1))
	assert.False(t, l.Allows(2))
	assert.False(t, l.Allows(100))

	ceiling, ok := l.Ceiling()
	require.True(t, ok)
	assert.Equal(t, 2, ceiling)
	assert.Equal(t, "2", l.String())
}

func TestUnlimitedAllows(t *testing.T) {
	l := Unlimited()
	assert.True(t, l.Allows(0))
	assert.True(t, l.Allows(1<<30))
	assert.True(t, l.IsUnlimited())

	_, ok := l.Ceiling()
	assert.False(t, ok)
	assert.Equal(t, "unlimited", l.String())
}

func TestDefaultTierLimits(t *testing.T) {
	limits := DefaultTierLimits()

	free, ok := limits[TierFree].Ceiling()
	require.True(t, ok)
	assert.Equal(t, 10, free)

	starter, _ := limits[TierStarter].Ceiling()
	assert.Equal(t, 100, starter)

	growth, _ := limits[TierGrowth].Ceiling()
	assert.Equal(t, 500, growth)

	assert.True(t, limits[TierPro].IsUnlimited())
}
