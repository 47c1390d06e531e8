package gate

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyloom/gate/admission"
	"github.com/storyloom/gate/meta"
	"github.com/storyloom/gate/quota"
)

func TestNewWiresAllRouteClasses(t *testing.T) {
	g, err := New(Options{})
	require.NoError(t, err)
	defer g.Shutdown(context.Background())

	for _, class := range admission.Classes() {
		require.NotNil(t, g.Limiter(class), "missing controller for class %s", class)
	}
	assert.Nil(t, g.Limiter("bogus"))
	assert.NotNil(t, g.Quota())
	assert.NotNil(t, g.Reviews())
}

func TestNewAppliesPolicyOverrides(t *testing.T) {
	g, err := New(Options{
		Policies: map[admission.Class]admission.Policy{
			admission.ClassAPI: {MaxRequests: 1, Window: time.Minute, BlockDuration: time.Minute},
		},
	})
	require.NoError(t, err)
	defer g.Shutdown(context.Background())

	ctrl := g.Limiter(admission.ClassAPI)
	id := meta.Identity{SourceIP: "1.2.3.4"}

	require.True(t, ctrl.Check(context.Background(), id).Allowed)
	assert.False(t, ctrl.Check(context.Background(), id).Allowed)
}

func TestNewRejectsUnknownOverrideClass(t *testing.T) {
	_, err := New(Options{
		Policies: map[admission.Class]admission.Policy{
			"bogus": {MaxRequests: 1, Window: time.Minute, BlockDuration: time.Minute},
		},
	})
	assert.ErrorContains(t, err, "unknown route class")
}

func TestNewWithMetricsRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, err := New(Options{Registerer: reg})
	require.NoError(t, err)
	defer g.Shutdown(context.Background())

	g.Limiter(admission.ClassAPI).Check(context.Background(), meta.Identity{SourceIP: "1.2.3.4"})

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "gate_admission_decisions_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAdmissionAndQuotaAreIndependent(t *testing.T) {
	g, err := New(Options{
		TierLimits: map[quota.Tier]quota.Limit{quota.TierFree: quota.Limited(1)},
	})
	require.NoError(t, err)
	defer g.Shutdown(context.Background())

	// Exhaust the quota; admission for the same user is unaffected.
	g.Quota().Record("alice")
	require.False(t, g.Quota().CanUse("alice").Allowed)

	dec := g.Limiter(admission.ClassAPI).Check(context.Background(), meta.Identity{SourceIP: "1.2.3.4", UserID: "alice"})
	assert.True(t, dec.Allowed)
}

func TestShutdownIsBounded(t *testing.T) {
	g, err := New(Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, g.Shutdown(ctx))
}
