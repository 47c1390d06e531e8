// Package gate is the request-admission and quota-tracking core: per-class
// rate limiting with punitive blocks, tiered monthly quotas for expensive
// features, and a quota-gated review flow that degrades to deterministic
// fallback suggestions when the external analyzer is unavailable.
//
// Everything is in-process and in-memory. A Gate is constructed once at
// process start, injected wherever requests are handled, and shut down with
// the process.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/storyloom/gate/admission"
	"github.com/storyloom/gate/quota"
	"github.com/storyloom/gate/review"
	"github.com/storyloom/gate/worker"
)

const (
	defaultSweepInterval      = 5 * time.Minute
	defaultQuotaSweepInterval = time.Hour
)

// Options configures a Gate. The zero value gives default policies, default
// tier limits, no metrics and no analyzer (reviews use the fallback path).
type Options struct {
	ConfigPath string                               // optional yaml file with policy overrides
	Policies   map[admission.Class]admission.Policy // programmatic overrides, applied after the config file
	TierLimits map[quota.Tier]quota.Limit           // replaces the default tier table when non-nil
	Analyzer   review.Analyzer                      // external analysis dependency, may be nil
	Registerer prometheus.Registerer                // metrics registry, may be nil

	SweepInterval      time.Duration // admission entry sweep cadence, default 5m
	QuotaSweepInterval time.Duration // quota rollover sweep cadence, default 1h
	Clock              func() time.Time
}

// Gate owns one admission controller per route class, the quota tracker, the
// review service and the maintenance scheduler.
type Gate struct {
	limiters    map[admission.Class]*admission.Controller
	tracker     *quota.Tracker
	reviews     *review.Service
	maintenance *worker.Manager
}

// New wires a Gate from opts and starts its maintenance tasks.
func New(opts Options) (*Gate, error) {
	var cfg *admission.Config
	if opts.ConfigPath != "" {
		loaded, err := admission.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	policies, err := cfg.ValidateAndPrepare()
	if err != nil {
		return nil, err
	}
	for class, policy := range opts.Policies {
		if _, ok := policies[class]; !ok {
			return nil, fmt.Errorf("unknown route class in policy overrides: %q", class)
		}
		policies[class] = policy
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	metrics := admission.NewMetrics(opts.Registerer)
	limiters := make(map[admission.Class]*admission.Controller, len(policies))
	for class, policy := range policies {
		limiters[class] = admission.NewController(class, policy,
			admission.WithClock(clock),
			admission.WithMetrics(metrics),
		)
	}

	trackerOpts := []quota.TrackerOption{quota.WithClock(clock)}
	if opts.TierLimits != nil {
		trackerOpts = append(trackerOpts, quota.WithTierLimits(opts.TierLimits))
	}
	tracker := quota.NewTracker(trackerOpts...)

	g := &Gate{
		limiters:    limiters,
		tracker:     tracker,
		reviews:     review.NewService(tracker, opts.Analyzer),
		maintenance: worker.NewManager(),
	}

	sweepEvery := opts.SweepInterval
	if sweepEvery <= 0 {
		sweepEvery = defaultSweepInterval
	}
	if err := g.maintenance.Schedule("admission-sweep", sweepEvery, g.sweepLimiters); err != nil {
		return nil, err
	}

	quotaSweepEvery := opts.QuotaSweepInterval
	if quotaSweepEvery <= 0 {
		quotaSweepEvery = defaultQuotaSweepInterval
	}
	if err := g.maintenance.Schedule("quota-rollover", quotaSweepEvery, func(context.Context) {
		tracker.Sweep(clock())
	}); err != nil {
		return nil, err
	}

	log.Info().Int("route_classes", len(limiters)).Bool("analyzer_configured", opts.Analyzer != nil).Msg("gate initialized")
	return g, nil
}

func (g *Gate) sweepLimiters(ctx context.Context) {
	for _, ctrl := range g.limiters {
		ctrl.Sweep(ctx)
	}
}

// Limiter returns the admission controller for class, or nil for an unknown
// class.
func (g *Gate) Limiter(class admission.Class) *admission.Controller {
	return g.limiters[class]
}

// Quota returns the quota tracker.
func (g *Gate) Quota() *quota.Tracker {
	return g.tracker
}

// Reviews returns the quota-gated review service.
func (g *Gate) Reviews() *review.Service {
	return g.reviews
}

// Shutdown stops the maintenance tasks, bounded by ctx. Counter state is
// in-memory only and is discarded with the process.
func (g *Gate) Shutdown(ctx context.Context) error {
	return g.maintenance.Shutdown(ctx)
}
