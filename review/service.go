package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/storyloom/gate/quota"
)

// QuotaError reports a review denied by the monthly quota. It carries the
// human-readable reason and the usage snapshot so callers can surface both.
type QuotaError struct {
	Reason string
	Usage  quota.UsageRecord
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("review denied: %s", e.Reason)
}

// Service runs quota-gated document analysis. Analyzer failures never reach
// the caller: as long as quota allows the attempt, the deterministic fallback
// produces the suggestions instead.
type Service struct {
	tracker  *quota.Tracker
	analyzer Analyzer // nil means not configured; fallback always runs
}

// NewService creates a review service. analyzer may be nil.
func NewService(tracker *quota.Tracker, analyzer Analyzer) *Service {
	return &Service{
		tracker:  tracker,
		analyzer: analyzer,
	}
}

// Review analyzes doc on behalf of userID.
//
// The flow is: quota check -> analyze -> (fallback on failure) -> record
// usage. Usage is charged on attempt: a fallback result costs the same as a
// real one, while a quota denial costs nothing. The only error returned is
// *QuotaError.
func (s *Service) Review(ctx context.Context, userID string, doc Document) (Result, error) {
	dec := s.tracker.CanUse(userID)
	if !dec.Allowed {
		return Result{}, &QuotaError{Reason: dec.Reason, Usage: dec.Usage}
	}

	suggestions, fellBack := s.analyze(ctx, doc)
	usage := s.tracker.Record(userID)

	return Result{
		ID:          uuid.NewString(),
		Suggestions: suggestions,
		Usage:       usage,
		Fallback:    fellBack,
	}, nil
}

// analyze runs the external analyzer and degrades to the fallback generator
// on any failure. The returned bool reports whether the fallback ran.
func (s *Service) analyze(ctx context.Context, doc Document) ([]Suggestion, bool) {
	if s.analyzer == nil {
		log.Debug().Msg("no analyzer configured, using fallback suggestions")
		return Fallback(doc), true
	}

	suggestions, err := s.analyzer.Analyze(ctx, doc)
	if err != nil {
		log.Warn().Err(err).Msg("analyzer failed, using fallback suggestions")
		return Fallback(doc), true
	}
	if len(suggestions) == 0 {
		log.Warn().Msg("analyzer returned no suggestions, using fallback")
		return Fallback(doc), true
	}
	return suggestions, false
}

// Usage exposes the current quota snapshot for userID, for callers rendering
// usage meters alongside results.
func (s *Service) Usage(userID string) quota.UsageRecord {
	return s.tracker.Usage(userID)
}
