package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyloom/gate/quota"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func testTracker() *quota.Tracker {
	clock := newFakeClock(time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC))
	return quota.NewTracker(quota.WithClock(clock.Now))
}

var analyzed = []Suggestion{{
	ID:       "ai-1",
	Type:     "subject",
	Priority: PriorityMedium,
	Title:    "Tighten the subject",
}}

func TestReviewSuccessUsesAnalyzer(t *testing.T) {
	tr := testTracker()
	svc := NewService(tr, AnalyzerFunc(func(ctx context.Context, doc Document) ([]Suggestion, error) {
		return analyzed, nil
	}))

	res, err := svc.Review(context.Background(), "u1", sampleDoc())
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, analyzed, res.Suggestions)
	assert.Equal(t, 1, res.Usage.Used)
	assert.NotEmpty(t, res.ID)
}

func TestReviewAnalyzerFailureFallsBackAndStillCharges(t *testing.T) {
	tr := testTracker()
	svc := NewService(tr, AnalyzerFunc(func(ctx context.Context, doc Document) ([]Suggestion, error) {
		return nil, errors.New("upstream timeout")
	}))

	res, err := svc.Review(context.Background(), "u1", sampleDoc())
	require.NoError(t, err, "analyzer failure must not surface to the caller")
	assert.True(t, res.Fallback)
	assert.NotEmpty(t, res.Suggestions)
	assert.Equal(t, 1, res.Usage.Used)
}

func TestReviewEmptyAnalyzerOutputFallsBack(t *testing.T) {
	tr := testTracker()
	svc := NewService(tr, AnalyzerFunc(func(ctx context.Context, doc Document) ([]Suggestion, error) {
		return nil, nil
	}))

	res, err := svc.Review(context.Background(), "u1", sampleDoc())
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.NotEmpty(t, res.Suggestions)
}

func TestReviewNilAnalyzerFallsBack(t *testing.T) {
	tr := testTracker()
	svc := NewService(tr, nil)

	res, err := svc.Review(context.Background(), "u1", sampleDoc())
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, 1, res.Usage.Used)
}

func TestReviewQuotaDenialDoesNotCharge(t *testing.T) {
	tr := testTracker()
	svc := NewService(tr, nil)

	for i := 0; i < 10; i++ {
		_, err := svc.Review(context.Background(), "u1", sampleDoc())
		require.NoError(t, err)
	}

	_, err := svc.Review(context.Background(), "u1", sampleDoc())
	var qerr *QuotaError
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Reason, "April 1, 2026")
	assert.Equal(t, 10, qerr.Usage.Used)

	// Denials are free: usage stays where exhaustion left it.
	assert.Equal(t, 10, svc.Usage("u1").Used)
}

func TestReviewFailureOnThirdCallCountsAttempt(t *testing.T) {
	tr := testTracker()
	calls := 0
	svc := NewService(tr, AnalyzerFunc(func(ctx context.Context, doc Document) ([]Suggestion, error) {
		calls++
		if calls == 3 {
			return nil, errors.New("flaky upstream")
		}
		return analyzed, nil
	}))

	for i := 0; i < 3; i++ {
		res, err := svc.Review(context.Background(), "u1", sampleDoc())
		require.NoError(t, err)
		assert.NotEmpty(t, res.Suggestions)
	}

	assert.Equal(t, 3, svc.Usage("u1").Used)
}
