package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRunsTask(t *testing.T) {
	m := NewManager()
	defer m.Shutdown(context.Background())

	var runs atomic.Int32
	require.NoError(t, m.Schedule("tick", 10*time.Millisecond, func(context.Context) {
		runs.Add(1)
	}))

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestScheduleValidation(t *testing.T) {
	m := NewManager()
	defer m.Shutdown(context.Background())

	assert.Error(t, m.Schedule("", time.Second, func(context.Context) {}))
	assert.Error(t, m.Schedule("t", 0, func(context.Context) {}))
	assert.Error(t, m.Schedule("t", time.Second, nil))

	require.NoError(t, m.Schedule("t", time.Second, func(context.Context) {}))
	assert.Error(t, m.Schedule("t", time.Second, func(context.Context) {}), "duplicate name must be rejected")
}

func TestTaskPanicIsRecovered(t *testing.T) {
	m := NewManager()
	defer m.Shutdown(context.Background())

	var runs atomic.Int32
	require.NoError(t, m.Schedule("flaky", 10*time.Millisecond, func(context.Context) {
		if runs.Add(1) == 1 {
			panic("boom")
		}
	}))

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestShutdownStopsTasksAndRejectsNewOnes(t *testing.T) {
	m := NewManager()

	require.NoError(t, m.Schedule("tick", 10*time.Millisecond, func(context.Context) {}))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.Error(t, m.Schedule("late", time.Second, func(context.Context) {}))
	assert.Error(t, m.Shutdown(context.Background()), "second shutdown must fail")
}
