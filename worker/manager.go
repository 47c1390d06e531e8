// Package worker runs named periodic maintenance tasks, such as sweeping
// expired rate limit entries, with a graceful context-bounded shutdown.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager owns a set of periodic tasks. Tasks run on their own tickers;
// Shutdown stops all of them and waits for in-flight runs to finish.
type Manager struct {
	mu       sync.Mutex
	tasks    map[string]*task
	wg       sync.WaitGroup
	shutdown chan struct{}
	running  bool
}

type task struct {
	name     string
	interval time.Duration
	run      func(context.Context)
}

// NewManager creates a Manager ready to accept tasks.
func NewManager() *Manager {
	return &Manager{
		tasks:    make(map[string]*task),
		shutdown: make(chan struct{}),
		running:  true,
	}
}

// Schedule registers a task to run every 'interval', starting one interval
// from now. Task names must be unique; scheduling after shutdown fails.
func (m *Manager) Schedule(name string, interval time.Duration, run func(context.Context)) error {
	if name == "" {
		return errors.New("task name cannot be empty")
	}
	if interval <= 0 {
		return fmt.Errorf("task %q has non-positive interval: %s", name, interval)
	}
	if run == nil {
		return fmt.Errorf("task %q has nil function", name)
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return errors.New("manager is not running")
	}
	if _, exists := m.tasks[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("task %q already scheduled", name)
	}
	t := &task{name: name, interval: interval, run: run}
	m.tasks[name] = t
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(t)

	log.Info().Str("task", name).Dur("interval", interval).Msg("maintenance task scheduled")
	return nil
}

// loop drives one task until shutdown. A panicking task is logged and the
// loop keeps ticking.
func (m *Manager) loop(t *task) {
	defer m.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdown:
			return
		case <-ticker.C:
			m.runOnce(t)
		}
	}
}

func (m *Manager) runOnce(t *task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task", t.name).Any("panic", r).Msg("maintenance task panicked")
		}
	}()
	t.run(context.Background())
}

// Shutdown signals all task loops to stop and waits for them, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return errors.New("manager already shut down")
	}
	m.running = false
	close(m.shutdown)
	count := len(m.tasks)
	m.tasks = make(map[string]*task)
	m.mu.Unlock()

	log.Info().Int("task_count", count).Msg("shutting down maintenance tasks...")

	waitChan := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(waitChan)
	}()

	select {
	case <-waitChan:
		log.Info().Msg("maintenance manager shutdown complete")
		return nil
	case <-ctx.Done():
		log.Error().Err(ctx.Err()).Msg("maintenance manager shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
