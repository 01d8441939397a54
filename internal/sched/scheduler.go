// Package sched runs keyed fixed-rate background tasks. Each key owns at
// most one task: scheduling a key that is already running cancels the old
// task before the new one starts.
package sched

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sergvlet/AiTradeBot-sub002/internal/metrics"
)

// Task is one unit of periodic work. The context is cancelled when the task
// is replaced or the scheduler shuts down.
type Task func(ctx context.Context)

var errBadSchedule = errors.New("sched: key must be non-empty and period positive")

type entry struct {
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
}

// Scheduler multiplexes fixed-rate tasks over a bounded worker pool. Ticks
// that fire while every worker slot is busy wait for a slot instead of
// stacking overlapping executions.
type Scheduler struct {
	log zerolog.Logger
	sem chan struct{}

	mu    sync.Mutex
	tasks map[string]*entry
}

// New builds a scheduler allowing up to workers concurrent task executions.
func New(log zerolog.Logger, workers int) *Scheduler {
	if workers <= 0 {
		workers = 4
	}
	return &Scheduler{
		log:   log.With().Str("component", "sched").Logger(),
		sem:   make(chan struct{}, workers),
		tasks: make(map[string]*entry),
	}
}

// ScheduleAtFixedRate starts fn under key, firing immediately and then every
// period. A task already registered under the same key is cancelled and
// awaited first, so the key never runs twice concurrently.
func (s *Scheduler) ScheduleAtFixedRate(key string, period time.Duration, fn Task) error {
	if key == "" || period <= 0 || fn == nil {
		return errBadSchedule
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{cancel: cancel, done: make(chan struct{}), startedAt: time.Now()}

	// Insert only if the key is vacant under the lock. A predecessor is
	// cancelled and awaited with the lock dropped, then the slot is
	// re-checked: another racing caller may have claimed it meanwhile.
	for {
		s.mu.Lock()
		old := s.tasks[key]
		if old == nil {
			s.tasks[key] = e
			s.mu.Unlock()
			break
		}
		delete(s.tasks, key)
		s.mu.Unlock()
		old.cancel()
		<-old.done
	}
	metrics.ScheduledTasks.Inc()
	s.log.Info().Str("key", key).Dur("period", period).Msg("task scheduled")

	go s.run(ctx, key, period, fn, e)
	return nil
}

func (s *Scheduler) run(ctx context.Context, key string, period time.Duration, fn Task, e *entry) {
	defer close(e.done)
	defer metrics.ScheduledTasks.Dec()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	s.fire(ctx, key, fn)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, key, fn)
		}
	}
}

// fire runs one execution behind the worker semaphore, swallowing panics so
// a misbehaving task cannot kill its schedule.
func (s *Scheduler) fire(ctx context.Context, key string, fn Task) {
	select {
	case <-ctx.Done():
		return
	case s.sem <- struct{}{}:
	}
	defer func() { <-s.sem }()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("key", key).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("scheduled task panicked")
		}
	}()
	fn(ctx)
}

// Cancel stops the task registered under key and waits for its loop to exit.
// It reports whether a task was registered.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	e := s.tasks[key]
	delete(s.tasks, key)
	s.mu.Unlock()
	if e == nil {
		return false
	}
	e.cancel()
	<-e.done
	s.log.Info().Str("key", key).Msg("task cancelled")
	return true
}

// IsScheduled reports whether key currently has a task.
func (s *Scheduler) IsScheduled(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// StartedAt returns when the task under key was scheduled.
func (s *Scheduler) StartedAt(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[key]
	if !ok {
		return time.Time{}, false
	}
	return e.startedAt, true
}

// Keys returns the currently scheduled keys in no particular order.
func (s *Scheduler) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tasks))
	for k := range s.tasks {
		out = append(out, k)
	}
	return out
}

// Shutdown cancels every task and waits for all loops to exit.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.tasks))
	for k, e := range s.tasks {
		entries = append(entries, e)
		delete(s.tasks, k)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}
	for _, e := range entries {
		<-e.done
	}
	s.log.Info().Int("count", len(entries)).Msg("scheduler stopped")
}
