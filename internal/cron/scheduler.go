// Package cron fires named actions on configured schedules, so plugins and
// core code can hook timed work (digests, cache sweeps, publishing queues)
// the same way they hook request-time events.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/embercms/ember/internal/config"
)

// cronParser accepts standard 5-field expressions, an optional leading
// seconds field, and descriptors like @hourly.
var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Dispatcher dispatches actions. Satisfied by *hooks.Registry.
type Dispatcher interface {
	DoActionContext(ctx context.Context, event string, args ...any) error
}

type job struct {
	name     string
	event    string
	args     []any
	schedule cron.Schedule
	next     time.Time
}

// Scheduler dispatches configured actions when their schedules come due.
// Dispatch errors are logged, never fatal to the loop.
type Scheduler struct {
	dispatcher   Dispatcher
	logger       *slog.Logger
	now          func() time.Time
	tickInterval time.Duration

	mu      sync.Mutex
	jobs    []*job
	started bool
	wg      sync.WaitGroup
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithLogger configures the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger.With("component", "cron")
		}
	}
}

// WithNow overrides the clock for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTickInterval overrides the scheduler tick interval.
func WithTickInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.tickInterval = interval
		}
	}
}

// NewScheduler builds a scheduler from config. Invalid schedules are a
// construction error, not a runtime surprise.
func NewScheduler(cfg config.CronConfig, dispatcher Dispatcher, opts ...Option) (*Scheduler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("cron: dispatcher is required")
	}

	s := &Scheduler{
		dispatcher:   dispatcher,
		logger:       slog.Default().With("component", "cron"),
		now:          time.Now,
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	now := s.now()
	jobs := make([]*job, 0, len(cfg.Entries))
	for i, entry := range cfg.Entries {
		sched, err := cronParser.Parse(strings.TrimSpace(entry.Schedule))
		if err != nil {
			return nil, fmt.Errorf("cron: entry %d (%s): invalid schedule %q: %w", i, entry.Name, entry.Schedule, err)
		}
		args := make([]any, len(entry.Args))
		for j, a := range entry.Args {
			args[j] = a
		}
		name := entry.Name
		if name == "" {
			name = entry.Event
		}
		jobs = append(jobs, &job{
			name:     name,
			event:    entry.Event,
			args:     args,
			schedule: sched,
			next:     sched.Next(now),
		})
	}
	s.jobs = jobs
	return s, nil
}

// Start begins the scheduler loop; it runs until the context is cancelled.
// Starting twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runDue(ctx)
			}
		}
	}()
}

// Stop waits for the scheduler loop to exit after its context was
// cancelled, or until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce dispatches all currently due jobs and returns how many fired.
// Primarily for tests.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	return s.runDue(ctx)
}

func (s *Scheduler) runDue(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if !j.next.IsZero() && !j.next.After(now) {
			due = append(due, j)
			j.next = j.schedule.Next(now)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		if err := s.dispatcher.DoActionContext(ctx, j.event, j.args...); err != nil {
			s.logger.Warn("scheduled action failed",
				"job", j.name,
				"event", j.event,
				"error", err)
			continue
		}
		s.logger.Debug("scheduled action fired", "job", j.name, "event", j.event)
	}
	return len(due)
}

// Jobs returns the names of configured jobs in config order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.name)
	}
	return out
}
