package server

import (
	"context"
	"errors"
	"sync"
	"time"

	applogger "GSRSwap/pkg/logger"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a job on a fixed interval. Runs never overlap: a tick that
// arrives while the job is still running is dropped by the ticker.
type Scheduler struct {
	name       string
	interval   time.Duration
	runOnStart bool
	job        Job
	l          *applogger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SchedulerOption func(*Scheduler)

// WithRunOnStart runs the job once immediately when the scheduler starts.
func WithRunOnStart(v bool) SchedulerOption {
	return func(s *Scheduler) { s.runOnStart = v }
}

func WithSchedulerLogger(l *applogger.Logger) SchedulerOption {
	return func(s *Scheduler) { s.l = l }
}

func NewScheduler(name string, interval time.Duration, job Job, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{name: name, interval: interval, job: job, l: applogger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.l = s.l.With(applogger.String("job", name))
	return s
}

// Start launches the loop. It returns an error if the scheduler is already
// running or the interval is not positive.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("scheduler already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.l.Info("scheduler started", applogger.Duration("interval_ms", s.interval), applogger.Bool("run_on_start", s.runOnStart))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if s.runOnStart {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	if err := s.job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.l.Error("scheduled run failed", applogger.Error(err), applogger.Duration("duration_ms", time.Since(start)))
		return
	}
	s.l.Debug("scheduled run finished", applogger.Duration("duration_ms", time.Since(start)))
}

// Stop cancels the running job and waits for the loop to exit or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
