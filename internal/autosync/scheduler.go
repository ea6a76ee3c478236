// Package autosync runs sync passes in the background: on a timer, on
// demand, after a restart that left changes behind, and when another
// process writes the local cache.
package autosync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/logger"
)

// ErrRunning is returned by Start on a scheduler that is already running.
var ErrRunning = errors.New("auto-sync already running")

// PendingMarker persists whether unsynced changes were left behind when
// the app was last hidden.
type PendingMarker interface {
	PendingSync() (bool, error)
	SetPendingSync(pending bool) error
}

// Scheduler runs a sync function periodically and on Trigger. Runs never
// overlap; triggers that arrive during a run coalesce into one more run.
type Scheduler struct {
	run         func(context.Context)
	interval    time.Duration
	resumeDelay time.Duration

	trigger chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	ctx    context.Context
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the period between timed runs. Zero disables the timer.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

// WithResumeDelay sets how long ResumePending waits before triggering.
func WithResumeDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.resumeDelay = d }
}

func NewScheduler(run func(context.Context), opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		run:         run,
		interval:    constants.DefaultAutoSyncPeriod,
		resumeDelay: constants.DefaultResumeDelay,
		trigger:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the run loop. It stops when ctx is cancelled or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.ctx = ctx
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	logger.Debug("Auto-sync started", "interval", s.interval)
	return nil
}

// Stop ends the run loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done, s.ctx = nil, nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.Debug("Auto-sync stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Trigger requests a run as soon as the loop is free. It never blocks.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// ResumePending clears the pending marker and schedules a run after the
// resume delay when changes were left unsynced. It reports whether a run
// was scheduled.
func (s *Scheduler) ResumePending(marker PendingMarker) (bool, error) {
	pending, err := marker.PendingSync()
	if err != nil || !pending {
		return false, err
	}
	if err := marker.SetPendingSync(false); err != nil {
		return false, err
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("Resuming sync left pending by the last session", "delay", s.resumeDelay)
	go func() {
		t := time.NewTimer(s.resumeDelay)
		defer t.Stop()
		select {
		case <-t.C:
			s.Trigger()
		case <-ctx.Done():
		}
	}()
	return true, nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-s.trigger:
		}
		if ctx.Err() != nil {
			return
		}
		s.run(ctx)
	}
}
