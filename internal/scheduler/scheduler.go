// Package scheduler runs named periodic background tasks without blocking
// request handling, generalizing the ad hoc ticker-goroutine pattern used
// throughout the server for one-off jobs into a single reusable runner.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustbooks/dust-server/internal/logger"
)

// shutdownGrace bounds how long the scheduler waits for in-flight tasks
// to finish on Stop before abandoning them.
const shutdownGrace = 10 * time.Second

// Task is a named periodic job.
type Task struct {
	Name       string
	Interval   time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error
	// Cleanup, if set, is invoked once by the task's worker goroutine when
	// it returns after the task's context has been cancelled, to release
	// any resources the task owns. Stop does not run Cleanup itself: for a
	// task whose run is still in progress when the grace period elapses,
	// Cleanup runs only if and when that run returns.
	Cleanup func()
}

// Scheduler runs a fixed set of named tasks on background workers. A given
// task never runs re-entrantly with itself: if the previous tick is still
// running when the next is due, the tick is skipped, not queued.
type Scheduler struct {
	log   *logger.Logger
	tasks []Task

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds a Scheduler over the given tasks. Tasks do not start running
// until Start is called.
func New(log *logger.Logger, tasks []Task) *Scheduler {
	return &Scheduler{log: log.Named("scheduler"), tasks: tasks}
}

// Start launches a worker goroutine per task.
func (s *Scheduler) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	for _, t := range s.tasks {
		t := t
		s.wg.Add(1)
		go s.runTask(ctx, t)
	}
}

func (s *Scheduler) runTask(ctx context.Context, t Task) {
	defer s.wg.Done()
	if t.Cleanup != nil {
		defer t.Cleanup()
	}

	var running atomic.Bool

	tick := func() {
		if !running.CompareAndSwap(false, true) {
			s.log.WithField("task", t.Name).Debug("skipping tick, previous run still in progress")
			return
		}
		defer running.Store(false)

		if err := t.Run(ctx); err != nil {
			s.log.WithField("task", t.Name).WithError(err).Warn("task run failed")
		}
	}

	if t.RunOnStart {
		tick()
	}

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick()
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals cancellation to every task, waits up to shutdownGrace for
// them to finish, then returns regardless. Task failures never crash the
// process; Stop itself cannot fail.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.log.Warn("scheduler shutdown grace period elapsed with tasks still running")
	}
}
