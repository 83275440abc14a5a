// Package scheduler runs recurring tasks and queued actions on a single
// goroutine. Everything that mutates clipmon's core state goes through it, so
// the core needs no locks.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Task is a recurring job. Run should finish quickly; the next run is armed
// Interval after it returns.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

type entry struct {
	Task
	next time.Time
}

// Scheduler is a cooperative event loop with fixed-delay timers.
type Scheduler struct {
	tasks []*entry
	do    chan func()
	now   func() time.Time
}

// New returns an empty Scheduler. queue is the capacity of the action queue
// used by Do.
func New(queue int) *Scheduler {
	return &Scheduler{
		do:  make(chan func(), queue),
		now: time.Now,
	}
}

// Every registers a recurring task. It must be called before Run.
func (s *Scheduler) Every(name string, interval time.Duration, run func(ctx context.Context)) {
	if interval <= 0 {
		panic(fmt.Sprintf("scheduler: task %q has non-positive interval %v", name, interval))
	}
	s.tasks = append(s.tasks, &entry{Task: Task{Name: name, Interval: interval, Run: run}})
}

// Do queues fn to run on the loop goroutine. It blocks while the queue is
// full and returns false if ctx ends first.
func (s *Scheduler) Do(ctx context.Context, fn func()) bool {
	select {
	case s.do <- fn:
		return true
	case <-ctx.Done():
		return false
	}
}

// TryDo queues fn without blocking and reports whether there was room.
// Calls from one goroutine run in the order they were made.
func (s *Scheduler) TryDo(fn func()) bool {
	select {
	case s.do <- fn:
		return true
	default:
		return false
	}
}

// Run executes every task once, then keeps re-arming them until ctx is
// cancelled. Queued actions run between tasks in arrival order.
func (s *Scheduler) Run(ctx context.Context) error {
	start := s.now()
	for _, e := range s.tasks {
		e.next = start
	}
	slog.Debug("scheduler started", "tasks", len(s.tasks))

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		if wait, ok := s.untilNext(); ok {
			timer.Reset(wait)
		}

		select {
		case <-ctx.Done():
			slog.Debug("scheduler stopped", "reason", context.Cause(ctx))
			return nil
		case fn := <-s.do:
			timer.Stop()
			s.safely(ctx, "action", func(context.Context) { fn() })
		case <-timer.C:
			s.runDue(ctx)
		}
	}
}

// untilNext returns the delay to the earliest due task.
func (s *Scheduler) untilNext() (time.Duration, bool) {
	if len(s.tasks) == 0 {
		return 0, false
	}
	earliest := s.tasks[0].next
	for _, e := range s.tasks[1:] {
		if e.next.Before(earliest) {
			earliest = e.next
		}
	}
	return max(earliest.Sub(s.now()), 0), true
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()
	for _, e := range s.tasks {
		if e.next.After(now) {
			continue
		}
		s.safely(ctx, e.Name, e.Run)
		e.next = s.now().Add(e.Interval)
		if ctx.Err() != nil {
			return
		}
	}
}

// safely runs fn, logging a panic instead of letting it end the loop.
func (s *Scheduler) safely(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduled task panicked", "task", name, "panic", r)
		}
	}()
	fn(ctx)
}
