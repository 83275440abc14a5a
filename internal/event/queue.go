package event

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Queue is a Sink that hands events to another Sink on its own goroutine.
// Notify never blocks: events arriving while the buffer is full are dropped
// and counted.
type Queue struct {
	ch      chan Event
	next    Sink
	dropped atomic.Int64
}

// NewQueue returns a Queue buffering up to size events for next. Nothing is
// delivered until Run is called.
func NewQueue(next Sink, size int) *Queue {
	return &Queue{ch: make(chan Event, size), next: next}
}

func (q *Queue) Notify(ev Event) {
	select {
	case q.ch <- ev:
	default:
		if q.dropped.Add(1) == 1 {
			slog.Warn("event consumer too slow, dropping events", "kind", ev.Kind)
		}
	}
}

// Run delivers queued events in order until ctx ends.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q.ch:
			q.next.Notify(ev)
		}
	}
}

// Dropped returns the number of events discarded so far.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }
