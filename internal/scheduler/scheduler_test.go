package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAsync(t *testing.T, s *Scheduler) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, s.Run(ctx))
	}()
	return cancel, done
}

func TestTasksRepeat(t *testing.T) {
	s := New(1)
	var fast, slow atomic.Int32
	s.Every("fast", 5*time.Millisecond, func(context.Context) { fast.Add(1) })
	s.Every("slow", time.Hour, func(context.Context) { slow.Add(1) })

	cancel, done := runAsync(t, s)
	require.Eventually(t, func() bool { return fast.Load() >= 5 }, time.Second, time.Millisecond)
	cancel()
	<-done

	// Every task runs once at start, then on its own cadence.
	assert.Equal(t, int32(1), slow.Load())
}

func TestTaskRearmedAfterPanic(t *testing.T) {
	s := New(1)
	var runs atomic.Int32
	s.Every("flaky", 2*time.Millisecond, func(context.Context) {
		if runs.Add(1) == 1 {
			panic("boom")
		}
	})

	cancel, done := runAsync(t, s)
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestDoRunsOnLoop(t *testing.T) {
	s := New(4)
	var inTask atomic.Bool
	var overlap atomic.Bool
	s.Every("busy", time.Millisecond, func(context.Context) {
		inTask.Store(true)
		time.Sleep(time.Millisecond)
		inTask.Store(false)
	})

	cancel, done := runAsync(t, s)
	defer func() {
		cancel()
		<-done
	}()

	ctx := context.Background()
	ran := make(chan struct{}, 10)
	for range 10 {
		require.True(t, s.Do(ctx, func() {
			if inTask.Load() {
				overlap.Store(true)
			}
			ran <- struct{}{}
		}))
	}
	for range 10 {
		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatal("queued action did not run")
		}
	}
	assert.False(t, overlap.Load(), "action ran concurrently with a task")
}

func TestDoGivesUpWhenContextEnds(t *testing.T) {
	s := New(0) // nobody is draining the queue
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, s.Do(ctx, func() {}))
}

func TestRunReturnsOnCancel(t *testing.T) {
	s := New(1)
	s.Every("noop", time.Hour, func(context.Context) {})

	cancel, done := runAsync(t, s)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEveryRejectsZeroInterval(t *testing.T) {
	assert.Panics(t, func() { New(1).Every("bad", 0, func(context.Context) {}) })
}

func TestTryDoKeepsOrder(t *testing.T) {
	s := New(4)
	var order []int
	finished := make(chan struct{})
	for i := range 3 {
		require.True(t, s.TryDo(func() { order = append(order, i) }))
	}
	require.True(t, s.TryDo(func() { close(finished) }))
	assert.False(t, s.TryDo(func() {}), "queue is full")

	cancel, done := runAsync(t, s)
	defer func() { cancel(); <-done }()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("queued actions did not run")
	}
	assert.Equal(t, []int{0, 1, 2}, order)
}
