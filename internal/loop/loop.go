// Package loop provides the single cooperative event loop every editor
// session runs on. Work is expressed as zero-delay deferred tasks; tasks run
// one at a time, in the order they were deferred, on whichever goroutine
// drives the loop.
package loop

import (
	"context"
	"log/slog"
	"sync"
)

// Scheduler defers a task to a later turn of the loop.
type Scheduler interface {
	Defer(task func())
}

// Loop is a FIFO task queue. Defer may be called from any goroutine; tasks
// only ever run on the goroutine calling Run, Tick or Drain.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Defer enqueues task for the next turn. Tasks deferred after Stop are
// dropped.
func (l *Loop) Defer(task func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending reports how many tasks are waiting.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Tick runs the tasks that were queued when it was called. Tasks deferred
// while the turn runs wait for the next turn. It returns the number of tasks
// run.
func (l *Loop) Tick() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, task := range batch {
		task()
	}
	return len(batch)
}

// Drain runs turns until the queue is empty or maxTurns turns have run.
// It returns the number of turns that executed at least one task.
func (l *Loop) Drain(maxTurns int) int {
	turns := 0
	for turns < maxTurns {
		if l.Tick() == 0 {
			break
		}
		turns++
	}
	return turns
}

// Run processes tasks until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	slog.Debug("event loop started")
	defer slog.Debug("event loop stopped")

	for {
		l.Tick()

		l.mu.Lock()
		stopped := l.stopped
		idle := len(l.queue) == 0
		l.mu.Unlock()

		if stopped {
			return nil
		}
		if !idle {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Stop makes Run return after the current turn and discards queued tasks.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Stopped reports whether Stop has been called.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}
