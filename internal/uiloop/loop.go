// Package uiloop serializes all tab state access onto one goroutine. Shell
// callbacks and worker completions are queued here so the model and the
// coordinator never see concurrent calls.
package uiloop

import (
	"context"
	"sync"
)

// Loop is an unbounded FIFO of functions executed by a single goroutine.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake    chan struct{}
	stopped chan struct{}
	done    chan struct{}
}

// New returns an idle loop; call Run to start it.
func New() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Post queues fn without blocking. Functions posted after Stop are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the loop and waits for it. It must not be called from the
// loop goroutine itself. It returns false when the loop stopped before fn
// ran.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, func() {
		defer close(finished)
		fn()
	})
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	select {
	case <-finished:
		return true
	case <-l.done:
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

// Run executes queued functions until ctx ends or Stop is called. Functions
// already queued at that point still run before Run returns.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-l.wake:
			l.runPending()
		case <-ctx.Done():
			l.Stop()
			l.runPending()
			return
		case <-l.stopped:
			l.runPending()
			return
		}
	}
}

func (l *Loop) runPending() {
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// Stop rejects further functions and lets Run finish the queued ones.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.stopped)
	}
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }
