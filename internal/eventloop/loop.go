// Package eventloop serializes every state mutation onto one goroutine.
// Producers on other goroutines (page pollers, file watchers, timers) only
// Post closures; the owner drains them with Run or through C.
package eventloop

import (
	"context"
	"sync"
)

// Loop is a closure queue consumed by a single goroutine.
type Loop struct {
	ch        chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// New returns a loop with the given queue capacity.
func New(buffer int) *Loop {
	return &Loop{
		ch:   make(chan func(), buffer),
		done: make(chan struct{}),
	}
}

// Post enqueues f. It blocks while the queue is full and reports false once
// the loop is closed.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.ch <- f:
		return true
	case <-l.done:
		return false
	}
}

// C exposes the queue to an external driver such as the terminal UI.
func (l *Loop) C() <-chan func() {
	return l.ch
}

// Done is closed by Close.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run executes posted closures until ctx is cancelled or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case f := <-l.ch:
			f()
		}
	}
}

// Close stops Run and rejects further posts. Safe to call more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Poster adapts a loop to the func(func()) dispatch shape used by timers.
func (l *Loop) Poster() func(func()) {
	return func(f func()) { l.Post(f) }
}

// Direct runs f immediately on the calling goroutine.
func Direct(f func()) { f() }
