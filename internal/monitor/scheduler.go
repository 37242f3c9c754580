package monitor

import (
	"sync"
	"time"

	"chatoutline/internal/eventloop"
)

// Scheduler is a single cancellable deferred-task slot. Scheduling always
// replaces the pending task, so at most one run is ever outstanding.
type Scheduler struct {
	clock eventloop.Clock
	post  func(func())
	fn    func()

	mu    sync.Mutex
	timer eventloop.Timer
	gen   uint64
	runs  int
}

// NewScheduler runs fn on post's goroutine after each Schedule delay.
func NewScheduler(clock eventloop.Clock, post func(func()), fn func()) *Scheduler {
	if post == nil {
		post = eventloop.Direct
	}
	return &Scheduler{clock: clock, post: post, fn: fn}
}

// Schedule cancels any pending run and arms a new one after d.
func (s *Scheduler) Schedule(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() {
		s.post(func() { s.fire(gen) })
	})
}

// fire runs fn unless a later Schedule or Cancel superseded this timer
// between firing and being dispatched.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.runs++
	s.mu.Unlock()
	s.fn()
}

// Cancel drops the pending run, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// Pending reports whether a run is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Runs counts executed runs.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
