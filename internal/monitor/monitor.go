// Package monitor turns host page activity into rebuild scheduling and keeps
// the scroll listener attached to the right container.
package monitor

import (
	"time"

	"chatoutline/internal/logging"

	"golang.org/x/net/html"
)

// MutationDelay is the debounce window for page mutations.
const MutationDelay = 250 * time.Millisecond

// EventKind classifies host events.
type EventKind int

const (
	EventMutation EventKind = iota
	EventScroll
	EventToggle
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventMutation:
		return "mutation"
	case EventScroll:
		return "scroll"
	case EventToggle:
		return "toggle"
	case EventMessage:
		return "message"
	}
	return "unknown"
}

// Event is one notification from the host page.
type Event struct {
	Kind EventKind
	// InPanel marks a mutation whose target lies inside the injected panel.
	InPanel bool
	// Message is the message type of an EventMessage.
	Message string
}

// Binder attaches the host scroll listener. ElementKey must identify the same
// live element across snapshots; "" stands for the page scroller.
type Binder interface {
	BindScroll(sc *html.Node) error
	ElementKey(el *html.Node) string
}

// Monitor schedules rebuilds and tracks the scroll binding.
type Monitor struct {
	sched  *Scheduler
	binder Binder

	boundKey string
	bound    bool
}

// New returns a monitor driving sched and binding through b.
func New(sched *Scheduler, b Binder) *Monitor {
	return &Monitor{sched: sched, binder: b}
}

// Mutation reacts to a page mutation and reports whether it scheduled a rebuild.
func (m *Monitor) Mutation(ev Event) bool {
	if ev.InPanel {
		return false
	}
	m.sched.Schedule(MutationDelay)
	return true
}

// Refresh schedules an immediate rebuild.
func (m *Monitor) Refresh() {
	m.sched.Schedule(0)
}

// BindScroll attaches the scroll listener to sc unless it is already there.
func (m *Monitor) BindScroll(sc *html.Node) bool {
	key := m.binder.ElementKey(sc)
	if m.bound && key == m.boundKey {
		return false
	}
	if err := m.binder.BindScroll(sc); err != nil {
		logging.Get(logging.CategoryMonitor).Debug("scroll listener not bound: %v", err)
		return false
	}
	m.boundKey, m.bound = key, true
	logging.Get(logging.CategoryMonitor).Debug("scroll listener bound to %q", key)
	return true
}

// Bound returns the key of the current scroll binding.
func (m *Monitor) Bound() (string, bool) {
	return m.boundKey, m.bound
}

// Scheduler exposes the rebuild slot.
func (m *Monitor) Scheduler() *Scheduler {
	return m.sched
}
