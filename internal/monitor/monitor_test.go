package monitor

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"chatoutline/internal/dom"
	"chatoutline/internal/eventloop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type fakeBinder struct {
	binds []string
	fail  bool
}

func (b *fakeBinder) BindScroll(sc *html.Node) error {
	if b.fail {
		return errors.New("detached")
	}
	b.binds = append(b.binds, b.ElementKey(sc))
	return nil
}

func (b *fakeBinder) ElementKey(el *html.Node) string {
	if el == nil {
		return ""
	}
	return dom.AttrValue(el, "id")
}

func TestScheduler_DebounceKeepsLastTimer(t *testing.T) {
	clock := eventloop.NewManualClock()
	var runs []time.Duration
	s := NewScheduler(clock, nil, func() { runs = append(runs, clock.Now()) })

	s.Schedule(250 * time.Millisecond)
	clock.Advance(100 * time.Millisecond)
	s.Schedule(250 * time.Millisecond)
	assert.True(t, s.Pending())

	clock.Advance(200 * time.Millisecond)
	assert.Empty(t, runs, "first timer was replaced")

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, []time.Duration{350 * time.Millisecond}, runs)
	assert.False(t, s.Pending())
	assert.Equal(t, 1, s.Runs())
}

func TestScheduler_StaleDispatchIsDropped(t *testing.T) {
	clock := eventloop.NewManualClock()
	var queued []func()
	runs := 0
	s := NewScheduler(clock, func(f func()) { queued = append(queued, f) }, func() { runs++ })

	s.Schedule(0)
	clock.Advance(0)
	require.Len(t, queued, 1)

	// Rescheduled after the timer fired but before the loop ran it.
	s.Schedule(0)
	queued[0]()
	assert.Zero(t, runs)

	clock.Advance(0)
	require.Len(t, queued, 2)
	queued[1]()
	assert.Equal(t, 1, runs)
}

func TestScheduler_Cancel(t *testing.T) {
	clock := eventloop.NewManualClock()
	runs := 0
	s := NewScheduler(clock, nil, func() { runs++ })
	s.Schedule(10 * time.Millisecond)
	s.Cancel()
	clock.Advance(time.Second)
	assert.Zero(t, runs)
}

func TestMonitor_MutationsOutsidePanelSchedule(t *testing.T) {
	clock := eventloop.NewManualClock()
	runs := 0
	m := New(NewScheduler(clock, nil, func() { runs++ }), &fakeBinder{})

	assert.False(t, m.Mutation(Event{Kind: EventMutation, InPanel: true}))
	assert.False(t, m.Scheduler().Pending())

	assert.True(t, m.Mutation(Event{Kind: EventMutation}))
	clock.Advance(MutationDelay - time.Millisecond)
	assert.Zero(t, runs)
	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, runs)
}

func TestMonitor_RefreshIsImmediate(t *testing.T) {
	clock := eventloop.NewManualClock()
	runs := 0
	m := New(NewScheduler(clock, nil, func() { runs++ }), &fakeBinder{})

	m.Mutation(Event{Kind: EventMutation})
	m.Refresh()
	clock.Advance(0)
	assert.Equal(t, 1, runs)
	clock.Advance(time.Second)
	assert.Equal(t, 1, runs, "the debounced mutation was replaced")
}

func TestMonitor_RebindsOnlyOnChange(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(`<div id="thread"></div><div id="side"></div>`))
	require.NoError(t, err)
	b := &fakeBinder{}
	m := New(NewScheduler(eventloop.NewManualClock(), nil, func() {}), b)

	assert.True(t, m.BindScroll(nil))
	assert.False(t, m.BindScroll(nil))
	assert.True(t, m.BindScroll(dom.Query(doc, "#thread")))
	assert.False(t, m.BindScroll(dom.Query(doc, "#thread")))
	assert.True(t, m.BindScroll(dom.Query(doc, "#side")))

	assert.Equal(t, []string{"", "thread", "side"}, b.binds)
	key, ok := m.Bound()
	assert.True(t, ok)
	assert.Equal(t, "side", key)
}

func TestMonitor_FailedBindRetries(t *testing.T) {
	b := &fakeBinder{fail: true}
	m := New(NewScheduler(eventloop.NewManualClock(), nil, func() {}), b)

	assert.False(t, m.BindScroll(nil))
	_, ok := m.Bound()
	assert.False(t, ok)

	b.fail = false
	assert.True(t, m.BindScroll(nil))
}

func TestEventKind_String(t *testing.T) {
	for k, want := range map[EventKind]string{EventMutation: "mutation", EventScroll: "scroll", EventToggle: "toggle", EventMessage: "message", EventKind(42): "unknown"} {
		assert.Equal(t, want, fmt.Sprint(k))
	}
}
