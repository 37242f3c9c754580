// Package engine owns the outline state and wires the strategy, builder,
// viewport tracker and change monitor to a host page.
package engine

import (
	"context"
	"fmt"
	"time"

	"chatoutline/internal/config"
	"chatoutline/internal/eventloop"
	"chatoutline/internal/identity"
	"chatoutline/internal/logging"
	"chatoutline/internal/messaging"
	"chatoutline/internal/monitor"
	"chatoutline/internal/outline"
	"chatoutline/internal/site"
	"chatoutline/internal/textnorm"
	"chatoutline/internal/viewport"

	"golang.org/x/net/html"
)

// Host is a page the outline runs against.
type Host interface {
	monitor.Binder
	identity.AttrWriter

	// Name is the page host used to pick a strategy, as in location.host.
	Name() string
	// Document returns the current page tree.
	Document(ctx context.Context) (*html.Node, error)
	// Flush pushes attribute writes made through SetAttr to the page.
	Flush(ctx context.Context) error
	// Observe starts mutation reporting under root.
	Observe(ctx context.Context, root *html.Node) error
	Surface() viewport.Surface
}

// OpenIndicator is implemented by hosts that show the panel state in the page.
type OpenIndicator interface {
	SetOpen(open bool) error
}

// SettingsWriter persists settings changes made from the panel.
type SettingsWriter interface {
	Set(p config.Patch) (config.Settings, error)
}

// Change tells observers what an operation touched.
type Change int

const (
	ChangeRebuilt Change = iota
	ChangeActive
	ChangeOpen
	ChangeSettings
)

// Config wires an Engine.
type Config struct {
	Host     Host
	Strategy site.Strategy
	Settings config.Settings
	Store    SettingsWriter
	Clock    eventloop.Clock
	// Post runs a closure on the event loop. Defaults to running inline.
	Post        func(func())
	OpenOptions func() error
	OnChange    func(Change)
}

// Engine runs every operation on the event loop goroutine.
type Engine struct {
	host     Host
	surface  viewport.Surface
	strategy site.Strategy
	builder  *outline.Builder
	store    SettingsWriter
	clock    eventloop.Clock
	post     func(func())
	mon      *monitor.Monitor
	messages *messaging.Handler
	onChange func(Change)
	state    *State

	ctx         context.Context
	observedKey string
	observing   bool
}

// New builds an engine. Nothing touches the host until Start.
func New(cfg Config) *Engine {
	e := &Engine{
		host:     cfg.Host,
		surface:  cfg.Host.Surface(),
		strategy: cfg.Strategy,
		store:    cfg.Store,
		clock:    cfg.Clock,
		post:     cfg.Post,
		onChange: cfg.OnChange,
		messages: &messaging.Handler{OpenOptions: cfg.OpenOptions},
		state:    newState(cfg.Settings),
		ctx:      context.Background(),
	}
	if e.strategy == nil {
		e.strategy = site.ForHost(cfg.Host.Name())
	}
	if e.clock == nil {
		e.clock = eventloop.RealClock{}
	}
	if e.post == nil {
		e.post = eventloop.Direct
	}
	e.builder = outline.NewBuilder(e.strategy, identity.New(cfg.Host))
	e.mon = monitor.New(monitor.NewScheduler(e.clock, e.post, e.Rebuild), cfg.Host)
	return e
}

// Start reads the page once, attaches observers and schedules the first
// rebuild. Only an unreadable page is an error.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx = ctx
	log := logging.Get(logging.CategoryBoot)
	log.Info("starting outline for %s with %s strategy", e.host.Name(), e.strategy.ID())

	doc, err := e.host.Document(ctx)
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}
	e.observe(doc)
	e.mon.BindScroll(nil)
	e.indicateOpen()
	e.ScheduleRebuild(0)
	return nil
}

// State exposes the process state for rendering. Read it on the loop only.
func (e *Engine) State() *State { return e.state }

// Strategy is the site strategy in use.
func (e *Engine) Strategy() site.Strategy { return e.strategy }

// Monitor exposes the change monitor.
func (e *Engine) Monitor() *monitor.Monitor { return e.mon }

// ScheduleRebuild replaces any pending rebuild with one after d.
func (e *Engine) ScheduleRebuild(d time.Duration) {
	e.mon.Scheduler().Schedule(d)
}

// Refresh schedules an immediate rebuild.
func (e *Engine) Refresh() {
	e.mon.Refresh()
}

// Rebuild recomputes the outline from the page. A failure keeps the
// previous outline; later rebuilds are unaffected.
func (e *Engine) Rebuild() {
	log := logging.Get(logging.CategoryIndex)
	doc, err := e.host.Document(e.ctx)
	if err != nil {
		e.state.LastError = err
		log.Debug("rebuild skipped, page unreadable: %v", err)
		return
	}
	e.observe(doc)

	items := e.builder.Build(doc, e.state.Settings)
	if err := e.host.Flush(e.ctx); err != nil {
		log.Debug("identity write-back failed: %v", err)
	}

	e.state.Index.Replace(items)
	e.state.Indexed = true
	e.state.Rebuilds++
	e.state.LastError = nil

	var target *html.Node
	if len(items) > 0 {
		target = items[0].Target
	}
	e.state.Scroller = e.scrollerFor(target)
	e.mon.BindScroll(e.state.Scroller)
	e.updateActive()

	log.Debug("rebuild #%d: %d items (%s)", e.state.Rebuilds, len(items), e.state.Settings.Granularity)
	e.notify(ChangeRebuilt)
}

// observe (re)attaches the mutation observer when the conversation root
// is a different element than the one being observed.
func (e *Engine) observe(doc *html.Node) {
	root := e.strategy.ConversationRoot(doc)
	key := e.host.ElementKey(root)
	if e.observing && key == e.observedKey {
		return
	}
	if err := e.host.Observe(e.ctx, root); err != nil {
		logging.Get(logging.CategoryMonitor).Debug("mutation observer not attached: %v", err)
		return
	}
	e.observedKey, e.observing = key, true
}

func (e *Engine) scrollerFor(target *html.Node) *html.Node {
	if target == nil {
		return nil
	}
	return e.surface.ScrollableAncestor(target)
}

// HandleEvent dispatches one host event.
func (e *Engine) HandleEvent(ev monitor.Event) {
	switch ev.Kind {
	case monitor.EventMutation:
		e.mon.Mutation(ev)
	case monitor.EventScroll:
		if e.state.Index.Len() == 0 {
			return
		}
		before := e.state.ActiveIndex
		e.updateActive()
		if e.state.ActiveIndex != before {
			e.notify(ChangeActive)
		}
	case monitor.EventToggle:
		e.SetOpen(!e.state.Open, true)
	case monitor.EventMessage:
		e.HandleMessage(messaging.Message{Type: ev.Message})
	}
}

// HandleMessage dispatches a cross-context message.
func (e *Engine) HandleMessage(m messaging.Message) bool {
	return e.messages.Handle(m)
}

// Filter is the search projection shown by the panel.
func (e *Engine) Filter(query string) []outline.Item {
	return e.state.Index.Filter(query)
}

// SetOpen changes the panel visibility, persisting it as the default when asked.
func (e *Engine) SetOpen(open, persist bool) {
	e.state.Open = open
	e.indicateOpen()
	if persist {
		e.persist(config.Patch{config.KeyOpenByDefault: open})
	}
	e.notify(ChangeOpen)
}

func (e *Engine) indicateOpen() {
	if ind, ok := e.host.(OpenIndicator); ok {
		if err := ind.SetOpen(e.state.Open); err != nil {
			logging.Get(logging.CategoryPanel).Debug("page toggle not updated: %v", err)
		}
	}
}

// SetGranularity switches between turn and pair items and rebuilds.
func (e *Engine) SetGranularity(g config.Granularity) {
	e.state.Settings.Granularity = g
	e.persist(config.Patch{config.KeyGranularity: string(g)})
	e.notify(ChangeSettings)
	e.ScheduleRebuild(0)
}

// ApplySettingsChanges folds externally saved settings into the state.
// Each field is type-checked on its own; invalid values are ignored. Values
// the state already holds, such as the echo of a panel write, change nothing.
func (e *Engine) ApplySettingsChanges(changes config.Changes) {
	s := &e.state.Settings
	rebuild, touched := false, false

	if c, ok := changes[config.KeyWidth]; ok {
		if n, ok := config.AsNumber(c.New); ok && n != s.Width {
			s.Width, touched = n, true
		}
	}
	if c, ok := changes[config.KeyOpenByDefault]; ok {
		if b, ok := c.New.(bool); ok && b != s.OpenByDefault {
			s.OpenByDefault, touched = b, true
		}
	}
	if c, ok := changes[config.KeyGranularity]; ok {
		if g, ok := config.ParseGranularity(c.New); ok && g != s.Granularity {
			s.Granularity, touched, rebuild = g, true, true
		}
	}
	if c, ok := changes[config.KeySearchScope]; ok {
		if sc, ok := config.ParseScope(c.New); ok && sc != s.SearchScope {
			s.SearchScope, touched, rebuild = sc, true, true
		}
	}
	if c, ok := changes[config.KeyPrefixLength]; ok {
		if n, ok := config.AsNumber(c.New); ok && n != s.PrefixLength {
			s.PrefixLength, touched = n, true
			if s.SearchScope == textnorm.ScopePrefix {
				rebuild = true
			}
		}
	}

	if touched {
		e.notify(ChangeSettings)
	}
	if rebuild {
		e.ScheduleRebuild(0)
	}
}

func (e *Engine) persist(p config.Patch) {
	if e.store == nil {
		return
	}
	if _, err := e.store.Set(p); err != nil {
		logging.Get(logging.CategoryConfig).Debug("settings not saved: %v", err)
	}
}

func (e *Engine) notify(c Change) {
	if e.onChange != nil {
		e.onChange(c)
	}
}
