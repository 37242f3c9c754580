package engine

import (
	"time"

	"chatoutline/internal/logging"
	"chatoutline/internal/viewport"

	"golang.org/x/net/html"
)

func (e *Engine) updateActive() {
	items := e.state.Index.Items()
	if len(items) == 0 {
		e.state.ActiveIndex = -1
		return
	}
	targets := make([]*html.Node, len(items))
	for i, it := range items {
		targets[i] = it.Target
	}
	line := float64(viewport.HeaderOffset(e.surface) + viewport.ActiveLineOffset)
	e.state.ActiveIndex = viewport.ActiveIndex(e.surface.Tops(targets), line)
}

// Navigate scrolls the item at position i to the top of its scroll
// container and reports whether it had a target.
func (e *Engine) Navigate(i int) bool {
	it, ok := e.state.Index.At(i)
	if !ok || it.Target == nil {
		return false
	}
	e.scrollTo(it.Target)
	return true
}

// NavigateID is Navigate by item id.
func (e *Engine) NavigateID(id string) bool {
	i, ok := e.state.Index.Find(id)
	if !ok {
		return false
	}
	return e.Navigate(i)
}

// scrollTo records the current offset, follows the target into its scroll
// container, then corrects for pinned headers once the scroll settles.
func (e *Engine) scrollTo(el *html.Node) {
	log := logging.Get(logging.CategoryViewport)

	e.state.History.Push(e.surface.ScrollTop(e.state.Scroller))
	e.state.Scroller = e.scrollerFor(el)
	e.mon.BindScroll(e.state.Scroller)

	if err := e.surface.ScrollIntoView(el); err != nil {
		log.Debug("scroll into view failed: %v", err)
	}

	header := viewport.HeaderOffset(e.surface)
	e.after(viewport.SettleDelay, func() {
		top := e.surface.Tops([]*html.Node{el})[0]
		if delta, ok := viewport.Correction(top, header); ok {
			if err := e.surface.ScrollBy(e.state.Scroller, delta, true); err != nil {
				log.Debug("corrective scroll failed: %v", err)
			}
		}
		e.highlight(el)
	})
}

func (e *Engine) highlight(el *html.Node) {
	log := logging.Get(logging.CategoryViewport)
	if err := e.surface.Highlight(el, true); err != nil {
		log.Debug("highlight failed: %v", err)
		return
	}
	e.after(viewport.HighlightDuration, func() {
		if err := e.surface.Highlight(el, false); err != nil {
			log.Debug("highlight removal failed: %v", err)
		}
	})
}

// NavBack returns to the previous offset in the current scroller.
func (e *Engine) NavBack() bool {
	prev, ok := e.state.History.Back(e.surface.ScrollTop(e.state.Scroller))
	if !ok {
		return false
	}
	e.scrollToOffset(prev)
	return true
}

// NavForward undoes a NavBack.
func (e *Engine) NavForward() bool {
	next, ok := e.state.History.Forward(e.surface.ScrollTop(e.state.Scroller))
	if !ok {
		return false
	}
	e.scrollToOffset(next)
	return true
}

// Top scrolls the current scroller to its start.
func (e *Engine) Top() {
	e.scrollToOffset(0)
}

// Bottom scrolls the current scroller to its end.
func (e *Engine) Bottom() {
	e.scrollToOffset(e.surface.ScrollHeight(e.state.Scroller))
}

func (e *Engine) scrollToOffset(top float64) {
	if err := e.surface.ScrollTo(e.state.Scroller, top, true); err != nil {
		logging.Get(logging.CategoryViewport).Debug("scroll to %.0f failed: %v", top, err)
	}
}

// after runs f on the event loop once d has elapsed.
func (e *Engine) after(d time.Duration, f func()) {
	e.clock.AfterFunc(d, func() { e.post(f) })
}
