// Package identity assigns durable ids to message elements so the active
// item and navigation state survive host re-renders.
package identity

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"
	"weak"

	"chatoutline/internal/dom"
	"chatoutline/internal/logging"
	"chatoutline/internal/textnorm"

	"golang.org/x/net/html"
)

// AttrWriter persists an attribute on a host element. Hosts may refuse.
type AttrWriter interface {
	SetAttr(el *html.Node, name, value string) error
}

// TreeWriter writes straight into the node tree.
type TreeWriter struct{}

func (TreeWriter) SetAttr(el *html.Node, name, value string) error {
	dom.SetAttr(el, name, value)
	return nil
}

// Assigner hands out ids. The element->id cache holds weak references only;
// an entry disappears once its element has been collected.
type Assigner struct {
	writer AttrWriter

	mu  sync.Mutex
	ids map[weak.Pointer[html.Node]]string
}

// New returns an Assigner that writes ids back through w.
func New(w AttrWriter) *Assigner {
	if w == nil {
		w = TreeWriter{}
	}
	return &Assigner{
		writer: w,
		ids:    make(map[weak.Pointer[html.Node]]string),
	}
}

// StableID returns the id already attached to el, or derives, caches and
// attaches a new one of the form co-{role}-{ordinal}-{hash}.
func (a *Assigner) StableID(el *html.Node, role string, ordinal int, preview string) string {
	if el == nil {
		return fmt.Sprintf("co-%s-%d", role, ordinal)
	}
	if existing := dom.AttrValue(el, dom.IDAttr); existing != "" {
		return existing
	}

	key := weak.Make(el)
	a.mu.Lock()
	if cached, ok := a.ids[key]; ok {
		a.mu.Unlock()
		return cached
	}
	sig := fmt.Sprintf("%s|%d|%s|%d", role, ordinal, preview, textnorm.RuneLen(dom.TextContent(el)))
	id := fmt.Sprintf("co-%s-%d-%s", role, ordinal, Hash32(sig))
	a.ids[key] = id
	a.mu.Unlock()

	runtime.AddCleanup(el, a.forget, key)

	if err := a.writer.SetAttr(el, dom.IDAttr, id); err != nil {
		logging.Get(logging.CategoryIndex).Debug("identity attribute not written for %s: %v", id, err)
	}
	return id
}

// Cached reports how many live elements currently have a cached id.
func (a *Assigner) Cached() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.ids)
}

func (a *Assigner) forget(key weak.Pointer[html.Node]) {
	a.mu.Lock()
	delete(a.ids, key)
	a.mu.Unlock()
}

// Hash32 is FNV-1a over the UTF-8 bytes of s, as eight lowercase hex digits.
func Hash32(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
