// Package htmlfile runs the outline against a saved chat page on disk.
//
// There is no layout engine, so geometry is virtual: every element starts on
// a line derived from how much text precedes it, with CharsPerLine runes per
// line and LineHeight pixels per line. The whole document scrolls as one.
package htmlfile

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"chatoutline/internal/dom"
	"chatoutline/internal/fswatch"
	"chatoutline/internal/logging"
	"chatoutline/internal/monitor"
	"chatoutline/internal/viewport"

	"golang.org/x/net/html"
)

const (
	CharsPerLine   = 80
	LineHeight     = 20
	ViewportHeight = 800
)

// File is a static host page backed by an HTML file.
type File struct {
	path string
	host string

	mu        sync.Mutex
	doc       *html.Node
	dirty     bool
	scrollTop float64
	offsets   map[*html.Node]int
	total     int
}

// Open parses path. host picks the site strategy; empty means generic.
func Open(path, host string) (*File, error) {
	f := &File{path: path, host: host}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	r, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.path, err)
	}
	defer r.Close()
	doc, err := dom.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	f.doc, f.dirty = doc, false
	f.offsets, f.total = layout(doc)
	f.scrollTop = min(f.scrollTop, f.maxScroll())
	return nil
}

// layout records the rune offset at which each element starts.
func layout(doc *html.Node) (map[*html.Node]int, int) {
	offsets := make(map[*html.Node]int)
	pos := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			offsets[n] = pos
		}
		if n.Type == html.TextNode {
			pos += utf8.RuneCountInString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return offsets, pos
}

func lineTop(offset int) float64 {
	return float64(offset/CharsPerLine) * LineHeight
}

func (f *File) maxScroll() float64 {
	return math.Max(0, f.height()-ViewportHeight)
}

func (f *File) height() float64 {
	return math.Ceil(float64(f.total)/CharsPerLine) * LineHeight
}

// Path is the file being read.
func (f *File) Path() string { return f.path }

// Name is the host the page was saved from.
func (f *File) Name() string { return f.host }

// Document returns the parsed page, re-reading the file after it changed on disk.
func (f *File) Document(context.Context) (*html.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirty {
		if err := f.load(); err != nil {
			return nil, err
		}
	}
	return f.doc, nil
}

// Invalidate marks the file for re-reading on the next Document call.
func (f *File) Invalidate() {
	f.mu.Lock()
	f.dirty = true
	f.mu.Unlock()
}

func (f *File) SetAttr(el *html.Node, name, value string) error {
	dom.SetAttr(el, name, value)
	return nil
}

func (f *File) Flush(context.Context) error { return nil }

// Observe is a no-op; the whole file is watched by Watch.
func (f *File) Observe(context.Context, *html.Node) error { return nil }

func (f *File) BindScroll(*html.Node) error { return nil }

// ElementKey is the child-index path of el from the document root, so nodes
// of a re-read file map to their earlier counterparts.
func (f *File) ElementKey(el *html.Node) string {
	if el == nil {
		return ""
	}
	var parts []string
	for n := el; n.Parent != nil; n = n.Parent {
		i := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			i++
		}
		parts = append(parts, strconv.Itoa(i))
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.Join(parts, "/")
}

// Watch emits a mutation event whenever the file changes, until ctx is done.
func (f *File) Watch(ctx context.Context, emit func(monitor.Event)) error {
	w, err := fswatch.New([]string{f.path}, fswatch.DefaultDebounce, func(string) {
		f.Invalidate()
		logging.Get(logging.CategoryMonitor).Debug("%s changed", f.path)
		emit(monitor.Event{Kind: monitor.EventMutation})
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

func (f *File) Surface() viewport.Surface { return f }

func (f *File) Tops(els []*html.Node) []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]float64, len(els))
	for i, el := range els {
		off, ok := f.offsets[el]
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = lineTop(off) - f.scrollTop
	}
	return out
}

// Headers is empty: a saved page has no pinned chrome.
func (f *File) Headers() []viewport.Box { return nil }

func (f *File) ScrollableAncestor(*html.Node) *html.Node { return nil }

func (f *File) ScrollTop(*html.Node) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrollTop
}

func (f *File) ScrollHeight(*html.Node) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height()
}

func (f *File) ScrollTo(_ *html.Node, top float64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrollTop = math.Min(math.Max(top, 0), f.maxScroll())
	return nil
}

func (f *File) ScrollBy(sc *html.Node, delta float64, smooth bool) error {
	return f.ScrollTo(sc, f.ScrollTop(sc)+delta, smooth)
}

func (f *File) ScrollIntoView(el *html.Node) error {
	f.mu.Lock()
	off, ok := f.offsets[el]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("element is not part of %s", f.path)
	}
	return f.ScrollTo(nil, lineTop(off), true)
}

func (f *File) Highlight(el *html.Node, on bool) error {
	if el == nil {
		return nil
	}
	classes := strings.Fields(dom.ClassName(el))
	kept := classes[:0]
	for _, c := range classes {
		if c != dom.HighlightClass {
			kept = append(kept, c)
		}
	}
	if on {
		kept = append(kept, dom.HighlightClass)
	}
	dom.SetAttr(el, "class", strings.Join(kept, " "))
	return nil
}
