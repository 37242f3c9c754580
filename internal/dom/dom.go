// Package dom provides the read/query helpers the outline engine needs over a
// golang.org/x/net/html node tree. Live pages are snapshotted into the same
// tree shape, so strategies never know which host they run against.
package dom

import (
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

const (
	// PanelRootID is the id of the single element this module injects into a host page.
	PanelRootID = "chatoutline-root"
	// IDAttr holds the durable identity assigned to a message element.
	IDAttr = "data-chatoutline-id"
	// HighlightClass is applied briefly to a navigation target.
	HighlightClass = "chatoutline-highlight"
)

var (
	selMu    sync.RWMutex
	selCache = make(map[string]cascadia.Selector)
)

// Selector compiles and caches a CSS selector. An invalid selector matches nothing.
func Selector(sel string) cascadia.Selector {
	selMu.RLock()
	s, ok := selCache[sel]
	selMu.RUnlock()
	if ok {
		return s
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		s = func(*html.Node) bool { return false }
	}
	selMu.Lock()
	selCache[sel] = s
	selMu.Unlock()
	return s
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Matches reports whether the element matches sel.
func Matches(n *html.Node, sel string) bool {
	if !IsElement(n) {
		return false
	}
	return Selector(sel).Match(n)
}

// QueryAll returns the descendants of root matching sel in document order.
func QueryAll(root *html.Node, sel string) []*html.Node {
	if root == nil {
		return nil
	}
	return cascadia.QueryAll(root, Selector(sel))
}

// Query returns the first descendant of root matching sel, or nil.
func Query(root *html.Node, sel string) *html.Node {
	if root == nil {
		return nil
	}
	return cascadia.Query(root, Selector(sel))
}

// Children returns the element children of n matching sel.
func Children(n *html.Node, sel string) []*html.Node {
	if n == nil {
		return nil
	}
	m := Selector(sel)
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) && m.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Closest returns n or its nearest element ancestor matching sel.
func Closest(n *html.Node, sel string) *html.Node {
	m := Selector(sel)
	for el := n; el != nil; el = el.Parent {
		if IsElement(el) && m.Match(el) {
			return el
		}
	}
	return nil
}

// Contains reports whether other is n or a descendant of n.
func Contains(n, other *html.Node) bool {
	if n == nil || other == nil {
		return false
	}
	for el := other; el != nil; el = el.Parent {
		if el == n {
			return true
		}
	}
	return false
}

// Attr returns the value of an attribute and whether it is present.
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrValue returns the attribute value, or "" when absent.
func AttrValue(n *html.Node, name string) string {
	v, _ := Attr(n, name)
	return v
}

// SetAttr sets or replaces an attribute on n.
func SetAttr(n *html.Node, name, value string) {
	if n == nil {
		return
	}
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// ClassName returns the raw class attribute.
func ClassName(n *html.Node) string {
	return AttrValue(n, "class")
}

// TextContent concatenates every descendant text node, like the DOM property.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Body returns the document body, falling back to the root element.
func Body(doc *html.Node) *html.Node {
	if b := Query(doc, "body"); b != nil {
		return b
	}
	if IsElement(doc) {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if IsElement(c) {
			return c
		}
	}
	return doc
}

// InPanel reports whether n sits inside the injected panel root.
func InPanel(n *html.Node) bool {
	return Closest(n, "#"+PanelRootID) != nil
}

// Unique drops nil and repeated nodes, keeping first occurrences.
func Unique(nodes []*html.Node) []*html.Node {
	seen := make(map[*html.Node]struct{}, len(nodes))
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
