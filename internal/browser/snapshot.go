package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chatoutline/internal/dom"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// KeyAttr carries the page registry key on snapshot nodes. It only exists in
// the Go tree; the page never sees it.
const KeyAttr = "data-chatoutline-key"

// ErrNotInstalled is returned when the page lost its hook, usually after a
// navigation.
var ErrNotInstalled = errors.New("page hook not installed")

type snapNode struct {
	Key   string      `json:"k"`
	Tag   string      `json:"t"`
	Attrs [][2]string `json:"a"`
	Kids  []snapNode  `json:"c"`
	Text  *string     `json:"x"`
}

type snapshot struct {
	Host string    `json:"host"`
	URL  string    `json:"url"`
	Root *snapNode `json:"root"`
}

// decodeSnapshot turns the serialized page into a document tree and an index
// of its elements by key.
func decodeSnapshot(raw []byte) (*snapshot, *html.Node, map[string]*html.Node, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, nil, ErrNotInstalled
	}
	var s snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Root == nil {
		return nil, nil, nil, errors.New("snapshot has no root element")
	}
	doc := &html.Node{Type: html.DocumentNode}
	keys := make(map[string]*html.Node)
	doc.AppendChild(buildNode(s.Root, keys))
	return &s, doc, keys, nil
}

func buildNode(sn *snapNode, keys map[string]*html.Node) *html.Node {
	if sn.Text != nil {
		return &html.Node{Type: html.TextNode, Data: *sn.Text}
	}
	tag := strings.ToLower(sn.Tag)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     make([]html.Attribute, 0, len(sn.Attrs)+1),
	}
	for _, a := range sn.Attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: a[0], Val: a[1]})
	}
	if sn.Key != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: KeyAttr, Val: sn.Key})
		keys[sn.Key] = n
	}
	for i := range sn.Kids {
		n.AppendChild(buildNode(&sn.Kids[i], keys))
	}
	return n
}

// keyOf reads the registry key of a snapshot node. Nil is the page scroller.
func keyOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	return dom.AttrValue(n, KeyAttr)
}

func keysOf(els []*html.Node) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = keyOf(el)
	}
	return out
}
