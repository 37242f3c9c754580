// Package site holds the per-product strategies that find conversation
// messages in a page and classify who wrote them.
package site

import (
	"regexp"
	"sort"
	"strings"

	"chatoutline/internal/dom"
	"chatoutline/internal/textnorm"

	"golang.org/x/net/html"
)

// Role is the author classification of a message element.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleUnknown   Role = "unknown"
)

// Strategy knows how one chat product lays out its conversation.
// Add a product by adding a Strategy, never by branching in shared code.
type Strategy interface {
	ID() string
	Name() string
	// ConversationRoot never returns an element inside the injected panel.
	ConversationRoot(doc *html.Node) *html.Node
	// MessageElements returns one element per candidate message in document order.
	MessageElements(doc *html.Node) []*html.Node
	RoleForMessage(el *html.Node) Role
	// ShortMessage reports a structural marker that positively identifies el
	// as a message wrapper, which relaxes the minimum text length to 1.
	ShortMessage(el *html.Node) bool
	// RawText extracts message text without toolbar or button labels.
	RawText(el *html.Node, role Role) string
}

const (
	minMessageLen      = 10
	minShortMessageLen = 1
	maxMessageLen      = 200000
)

const nonConversationSelector = "nav, aside, header, footer, [role='navigation'], [role='banner'], [role='contentinfo']"

// ForHost selects the strategy for a page host (as in location.host).
func ForHost(host string) Strategy {
	switch strings.ToLower(host) {
	case "chat.deepseek.com":
		return DeepSeek{}
	case "tongyi.aliyun.com", "qianwen.aliyun.com", "www.tongyi.com", "www.qianwen.com":
		return Tongyi{}
	case "www.doubao.com":
		return Doubao{}
	case "chatgpt.com", "chat.openai.com":
		return ChatGPT{}
	default:
		return Generic{}
	}
}

// All returns every strategy, generic last.
func All() []Strategy {
	return []Strategy{ChatGPT{}, DeepSeek{}, Tongyi{}, Doubao{}, Generic{}}
}

// ByID looks a strategy up by its ID.
func ByID(id string) (Strategy, bool) {
	for _, s := range All() {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// plain supplies the default text extraction and no short-message marker.
type plain struct{}

func (plain) ShortMessage(*html.Node) bool { return false }

func (plain) RawText(el *html.Node, _ Role) string { return dom.TextContent(el) }

func insideNonConversationArea(el *html.Node) bool {
	return dom.Closest(el, nonConversationSelector) != nil
}

// looksLikeMessage applies the panel/chrome exclusions and the length bounds.
func looksLikeMessage(el *html.Node, short func(*html.Node) bool) bool {
	if !dom.IsElement(el) || dom.InPanel(el) || insideNonConversationArea(el) {
		return false
	}
	n := textnorm.RuneLen(textnorm.Normalize(dom.TextContent(el)))
	if n < minMessageLen {
		return n >= minShortMessageLen && short != nil && short(el)
	}
	return n <= maxMessageLen
}

func filterMessages(cands []*html.Node, short func(*html.Node) bool) []*html.Node {
	out := make([]*html.Node, 0, len(cands))
	for _, el := range dom.Unique(cands) {
		if looksLikeMessage(el, short) {
			out = append(out, el)
		}
	}
	return out
}

// leafCandidates keeps the candidates that contain no other candidate, which
// approximates one element per message when wrappers nest.
func leafCandidates(cands []*html.Node, short func(*html.Node) bool) []*html.Node {
	c := filterMessages(cands, short)
	if len(c) <= 1 {
		return c
	}
	member := make(map[*html.Node]struct{}, len(c))
	for _, el := range c {
		member[el] = struct{}{}
	}
	outer := make(map[*html.Node]struct{})
	for _, el := range c {
		for p := el.Parent; p != nil; p = p.Parent {
			if _, ok := member[p]; ok {
				outer[p] = struct{}{}
			}
		}
	}
	leaf := make([]*html.Node, 0, len(c))
	for _, el := range c {
		if _, ok := outer[el]; !ok {
			leaf = append(leaf, el)
		}
	}
	if len(leaf) == 0 {
		return c
	}
	return leaf
}

func capAt(nodes []*html.Node, n int) []*html.Node {
	if len(nodes) > n {
		return nodes[:n]
	}
	return nodes
}

var (
	userHint      = regexp.MustCompile(`(?:^|\b)(?:user|you|me|my|self|mine)\b`)
	userHintCJK   = regexp.MustCompile(`(?:^|[^a-z])(?:我|用户)(?:[^a-z]|$)`)
	assistantHint = regexp.MustCompile(`(?:^|\b)(?:assistant|bot|ai|chatgpt|deepseek)\b`)
	assistantCJK  = regexp.MustCompile(`(?:^|[^a-z])助手(?:[^a-z]|$)`)
)

// roleFromHints inspects aria-label, class names and author data attributes.
func roleFromHints(el *html.Node) Role {
	if el == nil {
		return RoleUnknown
	}
	dataRole := dom.AttrValue(el, "data-role")
	if dataRole == "" {
		dataRole = dom.AttrValue(el, "data-author")
	}
	if dataRole == "" {
		dataRole = dom.AttrValue(el, "data-message-role")
	}
	all := strings.ToLower(dom.AttrValue(el, "aria-label") + " " + dom.ClassName(el) + " " + dataRole)
	if userHint.MatchString(all) || userHintCJK.MatchString(all) {
		return RoleUser
	}
	if assistantHint.MatchString(all) || assistantCJK.MatchString(all) {
		return RoleAssistant
	}
	return RoleUnknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func mainOrBody(doc *html.Node) *html.Node {
	if m := dom.Query(doc, "main"); m != nil && !dom.InPanel(m) {
		return m
	}
	return dom.Body(doc)
}

// firstOutsidePanel returns the first match of sel that is not panel-owned.
func firstOutsidePanel(doc *html.Node, sel string) *html.Node {
	for _, n := range dom.QueryAll(doc, sel) {
		if !dom.InPanel(n) {
			return n
		}
	}
	return nil
}

type scored struct {
	el  *html.Node
	pos int
	len int
}

// densest keeps the keep candidates with the most normalized text, longest
// first with document order breaking ties, and returns them in document order.
func densest(cands []*html.Node, lo, hi, keep int) []*html.Node {
	s := make([]scored, 0, len(cands))
	for i, el := range cands {
		n := textnorm.RuneLen(textnorm.Normalize(dom.TextContent(el)))
		if n >= lo && n <= hi {
			s = append(s, scored{el: el, pos: i, len: n})
		}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].len > s[j].len })
	if len(s) > keep {
		s = s[:keep]
	}
	sort.Slice(s, func(i, j int) bool { return s[i].pos < s[j].pos })
	out := make([]*html.Node, len(s))
	for i, x := range s {
		out[i] = x.el
	}
	return out
}
