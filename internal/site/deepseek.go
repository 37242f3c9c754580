package site

import (
	"strings"

	"chatoutline/internal/dom"

	"golang.org/x/net/html"
)

const (
	deepseekUser      = "div._9663006[data-um-id]"
	deepseekAssistant = "div._4f9bf79"
	deepseekWrappers  = deepseekUser + ", " + deepseekAssistant
)

// DeepSeek handles chat.deepseek.com. Its class names are build hashes
// observed on the live site.
type DeepSeek struct{}

func (DeepSeek) ID() string   { return "deepseek" }
func (DeepSeek) Name() string { return "DeepSeek" }

func (DeepSeek) ConversationRoot(doc *html.Node) *html.Node {
	if list := firstOutsidePanel(doc, "div.dad65929"); list != nil {
		return list
	}
	if m := firstOutsidePanel(doc, "main"); m != nil {
		return m
	}
	if app := firstOutsidePanel(doc, "#app"); app != nil {
		return app
	}
	if app := firstOutsidePanel(doc, "[id*='app']"); app != nil {
		return app
	}
	return dom.Body(doc)
}

func (s DeepSeek) MessageElements(doc *html.Node) []*html.Node {
	root := s.ConversationRoot(doc)

	primary := filterMessages(dom.Children(root, deepseekWrappers), s.ShortMessage)
	if len(primary) >= 2 {
		return capAt(primary, 1200)
	}

	fallback := dom.QueryAll(root, deepseekWrappers+", div.ds-message, div.ds-markdown, div.md-code-block")
	return capAt(leafCandidates(fallback, s.ShortMessage), 800)
}

// ShortMessage accepts one-word messages when the wrapper is a known message shell.
func (DeepSeek) ShortMessage(el *html.Node) bool {
	return dom.Matches(el, deepseekWrappers) || dom.Query(el, "div.ds-message") != nil
}

func (DeepSeek) RoleForMessage(el *html.Node) Role {
	if dom.Matches(el, deepseekUser+", [data-um-id]") {
		return RoleUser
	}
	if dom.Matches(el, deepseekAssistant) || dom.Query(el, ".ds-markdown, .md-code-block") != nil {
		return RoleAssistant
	}

	attr := strings.ToLower(firstNonEmpty(
		dom.AttrValue(el, "data-message-role"),
		dom.AttrValue(el, "data-role"),
		dom.AttrValue(el, "data-author"),
	))
	switch attr {
	case "user", "human":
		return RoleUser
	case "assistant", "bot", "ai":
		return RoleAssistant
	}

	near := dom.Closest(el, "[data-message-role],[data-role],[data-author],[class*='message'],[class*='chat']")
	if near == nil {
		near = el
	}
	return roleFromHints(near)
}

func (DeepSeek) RawText(el *html.Node, role Role) string {
	if role == RoleUser {
		if wrap := dom.Closest(el, deepseekUser); wrap != nil {
			return firstNonEmpty(dom.TextContent(dom.Query(wrap, "div.fbb737a4")), dom.TextContent(wrap))
		}
	}
	return dom.TextContent(el)
}
