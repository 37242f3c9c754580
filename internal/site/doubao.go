package site

import (
	"fmt"
	"strings"

	"chatoutline/internal/dom"

	"golang.org/x/net/html"
)

const (
	doubaoSend     = "[data-testid='send_message']"
	doubaoReceive  = "[data-testid='receive_message']"
	doubaoMessages = doubaoSend + ", " + doubaoReceive
)

// Doubao handles www.doubao.com, which tags messages with test ids.
type Doubao struct{}

func (Doubao) ID() string   { return "doubao" }
func (Doubao) Name() string { return "Doubao" }

func (Doubao) ConversationRoot(doc *html.Node) *html.Node {
	if sc := firstOutsidePanel(doc, "div[class*='scroll-view-']"); sc != nil {
		return sc
	}
	return mainOrBody(doc)
}

func (s Doubao) MessageElements(doc *html.Node) []*html.Node {
	root := s.ConversationRoot(doc)
	filtered := leafCandidates(dom.QueryAll(root, doubaoMessages), s.ShortMessage)
	if len(filtered) >= 2 {
		return capAt(filtered, 1500)
	}
	return filtered
}

func (Doubao) ShortMessage(el *html.Node) bool {
	return dom.Closest(el, doubaoMessages) != nil
}

func (Doubao) RoleForMessage(el *html.Node) Role {
	switch dom.AttrValue(el, "data-testid") {
	case "send_message":
		return RoleUser
	case "receive_message":
		return RoleAssistant
	}
	if dom.Closest(el, doubaoSend) != nil {
		return RoleUser
	}
	if dom.Closest(el, doubaoReceive) != nil {
		return RoleAssistant
	}
	return roleFromHints(el)
}

// RawText prefers the message text node and summarizes image-only messages.
func (Doubao) RawText(el *html.Node, _ Role) string {
	msg := dom.Closest(el, doubaoMessages)
	if msg == nil {
		return dom.TextContent(el)
	}
	if text := strings.TrimSpace(dom.TextContent(dom.Query(msg, "[data-testid='message_text_content']"))); text != "" {
		return text
	}
	if img := dom.Query(msg, "[data-testid='message_image_content']"); img != nil {
		switch n := len(dom.QueryAll(img, "img")); n {
		case 0:
			return "image"
		case 1:
			return "1 image"
		default:
			return fmt.Sprintf("%d images", n)
		}
	}
	return dom.TextContent(msg)
}
