package site

import (
	"strings"

	"chatoutline/internal/dom"

	"golang.org/x/net/html"
)

const (
	tongyiQuestion = "div[class*='questionItem-']"
	tongyiAnswer   = "div[class*='answerItem-']"
	tongyiItems    = tongyiQuestion + ", " + tongyiAnswer
)

// Tongyi handles Tongyi Qianwen, whose CSS-module class names carry a
// random suffix after a stable prefix.
type Tongyi struct{}

func (Tongyi) ID() string   { return "tongyi" }
func (Tongyi) Name() string { return "Tongyi Qianwen" }

func (Tongyi) ConversationRoot(doc *html.Node) *html.Node {
	if sc := firstOutsidePanel(doc, "div[class*='scrollWrapper-']"); sc != nil {
		return sc
	}
	return mainOrBody(doc)
}

func (s Tongyi) MessageElements(doc *html.Node) []*html.Node {
	root := s.ConversationRoot(doc)
	filtered := leafCandidates(dom.QueryAll(root, tongyiItems), s.ShortMessage)
	if len(filtered) >= 2 {
		return capAt(filtered, 1200)
	}
	return filtered
}

func (Tongyi) ShortMessage(el *html.Node) bool {
	return dom.Closest(el, tongyiItems) != nil
}

func (Tongyi) RoleForMessage(el *html.Node) Role {
	cls := dom.ClassName(el)
	if strings.Contains(cls, "questionItem-") {
		return RoleUser
	}
	if strings.Contains(cls, "answerItem-") {
		return RoleAssistant
	}
	if dom.Closest(el, tongyiQuestion) != nil {
		return RoleUser
	}
	if dom.Closest(el, tongyiAnswer) != nil {
		return RoleAssistant
	}
	return roleFromHints(el)
}

func (Tongyi) RawText(el *html.Node, role Role) string {
	switch role {
	case RoleUser:
		if q := dom.Closest(el, tongyiQuestion); q != nil {
			return firstNonEmpty(dom.TextContent(dom.Query(q, "div.bubble-uo23is")), dom.TextContent(q))
		}
	case RoleAssistant:
		if a := dom.Closest(el, tongyiAnswer); a != nil {
			return firstNonEmpty(
				dom.TextContent(dom.Query(a, "div.tongyi-markdown")),
				dom.TextContent(dom.Query(a, "div.contentBox-KuohQu")),
				dom.TextContent(a),
			)
		}
	}
	return dom.TextContent(el)
}
