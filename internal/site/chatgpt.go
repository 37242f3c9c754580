package site

import (
	"chatoutline/internal/dom"

	"golang.org/x/net/html"
)

// ChatGPT handles chatgpt.com and chat.openai.com.
type ChatGPT struct{ plain }

func (ChatGPT) ID() string   { return "chatgpt" }
func (ChatGPT) Name() string { return "ChatGPT" }

func (ChatGPT) ConversationRoot(doc *html.Node) *html.Node {
	return mainOrBody(doc)
}

func (s ChatGPT) MessageElements(doc *html.Node) []*html.Node {
	if turns := dom.QueryAll(doc, "article[data-testid^='conversation-turn-']"); len(turns) > 0 {
		return leafCandidates(turns, s.ShortMessage)
	}

	if roleNodes := dom.QueryAll(doc, "[data-message-author-role]"); len(roleNodes) > 0 {
		wrappers := make([]*html.Node, 0, len(roleNodes))
		for _, n := range roleNodes {
			w := dom.Closest(n, "article")
			if w == nil {
				w = dom.Closest(n, "div")
			}
			wrappers = append(wrappers, w)
		}
		return leafCandidates(dom.Unique(wrappers), s.ShortMessage)
	}

	return leafCandidates(capAt(dom.QueryAll(doc, "main article, main section"), 400), s.ShortMessage)
}

func (ChatGPT) RoleForMessage(el *html.Node) Role {
	roleEl := dom.Closest(el, "[data-message-author-role]")
	if roleEl == nil {
		roleEl = dom.Query(el, "[data-message-author-role]")
	}
	switch Role(dom.AttrValue(roleEl, "data-message-author-role")) {
	case RoleUser:
		return RoleUser
	case RoleAssistant:
		return RoleAssistant
	case RoleSystem:
		return RoleSystem
	}
	return roleFromHints(el)
}
