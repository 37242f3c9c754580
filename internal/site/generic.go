package site

import (
	"chatoutline/internal/dom"

	"golang.org/x/net/html"
)

// Generic is the density heuristic used on pages no product strategy claims.
type Generic struct{ plain }

func (Generic) ID() string   { return "generic" }
func (Generic) Name() string { return "Generic" }

func (Generic) ConversationRoot(doc *html.Node) *html.Node {
	return mainOrBody(doc)
}

func (s Generic) MessageElements(doc *html.Node) []*html.Node {
	root := s.ConversationRoot(doc)
	candidates := densest(dom.QueryAll(root, "article, li, section, div"), 12, 120000, 300)
	return capAt(leafCandidates(candidates, s.ShortMessage), 400)
}

func (Generic) RoleForMessage(el *html.Node) Role {
	return roleFromHints(el)
}
