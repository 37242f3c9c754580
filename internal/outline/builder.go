// Package outline turns a strategy's message elements into turns, pairs and
// the outline items the panel lists.
package outline

import (
	"strings"

	"chatoutline/internal/config"
	"chatoutline/internal/dom"
	"chatoutline/internal/identity"
	"chatoutline/internal/site"
	"chatoutline/internal/textnorm"

	"golang.org/x/net/html"
)

// Kind tells turn items from pair items.
type Kind string

const (
	KindTurn Kind = "turn"
	KindPair Kind = "pair"
)

// Turn is one classified message. Element is a non-owning reference into
// the host tree and may be detached by the time it is used.
type Turn struct {
	ID         string
	Role       site.Role
	Preview    string
	SearchText string
	// Text is the full normalized text, kept for the detail view.
	Text    string
	HasCode bool
	Element *html.Node
}

// Pair groups a user turn with the assistant turn right after it. A lone
// non-user turn sits in the Assistant slot.
type Pair struct {
	ID        string
	User      *Turn
	Assistant *Turn
	Preview   string
	HasCode   bool
	Target    *html.Node
}

// Item is what the panel lists. Index is a position in the current outline
// only and changes across rebuilds.
type Item struct {
	Kind       Kind
	ID         string
	Index      int
	Role       string
	Preview    string
	SearchText string
	Text       string
	HasCode    bool
	Target     *html.Node
}

// Builder runs one strategy and assigns identities.
type Builder struct {
	Strategy site.Strategy
	IDs      *identity.Assigner
}

// NewBuilder returns a builder for s writing identities through ids.
func NewBuilder(s site.Strategy, ids *identity.Assigner) *Builder {
	if ids == nil {
		ids = identity.New(nil)
	}
	return &Builder{Strategy: s, IDs: ids}
}

// BuildTurns extracts turns in strategy order. Candidates whose preview is
// empty are dropped before they take an ordinal.
func (b *Builder) BuildTurns(doc *html.Node, s config.Settings) []Turn {
	els := b.Strategy.MessageElements(doc)
	turns := make([]Turn, 0, len(els))
	ordinal := 0
	for _, el := range els {
		if dom.InPanel(el) {
			continue
		}
		role := b.Strategy.RoleForMessage(el)
		raw := b.Strategy.RawText(el, role)
		preview := textnorm.Preview(raw)
		if preview == "" {
			continue
		}
		turns = append(turns, Turn{
			ID:         b.IDs.StableID(el, string(role), ordinal, preview),
			Role:       role,
			Preview:    preview,
			SearchText: textnorm.SearchText(raw, s.SearchScope, s.PrefixLength),
			Text:       textnorm.Clean(raw),
			HasCode:    dom.Query(el, "pre, code") != nil,
			Element:    el,
		})
		ordinal++
	}
	return turns
}

// Build runs BuildTurns and projects the result for the configured granularity.
func (b *Builder) Build(doc *html.Node, s config.Settings) []Item {
	return Items(b.BuildTurns(doc, s), s.Granularity)
}

// BuildPairs groups turns greedily left to right without backtracking.
func BuildPairs(turns []Turn) []Pair {
	pairs := make([]Pair, 0, len(turns))
	for i := 0; i < len(turns); i++ {
		t := &turns[i]
		if t.Role == site.RoleUser {
			if i+1 < len(turns) && turns[i+1].Role == site.RoleAssistant {
				next := &turns[i+1]
				pairs = append(pairs, Pair{
					ID:        "pair-" + t.ID + "__" + next.ID,
					User:      t,
					Assistant: next,
					Preview:   firstNonEmpty(t.Preview, next.Preview),
					HasCode:   t.HasCode || next.HasCode,
					Target:    t.Element,
				})
				i++
				continue
			}
			pairs = append(pairs, Pair{ID: "pair-" + t.ID, User: t, Preview: t.Preview, HasCode: t.HasCode, Target: t.Element})
			continue
		}
		pairs = append(pairs, Pair{ID: "pair-" + t.ID, Assistant: t, Preview: t.Preview, HasCode: t.HasCode, Target: t.Element})
	}
	return pairs
}

// Items projects turns into outline items. Switching granularity always goes
// back through here; items are never converted in place.
func Items(turns []Turn, g config.Granularity) []Item {
	if g == config.GranularityTurn {
		items := make([]Item, len(turns))
		for i, t := range turns {
			items[i] = Item{
				Kind:       KindTurn,
				ID:         t.ID,
				Index:      i,
				Role:       string(t.Role),
				Preview:    t.Preview,
				SearchText: firstNonEmpty(t.SearchText, t.Preview),
				Text:       t.Text,
				HasCode:    t.HasCode,
				Target:     t.Element,
			}
		}
		return items
	}

	pairs := BuildPairs(turns)
	items := make([]Item, len(pairs))
	for i, p := range pairs {
		items[i] = Item{
			Kind:       KindPair,
			ID:         p.ID,
			Index:      i,
			Role:       string(KindPair),
			Preview:    p.Preview,
			SearchText: firstNonEmpty(strings.TrimSpace(p.userField(searchOf)+"\n"+p.assistantField(searchOf)), p.Preview),
			Text:       strings.TrimSpace(p.userField(textOf) + "\n\n" + p.assistantField(textOf)),
			HasCode:    p.HasCode,
			Target:     p.Target,
		}
	}
	return items
}

func searchOf(t *Turn) string { return t.SearchText }
func textOf(t *Turn) string   { return t.Text }

func (p Pair) userField(f func(*Turn) string) string {
	if p.User == nil {
		return ""
	}
	return f(p.User)
}

func (p Pair) assistantField(f func(*Turn) string) string {
	if p.Assistant == nil {
		return ""
	}
	return f(p.Assistant)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
