package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustParse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func TestQueryAndClosest(t *testing.T) {
	doc := mustParse(t, `<html><body><main>
		<div class="wrap" data-role="user"><p id="a">hello <b>world</b></p></div>
		<div class="wrap"><p id="b">second</p></div>
	</main></body></html>`)

	ps := QueryAll(doc, "main p")
	require.Len(t, ps, 2)
	assert.Equal(t, "a", AttrValue(ps[0], "id"))

	wrap := Closest(ps[0], "div.wrap")
	require.NotNil(t, wrap)
	assert.Equal(t, "user", AttrValue(wrap, "data-role"))
	assert.True(t, Contains(wrap, ps[0]))
	assert.False(t, Contains(wrap, ps[1]))
	assert.Same(t, ps[0], Closest(ps[0], "p"), "closest includes the element itself")

	assert.Equal(t, "hello world", TextContent(ps[0]))
	assert.Len(t, Children(Query(doc, "main"), "div.wrap"), 2)
}

func TestSetAttrAndPanel(t *testing.T) {
	doc := mustParse(t, `<body><div id="chatoutline-root"><span>x</span></div><div id="msg">m</div></body>`)
	span := Query(doc, "span")
	msg := Query(doc, "#msg")

	assert.True(t, InPanel(span))
	assert.False(t, InPanel(msg))

	SetAttr(msg, IDAttr, "co-user-0-deadbeef")
	SetAttr(msg, IDAttr, "co-user-0-cafebabe")
	v, ok := Attr(msg, IDAttr)
	require.True(t, ok)
	assert.Equal(t, "co-user-0-cafebabe", v)
	assert.Len(t, msg.Attr, 2)
}

func TestInvalidSelectorMatchesNothing(t *testing.T) {
	doc := mustParse(t, `<body><div>x</div></body>`)
	assert.Empty(t, QueryAll(doc, "div[["))
	assert.Nil(t, Closest(Query(doc, "div"), "::::"))
}

func TestUnique(t *testing.T) {
	doc := mustParse(t, `<body><i></i><b></b></body>`)
	i, b := Query(doc, "i"), Query(doc, "b")
	assert.Equal(t, []*html.Node{i, b}, Unique([]*html.Node{i, nil, b, i}))
}
