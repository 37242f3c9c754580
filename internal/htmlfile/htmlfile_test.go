package htmlfile

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatoutline/internal/config"
	"chatoutline/internal/dom"
	"chatoutline/internal/engine"
	"chatoutline/internal/eventloop"
	"chatoutline/internal/monitor"
	"chatoutline/internal/viewport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// Four messages starting at rune offsets 0, 400, 2000 and 2400, so their
// virtual tops are 0, 100, 500 and 600 and the page is 1600 high.
func chatHTML() string {
	msg := func(role, body string) string {
		return `<div data-message-author-role="` + role + `">` + body + `</div>`
	}
	return `<html><head></head><body><main>` +
		msg("user", strings.Repeat("a", 400)) +
		msg("assistant", strings.Repeat("b", 1600)) +
		msg("user", strings.Repeat("c", 400)) +
		msg("assistant", strings.Repeat("d", 4000)) +
		`</main></body></html>`
}

func writeChat(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.html")
	require.NoError(t, os.WriteFile(path, []byte(chatHTML()), 0o644))
	return path
}

func messages(t *testing.T, f *File) []*html.Node {
	t.Helper()
	doc, err := f.Document(context.Background())
	require.NoError(t, err)
	msgs := dom.QueryAll(doc, "[data-message-author-role]")
	require.Len(t, msgs, 4)
	return msgs
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.html"), "")
	assert.Error(t, err)
}

func TestVirtualGeometry(t *testing.T) {
	f, err := Open(writeChat(t), "chatgpt.com")
	require.NoError(t, err)
	assert.Equal(t, "chatgpt.com", f.Name())

	msgs := messages(t, f)
	s := f.Surface()
	assert.Equal(t, []float64{0, 100, 500, 600}, s.Tops(msgs))
	assert.Equal(t, 1600.0, s.ScrollHeight(nil))
	assert.Empty(t, s.Headers())
	assert.Nil(t, s.ScrollableAncestor(msgs[2]))

	require.NoError(t, s.ScrollIntoView(msgs[2]))
	assert.Equal(t, 500.0, s.ScrollTop(nil))
	assert.Equal(t, []float64{-500, -400, 0, 100}, s.Tops(msgs))

	require.NoError(t, s.ScrollTo(nil, 5000, false))
	assert.Equal(t, 800.0, s.ScrollTop(nil), "clamped to height minus viewport")
	require.NoError(t, s.ScrollBy(nil, -1000, false))
	assert.Equal(t, 0.0, s.ScrollTop(nil))

	stray := &html.Node{Type: html.ElementNode, Data: "div"}
	assert.True(t, math.IsNaN(s.Tops([]*html.Node{stray})[0]))
	assert.Error(t, s.ScrollIntoView(stray))
}

func TestHighlight(t *testing.T) {
	f, err := Open(writeChat(t), "")
	require.NoError(t, err)
	el := messages(t, f)[0]
	dom.SetAttr(el, "class", "msg")

	require.NoError(t, f.Highlight(el, true))
	require.NoError(t, f.Highlight(el, true))
	assert.Equal(t, "msg "+dom.HighlightClass, dom.ClassName(el))

	require.NoError(t, f.Highlight(el, false))
	assert.Equal(t, "msg", dom.ClassName(el))
}

func TestElementKey_StableAcrossReload(t *testing.T) {
	f, err := Open(writeChat(t), "")
	require.NoError(t, err)
	before := messages(t, f)
	assert.Equal(t, "0/1/0/2", f.ElementKey(before[2]))
	assert.Equal(t, "", f.ElementKey(nil))

	f.Invalidate()
	after := messages(t, f)
	assert.NotSame(t, before[2], after[2])
	assert.Equal(t, f.ElementKey(before[2]), f.ElementKey(after[2]))
}

func TestDocument_ReloadsAfterInvalidate(t *testing.T) {
	path := writeChat(t)
	f, err := Open(path, "")
	require.NoError(t, err)
	first, err := f.Document(context.Background())
	require.NoError(t, err)

	same, err := f.Document(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, same)

	require.NoError(t, os.WriteFile(path, []byte(`<html><body><p>gone</p></body></html>`), 0o644))
	f.Invalidate()
	doc, err := f.Document(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dom.QueryAll(doc, "[data-message-author-role]"))
	assert.Equal(t, 0.0, f.ScrollTop(nil))
}

func TestWatch_EmitsMutation(t *testing.T) {
	path := writeChat(t)
	f, err := Open(path, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan monitor.Event, 4)
	done := make(chan error, 1)
	go func() { done <- f.Watch(ctx, func(ev monitor.Event) { events <- ev }) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(chatHTML()+"<!-- edit -->"), 0o644))

	select {
	case ev := <-events:
		assert.Equal(t, monitor.EventMutation, ev.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("no mutation event after file write")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestEngineOverFile(t *testing.T) {
	f, err := Open(writeChat(t), "chatgpt.com")
	require.NoError(t, err)

	clock := eventloop.NewManualClock()
	e := engine.New(engine.Config{Host: f, Settings: config.Defaults(), Clock: clock})
	require.NoError(t, e.Start(context.Background()))
	clock.Advance(0)

	st := e.State()
	require.True(t, st.Indexed)
	require.Equal(t, 2, st.Index.Len())
	assert.Equal(t, 0, st.ActiveIndex)

	require.True(t, e.Navigate(1))
	assert.Equal(t, 500.0, f.ScrollTop(nil))
	clock.Advance(viewport.SettleDelay)
	assert.Equal(t, 488.0, f.ScrollTop(nil), "target lands TargetOffset below the top")

	e.HandleEvent(monitor.Event{Kind: monitor.EventScroll})
	assert.Equal(t, 1, st.ActiveIndex)

	require.True(t, e.NavBack())
	assert.Equal(t, 0.0, f.ScrollTop(nil))
}
