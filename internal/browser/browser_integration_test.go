//go:build integration

package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatoutline/internal/config"
	"chatoutline/internal/dom"
	"chatoutline/internal/engine"
	"chatoutline/internal/eventloop"
	"chatoutline/internal/monitor"
	"chatoutline/internal/site"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/require"
)

const chatPage = `<!doctype html>
<html><body>
<main id="thread" style="height:400px;overflow-y:auto">
	<div data-message-author-role="user"><p>How do I read a file in Go?</p></div>
	<div data-message-author-role="assistant" style="height:900px"><p>Use os.ReadFile.</p><pre><code>b, err := os.ReadFile(name)</code></pre></div>
	<div data-message-author-role="user"><p>And line by line?</p></div>
	<div data-message-author-role="assistant" style="height:900px"><p>Wrap it in a bufio.Scanner.</p></div>
</main>
</body></html>`

func attachTest(t *testing.T) (*Page, context.Context) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, chatPage)
	}))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	cfg := DefaultConfig()
	cfg.Headless = true
	cfg.Match = ts.URL
	cfg.URL = ts.URL
	cfg.PollInterval = 20 * time.Millisecond

	p, err := Attach(ctx, cfg)
	require.NoError(t, err, "failed to attach")
	t.Cleanup(func() { _ = p.Close() })
	return p, ctx
}

func TestAttach_SnapshotAndIdentity_Integration(t *testing.T) {
	p, ctx := attachTest(t)

	doc, err := p.Document(ctx)
	require.NoError(t, err)
	require.NotNil(t, dom.Query(doc, "#"+dom.PanelRootID), "panel root injected")
	require.Len(t, dom.QueryAll(doc, "[data-message-author-role]"), 4)

	e := engine.New(engine.Config{
		Host:     p,
		Strategy: site.ChatGPT{},
		Settings: config.Defaults(),
		Clock:    eventloop.NewManualClock(),
	})
	require.NoError(t, e.Start(ctx))
	e.Rebuild()

	items := e.State().Index.Items()
	require.Len(t, items, 2)
	require.Equal(t, "How do I read a file in Go?", items[0].Preview)
	require.True(t, items[0].HasCode)

	var written int
	require.NoError(t, p.eval(ctx, `() => document.querySelectorAll('[data-chatoutline-id]').length`, &written))
	require.Equal(t, 4, written)

	// A second snapshot resolves to the same ids through the page attribute.
	e.Rebuild()
	require.Equal(t, items[1].ID, e.State().Index.Items()[1].ID)
}

func TestAttach_ScrollerAndNavigation_Integration(t *testing.T) {
	p, ctx := attachTest(t)

	doc, err := p.Document(ctx)
	require.NoError(t, err)
	msgs := dom.QueryAll(doc, "[data-message-author-role]")
	s := p.Surface()

	sc := s.ScrollableAncestor(msgs[2])
	require.NotNil(t, sc)
	require.Equal(t, "thread", dom.AttrValue(sc, "id"))

	require.NoError(t, s.ScrollTo(sc, 300, false))
	require.InDelta(t, 300, s.ScrollTop(sc), 1)
	require.Greater(t, s.ScrollHeight(sc), 1000.0)

	tops := s.Tops(msgs)
	require.Len(t, tops, 4)
	require.Less(t, tops[0], tops[2])

	require.NoError(t, s.Highlight(msgs[0], true))
	var has bool
	require.NoError(t, p.eval(ctx, `(cls) => !!document.querySelector('.' + cls)`, &has, dom.HighlightClass))
	require.True(t, has)
}

func TestPoll_PageEvents_Integration(t *testing.T) {
	p, ctx := attachTest(t)

	events := make(chan monitor.Event, 16)
	pollCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- p.Poll(pollCtx, func(ev monitor.Event) { events <- ev }) }()
	defer func() {
		stop()
		require.NoError(t, <-done)
	}()

	require.NoError(t, p.eval(ctx, `() => { document.querySelector('#chatoutline-root button').click(); return true; }`, nil))
	require.NoError(t, p.eval(ctx, `() => { window.postMessage({ source: 'chatoutline', type: 'CO_OPEN_OPTIONS' }, '*'); return true; }`, nil))

	seen := map[monitor.EventKind]monitor.Event{}
	require.Eventually(t, func() bool {
		for {
			select {
			case ev := <-events:
				seen[ev.Kind] = ev
			default:
				_, toggled := seen[monitor.EventToggle]
				_, messaged := seen[monitor.EventMessage]
				return toggled && messaged
			}
		}
	}, 10*time.Second, 50*time.Millisecond)
	require.Equal(t, "CO_OPEN_OPTIONS", seen[monitor.EventMessage].Message)
}

func TestClose_LeavesUserBrowserRunning_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, chatPage)
	}))
	t.Cleanup(ts.Close)

	l := launcher.New().Headless(true)
	controlURL, err := l.Launch()
	require.NoError(t, err)
	t.Cleanup(l.Kill)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	cfg := DefaultConfig()
	cfg.DebuggerURL = controlURL
	cfg.URL = ts.URL
	cfg.Match = ts.URL

	p, err := Attach(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	b := rod.New().ControlURL(controlURL).Context(ctx)
	require.NoError(t, b.Connect(), "browser still accepts connections")
	pages, err := b.Pages()
	require.NoError(t, err)
	found := false
	for _, pg := range pages {
		if info, err := pg.Info(); err == nil && strings.HasPrefix(info.URL, ts.URL) {
			found = true
		}
	}
	require.True(t, found, "the chat page is still open")

	res, err := pages.MustFindByURL(ts.URL).Eval(`(id) => !!window.__chatoutline || !!document.getElementById(id)`, dom.PanelRootID)
	require.NoError(t, err)
	require.False(t, res.Value.Bool(), "hook and toggle removed on close")
}
