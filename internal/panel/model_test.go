package panel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatoutline/internal/config"
	"chatoutline/internal/engine"
	"chatoutline/internal/eventloop"
	"chatoutline/internal/htmlfile"
	"chatoutline/internal/outline"
	"chatoutline/internal/textnorm"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chat = `<html><body><main>` +
	`<div data-message-author-role="user"><p>How do I read a file in Go?</p></div>` +
	`<div data-message-author-role="assistant"><p>Use os.ReadFile.</p><pre><code>b, err := os.ReadFile(name)</code></pre></div>` +
	`<div data-message-author-role="user"><p>And line by line please?</p></div>` +
	`<div data-message-author-role="assistant"><p>Wrap it in a bufio.Scanner loop.</p></div>` +
	`</main></body></html>`

type harness struct {
	m     *Model
	e     *engine.Engine
	clock *eventloop.ManualClock
	loop  *eventloop.Loop
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessFor(t, chat)
}

func newHarnessFor(t *testing.T, body string) *harness {
	t.Helper()
	dir := t.TempDir()
	page := filepath.Join(dir, "chat.html")
	require.NoError(t, os.WriteFile(page, []byte(body), 0o644))
	f, err := htmlfile.Open(page, "chatgpt.com")
	require.NoError(t, err)

	settings := config.Defaults()
	settings.OpenByDefault = true
	settings.Width = config.MaxWidth

	h := &harness{clock: eventloop.NewManualClock(), loop: eventloop.New(8)}
	h.m = New(Options{Loop: h.loop, SettingsPath: filepath.Join(dir, "settings.yaml")})
	h.e = engine.New(engine.Config{
		Host:        f,
		Settings:    settings,
		Clock:       h.clock,
		OpenOptions: h.m.RequestOptions,
		OnChange:    h.m.Changed,
	})
	h.m.Bind(h.e)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.e.Start(context.Background()))
	h.clock.Advance(0)
}

func (h *harness) key(k tea.KeyMsg) tea.Cmd {
	_, cmd := h.m.Update(k)
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_IndexingBeforeFirstRebuild(t *testing.T) {
	h := newHarness(t)
	view := h.m.View()
	assert.Contains(t, view, "indexing…")
	assert.Contains(t, view, "—/0")
	assert.Contains(t, view, "search (preview)")
}

func TestView_ListsPairs(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	view := h.m.View()
	assert.Contains(t, view, "2 items · showing 2")
	assert.Contains(t, view, "current 1/2")
	assert.Contains(t, view, "[Pair]")
	assert.Contains(t, view, "[code]")
	assert.Contains(t, view, "How do I read a file in Go?")
	assert.Contains(t, view, "And line by line please?")
}

func TestSearch_FiltersWithoutTouchingIndex(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(runes("/"))
	require.Equal(t, modeSearch, h.m.mode)
	h.key(runes("bufio"))

	assert.Equal(t, "bufio", h.m.search.Value())
	require.Len(t, h.m.visible, 1)
	assert.Equal(t, 1, h.m.visible[0].Index)
	assert.Contains(t, h.m.View(), "2 items · showing 1")
	assert.Equal(t, 2, h.e.State().Index.Len())

	h.key(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeList, h.m.mode)
	assert.True(t, h.e.State().Open, "esc in search leaves the panel open")
}

func TestTab_SwitchesGranularity(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, config.GranularityTurn, h.e.State().Settings.Granularity)
	h.clock.Advance(0)

	assert.Equal(t, 4, h.e.State().Index.Len())
	view := h.m.View()
	assert.Contains(t, view, "4 items · showing 4")
	assert.Contains(t, view, "[user]")
	assert.Contains(t, view, "[assistant]")
}

func TestToggleAndEsc(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o"), Alt: true})
	assert.False(t, h.e.State().Open)
	view := h.m.View()
	assert.Contains(t, view, "alt+o")
	assert.NotContains(t, view, "showing")

	// Closed panels ignore list keys.
	h.key(runes("j"))
	assert.Equal(t, 0, h.m.cursor)

	h.key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o"), Alt: true})
	assert.True(t, h.e.State().Open)
	h.key(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, h.e.State().Open)
}

func TestCursorAndNavigate(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(runes("j"))
	assert.Equal(t, 1, h.m.cursor)
	h.key(runes("j"))
	assert.Equal(t, 1, h.m.cursor, "cursor stops at the last item")

	h.key(tea.KeyMsg{Type: tea.KeyEnter})
	back, _ := h.e.State().History.Len()
	assert.Equal(t, 1, back)
}

// longChat has enough text per message for the items to sit on different
// screen lines.
func longChat(pairs int) string {
	var b strings.Builder
	b.WriteString(`<html><body><main>`)
	for i := 0; i < pairs; i++ {
		fmt.Fprintf(&b, `<div data-message-author-role="user"><p>Question %d %s</p></div>`, i, strings.Repeat("word ", 100))
		fmt.Fprintf(&b, `<div data-message-author-role="assistant"><p>Answer %d %s</p></div>`, i, strings.Repeat("text ", 100))
	}
	b.WriteString(`</main></body></html>`)
	return b.String()
}

func TestRebuild_CursorFollowsActiveItem(t *testing.T) {
	h := newHarnessFor(t, longChat(6))
	h.start(t)
	require.Equal(t, 0, h.m.cursor)

	require.True(t, h.e.Navigate(2))
	h.key(runes("r"))
	h.clock.Advance(0)

	assert.Equal(t, 2, h.e.State().ActiveIndex)
	assert.Equal(t, 2, h.m.cursor)
}

func TestDetailView(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.key(runes("v"))
	require.Equal(t, modeDetail, h.m.mode)
	assert.Contains(t, h.m.View(), "esc back")

	h.key(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeList, h.m.mode)
}

func TestOptionsMessage_OpensEditor(t *testing.T) {
	t.Setenv("VISUAL", "true")
	h := newHarness(t)
	h.start(t)

	cmd := h.key(runes(","))
	assert.NotNil(t, cmd)
	assert.False(t, h.m.editPending)

	_, _ = h.m.Update(editorDoneMsg{})
	assert.Empty(t, h.m.status)
}

func TestRequestOptions_NoSettingsFile(t *testing.T) {
	m := New(Options{})
	assert.Error(t, m.RequestOptions())
	assert.False(t, m.editPending)
}

func TestLoopMessagesRunOnUpdate(t *testing.T) {
	h := newHarness(t)
	ran := false
	_, cmd := h.m.Update(loopMsg{func() { ran = true }})
	assert.True(t, ran)
	assert.NotNil(t, cmd, "keeps waiting on the loop")

	h.loop.Close()
	_, cmd = h.m.Update(loopClosedMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSearchPlaceholder(t *testing.T) {
	s := config.Defaults()
	assert.Equal(t, "search (preview)", SearchPlaceholder(s))

	s.SearchScope = textnorm.ScopePrefix
	s.PrefixLength = 5
	assert.Equal(t, "search (first 100 chars)", SearchPlaceholder(s))

	s.SearchScope = textnorm.ScopeFull
	assert.Equal(t, "search (full text, experimental)", SearchPlaceholder(s))
}

func TestBadges(t *testing.T) {
	assert.Equal(t, []string{"Pair", "code"}, Badges(outline.Item{Kind: outline.KindPair, Role: "pair", HasCode: true}))
	assert.Equal(t, []string{"assistant"}, Badges(outline.Item{Kind: outline.KindTurn, Role: "assistant"}))
}
