// Package panel is the terminal side panel that lists the outline and drives
// navigation in the host page.
package panel

import (
	"errors"
	"fmt"

	"chatoutline/internal/config"
	"chatoutline/internal/engine"
	"chatoutline/internal/eventloop"
	"chatoutline/internal/logging"
	"chatoutline/internal/messaging"
	"chatoutline/internal/outline"
	"chatoutline/internal/textnorm"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// ColumnWidth converts the pixel width setting into terminal columns.
const ColumnWidth = 8

type mode int

const (
	modeList mode = iota
	modeSearch
	modeDetail
)

// loopMsg carries one closure posted to the event loop.
type loopMsg struct{ f func() }

type loopClosedMsg struct{}

type editorDoneMsg struct{ err error }

// Options configures a panel.
type Options struct {
	Loop *eventloop.Loop
	// SettingsPath is opened in the editor for the options message.
	SettingsPath string
	Title        string
}

// Model is the panel program. The bubbletea goroutine is the event loop
// owner: posted closures run inside Update, so the engine is only touched here.
type Model struct {
	eng          *engine.Engine
	loop         *eventloop.Loop
	settingsPath string
	title        string
	styles       Styles

	search   textinput.Model
	spinner  spinner.Model
	detail   viewport.Model
	renderer *glamour.TermRenderer
	rendered int

	mode        mode
	cursor      int
	offset      int
	visible     []outline.Item
	width       int
	height      int
	editPending bool
	status      string
}

// New creates a panel. Bind must be called before the program starts.
func New(o Options) *Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	title := o.Title
	if title == "" {
		title = "Outline"
	}
	return &Model{
		loop:         o.Loop,
		settingsPath: o.SettingsPath,
		title:        title,
		styles:       DefaultStyles(),
		search:       ti,
		spinner:      sp,
		detail:       viewport.New(0, 0),
	}
}

// Bind attaches the engine the panel renders.
func (m *Model) Bind(e *engine.Engine) {
	m.eng = e
	m.search.Placeholder = SearchPlaceholder(e.State().Settings)
	m.refilter()
}

// RequestOptions is the options-message action: open the settings file in
// the user's editor once the current update finishes.
func (m *Model) RequestOptions() error {
	if m.settingsPath == "" {
		return errors.New("no settings file")
	}
	m.editPending = true
	return nil
}

// Changed is the engine change hook.
func (m *Model) Changed(c engine.Change) {
	switch c {
	case engine.ChangeSettings:
		m.search.Placeholder = SearchPlaceholder(m.eng.State().Settings)
		m.refilter()
	case engine.ChangeRebuilt:
		m.refilter()
		m.follow()
	case engine.ChangeActive:
		m.follow()
	}
}

// SearchPlaceholder tells the user what the search box covers.
func SearchPlaceholder(s config.Settings) string {
	switch s.SearchScope {
	case textnorm.ScopeFull:
		return "search (full text, experimental)"
	case textnorm.ScopePrefix:
		return fmt.Sprintf("search (first %d chars)", s.EffectivePrefixLength())
	}
	return "search (preview)"
}

func waitLoop(l *eventloop.Loop) tea.Cmd {
	return func() tea.Msg {
		select {
		case f := <-l.C():
			return loopMsg{f}
		case <-l.Done():
			return loopClosedMsg{}
		}
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.loop != nil {
		cmds = append(cmds, waitLoop(m.loop))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case loopMsg:
		msg.f()
		cmds = append(cmds, waitLoop(m.loop))

	case loopClosedMsg:
		return m, tea.Quit

	case editorDoneMsg:
		if msg.err != nil {
			m.status = "editor: " + msg.err.Error()
			logging.Get(logging.CategoryPanel).Debug("editor exited: %v", msg.err)
		} else {
			m.status = ""
		}

	case spinner.TickMsg:
		if m.eng != nil && !m.eng.State().Indexed {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resizeDetail()

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if m.editPending {
		m.editPending = false
		if cmd := m.editSettings(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}

	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeDetail:
		switch key {
		case "esc", "v", "q":
			m.mode = modeList
			return nil
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return cmd
	}

	st := m.eng.State()
	switch key {
	case "q":
		return tea.Quit
	case "alt+o":
		m.eng.SetOpen(!st.Open, true)
		return nil
	case ",":
		m.eng.HandleMessage(messaging.Message{Source: messaging.Source, Type: messaging.TypeOpenOptions})
		return nil
	}
	if !st.Open {
		return nil
	}

	switch key {
	case "esc":
		m.eng.SetOpen(false, true)
	case "/":
		m.mode = modeSearch
		return m.search.Focus()
	case "tab":
		next := config.GranularityTurn
		if st.Settings.Granularity == config.GranularityTurn {
			next = config.GranularityPair
		}
		m.eng.SetGranularity(next)
	case "r":
		m.eng.Refresh()
	case "b":
		m.eng.NavBack()
	case "f":
		m.eng.NavForward()
	case "t":
		m.eng.Top()
	case "e":
		m.eng.Bottom()
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "pgup":
		m.move(-m.listHeight())
	case "pgdown":
		m.move(m.listHeight())
	case "enter":
		m.navigateCursor()
	case "v":
		m.openDetail()
	}
	return nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.search.Blur()
		m.mode = modeList
		return nil
	case "enter":
		m.search.Blur()
		m.mode = modeList
		m.navigateCursor()
		return nil
	case "up", "down":
		if msg.String() == "up" {
			m.move(-1)
		} else {
			m.move(1)
		}
		return nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.cursor, m.offset = 0, 0
		m.refilter()
	}
	return cmd
}

func (m *Model) navigateCursor() {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return
	}
	m.eng.NavigateID(m.visible[m.cursor].ID)
}

func (m *Model) move(delta int) {
	if len(m.visible) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = textnorm.Clamp(m.cursor+delta, 0, len(m.visible)-1)
	m.scrollToCursor()
}

// follow moves the cursor onto the active item when it is visible.
func (m *Model) follow() {
	active := m.eng.State().ActiveIndex
	for i, it := range m.visible {
		if it.Index == active {
			m.cursor = i
			m.scrollToCursor()
			return
		}
	}
}

func (m *Model) scrollToCursor() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m *Model) refilter() {
	if m.eng == nil {
		return
	}
	m.visible = m.eng.Filter(m.search.Value())
	if m.cursor >= len(m.visible) {
		m.cursor = max(0, len(m.visible)-1)
	}
	m.offset = min(m.offset, m.cursor)
	m.scrollToCursor()
}

func (m *Model) openDetail() {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return
	}
	it := m.visible[m.cursor]
	m.resizeDetail()
	m.detail.SetContent(m.renderDetail(it))
	m.detail.GotoTop()
	m.mode = modeDetail
}

func (m *Model) renderDetail(it outline.Item) string {
	text := it.Text
	if text == "" {
		text = it.Preview
	}
	wrap := max(20, m.columns()-4)
	if m.renderer == nil || m.rendered != wrap {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			logging.Get(logging.CategoryPanel).Debug("markdown renderer unavailable: %v", err)
			return text
		}
		m.renderer, m.rendered = r, wrap
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}

func (m *Model) resizeDetail() {
	m.detail.Width = m.columns() - 4
	m.detail.Height = max(3, m.bodyHeight())
}

func (m *Model) editSettings() tea.Cmd {
	c, err := messaging.EditorCommand(m.settingsPath)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	return tea.ExecProcess(c, func(err error) tea.Msg { return editorDoneMsg{err} })
}

// columns is the panel width in terminal cells.
func (m *Model) columns() int {
	cols := 340 / ColumnWidth
	if m.eng != nil {
		cols = m.eng.State().Settings.PanelWidth() / ColumnWidth
	}
	if m.width > 0 {
		cols = min(cols, m.width)
	}
	return cols
}

// bodyHeight is what remains after the header, search and help lines.
func (m *Model) bodyHeight() int {
	if m.height <= 0 {
		return 20
	}
	return m.height - 7
}

func (m *Model) listHeight() int {
	return max(1, m.bodyHeight())
}
