package panel

import (
	"fmt"
	"strings"

	"chatoutline/internal/outline"

	"github.com/charmbracelet/lipgloss"
)

const helpLine = "enter go · / search · tab pair/turn · b/f back/fwd · t/e top/end · v view · , options · q quit"

func (m *Model) View() string {
	if m.eng == nil {
		return ""
	}
	st := m.eng.State()
	cols := m.columns()
	inner := max(10, cols-4)

	if !st.Open {
		return m.styles.Collapsed.Render(fmt.Sprintf("%s %s · alt+o", m.title, m.progress()))
	}

	var b strings.Builder
	header := m.styles.Title.Render(m.title)
	if !st.Indexed {
		header += " " + m.spinner.View()
	}
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render(m.subtitle()))
	b.WriteString("  ")
	b.WriteString(m.styles.Progress.Render(m.progress()))
	b.WriteString("\n")

	if m.mode == modeDetail {
		b.WriteString(m.detail.View())
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("esc back · ↑/↓ scroll"))
		return m.styles.Frame.Width(cols - 2).Render(b.String())
	}

	m.search.Width = inner - 2
	b.WriteString(m.search.View())
	b.WriteString("\n")

	end := min(len(m.visible), m.offset+m.listHeight())
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.visible[i], i == m.cursor, st.ActiveIndex, inner))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(m.styles.Error.MaxWidth(inner).Render(m.status))
		b.WriteString("\n")
	} else if st.LastError != nil && !st.Indexed {
		b.WriteString(m.styles.Error.MaxWidth(inner).Render(st.LastError.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Width(inner).Render(helpLine))
	return m.styles.Frame.Width(cols - 2).Render(b.String())
}

func (m *Model) subtitle() string {
	st := m.eng.State()
	if !st.Indexed {
		return "indexing…"
	}
	return fmt.Sprintf("%d items · showing %d", st.Index.Len(), len(m.visible))
}

func (m *Model) progress() string {
	st := m.eng.State()
	n := st.Index.Len()
	if st.ActiveIndex >= 0 {
		return fmt.Sprintf("current %d/%d", st.ActiveIndex+1, n)
	}
	return fmt.Sprintf("—/%d", n)
}

// Badges are the role (or "Pair") and a code marker.
func Badges(it outline.Item) []string {
	role := "Pair"
	if it.Kind == outline.KindTurn {
		role = it.Role
	}
	out := []string{role}
	if it.HasCode {
		out = append(out, "code")
	}
	return out
}

func (m *Model) renderRow(it outline.Item, selected bool, active, width int) string {
	marker := "  "
	if it.Index == active {
		marker = "● "
	}
	var badges []string
	for _, b := range Badges(it) {
		badges = append(badges, m.styles.Badge.Render("["+b+"]"))
	}
	preview := it.Preview
	if preview == "" {
		preview = "(empty)"
	}
	row := marker + m.styles.Index.Render(fmt.Sprintf("#%d", it.Index+1)) + " " +
		strings.Join(badges, "") + " " + preview

	style := m.styles.Item
	switch {
	case selected && m.mode != modeSearch:
		style = m.styles.Cursor
	case it.Index == active:
		style = m.styles.Active
	}
	if it.Preview == "" {
		style = style.Inherit(m.styles.Empty)
	}
	return style.MaxWidth(width).Render(lipgloss.NewStyle().Inline(true).Render(row))
}
