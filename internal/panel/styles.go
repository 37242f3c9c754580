package panel

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	Primary = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	Accent  = lipgloss.AdaptiveColor{Light: "#2196F3", Dark: "#64B5F6"}
	Muted   = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
	Border  = lipgloss.AdaptiveColor{Light: "#dce0e5", Dark: "#2a3850"}
	Danger  = lipgloss.Color("#e53935")
)

// Styles holds the panel's styled components.
type Styles struct {
	Frame     lipgloss.Style
	Collapsed lipgloss.Style
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Progress  lipgloss.Style
	Index     lipgloss.Style
	Badge     lipgloss.Style
	Item      lipgloss.Style
	Active    lipgloss.Style
	Cursor    lipgloss.Style
	Empty     lipgloss.Style
	Help      lipgloss.Style
	Error     lipgloss.Style
}

// DefaultStyles returns the panel look.
func DefaultStyles() Styles {
	return Styles{
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1),
		Collapsed: lipgloss.NewStyle().
			Foreground(Muted).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true),
		Subtitle: lipgloss.NewStyle().Foreground(Muted),
		Progress: lipgloss.NewStyle().Foreground(Accent),
		Index:    lipgloss.NewStyle().Foreground(Muted),
		Badge:    lipgloss.NewStyle().Foreground(Accent),
		Item:     lipgloss.NewStyle(),
		Active:   lipgloss.NewStyle().Foreground(Primary).Bold(true),
		Cursor:   lipgloss.NewStyle().Reverse(true),
		Empty:    lipgloss.NewStyle().Foreground(Muted).Italic(true),
		Help:     lipgloss.NewStyle().Foreground(Muted),
		Error:    lipgloss.NewStyle().Foreground(Danger),
	}
}
