package engine

import (
	"chatoutline/internal/config"
	"chatoutline/internal/outline"
	"chatoutline/internal/viewport"

	"golang.org/x/net/html"
)

// State is the single mutable process state. It is created by New and only
// changed by Engine methods running on the event loop.
type State struct {
	Settings config.Settings
	Open     bool
	Index    *outline.Index
	// ActiveIndex is -1 when the outline is empty.
	ActiveIndex int
	History     viewport.History
	// Scroller is the current scroll container; nil is the page.
	Scroller *html.Node
	// Indexed turns true after the first successful rebuild.
	Indexed  bool
	Rebuilds int
	// LastError is the most recent rebuild failure, cleared on success.
	LastError error
}

func newState(s config.Settings) *State {
	return &State{
		Settings:    s,
		Open:        s.OpenByDefault,
		Index:       outline.NewIndex(),
		ActiveIndex: -1,
	}
}

// Active returns the active item.
func (s *State) Active() (outline.Item, bool) {
	return s.Index.At(s.ActiveIndex)
}
