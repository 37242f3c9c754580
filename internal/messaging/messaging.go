// Package messaging handles the cross-context messages the page and the
// panel send to the process.
package messaging

import (
	"fmt"
	"os"
	"os/exec"

	"chatoutline/internal/logging"

	"github.com/mattn/go-shellwords"
)

// Source tags messages posted from the host page.
const Source = "chatoutline"

// TypeOpenOptions asks for the settings surface to be opened.
const TypeOpenOptions = "CO_OPEN_OPTIONS"

// Message is the wire form of a cross-context message.
type Message struct {
	Source string `json:"source,omitempty"`
	Type   string `json:"type"`
}

// Handler dispatches messages. OpenOptions is called for TypeOpenOptions.
type Handler struct {
	OpenOptions func() error
}

// Handle dispatches m and reports whether it was recognized. Handler
// failures, panics included, are logged and swallowed.
func (h *Handler) Handle(m Message) (handled bool) {
	if m.Type != TypeOpenOptions || h.OpenOptions == nil {
		return false
	}
	log := logging.Get(logging.CategoryPanel)
	defer func() {
		if r := recover(); r != nil {
			log.Debug("options handler panicked: %v", r)
		}
	}()
	if err := h.OpenOptions(); err != nil {
		log.Debug("open options failed: %v", err)
	}
	return true
}

// Editor returns the user's editor: $VISUAL, then $EDITOR, then vi.
func Editor() string {
	if v := os.Getenv("VISUAL"); v != "" {
		return v
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}

// EditorCommand builds the command that opens path in the user's editor.
// The editor value may carry arguments, as in "code --wait".
func EditorCommand(path string) (*exec.Cmd, error) {
	if path == "" {
		return nil, fmt.Errorf("no settings file")
	}
	argv, err := shellwords.Parse(Editor())
	if err != nil {
		return nil, fmt.Errorf("failed to parse editor command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("no editor configured")
	}
	return exec.Command(argv[0], append(argv[1:], path)...), nil
}
