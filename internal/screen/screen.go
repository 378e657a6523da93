// Package screen defines what the router needs from a terminal screen.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examprep/internal/ui/layout"
)

// Screen is one full-window view of the terminal UI.
type Screen interface {
	Init() tea.Cmd

	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the area between header and footer.
	View(width, height int) string

	// Title is shown in the header.
	Title() string
}

// KeyHintProvider is implemented by screens that replace the default
// footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider is implemented by screens that put text on the right of
// the header, such as a countdown.
type StatusProvider interface {
	Status() string
}

// Guard is implemented by screens that must not be left with Esc, such as
// a running exam. The app forwards Esc to them instead of popping.
type Guard interface {
	Guarded() bool
}
