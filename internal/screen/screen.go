package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/cclprep/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// Closer is implemented by screens that hold devices or sessions. The
// router calls Close when the screen leaves the stack.
type Closer interface {
	Close()
}

// StatusProvider is an optional interface for screens that show a status
// string on the right of the header.
type StatusProvider interface {
	Status() string
}

// InputCapturer is implemented by screens with a text input. While
// CapturingInput is true the app passes Esc to the screen.
type InputCapturer interface {
	CapturingInput() bool
}
