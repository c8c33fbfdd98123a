// Package app is the root Bubble Tea model: it owns the screen router and
// draws the shared frame around the active screen.
package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/router"
	"github.com/abhisek/cclprep/internal/screen"
	"github.com/abhisek/cclprep/internal/screens/home"
	"github.com/abhisek/cclprep/internal/screens/practice"
	"github.com/abhisek/cclprep/internal/store"
	"github.com/abhisek/cclprep/internal/ui/layout"
)

// Deps are the services the screens use.
type Deps struct {
	Source  dialogue.Source
	Events  store.EventRepo
	Factory practice.Factory

	// Start, when set, is opened over the home screen at launch, as
	// `cclprep practice <id>` does.
	Start screen.Screen
}

var (
	rootHints = []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "q", Description: "Quit"},
	}
	nestedHints = []layout.KeyHint{
		{Key: "Esc", Description: "Back"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
)

type model struct {
	router *router.Router
	start  screen.Screen
	width  int
	height int
}

func newModel(deps Deps) model {
	return model{
		router: router.New(home.New(deps.Source, deps.Factory, deps.Events)),
		start:  deps.Start,
	}
}

func (m model) Init() tea.Cmd {
	cmd := m.router.Active().Init()
	if m.start == nil {
		return cmd
	}
	start := m.start
	return tea.Batch(cmd, func() tea.Msg { return router.PushScreenMsg{Screen: start} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg.String()); handled {
			return m, cmd
		}
	}
	return m, m.router.Update(msg)
}

// handleGlobalKey deals with quitting and going back. Screens with an
// active text input get Esc and q for themselves.
func (m model) handleGlobalKey(key string) (tea.Cmd, bool) {
	if key == "ctrl+c" {
		m.router.CloseAll()
		return tea.Quit, true
	}
	if c, ok := m.router.Active().(screen.InputCapturer); ok && c.CapturingInput() {
		return nil, false
	}
	switch key {
	case "esc":
		if m.router.Depth() > 1 {
			return func() tea.Msg { return router.PopScreenMsg{} }, true
		}
		return nil, true
	case "q":
		if m.router.Depth() == 1 {
			m.router.CloseAll()
			return tea.Quit, true
		}
	}
	return nil, false
}

func (m model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	switch {
	case m.width == 0 || m.height == 0:
		return v
	case layout.IsTooSmall(m.width, m.height):
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	header := layout.RenderHeader(active.Title(), status(active), m.width)
	footer := layout.RenderFooter(m.hints(active), m.width)

	inner := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	v.SetContent(layout.RenderFrame(header, m.router.View(m.width, inner), footer, m.width, m.height))
	return v
}

func status(s screen.Screen) string {
	if sp, ok := s.(screen.StatusProvider); ok {
		return sp.Status()
	}
	return ""
}

func (m model) hints(s screen.Screen) []layout.KeyHint {
	if kp, ok := s.(screen.KeyHintProvider); ok {
		return kp.KeyHints()
	}
	if m.router.Depth() > 1 {
		return nestedHints
	}
	return rootHints
}

// Run starts the TUI and blocks until it exits. Screens still open at
// exit are closed.
func Run(deps Deps) error {
	m := newModel(deps)
	_, err := tea.NewProgram(m).Run()
	m.router.CloseAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
