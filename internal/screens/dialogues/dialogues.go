// Package dialogues is the screen for picking a dialogue to practice.
package dialogues

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/router"
	"github.com/abhisek/cclprep/internal/screen"
	"github.com/abhisek/cclprep/internal/screens/practice"
	"github.com/abhisek/cclprep/internal/ui/components"
	"github.com/abhisek/cclprep/internal/ui/layout"
	"github.com/abhisek/cclprep/internal/ui/theme"
)

type dialoguesLoadedMsg struct {
	Dialogues []dialogue.Dialogue
	Err       error
}

// DialoguesScreen lists the catalogue and starts a practice session for
// the chosen dialogue.
type DialoguesScreen struct {
	source  dialogue.Source
	factory practice.Factory

	all     []dialogue.Dialogue
	shown   []dialogue.Dialogue
	menu    components.Menu
	filter  components.FilterInput
	spinner spinner.Model
	loaded  bool
	errMsg  string
}

var _ screen.Screen = (*DialoguesScreen)(nil)
var _ screen.KeyHintProvider = (*DialoguesScreen)(nil)
var _ screen.StatusProvider = (*DialoguesScreen)(nil)
var _ screen.InputCapturer = (*DialoguesScreen)(nil)

// New creates a DialoguesScreen.
func New(source dialogue.Source, factory practice.Factory) *DialoguesScreen {
	return &DialoguesScreen{
		source:  source,
		factory: factory,
		filter:  components.NewFilterInput("title, domain or difficulty", 40),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Secondary)),
		),
	}
}

func (s *DialoguesScreen) Init() tea.Cmd {
	source := s.source
	load := func() tea.Msg {
		ds, err := source.ListDialogues(context.Background(), dialogue.Filter{})
		return dialoguesLoadedMsg{Dialogues: ds, Err: err}
	}
	return tea.Batch(load, s.spinner.Tick)
}

func (s *DialoguesScreen) Title() string {
	return "Dialogues"
}

// CapturingInput reports whether Esc should clear the filter instead of
// leaving the screen.
func (s *DialoguesScreen) CapturingInput() bool {
	return s.filter.Active()
}

// Status shows how many dialogues the filter leaves.
func (s *DialoguesScreen) Status() string {
	if !s.loaded || s.errMsg != "" {
		return ""
	}
	return fmt.Sprintf("%d/%d", len(s.menu.Items), len(s.all))
}

func (s *DialoguesScreen) KeyHints() []layout.KeyHint {
	if s.filter.Active() {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Apply"},
			{Key: "Esc", Description: "Clear"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Practice"},
		{Key: "/", Description: "Filter"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *DialoguesScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case dialoguesLoadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.all = msg.Dialogues
		s.rebuild()
		return s, nil

	case spinner.TickMsg:
		if s.loaded {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		if s.filter.Active() {
			return s.updateFilter(msg)
		}
		if msg.String() == "/" && s.loaded {
			return s, s.filter.Activate()
		}
		var cmd tea.Cmd
		s.menu, cmd = s.menu.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *DialoguesScreen) updateFilter(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "enter":
		s.filter.Deactivate()
		return s, nil
	case "esc":
		s.filter.Clear()
		s.rebuild()
		return s, nil
	}
	var cmd tea.Cmd
	s.filter, cmd = s.filter.Update(msg)
	s.rebuild()
	return s, cmd
}

// rebuild recreates the menu from the dialogues passing the filter.
func (s *DialoguesScreen) rebuild() {
	items := make([]components.MenuItem, 0, len(s.all))
	s.shown = s.shown[:0]
	for _, d := range s.all {
		if !s.filter.Matches(d.Title, d.Domain.Title, string(d.Difficulty), d.Language) {
			continue
		}
		s.shown = append(s.shown, d)
		items = append(items, components.MenuItem{
			Label:  d.Title,
			Detail: detail(d),
			Action: s.practice(d),
		})
	}
	s.menu = components.NewMenu(items)
}

func (s *DialoguesScreen) practice(d dialogue.Dialogue) func() tea.Cmd {
	factory := s.factory
	return func() tea.Cmd {
		return func() tea.Msg {
			return router.PushScreenMsg{Screen: practice.New(d, factory)}
		}
	}
}

func detail(d dialogue.Dialogue) string {
	var parts []string
	for _, p := range []string{string(d.Difficulty), d.Domain.Title, d.Language, d.Duration} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " · ")
}

func (s *DialoguesScreen) View(width, height int) string {
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	switch {
	case s.errMsg != "":
		return center.Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nCould not load dialogues: %s", s.errMsg))
	case !s.loaded:
		return center.Foreground(theme.TextDim).
			Render("\n\n" + s.spinner.View() + " Loading dialogues...")
	case len(s.all) == 0:
		return center.Foreground(theme.TextDim).Italic(true).
			Render("\n\nNo dialogues available.")
	}

	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(s.filter.View())
	b.WriteString("\n\n")
	if len(s.menu.Items) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
			Render("    Nothing matches the filter."))
		b.WriteString("\n")
		return b.String()
	}
	menu := s.menu
	menu.Height = max(height-10, 3)
	b.WriteString(menu.View())

	if i := s.menu.Selected; i < len(s.shown) && s.shown[i].Description != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width-4).PaddingLeft(4).
			Foreground(theme.TextDim).Render(s.shown[i].Description))
	}
	return b.String()
}
