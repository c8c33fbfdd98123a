package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/ui/theme"
)

// FilterInput is a one-line text filter for lists.
type FilterInput struct {
	Model  textinput.Model
	active bool
}

// NewFilterInput creates a blurred filter. Call Activate to start typing.
func NewFilterInput(placeholder string, width int) FilterInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "/ "
	ti.CharLimit = 64
	if width > 0 {
		ti.SetWidth(width)
	}
	return FilterInput{Model: ti}
}

// Activate focuses the input.
func (f *FilterInput) Activate() tea.Cmd {
	f.active = true
	return f.Model.Focus()
}

// Deactivate blurs the input and keeps the current text.
func (f *FilterInput) Deactivate() {
	f.active = false
	f.Model.Blur()
}

// Clear blurs the input and drops its text.
func (f *FilterInput) Clear() {
	f.Deactivate()
	f.Model.Reset()
}

// Active reports whether keystrokes go to the filter.
func (f FilterInput) Active() bool {
	return f.active
}

// Update forwards messages to the text input while active.
func (f FilterInput) Update(msg tea.Msg) (FilterInput, tea.Cmd) {
	if !f.active {
		return f, nil
	}
	var cmd tea.Cmd
	f.Model, cmd = f.Model.Update(msg)
	return f, cmd
}

// Value returns the trimmed filter text.
func (f FilterInput) Value() string {
	return strings.TrimSpace(f.Model.Value())
}

// Matches reports whether any of fields contains the filter text, ignoring
// case. An empty filter matches everything.
func (f FilterInput) Matches(fields ...string) bool {
	q := strings.ToLower(f.Value())
	if q == "" {
		return true
	}
	for _, s := range fields {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// View renders the filter, or a hint when it is empty and inactive.
func (f FilterInput) View() string {
	if !f.active && f.Value() == "" {
		return lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render("Press / to filter")
	}
	return f.Model.View()
}
