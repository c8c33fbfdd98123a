package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/ui/theme"
)

// MenuItem is one selectable line.
type MenuItem struct {
	Label string

	// Detail is shown dimmed after the label.
	Detail   string
	Action   func() tea.Cmd
	Disabled bool
}

// Menu is a vertical list with a cursor. Movement skips disabled items and
// wraps at either end.
type Menu struct {
	Items    []MenuItem
	Selected int

	// Height caps the number of lines View draws; the window follows the
	// cursor. Zero draws every item.
	Height int
}

// NewMenu puts the cursor on the first enabled item.
func NewMenu(items []MenuItem) Menu {
	m := Menu{Items: items, Selected: -1}
	m.Selected = m.step(-1, 1)
	if m.Selected < 0 {
		m.Selected = 0
	}
	return m
}

// step returns the next enabled index after from in direction dir,
// wrapping around, or -1 when nothing is enabled.
func (m Menu) step(from, dir int) int {
	n := len(m.Items)
	for k := 1; k <= n; k++ {
		i := ((from+dir*k)%n + n) % n
		if !m.Items[i].Disabled {
			return i
		}
	}
	return -1
}

func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.Items) == 0 {
		return m, nil
	}

	move := func(i int) {
		if i >= 0 {
			m.Selected = i
		}
	}
	switch kmsg.String() {
	case "up", "k":
		move(m.step(m.Selected, -1))
	case "down", "j":
		move(m.step(m.Selected, 1))
	case "home", "g":
		move(m.step(-1, 1))
	case "end", "G":
		move(m.step(len(m.Items), -1))
	case "enter":
		if item, ok := m.SelectedItem(); ok && !item.Disabled && item.Action != nil {
			return m, item.Action()
		}
	}
	return m, nil
}

// SelectedItem returns the item under the cursor.
func (m Menu) SelectedItem() (MenuItem, bool) {
	if m.Selected < 0 || m.Selected >= len(m.Items) {
		return MenuItem{}, false
	}
	return m.Items[m.Selected], true
}

// window returns the half-open range of items View draws.
func (m Menu) window() (int, int) {
	n := len(m.Items)
	if m.Height <= 0 || n <= m.Height {
		return 0, n
	}
	start := min(max(m.Selected-m.Height/2, 0), n-m.Height)
	return start, start + m.Height
}

func (m Menu) View() string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	off := lipgloss.NewStyle().Foreground(theme.Border)

	start, end := m.window()
	var b strings.Builder
	for i := start; i < end; i++ {
		item := m.Items[i]
		var line string
		switch {
		case item.Disabled:
			line = off.Render("    " + item.Label)
		case i == m.Selected:
			line = theme.Selected.Render("  ▸ " + item.Label)
		default:
			line = theme.Unselected.Render("    " + item.Label)
		}
		if item.Detail != "" {
			line += "  " + dim.Render(item.Detail)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if start > 0 || end < len(m.Items) {
		b.WriteString(dim.Render(fmt.Sprintf("    %d-%d of %d", start+1, end, len(m.Items))))
		b.WriteString("\n")
	}
	return b.String()
}
