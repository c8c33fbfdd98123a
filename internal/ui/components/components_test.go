package components

import (
	"fmt"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
)

func TestNewMenuSkipsDisabled(t *testing.T) {
	m := NewMenu([]MenuItem{
		{Label: "Resume", Disabled: true},
		{Label: "Practice"},
		{Label: "History"},
	})
	assert.Equal(t, 1, m.Selected)

	item, ok := m.SelectedItem()
	assert.True(t, ok)
	assert.Equal(t, "Practice", item.Label)
}

func TestMenuWrapsAndSkipsDisabled(t *testing.T) {
	m := NewMenu([]MenuItem{
		{Label: "A"},
		{Label: "B", Disabled: true},
		{Label: "C"},
	})

	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, 2, m.Selected)
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	assert.Equal(t, 0, m.Selected, "wraps to the top")
	m, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	assert.Equal(t, 2, m.Selected, "wraps to the bottom")
}

func TestMenuWindowFollowsCursor(t *testing.T) {
	items := make([]MenuItem, 10)
	for i := range items {
		items[i] = MenuItem{Label: fmt.Sprintf("item-%d", i)}
	}
	m := NewMenu(items)
	m.Height = 4
	m.Selected = 9

	v := m.View()
	assert.Contains(t, v, "item-9")
	assert.NotContains(t, v, "item-5")
	assert.Contains(t, v, "7-10 of 10")

	m.Height = 0
	assert.Contains(t, m.View(), "item-0")
}

func TestMenuEnterRunsAction(t *testing.T) {
	ran := false
	m := NewMenu([]MenuItem{{Label: "Go", Action: func() tea.Cmd { ran = true; return nil }}})
	m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.True(t, ran)
}

func TestFilterMatches(t *testing.T) {
	f := NewFilterInput("title or domain", 30)
	assert.True(t, f.Matches("anything"), "empty filter matches")

	f.Model.SetValue("  MEDIcal ")
	assert.True(t, f.Matches("Community", "Medical appointment"))
	assert.False(t, f.Matches("Legal", "Tenancy dispute"))
}

func TestScoreBarClamps(t *testing.T) {
	full := ScoreBar("accuracy", 14, 10, 10)
	assert.Equal(t, 10, strings.Count(full, "■"))
	assert.Contains(t, full, "14.0")

	empty := ScoreBar("accuracy", -2, 10, 10)
	assert.Equal(t, 0, strings.Count(empty, "■"))
	assert.Equal(t, 10, strings.Count(empty, "□"))
}

func TestProgressBarCaption(t *testing.T) {
	p := NewProgressBar("Segment", 0.4, 40)
	assert.Contains(t, p.View(), "40%")

	p.Caption = "2/5"
	assert.Contains(t, p.View(), "2/5")
}
