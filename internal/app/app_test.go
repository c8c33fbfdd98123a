package app

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/cclprep/internal/router"
	"github.com/abhisek/cclprep/internal/screen"
)

type typingScreen struct{ capturing bool }

func (s *typingScreen) Init() tea.Cmd                           { return nil }
func (s *typingScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *typingScreen) View(int, int) string                    { return "typing" }
func (s *typingScreen) Title() string                           { return "Dialogues" }
func (s *typingScreen) CapturingInput() bool                    { return s.capturing }

func key(k string) tea.KeyPressMsg {
	switch k {
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "ctrl+c":
		return tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}
	}
	return tea.KeyPressMsg{Code: rune(k[0]), Text: k}
}

func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestQuitFromHome(t *testing.T) {
	m := newModel(Deps{})
	_, cmd := m.Update(key("q"))
	if _, ok := run(cmd).(tea.QuitMsg); !ok {
		t.Errorf("q on the home screen: got %T, want tea.QuitMsg", run(cmd))
	}
}

func TestEscGoesBack(t *testing.T) {
	m := newModel(Deps{})
	m.router.Push(&typingScreen{})

	_, cmd := m.Update(key("esc"))
	if _, ok := run(cmd).(router.PopScreenMsg); !ok {
		t.Errorf("esc on a nested screen: got %T, want PopScreenMsg", run(cmd))
	}

	_, cmd = m.Update(key("q"))
	if _, ok := run(cmd).(tea.QuitMsg); ok {
		t.Error("q on a nested screen quit the app")
	}
}

func TestInputCapturerKeepsEsc(t *testing.T) {
	m := newModel(Deps{})
	m.router.Push(&typingScreen{capturing: true})

	if _, handled := m.handleGlobalKey("esc"); handled {
		t.Error("esc handled while the screen captures input")
	}
	if cmd, handled := m.handleGlobalKey("ctrl+c"); !handled || cmd == nil {
		t.Error("ctrl+c must always quit")
	}
}

func TestHints(t *testing.T) {
	m := newModel(Deps{})
	if got := m.hints(m.router.Active()); len(got) == 0 || got[0].Key != rootHints[0].Key {
		t.Errorf("root hints = %v", got)
	}
	m.router.Push(&typingScreen{})
	if got := m.hints(m.router.Active()); got[0].Key != "Esc" {
		t.Errorf("nested hints = %v", got)
	}
}
