// Package router keeps the stack of TUI screens. Screens navigate by
// returning the messages below as commands, so no screen needs a handle on
// another.
package router

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/cclprep/internal/screen"
)

// PushScreenMsg opens Screen on top of the current one.
type PushScreenMsg struct {
	Screen screen.Screen
}

// PopScreenMsg goes back one screen.
type PopScreenMsg struct{}

// ReplaceScreenMsg swaps the top screen for Screen, as practice does when
// it hands over to results.
type ReplaceScreenMsg struct {
	Screen screen.Screen
}

// PopToRootMsg goes back to the first screen.
type PopToRootMsg struct{}

// Router owns the screen stack. A screen that leaves the stack is closed
// if it implements screen.Closer.
type Router struct {
	stack []screen.Screen
}

func New(root screen.Screen) *Router {
	return &Router{stack: []screen.Screen{root}}
}

// Push opens s and runs its Init.
func (r *Router) Push(s screen.Screen) tea.Cmd {
	r.stack = append(r.stack, s)
	return s.Init()
}

// Pop closes the top screen. The root is never popped.
func (r *Router) Pop() tea.Cmd {
	r.truncate(len(r.stack) - 1)
	return nil
}

// PopToRoot closes everything above the root.
func (r *Router) PopToRoot() tea.Cmd {
	r.truncate(1)
	return nil
}

// Replace closes the top screen and opens s in its place.
func (r *Router) Replace(s screen.Screen) tea.Cmd {
	if n := len(r.stack); n > 0 {
		closeScreen(r.stack[n-1])
		r.stack = r.stack[:n-1]
	}
	return r.Push(s)
}

// CloseAll closes every screen, top first. Used on quit.
func (r *Router) CloseAll() {
	for i := len(r.stack) - 1; i >= 0; i-- {
		closeScreen(r.stack[i])
	}
}

// truncate closes screens until depth remain, keeping at least one.
func (r *Router) truncate(depth int) {
	depth = max(depth, 1)
	for len(r.stack) > depth {
		top := len(r.stack) - 1
		closeScreen(r.stack[top])
		r.stack[top] = nil
		r.stack = r.stack[:top]
	}
}

func closeScreen(s screen.Screen) {
	if c, ok := s.(screen.Closer); ok {
		c.Close()
	}
}

// Active is the top screen, or nil for an empty stack.
func (r *Router) Active() screen.Screen {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

func (r *Router) Depth() int {
	return len(r.stack)
}

// Update applies navigation messages and hands everything else to the
// active screen.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PushScreenMsg:
		return r.Push(msg.Screen)
	case PopScreenMsg:
		return r.Pop()
	case PopToRootMsg:
		return r.PopToRoot()
	case ReplaceScreenMsg:
		return r.Replace(msg.Screen)
	}

	active := r.Active()
	if active == nil {
		return nil
	}
	updated, cmd := active.Update(msg)
	r.stack[len(r.stack)-1] = updated
	return cmd
}

func (r *Router) View(width, height int) string {
	if active := r.Active(); active != nil {
		return active.View(width, height)
	}
	return ""
}
