package practice

import (
	sess "github.com/abhisek/cclprep/internal/session"
)

// startedMsg is sent once the controller is created and the session has
// loaded its segments.
type startedMsg struct {
	Ctrl *sess.Controller
	Err  error
}

// controllerEventMsg carries one controller event into the update loop.
type controllerEventMsg struct {
	Event sess.Event
}

// eventsClosedMsg is sent when the controller's event stream ends.
type eventsClosedMsg struct{}

// actionDoneMsg reports the outcome of a controller call.
type actionDoneMsg struct {
	Action string
	Err    error
}

// clearNoticeMsg hides the notice with the given sequence number.
type clearNoticeMsg struct {
	seq int
}
