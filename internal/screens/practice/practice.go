// Package practice is the screen that runs a practice session: it drives a
// session.Controller from key presses and redraws on every controller
// event.
package practice

import (
	"context"
	"errors"
	"sync"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/audio"
	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/router"
	"github.com/abhisek/cclprep/internal/scoring"
	"github.com/abhisek/cclprep/internal/screen"
	"github.com/abhisek/cclprep/internal/screens/results"
	sess "github.com/abhisek/cclprep/internal/session"
	"github.com/abhisek/cclprep/internal/ui/layout"
	"github.com/abhisek/cclprep/internal/ui/theme"
)

// Factory creates the controller for one practice run.
type Factory func() (*sess.Controller, error)

// noticeTTL is how long a notice stays on screen.
const noticeTTL = 4 * time.Second

// PracticeScreen implements screen.Screen for a running session.
type PracticeScreen struct {
	dialogue dialogue.Dialogue
	factory  Factory
	ctrl     *sess.Controller
	life     *lifetime
	snap     sess.Snapshot
	spinner  spinner.Model

	showTranslation bool
	notice          string
	noticeIsError   bool
	noticeSeq       int
	errMsg          string
	finishing       bool
}

var _ screen.Screen = (*PracticeScreen)(nil)
var _ screen.KeyHintProvider = (*PracticeScreen)(nil)
var _ screen.Closer = (*PracticeScreen)(nil)
var _ screen.StatusProvider = (*PracticeScreen)(nil)

// New creates a PracticeScreen for d. The controller is created when the
// screen starts.
func New(d dialogue.Dialogue, factory Factory) *PracticeScreen {
	return &PracticeScreen{
		dialogue: d,
		factory:  factory,
		life:     &lifetime{},
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Secondary)),
		),
	}
}

func (s *PracticeScreen) Init() tea.Cmd {
	return tea.Batch(s.start(), s.spinner.Tick)
}

func (s *PracticeScreen) Title() string {
	return s.dialogue.Title
}

// Status shows how many segments are scored.
func (s *PracticeScreen) Status() string {
	if !s.snap.Active {
		return ""
	}
	return scoredStatus(s.snap)
}

// Close ends the session and releases the devices. A controller still
// starting when the screen closes is closed as soon as it is ready.
func (s *PracticeScreen) Close() {
	if ctrl := s.life.close(); ctrl != nil {
		ctrl.Close()
	}
}

// lifetime hands the controller from the start command to the screen. The
// command runs off the update loop, so the screen may be gone by the time
// the controller is ready.
type lifetime struct {
	mu     sync.Mutex
	ctrl   *sess.Controller
	closed bool
}

// adopt keeps ctrl for a later close. It reports false when the screen has
// already closed; the caller then owns ctrl.
func (l *lifetime) adopt(ctrl *sess.Controller) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.ctrl = ctrl
	return true
}

func (l *lifetime) close() *sess.Controller {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	ctrl := l.ctrl
	l.ctrl = nil
	return ctrl
}

func (s *PracticeScreen) start() tea.Cmd {
	d, factory, life := s.dialogue, s.factory, s.life
	return func() tea.Msg {
		ctrl, err := factory()
		if err != nil {
			return startedMsg{Err: err}
		}
		if err := ctrl.Start(context.Background(), d); err != nil {
			ctrl.Close()
			return startedMsg{Err: err}
		}
		if !life.adopt(ctrl) {
			// Closing logs the session as abandoned.
			ctrl.Close()
			return nil
		}
		return startedMsg{Ctrl: ctrl}
	}
}

// waitForEvent blocks on the controller's event stream.
func waitForEvent(ctrl *sess.Controller) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ctrl.Events()
		if !ok {
			return eventsClosedMsg{}
		}
		return controllerEventMsg{Event: ev}
	}
}

func (s *PracticeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case startedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.ctrl = msg.Ctrl
		s.snap = s.ctrl.Snapshot()
		return s, waitForEvent(s.ctrl)

	case controllerEventMsg:
		return s.handleEvent(msg.Event)

	case eventsClosedMsg:
		return s, nil

	case actionDoneMsg:
		if msg.Action == "finish" {
			s.finishing = false
		}
		if text := describeError(msg.Err); text != "" {
			return s, s.showNotice(text, true)
		}
		return s, nil

	case clearNoticeMsg:
		if msg.seq == s.noticeSeq {
			s.notice = ""
		}
		return s, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *PracticeScreen) handleEvent(ev sess.Event) (screen.Screen, tea.Cmd) {
	s.snap = s.ctrl.Snapshot()
	next := waitForEvent(s.ctrl)

	switch ev.Kind {
	case sess.EventNotice:
		return s, tea.Batch(next, s.showNotice(ev.Message, ev.Err != nil))
	case sess.EventCompleted:
		snap := s.snap
		return s, func() tea.Msg {
			return router.ReplaceScreenMsg{Screen: results.New(snap)}
		}
	}
	return s, next
}

func (s *PracticeScreen) showNotice(text string, isError bool) tea.Cmd {
	s.noticeSeq++
	s.notice = text
	s.noticeIsError = isError
	seq := s.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}

func (s *PracticeScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.ctrl == nil || s.snap.Completed {
		return s, nil
	}
	ctrl := s.ctrl
	cur, _ := s.snap.CurrentView()

	switch msg.String() {
	case "space", " ", "p":
		if cur.Phase == sess.PhasePlayingReference {
			ctrl.PauseCurrent()
			return s, nil
		}
		return s, do("play", func(ctx context.Context) error { return ctrl.PlayCurrent(ctx) })
	case "r":
		return s, do("record", func(context.Context) error { return ctrl.RecordCurrent() })
	case "s":
		return s, do("stop", func(context.Context) error { return ctrl.StopRecording() })
	case "enter":
		if cur.Phase == sess.PhaseRecording {
			return s, do("stop", func(context.Context) error { return ctrl.StopRecording() })
		}
		return s, do("submit", func(ctx context.Context) error { return ctrl.SubmitCurrent(ctx) })
	case "x":
		return s, do("repeat", func(context.Context) error { return ctrl.RepeatCurrent() })
	case "v":
		return s, do("replay", func(ctx context.Context) error { return ctrl.ReplayRecording(ctx) })
	case "right", "n":
		return s, do("next", func(context.Context) error { return ctrl.Next() })
	case "left", "b":
		return s, do("previous", func(context.Context) error { return ctrl.Previous() })
	case "t":
		s.showTranslation = !s.showTranslation
		return s, nil
	case "f":
		if s.finishing {
			return s, nil
		}
		s.finishing = true
		return s, do("finish", func(ctx context.Context) error {
			_, err := ctrl.Finish(ctx)
			return err
		})
	}
	return s, nil
}

// do runs a controller call off the update loop.
func do(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Action: action, Err: fn(context.Background())}
	}
}

// describeError returns the text to show for a failed call, or "" when
// the controller already reported it as a notice.
func describeError(err error) string {
	if err == nil {
		return ""
	}
	var (
		loadErr     *audio.AudioLoadError
		playErr     *audio.AudioPlaybackError
		micErr      *audio.MicrophoneAccessError
		scoreErr    *scoring.ScoringServiceError
		tooShortErr *sess.RecordingTooShortError
	)
	switch {
	case errors.As(err, &loadErr), errors.As(err, &playErr), errors.As(err, &micErr),
		errors.As(err, &scoreErr), errors.As(err, &tooShortErr):
		return ""
	case errors.Is(err, sess.ErrAdvanceBlocked):
		return "Submit this segment and wait for its score before moving on."
	case errors.Is(err, sess.ErrSessionIncomplete):
		return "Every segment needs a score before you can finish."
	case errors.Is(err, sess.ErrInvalidTransition):
		return "That is not available right now."
	case errors.Is(err, sess.ErrNoSession):
		return "The session has ended."
	}
	return err.Error()
}

func (s *PracticeScreen) KeyHints() []layout.KeyHint {
	if s.ctrl == nil {
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	}
	cur, _ := s.snap.CurrentView()
	hints := make([]layout.KeyHint, 0, 6)
	switch cur.Phase {
	case sess.PhaseIdle:
		hints = append(hints, layout.KeyHint{Key: "Space", Description: "Play"})
		if !cur.HasAudio {
			hints = append(hints, layout.KeyHint{Key: "R", Description: "Record"})
		}
	case sess.PhasePlayingReference:
		hints = append(hints, layout.KeyHint{Key: "Space", Description: "Pause"})
	case sess.PhaseRecording:
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Stop"})
	case sess.PhaseRecorded:
		hints = append(hints,
			layout.KeyHint{Key: "Enter", Description: "Submit"},
			layout.KeyHint{Key: "V", Description: "Listen"},
			layout.KeyHint{Key: "X", Description: "Repeat"})
	case sess.PhaseSubmitting, sess.PhaseScored:
		hints = append(hints, layout.KeyHint{Key: "X", Description: "Repeat"})
	}
	hints = append(hints,
		layout.KeyHint{Key: "←→", Description: "Segment"},
		layout.KeyHint{Key: "F", Description: "Finish"},
		layout.KeyHint{Key: "Esc", Description: "Quit"})
	return hints
}
