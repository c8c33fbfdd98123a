package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/cclprep/internal/audio"
	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/router"
	"github.com/abhisek/cclprep/internal/scoring"
	"github.com/abhisek/cclprep/internal/screens/results"
	sess "github.com/abhisek/cclprep/internal/session"
	"github.com/abhisek/cclprep/internal/store"
)

type stubSource struct {
	segs []dialogue.Segment
}

func (s stubSource) ListDialogues(context.Context, dialogue.Filter) ([]dialogue.Dialogue, error) {
	return nil, nil
}

func (s stubSource) GetDialogue(context.Context, string) (*dialogue.Dialogue, error) {
	return nil, dialogue.ErrNotFound
}

func (s stubSource) GetDialogueSegments(context.Context, string) ([]dialogue.Segment, error) {
	return append([]dialogue.Segment(nil), s.segs...), nil
}

// silentPlayer never has reference audio to play.
type silentPlayer struct{}

func (silentPlayer) Load(_ context.Context, seg dialogue.Segment) error {
	return &audio.AudioLoadError{SegmentID: seg.ID, Err: audio.ErrNoAudio}
}
func (silentPlayer) LoadURL(context.Context, string) error { return nil }
func (silentPlayer) Play() error                           { return nil }
func (silentPlayer) Pause()                                {}
func (silentPlayer) Playing() bool                         { return false }
func (silentPlayer) SegmentID() string                     { return "" }
func (silentPlayer) OnEnded(func())                        {}
func (silentPlayer) OnError(func(error))                   {}

type stubRecorder struct {
	mu        sync.Mutex
	recording bool
}

func (r *stubRecorder) Start(context.Context) error {
	r.mu.Lock()
	r.recording = true
	r.mu.Unlock()
	return nil
}

func (r *stubRecorder) Stop() (*audio.Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil, nil
	}
	r.recording = false
	return &audio.Blob{Data: []byte("take"), MIMEType: "audio/ogg", Duration: 2 * time.Second}, nil
}

func (r *stubRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func testDialogue() dialogue.Dialogue {
	return dialogue.Dialogue{ID: "dlg-1", Title: "Medical appointment", Language: "Hindi"}
}

func testFactory() Factory {
	src := stubSource{segs: []dialogue.Segment{
		{ID: "seg-a", DialogueID: "dlg-1", Order: 1, Text: "Good morning, how can I help you?", Translation: "सुप्रभात"},
	}}
	return func() (*sess.Controller, error) {
		return sess.NewController(sess.Deps{
			Source:   src,
			Player:   silentPlayer{},
			Recorder: &stubRecorder{},
			Gateway:  scoring.NewMockGateway(),
		}, sess.StrictOptions())
	}
}

func started(t *testing.T, factory Factory) *PracticeScreen {
	t.Helper()
	s := New(testDialogue(), factory)
	s.Update(s.start()())
	if s.ctrl != nil {
		t.Cleanup(func() { s.ctrl.Close() })
	}
	return s
}

// press sends a key and runs the resulting controller call.
func press(t *testing.T, s *PracticeScreen, key tea.KeyPressMsg) {
	t.Helper()
	_, cmd := s.Update(key)
	if cmd == nil {
		return
	}
	done, ok := cmd().(actionDoneMsg)
	if !ok {
		t.Fatalf("expected actionDoneMsg")
	}
	if done.Err != nil {
		t.Fatalf("%s: %v", done.Action, done.Err)
	}
	s.Update(done)
}

// drain feeds every pending controller event to the screen and returns the
// commands produced for EventCompleted.
func drain(s *PracticeScreen) []tea.Cmd {
	var out []tea.Cmd
	for {
		select {
		case ev, ok := <-s.ctrl.Events():
			if !ok {
				return out
			}
			if _, cmd := s.Update(controllerEventMsg{Event: ev}); ev.Kind == sess.EventCompleted {
				out = append(out, cmd)
			}
		default:
			return out
		}
	}
}

func key(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func TestPracticeScreen_FactoryError(t *testing.T) {
	s := started(t, func() (*sess.Controller, error) {
		return nil, errors.New("scorer not configured")
	})
	view := s.View(100, 30)
	if !strings.Contains(view, "Could not start practice: scorer not configured") {
		t.Errorf("view = %q", view)
	}
	if hints := s.KeyHints(); len(hints) != 1 || hints[0].Key != "Esc" {
		t.Errorf("hints = %+v", hints)
	}
}

func TestPracticeScreen_ShowsSegment(t *testing.T) {
	s := started(t, testFactory())

	view := s.View(100, 30)
	if !strings.Contains(view, "Good morning, how can I help you?") {
		t.Error("view missing segment text")
	}
	if !strings.Contains(view, "No reference audio") {
		t.Error("view missing no-audio prompt")
	}
	if strings.Contains(view, "सुप्रभात") {
		t.Error("translation should be hidden by default")
	}

	s.Update(key('t'))
	if !strings.Contains(s.View(100, 30), "सुप्रभात") {
		t.Error("t should show the translation")
	}
	if got := s.Status(); got != "0/1 scored" {
		t.Errorf("Status = %q", got)
	}
}

func TestPracticeScreen_RecordSubmitFinish(t *testing.T) {
	s := started(t, testFactory())

	press(t, s, key('r'))
	drain(s)
	if cur, _ := s.snap.CurrentView(); cur.Phase != sess.PhaseRecording {
		t.Fatalf("phase = %v, want recording", cur.Phase)
	}

	press(t, s, tea.KeyPressMsg{Code: tea.KeyEnter})
	drain(s)
	if cur, _ := s.snap.CurrentView(); cur.Phase != sess.PhaseRecorded {
		t.Fatalf("phase = %v, want recorded", cur.Phase)
	}

	press(t, s, tea.KeyPressMsg{Code: tea.KeyEnter})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.ctrl.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	drain(s)
	s.snap = s.ctrl.Snapshot()
	if !strings.Contains(s.View(100, 40), "Total 70.0") {
		t.Error("view missing the segment score")
	}

	press(t, s, key('f'))
	cmds := drain(s)
	if len(cmds) != 1 || cmds[0] == nil {
		t.Fatalf("expected one completion command, got %d", len(cmds))
	}
	replace, ok := cmds[0]().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatal("expected ReplaceScreenMsg")
	}
	if _, ok := replace.Screen.(*results.ResultsScreen); !ok {
		t.Errorf("replaced with %T", replace.Screen)
	}
}

func TestPracticeScreen_ClosedBeforeStartFinishes(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	repo := st.EventRepo()

	var ctrl *sess.Controller
	src := stubSource{segs: []dialogue.Segment{{ID: "seg-a", DialogueID: "dlg-1", Order: 1, Text: "One"}}}
	s := New(testDialogue(), func() (*sess.Controller, error) {
		c, err := sess.NewController(sess.Deps{
			Source: src, Player: silentPlayer{}, Recorder: &stubRecorder{},
			Gateway: scoring.NewMockGateway(), Events: repo,
		}, sess.StrictOptions())
		ctrl = c
		return c, err
	})

	cmd := s.start()
	s.Close()
	if msg := cmd(); msg != nil {
		t.Errorf("start after close returned %T, want nil", msg)
	}

	timeout := time.After(2 * time.Second)
	for open := true; open; {
		select {
		case _, open = <-ctrl.Events():
		case <-timeout:
			t.Fatal("controller left open after the screen closed")
		}
	}

	recs, err := repo.QuerySessions(context.Background(), "", store.QueryOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) == 0 || recs[0].Action != store.SessionAbandoned {
		t.Errorf("sessions = %+v, want the run logged as abandoned", recs)
	}
}

func TestPracticeScreen_StrictNextShowsNotice(t *testing.T) {
	src := stubSource{segs: []dialogue.Segment{
		{ID: "seg-a", DialogueID: "dlg-1", Order: 1, Text: "One"},
		{ID: "seg-b", DialogueID: "dlg-1", Order: 2, Text: "Two"},
	}}
	s := started(t, func() (*sess.Controller, error) {
		return sess.NewController(sess.Deps{
			Source: src, Player: silentPlayer{}, Recorder: &stubRecorder{}, Gateway: scoring.NewMockGateway(),
		}, sess.StrictOptions())
	})

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyRight})
	done := cmd().(actionDoneMsg)
	if !errors.Is(done.Err, sess.ErrAdvanceBlocked) {
		t.Fatalf("err = %v, want ErrAdvanceBlocked", done.Err)
	}
	s.Update(done)
	if !strings.Contains(s.View(100, 30), "Submit this segment") {
		t.Error("expected a notice about strict advance")
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"mic", &audio.MicrophoneAccessError{Err: errors.New("denied")}, ""},
		{"scoring", &scoring.ScoringServiceError{Op: "score segment", Err: errors.New("503")}, ""},
		{"too short", &sess.RecordingTooShortError{Duration: time.Millisecond, Min: time.Second}, ""},
		{"blocked", fmt.Errorf("next: %w", sess.ErrAdvanceBlocked), "Submit this segment and wait for its score before moving on."},
		{"incomplete", sess.ErrSessionIncomplete, "Every segment needs a score before you can finish."},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeError(tt.err); got != tt.want {
				t.Errorf("describeError = %q, want %q", got, tt.want)
			}
		})
	}
}
