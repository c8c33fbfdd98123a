package results

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/cclprep/internal/router"
	"github.com/abhisek/cclprep/internal/scoring"
	sess "github.com/abhisek/cclprep/internal/session"
)

func testSnapshot(result *scoring.SessionResult, degraded bool) sess.Snapshot {
	return sess.Snapshot{
		Active:        true,
		DialogueTitle: "Medical appointment",
		Total:         2,
		Scored:        1,
		Completed:     true,
		Degraded:      degraded,
		Result:        result,
		Segments: []sess.SegmentView{
			{
				Index: 0, ID: "seg-a", Text: "Good morning, how can I help you?",
				Phase: sess.PhaseScored,
				Score: &scoring.SegmentScore{
					Scores:   scoring.Scores{Accuracy: 8, Total: 78.3},
					Feedback: "Accurate, slightly hesitant.",
				},
			},
			{Index: 1, ID: "seg-b", Text: "I have had a headache for three days.", Phase: sess.PhaseRecorded, Failed: true, RepeatCount: 2},
		},
	}
}

func TestResultsScreen_Title(t *testing.T) {
	r := New(testSnapshot(nil, false))
	if r.Title() != "Results" {
		t.Errorf("Title = %q, want %q", r.Title(), "Results")
	}
}

func TestResultsScreen_ShowsOverall(t *testing.T) {
	r := New(testSnapshot(&scoring.SessionResult{TotalScore: 78.3, Feedback: "Solid first attempt."}, true))
	view := r.View(100, 30)

	for _, want := range []string{"Overall 78.3", "Solid first attempt.", "1 of 2 segments scored", "Finished early", "failed", "×2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestResultsScreen_NoResult(t *testing.T) {
	r := New(testSnapshot(nil, false))
	if !strings.Contains(r.View(100, 30), "No overall score") {
		t.Error("expected no-score message")
	}
}

func TestResultsScreen_SelectionBounds(t *testing.T) {
	r := New(testSnapshot(nil, false))

	r.Update(tea.KeyPressMsg{Code: tea.KeyUp})
	if r.selected != 0 {
		t.Errorf("selected = %d after up at top", r.selected)
	}
	r.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	r.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if r.selected != 1 {
		t.Errorf("selected = %d, want 1", r.selected)
	}
}

func TestResultsScreen_EnterPops(t *testing.T) {
	r := New(testSnapshot(nil, false))
	_, cmd := r.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg")
	}
}

func TestResultsScreen_HomePopsToRoot(t *testing.T) {
	r := New(testSnapshot(nil, false))
	_, cmd := r.Update(tea.KeyPressMsg{Code: 'h', Text: "h"})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(router.PopToRootMsg); !ok {
		t.Error("expected PopToRootMsg")
	}
}
