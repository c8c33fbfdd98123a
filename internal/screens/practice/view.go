package practice

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/scoring"
	sess "github.com/abhisek/cclprep/internal/session"
	"github.com/abhisek/cclprep/internal/ui/components"
	"github.com/abhisek/cclprep/internal/ui/theme"
)

func (s *PracticeScreen) View(width, height int) string {
	if s.errMsg != "" {
		return renderError(width, s.errMsg)
	}
	if s.ctrl == nil || !s.snap.Active {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n" + s.spinner.View() + " Loading dialogue...")
	}

	cur, ok := s.snap.CurrentView()
	if !ok {
		return ""
	}
	inner := width - 4
	if inner < 20 {
		inner = 20
	}

	var b strings.Builder
	b.WriteString("\n")

	bar := components.NewProgressBar("Segment", s.snap.Progress, inner)
	bar.Caption = fmt.Sprintf("%d/%d", s.snap.Current+1, s.snap.Total)
	b.WriteString("  " + bar.View())
	b.WriteString("\n\n")

	b.WriteString(s.renderSegment(cur, inner))
	b.WriteString("\n\n")
	b.WriteString("  " + s.renderPhase(cur))
	b.WriteString("\n")

	if cur.Score != nil {
		b.WriteString("\n")
		b.WriteString(renderScore(cur.Score, inner))
	}

	if s.notice != "" {
		style := theme.Notice
		if s.noticeIsError {
			style = lipgloss.NewStyle().Foreground(theme.Error)
		}
		b.WriteString("\n  " + style.Render(s.notice))
	}

	return b.String()
}

func (s *PracticeScreen) renderSegment(cur sess.SegmentView, width int) string {
	var body strings.Builder
	if cur.Speaker != "" {
		body.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).Render(cur.Speaker))
		body.WriteString("\n")
	}
	body.WriteString(theme.Body.Render(cur.Text))
	if s.showTranslation && cur.Translation != "" {
		body.WriteString("\n\n")
		body.WriteString(theme.Hint.Render(cur.Translation))
	}
	return theme.Card.Width(width).Render(body.String())
}

func (s *PracticeScreen) renderPhase(cur sess.SegmentView) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	repeat := ""
	if cur.RepeatCount > 0 {
		repeat = dim.Render(fmt.Sprintf("  (repeat %d)", cur.RepeatCount))
	}

	switch cur.Phase {
	case sess.PhaseIdle:
		if !cur.HasAudio {
			return dim.Render("No reference audio. Press R to record your rendition.") + repeat
		}
		return dim.Render("Press Space to hear the segment. Recording starts when it ends.") + repeat
	case sess.PhasePlayingReference:
		return lipgloss.NewStyle().Foreground(theme.Secondary).Render("♪ Playing reference...") + repeat
	case sess.PhaseRecording:
		return theme.Recording.Render("● REC") + dim.Render("  Interpret now. Press Enter when done.") + repeat
	case sess.PhaseRecorded:
		if cur.Failed {
			return lipgloss.NewStyle().Foreground(theme.Error).Render("Scoring failed.") +
				dim.Render(" Press Enter to submit again.") + repeat
		}
		return dim.Render("Recorded. Enter to submit, V to listen, X to repeat.") + repeat
	case sess.PhaseSubmitting:
		return s.spinner.View() + dim.Render(" Scoring...") + repeat
	case sess.PhaseScored:
		return theme.Good.Render("✓ Scored") + repeat
	}
	return ""
}

// dimensionLabels orders the rubric for display.
var dimensionLabels = []struct {
	key   string
	label string
}{
	{"accuracy", "Accuracy"},
	{"language_quality", "Language"},
	{"fluency_pronunciation", "Fluency"},
	{"delivery_coherence", "Delivery"},
	{"cultural_context", "Cultural"},
	{"response_management", "Response"},
}

func renderScore(score *scoring.SegmentScore, width int) string {
	var b strings.Builder
	b.WriteString("  " + theme.ScoreStyle(score.Total).Render(fmt.Sprintf("Total %.1f", score.Total)))
	b.WriteString("\n")
	dims := score.Dimensions()
	for _, d := range dimensionLabels {
		b.WriteString("  " + components.ScoreBar(d.label, dims[d.key], scoring.MaxDimensionScore, 10))
		b.WriteString("\n")
	}
	if score.Feedback != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).PaddingLeft(2).Foreground(theme.Text).Render(score.Feedback))
		b.WriteString("\n")
	}
	return b.String()
}

func renderError(width int, msg string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\nCould not start practice: %s\n\nPress Esc to go back.", msg))
}

func scoredStatus(snap sess.Snapshot) string {
	if snap.Submitting > 0 {
		return fmt.Sprintf("%d/%d scored · %d pending", snap.Scored, snap.Total, snap.Submitting)
	}
	return fmt.Sprintf("%d/%d scored", snap.Scored, snap.Total)
}
