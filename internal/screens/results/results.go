// Package results shows the outcome of a finished practice session.
package results

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/router"
	"github.com/abhisek/cclprep/internal/screen"
	"github.com/abhisek/cclprep/internal/scoring"
	sess "github.com/abhisek/cclprep/internal/session"
	"github.com/abhisek/cclprep/internal/ui/components"
	"github.com/abhisek/cclprep/internal/ui/layout"
	"github.com/abhisek/cclprep/internal/ui/theme"
)

// ResultsScreen lists the aggregate verdict and each segment's score.
type ResultsScreen struct {
	snap     sess.Snapshot
	selected int
}

var _ screen.Screen = (*ResultsScreen)(nil)
var _ screen.KeyHintProvider = (*ResultsScreen)(nil)

// New creates a ResultsScreen from the final session snapshot.
func New(snap sess.Snapshot) *ResultsScreen {
	return &ResultsScreen{snap: snap}
}

func (r *ResultsScreen) Init() tea.Cmd {
	return nil
}

func (r *ResultsScreen) Title() string {
	return "Results"
}

func (r *ResultsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Segment"},
		{Key: "Enter", Description: "Dialogues"},
		{Key: "h", Description: "Home"},
	}
}

func (r *ResultsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return r, nil
	}
	switch kmsg.String() {
	case "up", "k":
		if r.selected > 0 {
			r.selected--
		}
	case "down", "j":
		if r.selected < len(r.snap.Segments)-1 {
			r.selected++
		}
	case "enter", "q":
		return r, func() tea.Msg { return router.PopScreenMsg{} }
	case "h":
		return r, func() tea.Msg { return router.PopToRootMsg{} }
	}
	return r, nil
}

func (r *ResultsScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Width(width).Render(r.snap.DialogueTitle))
	b.WriteString("\n\n")
	b.WriteString(r.renderOverall(width))
	b.WriteString("\n\n")

	for _, seg := range r.snap.Segments {
		b.WriteString(r.renderSegmentLine(seg))
		b.WriteString("\n")
	}

	if r.selected < len(r.snap.Segments) {
		if score := r.snap.Segments[r.selected].Score; score != nil {
			b.WriteString("\n")
			b.WriteString(renderBreakdown(score))
		}
	}
	return b.String()
}

func (r *ResultsScreen) renderOverall(width int) string {
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	res := r.snap.Result

	var lines []string
	if res == nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).
			Render("No overall score. No segment was scored."))
	} else {
		lines = append(lines, theme.ScoreStyle(res.TotalScore).
			Render(fmt.Sprintf("Overall %.1f / 100", res.TotalScore)))
		if res.Feedback != "" {
			lines = append(lines, theme.Body.Render(res.Feedback))
		}
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextDim).
		Render(fmt.Sprintf("%d of %d segments scored", r.snap.Scored, r.snap.Total)))
	if r.snap.Degraded {
		lines = append(lines, theme.Notice.Render("Finished early: unscored segments are not counted."))
	}
	return center.Render(strings.Join(lines, "\n"))
}

func (r *ResultsScreen) renderSegmentLine(seg sess.SegmentView) string {
	prefix := "  "
	style := theme.Unselected
	if seg.Index == r.selected {
		prefix = "> "
		style = theme.Selected
	}

	text := seg.Text
	if len([]rune(text)) > 48 {
		text = string([]rune(text)[:47]) + "…"
	}
	line := style.Render(fmt.Sprintf("%s%2d. %-48s", prefix, seg.Index+1, text))

	switch {
	case seg.Score != nil:
		line += "  " + theme.ScoreStyle(seg.Score.Total).Render(fmt.Sprintf("%5.1f", seg.Score.Total))
	case seg.Failed:
		line += "  " + theme.Poor.Render("failed")
	default:
		line += "  " + lipgloss.NewStyle().Foreground(theme.TextDim).Render("  —  ")
	}
	if seg.RepeatCount > 0 {
		line += lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("  ×%d", seg.RepeatCount))
	}
	return line
}

func renderBreakdown(score *scoring.SegmentScore) string {
	var b strings.Builder
	dims := score.Dimensions()
	for _, d := range []struct{ key, label string }{
		{"accuracy", "Accuracy"},
		{"language_quality", "Language"},
		{"fluency_pronunciation", "Fluency"},
		{"delivery_coherence", "Delivery"},
		{"cultural_context", "Cultural"},
		{"response_management", "Response"},
	} {
		b.WriteString("    " + components.ScoreBar(d.label, dims[d.key], scoring.MaxDimensionScore, 10))
		b.WriteString("\n")
	}
	if score.Feedback != "" {
		b.WriteString("\n    " + theme.Hint.Render(score.Feedback) + "\n")
	}
	return b.String()
}
