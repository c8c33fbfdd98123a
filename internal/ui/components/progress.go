package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/ui/theme"
)

// ProgressBar displays a horizontal progress bar.
type ProgressBar struct {
	Label   string
	Percent float64

	// Caption replaces the percentage on the right, e.g. "2/5". Empty
	// shows the percentage.
	Caption string
	Width   int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, percent float64, width int) ProgressBar {
	return ProgressBar{
		Label:   label,
		Percent: percent,
		Width:   width,
	}
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	caption := p.Caption
	if caption == "" {
		caption = fmt.Sprintf("%d%%", int(p.Percent*100))
	}
	caption = "  " + caption

	barWidth := p.Width - lipgloss.Width(result) - lipgloss.Width(caption)
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * p.Percent)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	result += theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled))

	return result + lipgloss.NewStyle().Foreground(theme.TextDim).Render(caption)
}

// ScoreBar renders one rubric dimension as "label  ■■■■■□□□□□  7.0".
func ScoreBar(label string, score, max float64, labelWidth int) string {
	const cells = 10
	n := 0
	if max > 0 {
		n = int(score / max * cells)
	}
	if n < 0 {
		n = 0
	}
	if n > cells {
		n = cells
	}

	name := lipgloss.NewStyle().Width(labelWidth).Foreground(theme.TextDim).Render(label)
	bar := lipgloss.NewStyle().Foreground(theme.Secondary).Render(strings.Repeat("■", n)) +
		lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("□", cells-n))
	value := lipgloss.NewStyle().Foreground(theme.Text).Render(fmt.Sprintf("%4.1f", score))
	return name + "  " + bar + "  " + value
}
