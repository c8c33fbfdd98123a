// Package theme holds the colours and shared styles of the TUI.
package theme

import "charm.land/lipgloss/v2"

// Palette.
var (
	Primary   = lipgloss.Color("#6366F1") // indigo
	Secondary = lipgloss.Color("#14B8A6") // teal
	Accent    = lipgloss.Color("#F59E0B") // amber
	Success   = lipgloss.Color("#22C55E")
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

var (
	Title    = lipgloss.NewStyle().Bold(true).Foreground(Primary).Align(lipgloss.Center)
	Subtitle = lipgloss.NewStyle().Foreground(TextDim).Align(lipgloss.Center)
	Body     = lipgloss.NewStyle().Foreground(Text)
	Hint     = lipgloss.NewStyle().Foreground(TextDim).Italic(true)

	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Selected   = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	Unselected = lipgloss.NewStyle().Foreground(Text)

	// Notice carries transient messages such as a blocked navigation.
	Notice = lipgloss.NewStyle().Foreground(Accent).Italic(true)

	// Recording marks the live microphone indicator.
	Recording = lipgloss.NewStyle().Foreground(Error).Bold(true)

	ProgressFilled = lipgloss.NewStyle().Background(Secondary)
	ProgressEmpty  = lipgloss.NewStyle().Background(Border)
)

// Score bands, out of 100.
const (
	PassMark       = 65
	BorderlineMark = PassMark - 10
)

var (
	Good       = lipgloss.NewStyle().Foreground(Success).Bold(true)
	Borderline = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	Poor       = lipgloss.NewStyle().Foreground(Error).Bold(true)
)

// ScoreStyle colours a total out of 100 by band.
func ScoreStyle(total float64) lipgloss.Style {
	switch {
	case total >= PassMark:
		return Good
	case total >= BorderlineMark:
		return Borderline
	}
	return Poor
}
