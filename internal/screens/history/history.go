package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/router"
	"github.com/abhisek/cclprep/internal/screen"
	"github.com/abhisek/cclprep/internal/store"
	"github.com/abhisek/cclprep/internal/ui/layout"
	"github.com/abhisek/cclprep/internal/ui/theme"
)

// maxSessions is how many sessions the screen lists.
const maxSessions = 50

type historyLoadedMsg struct {
	Sessions []store.SessionRecord
	Err      error
}

type attemptsLoadedMsg struct {
	SessionID string
	Attempts  []store.AttemptRecord
	Err       error
}

// outcome narrows the list to one kind of session.
type outcome int

const (
	outcomeAll outcome = iota
	outcomeFinished
	outcomeAbandoned
)

func (o outcome) String() string {
	return [...]string{"all", "finished", "abandoned"}[o]
}

func (o outcome) keep(r store.SessionRecord) bool {
	switch o {
	case outcomeFinished:
		return r.Action == store.SessionFinished
	case outcomeAbandoned:
		return r.Action == store.SessionAbandoned
	}
	return true
}

// HistoryScreen lists past sessions, newest first. Enter expands a
// session into its scoring attempts.
type HistoryScreen struct {
	repo     store.EventRepo
	sessions []store.SessionRecord
	shown    []store.SessionRecord
	filter   outcome
	attempts map[string][]store.AttemptRecord
	open     map[string]bool
	cursor   int
	loaded   bool
	errMsg   string
}

var (
	_ screen.Screen          = (*HistoryScreen)(nil)
	_ screen.KeyHintProvider = (*HistoryScreen)(nil)
	_ screen.StatusProvider  = (*HistoryScreen)(nil)
)

func New(repo store.EventRepo) *HistoryScreen {
	return &HistoryScreen{
		repo:     repo,
		attempts: make(map[string][]store.AttemptRecord),
		open:     make(map[string]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	repo := s.repo
	return func() tea.Msg {
		recs, err := repo.QuerySessions(context.Background(), "", store.QueryOpts{Limit: 4 * maxSessions})
		if err != nil {
			return historyLoadedMsg{Err: err}
		}
		return historyLoadedMsg{Sessions: latestPerSession(recs, maxSessions)}
	}
}

// latestPerSession keeps the newest event of each session, up to limit
// sessions. recs must be newest first.
func latestPerSession(recs []store.SessionRecord, limit int) []store.SessionRecord {
	seen := make(map[string]bool)
	var out []store.SessionRecord
	for _, r := range recs {
		if seen[r.SessionID] {
			continue
		}
		seen[r.SessionID] = true
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *HistoryScreen) Title() string {
	return "History"
}

// Status names the active outcome filter.
func (s *HistoryScreen) Status() string {
	if s.filter == outcomeAll {
		return ""
	}
	return "showing " + s.filter.String()
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Attempts"},
		{Key: "f", Description: "Filter"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) applyFilter() {
	s.shown = s.shown[:0]
	for _, r := range s.sessions {
		if s.filter.keep(r) {
			s.shown = append(s.shown, r)
		}
	}
	s.cursor = min(s.cursor, max(len(s.shown)-1, 0))
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.sessions = msg.Sessions
		s.applyFilter()
		return s, nil

	case attemptsLoadedMsg:
		if msg.Err == nil {
			s.attempts[msg.SessionID] = msg.Attempts
		}
		return s, nil

	case tea.KeyMsg:
		return s, s.handleKey(msg.String())
	}
	return s, nil
}

func (s *HistoryScreen) handleKey(key string) tea.Cmd {
	switch key {
	case "q":
		return func() tea.Msg { return router.PopScreenMsg{} }
	case "up", "k":
		s.cursor = max(s.cursor-1, 0)
	case "down", "j":
		s.cursor = min(s.cursor+1, max(len(s.shown)-1, 0))
	case "f":
		s.filter = (s.filter + 1) % 3
		s.applyFilter()
	case "enter":
		if s.cursor >= len(s.shown) {
			return nil
		}
		id := s.shown[s.cursor].SessionID
		s.open[id] = !s.open[id]
		if s.open[id] {
			return s.loadAttempts(id)
		}
	}
	return nil
}

func (s *HistoryScreen) loadAttempts(sessionID string) tea.Cmd {
	if _, ok := s.attempts[sessionID]; ok {
		return nil
	}
	repo := s.repo
	return func() tea.Msg {
		atts, err := repo.QueryAttempts(context.Background(), sessionID)
		return attemptsLoadedMsg{SessionID: sessionID, Attempts: atts, Err: err}
	}
}

func (s *HistoryScreen) View(width, height int) string {
	notice := func(style lipgloss.Style, text string) string {
		return style.Width(width).Align(lipgloss.Center).Render("\n\n" + text)
	}
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	switch {
	case s.errMsg != "":
		return notice(lipgloss.NewStyle().Foreground(theme.Error), "Could not load history: "+s.errMsg)
	case !s.loaded:
		return notice(dim, "Loading history...")
	case len(s.sessions) == 0:
		return notice(dim.Italic(true), "No sessions yet. Pick a dialogue to start practising.")
	case len(s.shown) == 0:
		return notice(dim.Italic(true), fmt.Sprintf("No %s sessions. Press f to change the filter.", s.filter))
	}

	var b strings.Builder
	b.WriteString("\n")
	for i, rec := range s.shown {
		b.WriteString(renderRow(rec, i == s.cursor))
		b.WriteString("\n")
		if s.open[rec.SessionID] {
			b.WriteString(s.renderAttempts(rec.SessionID))
		}
	}
	return b.String()
}

func renderRow(rec store.SessionRecord, selected bool) string {
	marker, style := "  ", theme.Unselected
	if selected {
		marker, style = "▸ ", theme.Selected
	}
	text := fmt.Sprintf("%s%s  %-32s  %-7s  %d/%d scored",
		marker, rec.Timestamp.Local().Format("Jan 02 15:04"), truncate(rec.DialogueTitle, 32),
		rec.Mode, rec.SegmentsScored, rec.SegmentsTotal)
	return style.Render(text) + "  " + renderOutcome(rec)
}

func renderOutcome(rec store.SessionRecord) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	switch rec.Action {
	case store.SessionFinished:
		if rec.TotalScore == nil {
			return dim.Render("no score")
		}
		out := theme.ScoreStyle(*rec.TotalScore).Render(fmt.Sprintf("%.1f", *rec.TotalScore))
		if rec.Degraded {
			out += dim.Render(" (partial)")
		}
		return out
	case store.SessionAbandoned:
		return dim.Render("abandoned")
	}
	return dim.Render("in progress")
}

func (s *HistoryScreen) renderAttempts(sessionID string) string {
	const indent = "      "
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	atts, ok := s.attempts[sessionID]
	switch {
	case !ok:
		return dim.Render(indent+"Loading attempts...") + "\n"
	case len(atts) == 0:
		return dim.Italic(true).Render(indent+"No attempts recorded") + "\n"
	}

	var b strings.Builder
	for _, a := range atts {
		label := fmt.Sprintf("%sSegment %d", indent, a.SegmentIndex+1)
		if a.RepeatCount > 0 {
			label += fmt.Sprintf(" (repeat %d)", a.RepeatCount)
		}
		result := theme.Poor.Render("failed: " + truncate(a.ErrorMessage, 48))
		if a.Success {
			result = theme.ScoreStyle(a.TotalScore).Render(fmt.Sprintf("%.1f", a.TotalScore))
		}
		b.WriteString(dim.Render(fmt.Sprintf("%-28s", label)) + result + "\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
