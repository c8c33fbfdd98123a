package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/router"
	"github.com/abhisek/cclprep/internal/screen"
	"github.com/abhisek/cclprep/internal/screens/dialogues"
	"github.com/abhisek/cclprep/internal/screens/history"
	"github.com/abhisek/cclprep/internal/screens/practice"
	"github.com/abhisek/cclprep/internal/store"
	"github.com/abhisek/cclprep/internal/ui/components"
	"github.com/abhisek/cclprep/internal/ui/theme"
)

// statsLoadedMsg carries the practice totals shown under the banner.
type statsLoadedMsg struct {
	Finished int
	Best     *float64
	Err      error
}

// HomeScreen is the main menu.
type HomeScreen struct {
	menu     components.Menu
	events   store.EventRepo
	finished int
	best     *float64
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.StatusProvider = (*HomeScreen)(nil)

// New creates the home screen. events may be nil, in which case history
// is disabled.
func New(source dialogue.Source, factory practice.Factory, events store.EventRepo) *HomeScreen {
	items := []components.MenuItem{
		{
			Label:  "PRACTICE A DIALOGUE",
			Detail: "interpret segment by segment",
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: dialogues.New(source, factory)}
				}
			},
		},
		{
			Label:    "HISTORY",
			Detail:   "past sessions and scores",
			Disabled: events == nil,
			Action: func() tea.Cmd {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: history.New(events)}
				}
			},
		},
		{
			Label: "QUIT",
			Action: func() tea.Cmd {
				return tea.Quit
			},
		},
	}
	return &HomeScreen{
		menu:   components.NewMenu(items),
		events: events,
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	if h.events == nil {
		return nil
	}
	events := h.events
	return func() tea.Msg {
		recs, err := events.QuerySessions(context.Background(), store.SessionFinished, store.QueryOpts{})
		if err != nil {
			return statsLoadedMsg{Err: err}
		}
		msg := statsLoadedMsg{Finished: len(recs)}
		for _, r := range recs {
			if r.TotalScore == nil {
				continue
			}
			if msg.Best == nil || *r.TotalScore > *msg.Best {
				v := *r.TotalScore
				msg.Best = &v
			}
		}
		return msg
	}
}

func (h *HomeScreen) Title() string {
	return "Home"
}

// Status shows the number of finished sessions.
func (h *HomeScreen) Status() string {
	if h.finished == 0 {
		return ""
	}
	return fmt.Sprintf("%d sessions", h.finished)
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(statsLoadedMsg); ok {
		// Stats are decoration; a failed query leaves them blank.
		if msg.Err == nil {
			h.finished = msg.Finished
			h.best = msg.Best
		}
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	var sections []string
	sections = append(sections, RenderBanner(width))
	sections = append(sections, theme.Subtitle.Render("NAATI CCL interpreting practice"))

	if stats := h.renderStats(); stats != "" {
		sections = append(sections, stats)
	}

	menu := theme.Card.Render(strings.TrimRight(h.menu.View(), "\n"))
	sections = append(sections, menu)

	content := lipgloss.JoinVertical(lipgloss.Center, sections...)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (h *HomeScreen) renderStats() string {
	if h.finished == 0 {
		return ""
	}
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	line := dim.Render(fmt.Sprintf("%d finished", h.finished))
	if h.best != nil {
		line += dim.Render("  ·  best ") + theme.ScoreStyle(*h.best).Render(fmt.Sprintf("%.1f", *h.best))
	}
	return line
}
