// Package dialogue defines the practice material: dialogues and the ordered
// segments a learner interprets one at a time.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Difficulty is the tier a dialogue is pitched at.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// ParseDifficulty maps a case-insensitive name to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return Beginner, nil
	case "intermediate":
		return Intermediate, nil
	case "advanced":
		return Advanced, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Domain is the subject area a dialogue belongs to (e.g. Health, Legal).
type Domain struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Color string `json:"color"`
}

// Dialogue is a practice dialogue. It is read-only from the client's side.
type Dialogue struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Duration     string     `json:"duration"`
	Difficulty   Difficulty `json:"difficulty"`
	Participants string     `json:"participants"`
	Domain       Domain     `json:"domain"`
	Language     string     `json:"language"`
}

// Segment is one turn of a dialogue, interpreted on its own.
type Segment struct {
	ID          string   `json:"id"`
	DialogueID  string   `json:"dialogue_id"`
	Order       int      `json:"segment_order"`
	Text        string   `json:"text_content"`
	Translation string   `json:"translation,omitempty"`
	AudioPath   string   `json:"audio_url,omitempty"`
	Speaker     string   `json:"speaker,omitempty"`
	StartTime   *float64 `json:"start_time,omitempty"`
	EndTime     *float64 `json:"end_time,omitempty"`
}

// HasAudio reports whether the segment points at a reference recording.
func (s Segment) HasAudio() bool {
	return strings.TrimSpace(s.AudioPath) != ""
}

// Filter narrows a dialogue listing. Zero values match everything.
type Filter struct {
	Difficulty Difficulty
	Language   string
	DomainID   string
}

// Matches reports whether d passes the filter.
func (f Filter) Matches(d Dialogue) bool {
	if f.Difficulty != "" && d.Difficulty != f.Difficulty {
		return false
	}
	if f.Language != "" && !strings.EqualFold(d.Language, f.Language) {
		return false
	}
	if f.DomainID != "" && d.Domain.ID != f.DomainID {
		return false
	}
	return true
}

// Source is the read side of the dialogue catalogue.
type Source interface {
	// ListDialogues returns dialogues matching the filter.
	ListDialogues(ctx context.Context, f Filter) ([]Dialogue, error)

	// GetDialogue returns a single dialogue, or ErrNotFound.
	GetDialogue(ctx context.Context, id string) (*Dialogue, error)

	// GetDialogueSegments returns the dialogue's segments ordered by
	// segment_order.
	GetDialogueSegments(ctx context.Context, dialogueID string) ([]Segment, error)
}

// ErrNotFound is returned when a dialogue does not exist.
var ErrNotFound = errors.New("dialogue not found")

// SortSegments orders segments by Order, keeping input order for ties.
func SortSegments(segs []Segment) {
	sort.SliceStable(segs, func(i, j int) bool {
		return segs[i].Order < segs[j].Order
	})
}

// ValidateSegments checks that a segment list can drive a practice session.
func ValidateSegments(dialogueID string, segs []Segment) error {
	if len(segs) == 0 {
		return fmt.Errorf("dialogue %s has no segments", dialogueID)
	}
	seen := make(map[string]bool, len(segs))
	for i, s := range segs {
		if s.ID == "" {
			return fmt.Errorf("segment %d: missing id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("segment %d: duplicate id %s", i, s.ID)
		}
		seen[s.ID] = true
		if s.DialogueID != "" && s.DialogueID != dialogueID {
			return fmt.Errorf("segment %s belongs to dialogue %s, not %s", s.ID, s.DialogueID, dialogueID)
		}
	}
	return nil
}
