// Package scoring sends a learner's rendition of a segment to a scorer and
// collects per-segment and whole-session results.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/cclprep/internal/audio"
)

// Scores are the per-dimension marks for one segment.
type Scores struct {
	Accuracy             float64 `json:"accuracy"`
	LanguageQuality      float64 `json:"language_quality"`
	FluencyPronunciation float64 `json:"fluency_pronunciation"`
	DeliveryCoherence    float64 `json:"delivery_coherence"`
	CulturalContext      float64 `json:"cultural_context"`
	ResponseManagement   float64 `json:"response_management"`
	Total                float64 `json:"total"`
}

// Dimensions returns the sub-scores keyed by their wire names.
func (s Scores) Dimensions() map[string]float64 {
	return map[string]float64{
		"accuracy":              s.Accuracy,
		"language_quality":      s.LanguageQuality,
		"fluency_pronunciation": s.FluencyPronunciation,
		"delivery_coherence":    s.DeliveryCoherence,
		"cultural_context":      s.CulturalContext,
		"response_management":   s.ResponseManagement,
	}
}

// SegmentScore is the scorer's verdict on one submission. It never changes
// once received.
type SegmentScore struct {
	Scores
	Feedback string

	// AnswerID identifies the submission for session aggregation.
	AnswerID string
}

// SegmentInput is everything a scorer needs to mark one submission.
type SegmentInput struct {
	UserID     string
	SessionID  string
	DialogueID string
	SegmentID  string

	// Language is the human-readable dialogue language, e.g. "Hindi".
	Language string

	ReferenceText string

	// ReferenceAudioPath is the storage pointer of the reference clip.
	ReferenceAudioPath string

	Recording *audio.Blob

	// RepeatCount is how many times the learner discarded and retried
	// this segment before this submission.
	RepeatCount int
}

// SessionInput identifies the submissions to aggregate.
type SessionInput struct {
	UserID     string
	SessionID  string
	DialogueID string
	AnswerIDs  []string
}

// SessionResult is the aggregate verdict on a session.
type SessionResult struct {
	TotalScore float64
	Feedback   string
}

// Gateway scores segments and sessions. Implementations do not retry; a
// failed call is reported as *ScoringServiceError and the caller decides.
type Gateway interface {
	ScoreSegment(ctx context.Context, in SegmentInput) (*SegmentScore, error)
	ComputeSessionResult(ctx context.Context, in SessionInput) (*SessionResult, error)
}

// ScoringServiceError is a transport or server failure while scoring.
type ScoringServiceError struct {
	Op  string
	Err error
}

func (e *ScoringServiceError) Error() string {
	return fmt.Sprintf("scoring service: %s: %v", e.Op, e.Err)
}

func (e *ScoringServiceError) Unwrap() error { return e.Err }

// languageCodes maps language names to the codes the scorer expects.
var languageCodes = map[string]string{
	"english": "en",
	"hindi":   "hi",
	"punjabi": "pa",
	"spanish": "es",
	"nepali":  "ne",
}

// LanguageCode maps a language name to its code. ok is false for languages
// outside the table; callers send no language in that case.
func LanguageCode(name string) (code string, ok bool) {
	code, ok = languageCodes[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
