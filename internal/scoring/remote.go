package scoring

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abhisek/cclprep/internal/backend"
)

// Backend is the part of the backend client the remote scorer uses.
type Backend interface {
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
	Invoke(ctx context.Context, name string, payload any, schema *backend.Schema, out any) error
}

// RemoteGateway scores through the backend's scoring functions.
type RemoteGateway struct {
	backend Backend
	cfg     Config

	mu        sync.Mutex
	reference map[string]string // storage path -> base64 audio
}

// NewRemoteGateway creates a gateway that invokes cfg's functions on b.
func NewRemoteGateway(b Backend, cfg Config) *RemoteGateway {
	return &RemoteGateway{backend: b, cfg: cfg, reference: make(map[string]string)}
}

type segmentPayload struct {
	UserID        string  `json:"user_id"`
	DialogueID    string  `json:"dialogue_id"`
	SegmentID     string  `json:"segment_id"`
	LanguageCode  *string `json:"language_code"`
	RepeatCount   int     `json:"repeat_count"`
	ReferenceText string  `json:"reference_text"`

	// Audio is base64 text.
	ReferenceAudio string `json:"reference_audio"`
	StudentAudio   string `json:"student_audio"`
	StudentMIME    string `json:"student_audio_mime_type"`
}

type segmentReply struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Dialogues []struct {
		Scores   Scores `json:"scores"`
		AnswerID string `json:"answerId"`
		Feedback string `json:"one_line_feedback"`
	} `json:"dialogues"`
}

type sessionPayload struct {
	UserID     string   `json:"user_id"`
	DialogueID string   `json:"dialogue_id"`
	AnswerIDs  []string `json:"answer_ids"`
}

type sessionReply struct {
	Success         bool     `json:"success"`
	Error           string   `json:"error"`
	CombinedScore   *float64 `json:"combined_score"`
	TotalScore      *float64 `json:"total_score"`
	OverallFeedback string   `json:"overall_feedback"`
}

// ScoreSegment sends the reference and student audio to the scoring
// function.
func (g *RemoteGateway) ScoreSegment(ctx context.Context, in SegmentInput) (*SegmentScore, error) {
	const op = "score segment"
	if in.Recording == nil || in.Recording.Size() == 0 {
		return nil, &ScoringServiceError{Op: op, Err: errors.New("no recording to score")}
	}

	ref, err := g.referenceAudio(ctx, in.ReferenceAudioPath)
	if err != nil {
		return nil, &ScoringServiceError{Op: "fetch reference audio", Err: err}
	}

	payload := segmentPayload{
		UserID:         in.UserID,
		DialogueID:     in.DialogueID,
		SegmentID:      in.SegmentID,
		RepeatCount:    in.RepeatCount,
		ReferenceText:  in.ReferenceText,
		ReferenceAudio: ref,
		StudentAudio:   in.Recording.Base64(),
		StudentMIME:    in.Recording.MIMEType,
	}
	if code, ok := LanguageCode(in.Language); ok {
		payload.LanguageCode = &code
	}

	var reply segmentReply
	if err := g.backend.Invoke(ctx, g.cfg.ScoreFunction, payload, segmentReplySchema, &reply); err != nil {
		return nil, &ScoringServiceError{Op: op, Err: err}
	}
	if !reply.Success {
		return nil, &ScoringServiceError{Op: op, Err: replyError(reply.Error)}
	}

	d := reply.Dialogues[0]
	return &SegmentScore{Scores: d.Scores, Feedback: d.Feedback, AnswerID: d.AnswerID}, nil
}

// ComputeSessionResult asks the result function to aggregate answer ids.
func (g *RemoteGateway) ComputeSessionResult(ctx context.Context, in SessionInput) (*SessionResult, error) {
	const op = "compute session result"
	payload := sessionPayload{UserID: in.UserID, DialogueID: in.DialogueID, AnswerIDs: in.AnswerIDs}
	if payload.AnswerIDs == nil {
		payload.AnswerIDs = []string{}
	}

	var reply sessionReply
	if err := g.backend.Invoke(ctx, g.cfg.ResultFunction, payload, sessionReplySchema, &reply); err != nil {
		return nil, &ScoringServiceError{Op: op, Err: err}
	}
	if !reply.Success {
		return nil, &ScoringServiceError{Op: op, Err: replyError(reply.Error)}
	}

	res := &SessionResult{Feedback: reply.OverallFeedback}
	switch {
	case reply.CombinedScore != nil:
		res.TotalScore = *reply.CombinedScore
	case reply.TotalScore != nil:
		res.TotalScore = *reply.TotalScore
	}
	return res, nil
}

// referenceAudio returns the base64 reference clip, fetching it once per
// path. An empty path yields empty audio.
func (g *RemoteGateway) referenceAudio(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	g.mu.Lock()
	cached, ok := g.reference[path]
	g.mu.Unlock()
	if ok {
		return cached, nil
	}

	url, err := g.backend.SignedURL(ctx, path, 0)
	if err != nil {
		return "", err
	}
	data, err := g.backend.Download(ctx, url)
	if err != nil {
		return "", err
	}
	enc := base64.StdEncoding.EncodeToString(data)

	g.mu.Lock()
	g.reference[path] = enc
	g.mu.Unlock()
	return enc, nil
}

func replyError(msg string) error {
	if msg == "" {
		return errors.New("scorer reported failure")
	}
	return fmt.Errorf("scorer reported failure: %s", msg)
}

var scoreProperties = map[string]any{
	"accuracy":              map[string]any{"type": "number"},
	"language_quality":      map[string]any{"type": "number"},
	"fluency_pronunciation": map[string]any{"type": "number"},
	"delivery_coherence":    map[string]any{"type": "number"},
	"cultural_context":      map[string]any{"type": "number"},
	"response_management":   map[string]any{"type": "number"},
	"total":                 map[string]any{"type": "number"},
}

// segmentReplySchema accepts {success:false, error} or a success reply with
// at least one scored dialogue entry.
var segmentReplySchema = &backend.Schema{
	Name: "score-segment-reply",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success": map[string]any{"type": "boolean"},
			"error":   map[string]any{"type": []any{"string", "null"}},
			"dialogues": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"scores": map[string]any{
							"type":       "object",
							"properties": scoreProperties,
							"required":   []any{"total"},
						},
						"answerId":          map[string]any{"type": "string", "minLength": 1},
						"one_line_feedback": map[string]any{"type": []any{"string", "null"}},
					},
					"required": []any{"scores", "answerId"},
				},
			},
		},
		"required": []any{"success"},
		"if":       map[string]any{"properties": map[string]any{"success": map[string]any{"const": true}}},
		"then": map[string]any{
			"required":   []any{"dialogues"},
			"properties": map[string]any{"dialogues": map[string]any{"minItems": 1}},
		},
	},
}

// sessionReplySchema accepts a failure or a success carrying either
// combined_score or total_score.
var sessionReplySchema = &backend.Schema{
	Name: "session-result-reply",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success":          map[string]any{"type": "boolean"},
			"error":            map[string]any{"type": []any{"string", "null"}},
			"combined_score":   map[string]any{"type": []any{"number", "null"}},
			"total_score":      map[string]any{"type": []any{"number", "null"}},
			"overall_feedback": map[string]any{"type": []any{"string", "null"}},
		},
		"required": []any{"success"},
		"if":       map[string]any{"properties": map[string]any{"success": map[string]any{"const": true}}},
		"then": map[string]any{
			"anyOf": []any{
				map[string]any{"required": []any{"combined_score"}},
				map[string]any{"required": []any{"total_score"}},
			},
		},
	},
}
