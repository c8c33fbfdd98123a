package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/abhisek/cclprep/internal/llm"
	"github.com/abhisek/cclprep/internal/stt"
)

// LLM purposes, recorded with each request.
const (
	PurposeSegmentScoring  = "segment-scoring"
	PurposeSessionFeedback = "session-feedback"
)

// LLMGateway marks segments with a language model. Recordings are
// transcribed first when a Transcriber is set; otherwise the audio is
// attached to the request, which only audio-capable providers accept.
//
// Answer ids are only meaningful to the gateway that issued them.
type LLMGateway struct {
	provider    llm.Provider
	transcriber stt.Transcriber

	mu      sync.Mutex
	answers map[string]llmAnswer
}

type llmAnswer struct {
	segmentID string
	total     float64
	feedback  string
}

type rubricReply struct {
	Accuracy             float64 `json:"accuracy"`
	LanguageQuality      float64 `json:"language_quality"`
	FluencyPronunciation float64 `json:"fluency_pronunciation"`
	DeliveryCoherence    float64 `json:"delivery_coherence"`
	CulturalContext      float64 `json:"cultural_context"`
	ResponseManagement   float64 `json:"response_management"`
	Feedback             string  `json:"feedback"`
}

// NewLLMGateway creates an LLM-backed gateway. transcriber may be nil.
func NewLLMGateway(p llm.Provider, transcriber stt.Transcriber) *LLMGateway {
	return &LLMGateway{provider: p, transcriber: transcriber, answers: make(map[string]llmAnswer)}
}

// ScoreSegment transcribes (or attaches) the recording and asks the model
// for rubric marks. The total is the mean mark scaled to 100.
func (g *LLMGateway) ScoreSegment(ctx context.Context, in SegmentInput) (*SegmentScore, error) {
	const op = "score segment"
	if in.Recording == nil || in.Recording.Size() == 0 {
		return nil, &ScoringServiceError{Op: op, Err: errors.New("no recording to score")}
	}

	code, _ := LanguageCode(in.Language)
	msg := llm.Message{Role: llm.RoleUser}
	if g.transcriber != nil {
		transcript, err := g.transcriber.Transcribe(ctx, in.Recording.Data, in.Recording.MIMEType, code)
		if err != nil {
			return nil, &ScoringServiceError{Op: "transcribe", Err: err}
		}
		msg.Content = buildSegmentMessage(in, transcript, false)
	} else {
		msg.Content = buildSegmentMessage(in, "", true)
		msg.Attachments = []llm.Attachment{{MIMEType: in.Recording.MIMEType, Data: in.Recording.Data}}
	}

	ctx = llm.WithSubject(llm.WithPurpose(ctx, PurposeSegmentScoring),
		subject(in.SessionID, in.DialogueID, in.SegmentID))
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:    examinerPrompt,
		Messages:  []llm.Message{msg},
		Schema:    SegmentRubricSchema,
		MaxTokens: 512,
	})
	if err != nil {
		return nil, &ScoringServiceError{Op: op, Err: err}
	}

	var r rubricReply
	if err := json.Unmarshal(resp.Content, &r); err != nil {
		return nil, &ScoringServiceError{Op: op, Err: fmt.Errorf("decode rubric: %w", err)}
	}

	scores := Scores{
		Accuracy:             r.Accuracy,
		LanguageQuality:      r.LanguageQuality,
		FluencyPronunciation: r.FluencyPronunciation,
		DeliveryCoherence:    r.DeliveryCoherence,
		CulturalContext:      r.CulturalContext,
		ResponseManagement:   r.ResponseManagement,
	}
	sum := 0.0
	for _, v := range scores.Dimensions() {
		sum += v
	}
	scores.Total = round1(sum / (6 * MaxDimensionScore) * 100)

	id := uuid.NewString()
	g.mu.Lock()
	g.answers[id] = llmAnswer{segmentID: in.SegmentID, total: scores.Total, feedback: r.Feedback}
	g.mu.Unlock()

	return &SegmentScore{Scores: scores, Feedback: r.Feedback, AnswerID: id}, nil
}

// ComputeSessionResult averages the referenced answers and asks the model
// for overall feedback.
func (g *LLMGateway) ComputeSessionResult(ctx context.Context, in SessionInput) (*SessionResult, error) {
	const op = "compute session result"
	if len(in.AnswerIDs) == 0 {
		return nil, &ScoringServiceError{Op: op, Err: errors.New("no answers to aggregate")}
	}

	answers := make([]llmAnswer, 0, len(in.AnswerIDs))
	g.mu.Lock()
	for _, id := range in.AnswerIDs {
		a, ok := g.answers[id]
		if !ok {
			g.mu.Unlock()
			return nil, &ScoringServiceError{Op: op, Err: fmt.Errorf("unknown answer id %q", id)}
		}
		answers = append(answers, a)
	}
	g.mu.Unlock()

	sum := 0.0
	for _, a := range answers {
		sum += a.total
	}

	ctx = llm.WithSubject(llm.WithPurpose(ctx, PurposeSessionFeedback), subject(in.SessionID, in.DialogueID))
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:    sessionPrompt,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: buildSessionMessage(answers)}},
		Schema:    SessionFeedbackSchema,
		MaxTokens: 512,
	})
	if err != nil {
		return nil, &ScoringServiceError{Op: op, Err: err}
	}
	var fb struct {
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal(resp.Content, &fb); err != nil {
		return nil, &ScoringServiceError{Op: op, Err: fmt.Errorf("decode feedback: %w", err)}
	}

	return &SessionResult{TotalScore: round1(sum / float64(len(answers))), Feedback: fb.Feedback}, nil
}

// subject joins the non-empty parts with "/" so calls can be grouped by
// session in the request log.
func subject(parts ...string) string {
	return strings.Join(slices.DeleteFunc(parts, func(p string) bool { return p == "" }), "/")
}
