package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MockGateway is a deterministic Gateway for tests and offline practice.
// It records every call. ScoreFunc and ResultFunc, when set, replace the
// default behaviour.
type MockGateway struct {
	ScoreFunc  func(ctx context.Context, in SegmentInput) (*SegmentScore, error)
	ResultFunc func(ctx context.Context, in SessionInput) (*SessionResult, error)

	mu       sync.Mutex
	segments []SegmentInput
	sessions []SessionInput
	totals   map[string]float64
}

// NewMockGateway creates a MockGateway with default behaviour.
func NewMockGateway() *MockGateway {
	return &MockGateway{totals: make(map[string]float64)}
}

// ScoreSegment records the call and returns ScoreFunc's result, or seven
// on every dimension with a 70 total.
func (m *MockGateway) ScoreSegment(ctx context.Context, in SegmentInput) (*SegmentScore, error) {
	m.mu.Lock()
	m.segments = append(m.segments, in)
	fn := m.ScoreFunc
	m.mu.Unlock()

	if fn != nil {
		s, err := fn(ctx, in)
		if err == nil && s != nil {
			m.remember(s)
		}
		return s, err
	}

	if in.Recording == nil || in.Recording.Size() == 0 {
		return nil, &ScoringServiceError{Op: "score segment", Err: errors.New("no recording to score")}
	}
	s := &SegmentScore{
		Scores: Scores{
			Accuracy: 7, LanguageQuality: 7, FluencyPronunciation: 7,
			DeliveryCoherence: 7, CulturalContext: 7, ResponseManagement: 7,
			Total: 70,
		},
		Feedback: "Meaning carried across; keep the pace steady.",
		AnswerID: fmt.Sprintf("mock-%s-%d", in.SegmentID, in.RepeatCount),
	}
	m.remember(s)
	return s, nil
}

// ComputeSessionResult records the call and returns ResultFunc's result,
// or the mean total of the referenced answers.
func (m *MockGateway) ComputeSessionResult(ctx context.Context, in SessionInput) (*SessionResult, error) {
	m.mu.Lock()
	m.sessions = append(m.sessions, in)
	fn := m.ResultFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, in)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(in.AnswerIDs) == 0 {
		return &SessionResult{Feedback: "No segments were scored."}, nil
	}
	sum := 0.0
	for _, id := range in.AnswerIDs {
		sum += m.totals[id]
	}
	return &SessionResult{
		TotalScore: round1(sum / float64(len(in.AnswerIDs))),
		Feedback:   fmt.Sprintf("%d segments scored.", len(in.AnswerIDs)),
	}, nil
}

func (m *MockGateway) remember(s *SegmentScore) {
	m.mu.Lock()
	m.totals[s.AnswerID] = s.Total
	m.mu.Unlock()
}

// SegmentCalls returns a copy of every ScoreSegment input so far.
func (m *MockGateway) SegmentCalls() []SegmentInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SegmentInput(nil), m.segments...)
}

// SessionCalls returns a copy of every ComputeSessionResult input so far.
func (m *MockGateway) SessionCalls() []SessionInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SessionInput(nil), m.sessions...)
}
