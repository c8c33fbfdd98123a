package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cclprep/internal/llm"
)

type fakeTranscriber struct {
	text     string
	err      error
	language string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string, language string) (string, error) {
	f.language = language
	return f.text, f.err
}

const rubric = `{"accuracy":8,"language_quality":7,"fluency_pronunciation":6,
	"delivery_coherence":7,"cultural_context":8,"response_management":6,"feedback":"Clear."}`

func TestLLMGatewayScoresTranscript(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(rubric)})
	tr := &fakeTranscriber{text: "सुप्रभात, मैं आपकी कैसे मदद कर सकता हूँ?"}
	g := NewLLMGateway(mock, tr)

	score, err := g.ScoreSegment(context.Background(), testInput())
	require.NoError(t, err)

	// (8+7+6+7+8+6) / 60 * 100
	assert.Equal(t, 70.0, score.Total)
	assert.Equal(t, "Clear.", score.Feedback)
	assert.NotEmpty(t, score.AnswerID)
	assert.Equal(t, "hi", tr.language)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Same(t, SegmentRubricSchema, req.Schema)
	assert.False(t, req.HasAttachments())
	assert.Contains(t, req.Messages[0].Content, tr.text)
	assert.Contains(t, req.Messages[0].Content, "Attempt: 3")
}

func TestLLMGatewayAttachesAudioWithoutTranscriber(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(rubric)})
	g := NewLLMGateway(mock, nil)

	_, err := g.ScoreSegment(context.Background(), testInput())
	require.NoError(t, err)

	msg := mock.Calls[0].Messages[0]
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "audio/ogg", msg.Attachments[0].MIMEType)
	assert.True(t, strings.Contains(msg.Content, "(attached audio)"))
}

func TestLLMGatewayWrapsFailures(t *testing.T) {
	t.Run("transcription", func(t *testing.T) {
		g := NewLLMGateway(llm.NewMockProvider(), &fakeTranscriber{err: errors.New("ws closed")})
		_, err := g.ScoreSegment(context.Background(), testInput())
		var svcErr *ScoringServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "transcribe", svcErr.Op)
	})
	t.Run("provider", func(t *testing.T) {
		g := NewLLMGateway(llm.NewMockProvider(), &fakeTranscriber{text: "x"})
		_, err := g.ScoreSegment(context.Background(), testInput())
		var svcErr *ScoringServiceError
		require.ErrorAs(t, err, &svcErr)
		var unavailable *llm.ErrProviderUnavailable
		assert.ErrorAs(t, err, &unavailable)
	})
}

func TestLLMGatewaySessionResult(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(rubric)},
		llm.MockResponse{Content: json.RawMessage(`{"accuracy":10,"language_quality":10,"fluency_pronunciation":10,
			"delivery_coherence":10,"cultural_context":10,"response_management":10,"feedback":"Perfect."}`)},
		llm.MockResponse{Content: json.RawMessage(`{"feedback":"Consistent accuracy; work on fluency."}`)},
	)
	g := NewLLMGateway(mock, &fakeTranscriber{text: "x"})

	a, err := g.ScoreSegment(context.Background(), testInput())
	require.NoError(t, err)
	b, err := g.ScoreSegment(context.Background(), testInput())
	require.NoError(t, err)

	res, err := g.ComputeSessionResult(context.Background(), SessionInput{AnswerIDs: []string{a.AnswerID, b.AnswerID}})
	require.NoError(t, err)
	assert.Equal(t, 85.0, res.TotalScore)
	assert.Equal(t, "Consistent accuracy; work on fluency.", res.Feedback)
	assert.Same(t, SessionFeedbackSchema, mock.Calls[2].Schema)
}

func TestLLMGatewaySessionResultUnknownAnswer(t *testing.T) {
	g := NewLLMGateway(llm.NewMockProvider(), nil)
	_, err := g.ComputeSessionResult(context.Background(), SessionInput{AnswerIDs: []string{"nope"}})
	var svcErr *ScoringServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestMockGatewayDefaults(t *testing.T) {
	g := NewMockGateway()
	in := testInput()

	s, err := g.ScoreSegment(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "mock-s1-2", s.AnswerID)

	res, err := g.ComputeSessionResult(context.Background(), SessionInput{AnswerIDs: []string{s.AnswerID}})
	require.NoError(t, err)
	assert.Equal(t, 70.0, res.TotalScore)

	assert.Len(t, g.SegmentCalls(), 1)
	assert.Len(t, g.SessionCalls(), 1)
}
