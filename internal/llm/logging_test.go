package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/cclprep/internal/store"
)

type recordingSink struct {
	events []store.LLMRequestEventData
	err    error
}

func (s *recordingSink) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	s.events = append(s.events, data)
	return s.err
}

func TestLoggingRecordsScoringCall(t *testing.T) {
	sink := &recordingSink{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"accuracy":7}`),
		Usage:   Usage{InputTokens: 12, OutputTokens: 4},
	})
	p := WithLogging(mock, sink)

	ctx := WithSubject(WithPurpose(context.Background(), "segment-scoring"), "s1/d9/seg3")
	_, err := p.Generate(ctx, Request{
		System: "examiner",
		Messages: []Message{{
			Role:        RoleUser,
			Content:     "Mark this rendition.",
			Attachments: []Attachment{{MIMEType: "audio/ogg", Data: make([]byte, 10)}},
		}},
		Schema: rubricSchema,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want 1", len(sink.events))
	}
	e := sink.events[0]
	if e.Provider != ProviderMock || e.Purpose != "segment-scoring" || e.Subject != "s1/d9/seg3" {
		t.Errorf("labels = %q %q %q", e.Provider, e.Purpose, e.Subject)
	}
	if !e.Success || e.InputTokens != 12 || e.AttachmentBytes != 10 {
		t.Errorf("event = %+v", e)
	}
	for _, want := range []string{"[system]\nexaminer", "[attachment audio/ogg, 10 bytes]", "[schema: segment-score]"} {
		if !strings.Contains(e.RequestBody, want) {
			t.Errorf("request body missing %q:\n%s", want, e.RequestBody)
		}
	}
	if e.ResponseBody != `{"accuracy":7}` {
		t.Errorf("response body = %q", e.ResponseBody)
	}
}

func TestLoggingRecordsFailures(t *testing.T) {
	sink := &recordingSink{}
	p := WithLogging(NewMockProvider(MockResponse{Err: &ErrUnsupportedAttachment{Provider: "anthropic"}}), sink)

	if _, err := p.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want 1", len(sink.events))
	}
	e := sink.events[0]
	if e.Success || !strings.Contains(e.ErrorMessage, "anthropic provider does not accept attachments") {
		t.Errorf("event = %+v", e)
	}
	if e.Purpose != "unknown" {
		t.Errorf("purpose = %q, want unknown", e.Purpose)
	}
}

func TestLoggingSurvivesSinkErrors(t *testing.T) {
	for name, sink := range map[string]LLMEventSink{
		"failing sink": &recordingSink{err: errors.New("disk full")},
		"nil sink":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			p := WithLogging(NewMockProvider(okReply), sink)
			if _, err := p.Generate(context.Background(), Request{}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestProviderName(t *testing.T) {
	or, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "k", Model: "google/gemini-2.5-flash"})
	if err != nil {
		t.Fatal(err)
	}
	oa, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		p    Provider
		want string
	}{
		{or, ProviderOpenRouter},
		{oa, ProviderOpenAI},
		{&AnthropicProvider{}, ProviderAnthropic},
		{NewMockProvider(), ProviderMock},
		{WithRetry(NewMockProvider(), RetryConfig{}), "unknown"},
	}
	for _, tt := range tests {
		if got := providerName(tt.p); got != tt.want {
			t.Errorf("providerName(%T) = %q, want %q", tt.p, got, tt.want)
		}
	}
}
