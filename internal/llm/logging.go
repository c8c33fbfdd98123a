package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/cclprep/internal/store"
)

// LLMEventSink receives one record per provider call. The local store
// implements it.
type LLMEventSink interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

// LoggingProvider records every call it forwards, successful or not.
// Recordings are summarised by type and size, never stored.
type LoggingProvider struct {
	inner Provider
	sink  LLMEventSink
}

// WithLogging wraps p. With a nil sink calls only go to slog.
func WithLogging(p Provider, sink LLMEventSink) Provider {
	return &LoggingProvider{inner: p, sink: sink}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		Provider:        providerName(l.inner),
		Model:           l.inner.ModelID(),
		Purpose:         PurposeFrom(ctx),
		Subject:         SubjectFrom(ctx),
		LatencyMs:       time.Since(start).Milliseconds(),
		Success:         err == nil,
		AttachmentBytes: attachmentBytes(req),
		RequestBody:     describeRequest(req),
	}
	if resp != nil {
		data.Model = resp.Model
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.ResponseBody = string(resp.Content)
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	attrs := []any{
		"purpose", data.Purpose,
		"subject", data.Subject,
		"model", data.Model,
		"latency_ms", data.LatencyMs,
		"input_tokens", data.InputTokens,
		"output_tokens", data.OutputTokens,
	}
	if c := LookupCost(data.Model); c != nil && err == nil {
		attrs = append(attrs, "cost_usd", c.Cost(data.InputTokens, data.OutputTokens))
	}
	if err != nil {
		slog.Warn("llm request failed", append(attrs, "error", err)...)
	} else {
		slog.Debug("llm request", attrs...)
	}

	if l.sink != nil {
		if serr := l.sink.AppendLLMRequest(context.WithoutCancel(ctx), data); serr != nil {
			slog.Warn("record llm request", "error", serr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// providerName names the vendor behind p for the event log.
func providerName(p Provider) string {
	switch v := p.(type) {
	case *GeminiProvider:
		return ProviderGemini
	case *AnthropicProvider:
		return ProviderAnthropic
	case *OpenAIProvider:
		return v.name
	case *MockProvider:
		return ProviderMock
	}
	return "unknown"
}

func attachmentBytes(req Request) int {
	n := 0
	for _, m := range req.Messages {
		for _, a := range m.Attachments {
			n += len(a.Data)
		}
	}
	return n
}

// describeRequest renders req for the request log.
func describeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n", m.Role, m.Content)
		for _, a := range m.Attachments {
			fmt.Fprintf(&b, "[attachment %s, %d bytes]\n", a.MIMEType, len(a.Data))
		}
		b.WriteString("\n")
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
