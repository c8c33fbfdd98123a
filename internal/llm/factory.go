package llm

import (
	"context"
	"fmt"
	"time"
)

// NewProvider builds the configured provider and wraps it so that each
// call is bounded by cfg.Timeout, retried per cfg.Retry, and every attempt
// is logged to sink:
//
//	caller → timeout → retry → logging → provider
func NewProvider(ctx context.Context, cfg Config, sink LLMEventSink) (Provider, error) {
	base, err := newBaseProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	if cfg.Provider == ProviderMock {
		return WithLogging(base, sink), nil
	}
	return WithTimeout(WithRetry(WithLogging(base, sink), cfg.Retry), cfg.Timeout), nil
}

func newBaseProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI)
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenRouter:
		return NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		m := NewMockProvider()
		m.Fallback = SchemaFallback
		return m, nil
	}
	return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
}

// TimeoutProvider bounds every Generate call with a deadline.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps p so each call gets at most d. A non-positive d
// returns p unchanged.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &TimeoutProvider{inner: p, timeout: d}
}

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *TimeoutProvider) ModelID() string { return t.inner.ModelID() }
