package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var okReply = MockResponse{Content: json.RawMessage(`{"accuracy":4}`)}

func unavailable() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("503")}}
}

// newTestRetry returns a retry decorator whose sleeps are recorded
// instead of slept.
func newTestRetry(p Provider, attempts int) (*RetryProvider, *[]time.Duration) {
	var waits []time.Duration
	r := WithRetry(p, RetryConfig{
		MaxAttempts: attempts,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     300 * time.Millisecond,
		Multiplier:  2,
	}).(*RetryProvider)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return r, &waits
}

func TestRetryOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		script    []MockResponse
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", script: []MockResponse{okReply}, attempts: 3, wantCalls: 1},
		{name: "transient then ok", script: []MockResponse{unavailable(), okReply}, attempts: 3, wantCalls: 2},
		{name: "exhausted", script: []MockResponse{unavailable(), unavailable(), unavailable(), okReply}, attempts: 3, wantCalls: 3, wantErr: true},
		{
			name:      "truncated reply is permanent",
			script:    []MockResponse{{Err: &ErrMaxTokensExceeded{}}, okReply},
			attempts:  3,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "attachment rejection is permanent",
			script:    []MockResponse{{Err: &ErrUnsupportedAttachment{Provider: "anthropic"}}, okReply},
			attempts:  3,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name: "invalid reply retried once",
			script: []MockResponse{
				{Err: &ErrInvalidResponse{Err: errors.New("missing accuracy")}},
				{Err: &ErrInvalidResponse{Err: errors.New("missing accuracy")}},
				okReply,
			},
			attempts:  5,
			wantCalls: 2,
			wantErr:   true,
		},
		{name: "zero attempts means one", script: []MockResponse{unavailable(), okReply}, attempts: 0, wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.script...)
			p, _ := newTestRetry(mock, tt.attempts)

			resp, err := p.Generate(context.Background(), Request{})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", resp.Content)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := mock.CallCount(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRetryBackoffIsCappedAndJittered(t *testing.T) {
	mock := NewMockProvider(unavailable(), unavailable(), unavailable(), unavailable(), okReply)
	p, waits := newTestRetry(mock, 5)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bases := []time.Duration{100, 200, 300, 300}
	if len(*waits) != len(bases) {
		t.Fatalf("waits = %v, want %d of them", *waits, len(bases))
	}
	for i, w := range *waits {
		base := bases[i] * time.Millisecond
		lo, hi := base*8/10, base*12/10
		if w < lo || w > hi {
			t.Errorf("wait %d = %v, want within [%v, %v]", i, w, lo, hi)
		}
	}
}

func TestRetryHonoursRetryAfter(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: 2 * time.Second, Err: errors.New("429")}},
		okReply,
	)
	p, waits := newTestRetry(mock, 3)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 2*time.Second {
		t.Errorf("waits = %v, want [2s]", *waits)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	mock := NewMockProvider(unavailable(), okReply)
	p := WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestMockFallbackAnswersAfterScript(t *testing.T) {
	mock := NewMockProvider(okReply)
	mock.Fallback = func(req Request) MockResponse {
		return MockResponse{Content: json.RawMessage(`{"fallback":true}`)}
	}

	for i, want := range []string{`{"accuracy":4}`, `{"fallback":true}`, `{"fallback":true}`} {
		resp, err := mock.Generate(context.Background(), Request{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if string(resp.Content) != want {
			t.Errorf("call %d = %s, want %s", i, resp.Content, want)
		}
	}
	if p := WithRetry(mock, RetryConfig{}); p.ModelID() != "mock" {
		t.Errorf("ModelID = %q, want mock", p.ModelID())
	}
}
