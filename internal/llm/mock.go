package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted reply of a MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays scripted replies in order and records every
// request. When the script runs out it consults Fallback, and without one
// it fails with ErrProviderUnavailable.
type MockProvider struct {
	// Fallback answers requests after the script is exhausted. It lets
	// the offline "mock" provider mark any number of segments.
	Fallback func(Request) MockResponse

	mu     sync.Mutex
	script []MockResponse
	Calls  []Request
}

// NewMockProvider creates a MockProvider that replays responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{script: responses}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	var (
		next MockResponse
		ok   bool
	)
	if len(m.script) > 0 {
		next, ok = m.script[0], true
		m.script = m.script[1:]
	} else if m.Fallback != nil {
		next, ok = m.Fallback(req), true
	}
	m.mu.Unlock()

	switch {
	case !ok:
		return nil, &ErrProviderUnavailable{}
	case next.Err != nil:
		return nil, next.Err
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: "mock", StopReason: "end"}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse appends to the script.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	m.script = append(m.script, resp)
	m.mu.Unlock()
}

// CallCount returns how many requests were made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastRequest returns the most recent request, or false if none was made.
func (m *MockProvider) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

// SchemaFallback answers with the smallest document satisfying the
// request's schema: numbers at the midpoint of their range, strings from
// their enum or description. Requests without a schema get "ok".
func SchemaFallback(req Request) MockResponse {
	if req.Schema == nil {
		return MockResponse{Content: json.RawMessage(`"ok"`)}
	}
	raw, err := json.Marshal(synthesize(req.Schema.Definition))
	if err != nil {
		return MockResponse{Err: &ErrInvalidResponse{Err: err}}
	}
	return MockResponse{Content: raw}
}

func synthesize(def map[string]any) any {
	typ, _ := def["type"].(string)
	switch typ {
	case "object":
		out := map[string]any{}
		props, _ := def["properties"].(map[string]any)
		for name, p := range props {
			if pd, ok := p.(map[string]any); ok {
				out[name] = synthesize(pd)
			}
		}
		return out
	case "array":
		if items, ok := def["items"].(map[string]any); ok {
			return []any{synthesize(items)}
		}
		return []any{}
	case "integer", "number":
		lo, hasLo := number(def["minimum"])
		hi, hasHi := number(def["maximum"])
		mid := 0.0
		switch {
		case hasLo && hasHi:
			mid = (lo + hi) / 2
		case hasLo:
			mid = lo
		case hasHi:
			mid = hi
		}
		if typ == "integer" {
			return int(mid)
		}
		return mid
	case "boolean":
		return true
	}
	if enum, ok := def["enum"].([]any); ok && len(enum) > 0 {
		return enum[0]
	}
	if desc, ok := def["description"].(string); ok && desc != "" {
		return "mock: " + desc
	}
	return "mock"
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
