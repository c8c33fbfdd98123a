package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeOpenAI serves the chat and transcription endpoints and records the
// chat requests it saw.
type fakeOpenAI struct {
	mu         sync.Mutex
	chats      []map[string]any
	transcribe int

	reply      string
	finish     string
	chatStatus int
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
		f.mu.Lock()
		f.transcribe++
		f.mu.Unlock()
		io.Copy(io.Discard, r.Body)
		json.NewEncoder(w).Encode(map[string]any{"text": " The tenant says the heater broke in May. "})

	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.chats = append(f.chats, body)
		f.mu.Unlock()

		if f.chatStatus != 0 {
			w.WriteHeader(f.chatStatus)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "nope", "type": "server_error"}})
			return
		}
		finish := f.finish
		if finish == "" {
			finish = "stop"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini-2024-07-18",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": f.reply},
				"finish_reason": finish,
			}},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150},
		})

	default:
		http.NotFound(w, r)
	}
}

func newFakeOpenAI(t *testing.T, f *fakeOpenAI, cfg OpenAIConfig) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL + "/v1"
	p, err := NewOpenAIProvider(cfg)
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	return p
}

var feedbackSchema = &Schema{
	Name: "session-feedback",
	Definition: map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"feedback": map[string]any{"type": "string"}},
		"required":             []any{"feedback"},
		"additionalProperties": false,
	},
}

func TestOpenAIGenerateWithSchema(t *testing.T) {
	f := &fakeOpenAI{reply: `{"feedback":"Steady delivery."}`}
	p := newFakeOpenAI(t, f, OpenAIConfig{Model: "gpt-4o-mini"})

	resp, err := p.Generate(context.Background(), Request{
		System:    "You are a NAATI CCL examiner.",
		Messages:  []Message{{Role: RoleUser, Content: "Summarise the session."}},
		Schema:    feedbackSchema,
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"feedback":"Steady delivery."}` {
		t.Errorf("content = %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 150 || resp.Model != "gpt-4o-mini-2024-07-18" {
		t.Errorf("usage = %+v model = %q", resp.Usage, resp.Model)
	}

	format, _ := f.chats[0]["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("response_format = %v, want json_schema", format)
	}
	msgs, _ := f.chats[0]["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want system + user", len(msgs))
	}
}

func TestOpenAITranscribesAttachments(t *testing.T) {
	f := &fakeOpenAI{reply: `"ok"`}
	p := newFakeOpenAI(t, f, OpenAIConfig{Model: "gpt-4o-mini", TranscribeModel: "whisper-1"})

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{
			Role:        RoleUser,
			Content:     "Mark this rendition.",
			Attachments: []Attachment{{MIMEType: "audio/webm;codecs=opus", Data: []byte("webm")}},
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.transcribe != 1 {
		t.Errorf("transcription calls = %d, want 1", f.transcribe)
	}
	msgs, _ := f.chats[0]["messages"].([]any)
	user, _ := msgs[0].(map[string]any)
	content, _ := user["content"].(string)
	if !strings.Contains(content, "Transcript of attachment 1:\nThe tenant says the heater broke in May.") {
		t.Errorf("user content = %q", content)
	}
}

func TestOpenAIRejectsAttachmentsWithoutTranscription(t *testing.T) {
	f := &fakeOpenAI{reply: `"ok"`}
	p := newFakeOpenAI(t, f, OpenAIConfig{Model: "gpt-4o-mini"})

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Attachments: []Attachment{{MIMEType: "audio/wav", Data: []byte("RIFF")}}}},
	})
	var unsupported *ErrUnsupportedAttachment
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want ErrUnsupportedAttachment", err)
	}
	if len(f.chats) != 0 {
		t.Errorf("chat endpoint called %d times, want 0", len(f.chats))
	}
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name  string
		fake  *fakeOpenAI
		check func(error) bool
	}{
		{"rate limit", &fakeOpenAI{chatStatus: http.StatusTooManyRequests}, func(err error) bool {
			var e *ErrRateLimit
			return errors.As(err, &e)
		}},
		{"server error", &fakeOpenAI{chatStatus: http.StatusBadGateway}, func(err error) bool {
			var e *ErrProviderUnavailable
			return errors.As(err, &e)
		}},
		{"truncated", &fakeOpenAI{reply: `{"feedb`, finish: "length"}, func(err error) bool {
			var e *ErrMaxTokensExceeded
			return errors.As(err, &e)
		}},
		{"schema mismatch", &fakeOpenAI{reply: `{"score":3}`}, func(err error) bool {
			var e *ErrInvalidResponse
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeOpenAI(t, tt.fake, OpenAIConfig{Model: "gpt-4o-mini"})
			_, err := p.Generate(context.Background(), Request{
				Messages: []Message{{Role: RoleUser, Content: "x"}},
				Schema:   feedbackSchema,
			})
			if err == nil || !tt.check(err) {
				t.Errorf("err = %T %v", err, err)
			}
		})
	}
}

func TestOpenRouterProvider(t *testing.T) {
	if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.5-flash"}); err == nil {
		t.Fatal("expected error for empty API key")
	}

	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "google/gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "google/gemini-2.5-flash" {
		t.Errorf("model = %q, provider-prefixed ids pass through", p.ModelID())
	}

	_, err = p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Attachments: []Attachment{{MIMEType: "audio/webm", Data: []byte("x")}}}},
	})
	var unsupported *ErrUnsupportedAttachment
	if !errors.As(err, &unsupported) || unsupported.Provider != ProviderOpenRouter {
		t.Errorf("err = %v, want openrouter ErrUnsupportedAttachment", err)
	}
}

func TestAudioExtension(t *testing.T) {
	tests := map[string]string{
		"audio/webm;codecs=opus": ".webm",
		"audio/wav":              ".wav",
		"audio/mpeg":             ".mp3",
		"audio/ogg; codecs=opus": ".ogg",
		"audio/mp4":              ".m4a",
		"application/octet":      ".webm",
	}
	for mime, want := range tests {
		if got := audioExtension(mime); got != want {
			t.Errorf("audioExtension(%q) = %q, want %q", mime, got, want)
		}
	}
}
