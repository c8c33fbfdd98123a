// Package llm is the model layer behind the LLM scorer: one Provider
// interface over Gemini, OpenAI, OpenRouter and Anthropic, decorators for
// retries, deadlines and request logging, and JSON Schema checking of the
// structured replies the scorer asks for.
package llm

import (
	"context"
	"encoding/json"
)

// Provider sends one request to a model and returns its reply.
type Provider interface {
	// Generate runs req. When req.Schema is set the reply is JSON that
	// has been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the model requests are sent to.
	ModelID() string
}

// Role is who a Message is from.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Request is a single-turn exchange: marking prompts carry one user
// message, optionally with the learner's recording attached.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks for a JSON reply of this shape using the
	// provider's structured output mode.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// HasAttachments reports whether any message carries an attachment.
func (r Request) HasAttachments() bool {
	for _, m := range r.Messages {
		if len(m.Attachments) > 0 {
			return true
		}
	}
	return false
}

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string

	// Attachments are sent after Content. Providers without audio input
	// transcribe them or fail with ErrUnsupportedAttachment.
	Attachments []Attachment
}

// Attachment is inline media such as a recording.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Schema describes a structured reply. Name doubles as the cache key for
// the compiled schema and as the schema name sent to OpenAI.
type Schema struct {
	Name        string // kebab-case, e.g. "segment-score"
	Description string
	Definition  map[string]any
}

// Response is a model reply.
type Response struct {
	// Content is the validated JSON when a Schema was requested, and the
	// raw reply text otherwise.
	Content json.RawMessage

	Usage Usage

	// Model is the model version that answered, which may be more
	// specific than ModelID.
	Model string

	// StopReason is "end" for complete replies. Truncated replies are
	// returned as ErrMaxTokensExceeded instead.
	StopReason string
}

// Usage is the token count of one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
