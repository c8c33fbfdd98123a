package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var openaiAliases = map[string]string{
	"gpt-4o-mini":  openai.GPT4oMini,
	"gpt-4o":       openai.GPT4o,
	"gpt-4.1-mini": openai.GPT4Dot1Mini,
}

// OpenAIProvider talks to the OpenAI chat API or any compatible endpoint.
// Chat models there do not hear audio, so recordings attached to a request
// are first run through the transcription endpoint and inlined as text.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	transcribe string
	name       string
}

// NewOpenAIProvider creates a provider for cfg.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(c),
		model:      resolveModel(cfg.Model, openaiAliases),
		transcribe: cfg.TranscribeModel,
		name:       ProviderOpenAI,
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	messages, err := p.chatMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	chat := openai.ChatCompletionRequest{
		Model:               p.model,
		Messages:            messages,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         float32(req.Temperature),
	}
	if req.Schema != nil {
		def, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal schema %q: %w", req.Schema.Name, err)
		}
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: json.RawMessage(def),
				Strict: true,
			},
		}
	}

	out, err := p.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		return nil, p.mapError(err)
	}
	if len(out.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: errors.New("no choices in chat completion")}
	}
	choice := out.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return nil, &ErrMaxTokensExceeded{Content: json.RawMessage(choice.Message.Content)}
	}
	content, err := decodeReply(req.Schema, choice.Message.Content)
	if err != nil {
		return nil, err
	}

	return &Response{
		Content: content,
		Usage: Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		},
		Model:      out.Model,
		StopReason: "end",
	}, nil
}

func (p *OpenAIProvider) ModelID() string {
	return p.model
}

// chatMessages converts req to chat messages, transcribing attachments.
func (p *OpenAIProvider) chatMessages(ctx context.Context, req Request) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		content := m.Content
		for i, a := range m.Attachments {
			text, err := p.transcribeAttachment(ctx, a)
			if err != nil {
				return nil, err
			}
			content += fmt.Sprintf("\n\nTranscript of attachment %d:\n%s", i+1, text)
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: content})
	}
	return out, nil
}

func (p *OpenAIProvider) transcribeAttachment(ctx context.Context, a Attachment) (string, error) {
	if p.transcribe == "" || !strings.HasPrefix(a.MIMEType, "audio/") {
		return "", &ErrUnsupportedAttachment{Provider: p.name, MIMEType: a.MIMEType}
	}
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.transcribe,
		Reader:   bytes.NewReader(a.Data),
		FilePath: "recording" + audioExtension(a.MIMEType),
	})
	if err != nil {
		return "", p.mapError(err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (p *OpenAIProvider) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fromStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fromStatus(reqErr.HTTPStatusCode, err)
	}
	return &ErrProviderUnavailable{Err: err}
}

// audioExtension picks the file name suffix the transcription endpoint
// uses to detect the container.
func audioExtension(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/flac":
		return ".flac"
	}
	return ".webm"
}
