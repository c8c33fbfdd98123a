package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/abhisek/cclprep/internal/config"
)

// Provider names accepted in CCLPREP_LLM_PROVIDER.
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config selects and configures the model that marks recordings.
type Config struct {
	Provider string

	Gemini     GeminiConfig
	OpenAI     OpenAIConfig
	Anthropic  AnthropicConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds one Generate call, retries included.
	Timeout time.Duration
}

// GeminiConfig configures the Gemini API. Gemini models take the learner's
// recording inline, so no transcription step is needed.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // Optional. Overrides the API endpoint.
}

// OpenAIConfig configures the OpenAI API or a compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string

	// TranscribeModel turns audio attachments into text before the chat
	// call. Empty disables attachments.
	TranscribeModel string
}

// AnthropicConfig configures the Anthropic API. Its models do not take
// audio, so scoring with them needs an external transcriber.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// OpenRouterConfig configures OpenRouter's OpenAI-compatible endpoint.
type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig shapes the exponential backoff applied to transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig prefers Gemini: it marks audio directly and is the cheapest
// of the supported models per scored segment.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderGemini,
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini", TranscribeModel: "whisper-1"},
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.5-flash", BaseURL: defaultOpenRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     8 * time.Second,
			Multiplier:  2,
		},
		Timeout: 45 * time.Second,
	}
}

// ConfigFromEnv overlays CCLPREP_* variables on DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Provider = config.Get("LLM_PROVIDER", cfg.Provider)
	cfg.Timeout = config.Duration("LLM_TIMEOUT", cfg.Timeout)
	cfg.Retry.MaxAttempts = config.Int("LLM_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)

	overlay := []struct {
		key string
		dst *string
	}{
		{"GEMINI_API_KEY", &cfg.Gemini.APIKey},
		{"GEMINI_MODEL", &cfg.Gemini.Model},
		{"GEMINI_BASE_URL", &cfg.Gemini.BaseURL},
		{"OPENAI_API_KEY", &cfg.OpenAI.APIKey},
		{"OPENAI_MODEL", &cfg.OpenAI.Model},
		{"OPENAI_BASE_URL", &cfg.OpenAI.BaseURL},
		{"OPENAI_TRANSCRIBE_MODEL", &cfg.OpenAI.TranscribeModel},
		{"ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey},
		{"ANTHROPIC_MODEL", &cfg.Anthropic.Model},
		{"OPENROUTER_API_KEY", &cfg.OpenRouter.APIKey},
		{"OPENROUTER_MODEL", &cfg.OpenRouter.Model},
	}
	for _, o := range overlay {
		*o.dst = config.Get(o.key, *o.dst)
	}
	return cfg
}

// DiscoverConfig falls back to the vendors' own key variables when no
// CCLPREP_ key is set. Audio-capable providers are tried first.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	candidates := []struct {
		env      string
		provider string
		dst      *string
	}{
		{"GEMINI_API_KEY", ProviderGemini, &cfg.Gemini.APIKey},
		{"GOOGLE_API_KEY", ProviderGemini, &cfg.Gemini.APIKey},
		{"OPENAI_API_KEY", ProviderOpenAI, &cfg.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY", ProviderAnthropic, &cfg.Anthropic.APIKey},
		{"OPENROUTER_API_KEY", ProviderOpenRouter, &cfg.OpenRouter.APIKey},
	}
	for _, c := range candidates {
		if k := os.Getenv(c.env); k != "" {
			cfg.Provider = c.provider
			*c.dst = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate reports a missing key for the selected provider.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case ProviderGemini:
		key = c.Gemini.APIKey
	case ProviderOpenAI:
		key = c.OpenAI.APIKey
	case ProviderAnthropic:
		key = c.Anthropic.APIKey
	case ProviderOpenRouter:
		key = c.OpenRouter.APIKey
	case ProviderMock:
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s%s_API_KEY is required for the %s provider",
			config.Prefix, envName(c.Provider), c.Provider)
	}
	return nil
}

// Model returns the configured model name of the selected provider.
func (c Config) Model() string {
	switch c.Provider {
	case ProviderGemini:
		return c.Gemini.Model
	case ProviderOpenAI:
		return c.OpenAI.Model
	case ProviderAnthropic:
		return c.Anthropic.Model
	case ProviderOpenRouter:
		return c.OpenRouter.Model
	}
	return c.Provider
}

// AcceptsAudio reports whether the selected provider can mark a recording
// without an external transcriber.
func (c Config) AcceptsAudio() bool {
	switch c.Provider {
	case ProviderGemini, ProviderMock:
		return true
	case ProviderOpenAI:
		return c.OpenAI.TranscribeModel != ""
	}
	return false
}

func envName(provider string) string {
	switch provider {
	case ProviderOpenRouter:
		return "OPENROUTER"
	case ProviderOpenAI:
		return "OPENAI"
	case ProviderAnthropic:
		return "ANTHROPIC"
	}
	return "GEMINI"
}
