package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/cclprep/internal/config"
)

// Config points the client at a managed backend project.
type Config struct {
	// URL is the project base URL, e.g. https://abc.supabase.co.
	URL string

	// AnonKey is the project's public API key, sent on every request.
	AnonKey string

	// AccessToken is the signed-in user's JWT. When empty, requests are
	// made with the anon key only.
	AccessToken string

	// Bucket is the storage bucket holding reference audio.
	Bucket string

	// SignedURLTTL is how long issued audio URLs stay valid.
	SignedURLTTL time.Duration

	// DatabaseURL, when set, lets dialogues be read straight from Postgres
	// instead of through the REST API.
	DatabaseURL string
}

// DefaultConfig returns the default backend configuration.
func DefaultConfig() Config {
	return Config{
		Bucket:       "dialogue-audio",
		SignedURLTTL: time.Hour,
	}
}

// ConfigFromEnv builds a Config from CCLPREP_* environment variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.URL = strings.TrimRight(config.Get("SUPABASE_URL", cfg.URL), "/")
	cfg.AnonKey = config.Get("SUPABASE_ANON_KEY", cfg.AnonKey)
	cfg.AccessToken = config.Get("ACCESS_TOKEN", cfg.AccessToken)
	cfg.Bucket = config.Get("AUDIO_BUCKET", cfg.Bucket)
	cfg.SignedURLTTL = config.Duration("SIGNED_URL_TTL", cfg.SignedURLTTL)
	cfg.DatabaseURL = config.Get("DATABASE_URL", cfg.DatabaseURL)
	return cfg
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("backend URL is required (set %sSUPABASE_URL)", config.Prefix)
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("backend URL %q must be http or https", c.URL)
	}
	if c.AnonKey == "" {
		return fmt.Errorf("backend anon key is required (set %sSUPABASE_ANON_KEY)", config.Prefix)
	}
	if c.Bucket == "" {
		return fmt.Errorf("audio bucket is required")
	}
	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("signed URL TTL must be positive, got %s", c.SignedURLTTL)
	}
	return nil
}
