// Package report forwards errors the user never sees to an error tracker.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/abhisek/cclprep/internal/config"
)

// Reporter records an error with context tags.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// Config configures error reporting.
type Config struct {
	DSN         string
	Environment string
	Release     string
}

// ConfigFromEnv reads CCLPREP_SENTRY_DSN and CCLPREP_ENV.
func ConfigFromEnv() Config {
	return Config{
		DSN:         config.Get("SENTRY_DSN", ""),
		Environment: config.Get("ENV", "development"),
	}
}

// Sentry reports to Sentry.
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry initialises the Sentry client. Call Flush before exit.
func NewSentry(cfg Config) (*Sentry, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sentry DSN is required")
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return &Sentry{hub: sentry.CurrentHub()}, nil
}

// Report captures err with tags.
func (s *Sentry) Report(_ context.Context, err error, tags map[string]string) {
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.CaptureException(err)
	})
}

// Flush waits up to timeout for queued events to be sent.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

// Log reports through slog only. It is used when no tracker is configured.
type Log struct{}

// Report logs err at warn level.
func (Log) Report(_ context.Context, err error, tags map[string]string) {
	attrs := []any{"error", err}
	for k, v := range tags {
		attrs = append(attrs, k, v)
	}
	slog.Warn("unreported error", attrs...)
}

// New returns a Sentry reporter when cfg has a DSN, else Log.
func New(cfg Config) (Reporter, func(), error) {
	if cfg.DSN == "" {
		return Log{}, func() {}, nil
	}
	s, err := NewSentry(cfg)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Flush(2 * time.Second) }, nil
}
