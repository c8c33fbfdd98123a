package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/abhisek/cclprep/internal/config"
)

const deepgramWSURL = "wss://api.deepgram.com/v1/listen"

// chunkSize is how much audio goes into one websocket frame.
const chunkSize = 8 * 1024

// DeepgramConfig holds configuration for the Deepgram client.
type DeepgramConfig struct {
	APIKey    string
	URL       string // Default: the public streaming endpoint
	Model     string // e.g. "nova-3"
	Punctuate bool
}

// DefaultDeepgramConfig returns the default Deepgram configuration.
func DefaultDeepgramConfig() DeepgramConfig {
	return DeepgramConfig{
		URL:       deepgramWSURL,
		Model:     "nova-3",
		Punctuate: true,
	}
}

// DeepgramConfigFromEnv reads CCLPREP_DEEPGRAM_* variables.
func DeepgramConfigFromEnv() DeepgramConfig {
	cfg := DefaultDeepgramConfig()
	cfg.APIKey = config.Get("DEEPGRAM_API_KEY", cfg.APIKey)
	cfg.URL = config.Get("DEEPGRAM_URL", cfg.URL)
	cfg.Model = config.Get("DEEPGRAM_MODEL", cfg.Model)
	return cfg
}

// deepgramResponse represents a Deepgram WebSocket response.
type deepgramResponse struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	IsFinal bool `json:"is_final"`
}

// Deepgram transcribes recordings through Deepgram's streaming API.
type Deepgram struct {
	cfg    DeepgramConfig
	dialer *websocket.Dialer
}

// NewDeepgram creates a Deepgram transcriber.
func NewDeepgram(cfg DeepgramConfig) (*Deepgram, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepgram API key is required (set %sDEEPGRAM_API_KEY)", config.Prefix)
	}
	if cfg.URL == "" {
		cfg.URL = deepgramWSURL
	}
	return &Deepgram{cfg: cfg, dialer: websocket.DefaultDialer}, nil
}

// Transcribe streams data to Deepgram and joins the final transcripts.
func (d *Deepgram) Transcribe(ctx context.Context, data []byte, mimeType, language string) (string, error) {
	s, err := d.Open(ctx, language)
	if err != nil {
		return "", err
	}
	defer s.Close()

	// Collect results concurrently so the server never blocks on us.
	type collected struct {
		text string
		err  error
	}
	done := make(chan collected, 1)
	go func() {
		var parts []string
		for r := range s.Results() {
			if r.IsFinal && strings.TrimSpace(r.Text) != "" {
				parts = append(parts, strings.TrimSpace(r.Text))
			}
		}
		done <- collected{text: strings.Join(parts, " "), err: s.Err()}
	}()

	for off := 0; off < len(data); off += chunkSize {
		end := min(off+chunkSize, len(data))
		if err := s.Send(data[off:end]); err != nil {
			return "", fmt.Errorf("stream audio: %w", err)
		}
	}
	if err := s.Finish(); err != nil {
		return "", fmt.Errorf("finish stream: %w", err)
	}

	select {
	case c := <-done:
		if c.err != nil {
			return "", c.err
		}
		slog.Debug("deepgram transcript", "mime", mimeType, "bytes", len(data), "chars", len(c.text))
		return c.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Open starts a streaming session.
func (d *Deepgram) Open(ctx context.Context, language string) (*Stream, error) {
	q := url.Values{}
	q.Set("model", d.cfg.Model)
	q.Set("punctuate", fmt.Sprintf("%t", d.cfg.Punctuate))
	q.Set("smart_format", "true")
	if language != "" {
		q.Set("language", language)
	} else {
		q.Set("detect_language", "true")
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.cfg.APIKey)

	conn, _, err := d.dialer.DialContext(ctx, d.cfg.URL+"?"+q.Encode(), headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram: %w", err)
	}

	s := &Stream{
		conn:    conn,
		results: make(chan TranscriptResult, 100),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.readLoop()
	return s, nil
}

// Stream is one open Deepgram streaming session.
type Stream struct {
	conn      *websocket.Conn
	results   chan TranscriptResult
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	wg        sync.WaitGroup // Wait for readLoop to finish

	errMu sync.Mutex
	err   error
}

// Send writes one chunk of audio.
func (s *Stream) Send(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return fmt.Errorf("stream is closed")
	default:
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, audio)
}

// Finish tells Deepgram no more audio is coming. Remaining results are
// delivered and then the results channel closes.
func (s *Stream) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "CloseStream"}`))
}

// Results returns the channel for receiving transcription results. It is
// closed when the server ends the session or the stream is closed.
func (s *Stream) Results() <-chan TranscriptResult {
	return s.results
}

// Err returns the error that ended the session, if any.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close closes the connection and waits for the read loop.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
		s.wg.Wait()
	})
	return err
}

// readLoop reads responses from Deepgram and sends them to the results channel.
func (s *Stream) readLoop() {
	defer s.wg.Done()
	defer close(s.results)

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return
			}
			s.errMu.Lock()
			s.err = fmt.Errorf("read error: %w", err)
			s.errMu.Unlock()
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			slog.Warn("deepgram: failed to parse response", "error", err)
			continue
		}

		// Skip non-results messages
		if resp.Type != "Results" {
			continue
		}

		var result TranscriptResult
		if len(resp.Channel.Alternatives) > 0 {
			alt := resp.Channel.Alternatives[0]
			result.Text = alt.Transcript
			result.Confidence = alt.Confidence
		}
		result.IsFinal = resp.IsFinal

		select {
		case <-s.done:
			return
		case s.results <- result:
		}
	}
}
