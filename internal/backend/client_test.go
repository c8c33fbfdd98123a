package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cclprep/internal/dialogue"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.AnonKey = "anon"
	cfg.AccessToken = "user-token"
	c, err := NewClient(cfg, srv.Client())
	require.NoError(t, err)
	return c
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.URL = "" }, true},
		{"bad scheme", func(c *Config) { c.URL = "ftp://x" }, true},
		{"missing key", func(c *Config) { c.AnonKey = "" }, true},
		{"missing bucket", func(c *Config) { c.Bucket = "" }, true},
		{"zero ttl", func(c *Config) { c.SignedURLTTL = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.URL = "https://proj.supabase.co"
			cfg.AnonKey = "k"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CCLPREP_SUPABASE_URL", "https://proj.supabase.co/")
	t.Setenv("CCLPREP_SUPABASE_ANON_KEY", "anon")
	t.Setenv("CCLPREP_SIGNED_URL_TTL", "600")

	cfg := ConfigFromEnv()
	assert.Equal(t, "https://proj.supabase.co", cfg.URL)
	assert.Equal(t, "anon", cfg.AnonKey)
	assert.Equal(t, 10*time.Minute, cfg.SignedURLTTL)
	assert.Equal(t, "dialogue-audio", cfg.Bucket)
}

func TestGetDialogueSegmentsSortsAndAuthenticates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/dialogue_segments", r.URL.Path)
		assert.Equal(t, "eq.d1", r.URL.Query().Get("dialogue_id"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		io.WriteString(w, `[
			{"id":"s2","dialogue_id":"d1","segment_order":2,"text_content":"second","audio_url":null},
			{"id":"s1","dialogue_id":"d1","segment_order":1,"text_content":"first","audio_url":"d1/s1.mp3","start_time":0.5}
		]`)
	})

	segs, err := c.GetDialogueSegments(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "s1", segs[0].ID)
	assert.Equal(t, "d1/s1.mp3", segs[0].AudioPath)
	require.NotNil(t, segs[0].StartTime)
	assert.Equal(t, 0.5, *segs[0].StartTime)
	assert.False(t, segs[1].HasAudio())
}

func TestGetDialogueSegmentsRejectsBadShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"segments":[]}`)
	})

	_, err := c.GetDialogueSegments(context.Background(), "d1")
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "get dialogue segments", respErr.Op)
}

func TestListDialoguesFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.Advanced", r.URL.Query().Get("difficulty"))
		io.WriteString(w, `[{"id":"d1","title":"At the clinic","difficulty":"Advanced",
			"domain":{"id":"h","title":"Health","color":"#f00"},"language":"Hindi"}]`)
	})

	ds, err := c.ListDialogues(context.Background(), dialogue.Filter{Difficulty: dialogue.Advanced})
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "Health", ds[0].Domain.Title)
	assert.Equal(t, dialogue.Advanced, ds[0].Difficulty)
}

func TestGetDialogueNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})

	_, err := c.GetDialogue(context.Background(), "missing")
	assert.ErrorIs(t, err, dialogue.ErrNotFound)
}

func TestSignedURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/sign/dialogue-audio/d1/seg 1.mp3", r.URL.Path)
		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 300, body["expiresIn"])
		io.WriteString(w, `{"signedURL":"/object/sign/dialogue-audio/d1/seg%201.mp3?token=t"}`)
	})

	got, err := c.SignedURL(context.Background(), "d1/seg 1.mp3", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, c.cfg.URL+"/storage/v1/object/sign/dialogue-audio/d1/seg%201.mp3?token=t", got)
}

func TestSignedURLPassesAbsoluteURLs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	got, err := c.SignedURL(context.Background(), "https://cdn.example/a.mp3", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.mp3", got)
}

func TestInvokeStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/score", r.URL.Path)
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	})

	err := c.Invoke(context.Background(), "score", map[string]string{"a": "b"}, nil, nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, "upstream down", statusErr.Body)
	assert.True(t, statusErr.Temporary())
}

func TestDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{1, 2, 3})
	})

	data, err := c.Download(context.Background(), c.cfg.URL+"/storage/v1/object/sign/x")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestCallsHonourContext(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetDialogueSegments(ctx, "d1")
	assert.ErrorIs(t, err, context.Canceled)
}
