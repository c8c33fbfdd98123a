// Package backend talks to the managed backend that owns the dialogue
// catalogue, the reference audio, and the scoring functions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abhisek/cclprep/internal/dialogue"
)

// maxErrorBody caps how much of a failed reply is kept in a StatusError.
const maxErrorBody = 2048

// Client reads dialogues over the REST API, signs storage URLs, and invokes
// backend functions. It implements dialogue.Source and audio.Signer.
//
// Calls carry no timeout of their own; cancel the context to abandon one.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Client. A nil httpClient uses a client without a
// timeout.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// Config returns the client's configuration.
func (c *Client) Config() Config { return c.cfg }

// ListDialogues returns the dialogues matching f, ordered by title.
func (c *Client) ListDialogues(ctx context.Context, f dialogue.Filter) ([]dialogue.Dialogue, error) {
	q := url.Values{}
	q.Set("select", "id,title,description,duration,difficulty,participants,language,domain:domains(id,title,color)")
	q.Set("order", "title.asc")
	if f.Difficulty != "" {
		q.Set("difficulty", "eq."+string(f.Difficulty))
	}
	if f.Language != "" {
		q.Set("language", "ilike."+f.Language)
	}
	if f.DomainID != "" {
		q.Set("domain_id", "eq."+f.DomainID)
	}

	var out []dialogue.Dialogue
	if err := c.getJSON(ctx, "list dialogues", "/rest/v1/dialogues?"+q.Encode(), dialogueListSchema, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDialogue returns one dialogue or dialogue.ErrNotFound.
func (c *Client) GetDialogue(ctx context.Context, id string) (*dialogue.Dialogue, error) {
	q := url.Values{}
	q.Set("select", "id,title,description,duration,difficulty,participants,language,domain:domains(id,title,color)")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	var out []dialogue.Dialogue
	if err := c.getJSON(ctx, "get dialogue", "/rest/v1/dialogues?"+q.Encode(), dialogueListSchema, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("dialogue %s: %w", id, dialogue.ErrNotFound)
	}
	return &out[0], nil
}

// GetDialogueSegments returns the dialogue's segments in segment_order.
func (c *Client) GetDialogueSegments(ctx context.Context, dialogueID string) ([]dialogue.Segment, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("dialogue_id", "eq."+dialogueID)
	q.Set("order", "segment_order.asc")

	var out []dialogue.Segment
	if err := c.getJSON(ctx, "get dialogue segments", "/rest/v1/dialogue_segments?"+q.Encode(), segmentListSchema, &out); err != nil {
		return nil, err
	}
	dialogue.SortSegments(out)
	return out, nil
}

// SignedURL asks storage for a time-limited URL to path in the audio
// bucket. Paths that are already absolute URLs are returned unchanged.
func (c *Client) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	if expiry <= 0 {
		expiry = c.cfg.SignedURLTTL
	}

	endpoint := fmt.Sprintf("/storage/v1/object/sign/%s/%s", url.PathEscape(c.cfg.Bucket), escapeObjectPath(path))
	body := map[string]any{"expiresIn": int(expiry / time.Second)}

	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := c.postJSON(ctx, "sign audio url", endpoint, body, signedURLSchema, &out); err != nil {
		return "", err
	}
	if strings.HasPrefix(out.SignedURL, "http") {
		return out.SignedURL, nil
	}
	return c.cfg.URL + "/storage/v1" + out.SignedURL, nil
}

// Download fetches the bytes behind a URL issued by SignedURL.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, statusError("download", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download: read body: %w", err)
	}
	return data, nil
}

// Invoke calls the backend function name with payload as its JSON body,
// validates the reply against schema, and decodes it into out.
func (c *Client) Invoke(ctx context.Context, name string, payload any, schema *Schema, out any) error {
	return c.postJSON(ctx, "invoke "+name, "/functions/v1/"+url.PathEscape(name), payload, schema, out)
}

func (c *Client) getJSON(ctx context.Context, op, path string, schema *Schema, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.do(op, req, schema, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload any, schema *Schema, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, schema, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, body)
	if err != nil {
		return nil, err
	}
	token := c.cfg.AccessToken
	if token == "" {
		token = c.cfg.AnonKey
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(op string, req *http.Request, schema *Schema, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	slog.Debug("backend request",
		"op", op,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return statusError(op, resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if err := schema.Validate(op, raw); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ResponseError{Op: op, Content: raw, Err: err}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// escapeObjectPath escapes each path element but keeps the separators.
func escapeObjectPath(p string) string {
	parts := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
