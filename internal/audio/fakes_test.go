package audio

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

type fakeSigner struct {
	err   error
	calls []string
}

func (s *fakeSigner) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	s.calls = append(s.calls, path)
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.example/" + path + "?token=abc", nil
}

// fakeDevice records calls and lets the test decide when a play ends.
type fakeDevice struct {
	mu      sync.Mutex
	loaded  string
	plays   int
	pauses  int
	playErr error
	current chan error
}

func (d *fakeDevice) Load(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = url
	return nil
}

func (d *fakeDevice) Play() (<-chan error, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playErr != nil {
		return nil, d.playErr
	}
	d.plays++
	d.current = make(chan error, 1)
	return d.current, nil
}

func (d *fakeDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	if d.current != nil {
		d.current <- ErrStopped
		d.current = nil
	}
	return nil
}

// finish ends the current play with err (nil for a natural end).
func (d *fakeDevice) finish(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current <- err
		d.current = nil
	}
}

// fakeMic hands out pipe-backed streams the test can write into.
type fakeMic struct {
	mu      sync.Mutex
	err     error
	opened  int
	last    *fakeStream
	lastCfg Constraints
}

func (m *fakeMic) Open(_ context.Context, c Constraints) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.opened++
	m.lastCfg = c
	pr, pw := io.Pipe()
	m.last = &fakeStream{r: pr, w: pw}
	return m.last, nil
}

func (m *fakeMic) stream() *fakeStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

type fakeStream struct {
	r      *io.PipeReader
	w      *io.PipeWriter
	mu     sync.Mutex
	closed bool
}

func (s *fakeStream) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *fakeStream) MIMEType() string           { return "audio/webm" }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.w.Close()
	return s.r.Close()
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var errBoom = errors.New("boom")
