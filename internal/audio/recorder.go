package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// Constraints are the capture settings requested from the microphone.
type Constraints struct {
	Channels         int
	SampleRate       int
	NoiseSuppression bool
	EchoCancellation bool
}

// DefaultConstraints returns mono capture with noise suppression and echo
// cancellation enabled.
func DefaultConstraints() Constraints {
	return Constraints{
		Channels:         1,
		SampleRate:       48000,
		NoiseSuppression: true,
		EchoCancellation: true,
	}
}

// Microphone opens capture streams.
type Microphone interface {
	// Open acquires the capture device. Failing to acquire it (no device,
	// permission denied) is reported as an error.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open capture. Close releases the device; after Close, Read
// returns an error.
type Stream interface {
	io.Reader
	MIMEType() string
	Close() error
}

// DefaultTimeslice is the interval at which captured audio is cut into
// chunks.
const DefaultTimeslice = 100 * time.Millisecond

// Recorder captures microphone audio into a single Blob. Only one capture
// may be active at a time.
type Recorder struct {
	mic         Microphone
	constraints Constraints
	timeslice   time.Duration
	now         func() time.Time

	mu      sync.Mutex
	stream  Stream
	closing bool
	chunks  [][]byte
	started time.Time
	done    chan struct{}
	readErr error
	onStop  func(*Blob)
}

// NewRecorder creates a Recorder for mic with the default constraints.
func NewRecorder(mic Microphone) *Recorder {
	return &Recorder{
		mic:         mic,
		constraints: DefaultConstraints(),
		timeslice:   DefaultTimeslice,
		now:         time.Now,
	}
}

// OnStop registers a callback that receives each finished blob.
func (r *Recorder) OnStop(fn func(*Blob)) {
	r.mu.Lock()
	r.onStop = fn
	r.mu.Unlock()
}

// Start opens the microphone and begins buffering chunks.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return ErrAlreadyRecording
	}

	s, err := r.mic.Open(ctx, r.constraints)
	if err != nil {
		return &MicrophoneAccessError{Err: err}
	}

	r.stream = s
	r.closing = false
	r.chunks = nil
	r.readErr = nil
	r.started = r.now()
	r.done = make(chan struct{})
	go r.collect(s, r.done)
	return nil
}

// Recording reports whether a capture is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Stop ends the capture, releases the microphone, and returns everything
// captured as one blob. Stop without an active capture returns (nil, nil).
func (r *Recorder) Stop() (*Blob, error) {
	r.mu.Lock()
	s := r.stream
	if s == nil {
		r.mu.Unlock()
		return nil, nil
	}
	r.closing = true
	done := r.done
	r.mu.Unlock()

	closeErr := s.Close()
	<-done

	r.mu.Lock()
	blob := &Blob{
		Data:     bytes.Join(r.chunks, nil),
		MIMEType: s.MIMEType(),
		Duration: r.now().Sub(r.started),
	}
	readErr := r.readErr
	r.stream = nil
	r.chunks = nil
	onStop := r.onStop
	r.mu.Unlock()

	if onStop != nil {
		onStop(blob)
	}

	if readErr != nil {
		return blob, &MicrophoneAccessError{Err: readErr}
	}
	if closeErr != nil {
		return blob, &MicrophoneAccessError{Err: closeErr}
	}
	return blob, nil
}

// collect reads the stream until it closes, cutting the data into chunks
// every timeslice.
func (r *Recorder) collect(s Stream, done chan struct{}) {
	defer close(done)

	data := make(chan []byte, 16)
	go func() {
		defer close(data)
		buf := make([]byte, 16*1024)
		for {
			n, err := s.Read(buf)
			if n > 0 {
				b := make([]byte, n)
				copy(b, buf[:n])
				data <- b
			}
			if err != nil {
				r.mu.Lock()
				if !r.closing && !errors.Is(err, io.EOF) {
					r.readErr = err
				}
				r.mu.Unlock()
				return
			}
		}
	}()

	ticker := time.NewTicker(r.timeslice)
	defer ticker.Stop()

	var pending []byte
	flush := func() {
		if len(pending) == 0 {
			return
		}
		r.mu.Lock()
		r.chunks = append(r.chunks, pending)
		r.mu.Unlock()
		pending = nil
	}

	for {
		select {
		case b, ok := <-data:
			if !ok {
				flush()
				return
			}
			pending = append(pending, b...)
		case <-ticker.C:
			flush()
		}
	}
}
