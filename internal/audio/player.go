// Package audio wraps the two media resources a practice session owns: the
// output that plays reference clips and the microphone that captures the
// learner's rendition.
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/abhisek/cclprep/internal/dialogue"
)

// Signer issues time-limited URLs for stored audio objects.
type Signer interface {
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// Device is a single audio output.
type Device interface {
	// Load points the device at url and rewinds to the start.
	Load(ctx context.Context, url string) error

	// Play starts or resumes playback. The returned channel receives exactly
	// one value when this play stops: nil when the clip reached its end,
	// ErrStopped after Pause or Load, or the playback error.
	Play() (<-chan error, error)

	// Pause halts output and keeps the current position.
	Pause() error
}

// DefaultSignedURLExpiry is how long reference clip URLs stay valid.
const DefaultSignedURLExpiry = time.Hour

// Player plays one reference clip at a time and reports when it finishes.
// It never decides what happens after a clip ends; that is left to the
// OnEnded callback.
type Player struct {
	device Device
	signer Signer
	expiry time.Duration

	mu        sync.Mutex
	url       string
	segmentID string
	playing   bool
	gen       uint64
	onEnded   func()
	onError   func(error)
}

// NewPlayer creates a Player on device. signer may be nil when only
// LoadURL is used.
func NewPlayer(device Device, signer Signer, expiry time.Duration) *Player {
	if expiry <= 0 {
		expiry = DefaultSignedURLExpiry
	}
	return &Player{device: device, signer: signer, expiry: expiry}
}

// OnEnded registers the callback fired once each time a play reaches the
// end of the clip.
func (p *Player) OnEnded(fn func()) {
	p.mu.Lock()
	p.onEnded = fn
	p.mu.Unlock()
}

// OnError registers the callback fired when playback fails after it started.
// The error is an *AudioPlaybackError.
func (p *Player) OnError(fn func(error)) {
	p.mu.Lock()
	p.onError = fn
	p.mu.Unlock()
}

// Load fetches a signed URL for the segment's reference clip and loads it.
func (p *Player) Load(ctx context.Context, seg dialogue.Segment) error {
	if !seg.HasAudio() {
		return &AudioLoadError{SegmentID: seg.ID, Err: ErrNoAudio}
	}
	if p.signer == nil {
		return &AudioLoadError{SegmentID: seg.ID, Err: ErrNotLoaded}
	}
	url, err := p.signer.SignedURL(ctx, seg.AudioPath, p.expiry)
	if err != nil {
		return &AudioLoadError{SegmentID: seg.ID, Err: err}
	}
	if err := p.load(ctx, url, seg.ID); err != nil {
		return &AudioLoadError{SegmentID: seg.ID, Err: err}
	}
	return nil
}

// LoadURL loads an already-resolved URL, such as an object URL for the
// learner's own recording.
func (p *Player) LoadURL(ctx context.Context, url string) error {
	if err := p.load(ctx, url, ""); err != nil {
		return &AudioLoadError{Err: err}
	}
	return nil
}

func (p *Player) load(ctx context.Context, url, segmentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	if err := p.device.Load(ctx, url); err != nil {
		p.url = ""
		p.segmentID = ""
		return err
	}
	p.url = url
	p.segmentID = segmentID
	return nil
}

// Play starts playback from the current position. A play already in
// progress is paused first.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.url == "" {
		return &AudioPlaybackError{Err: ErrNotLoaded}
	}
	p.stopLocked()

	done, err := p.device.Play()
	if err != nil {
		return &AudioPlaybackError{Err: err}
	}
	p.gen++
	p.playing = true
	go p.wait(p.gen, done)
	return nil
}

// Pause pauses without rewinding. Pausing a stopped player does nothing.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Playing reports whether a clip is currently playing.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// SegmentID returns the segment whose clip is loaded, if any.
func (p *Player) SegmentID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.segmentID
}

func (p *Player) stopLocked() {
	if !p.playing {
		return
	}
	p.gen++
	p.playing = false
	_ = p.device.Pause()
}

func (p *Player) wait(gen uint64, done <-chan error) {
	err := <-done

	p.mu.Lock()
	if gen != p.gen {
		// Paused or superseded; the stop was initiated here.
		p.mu.Unlock()
		return
	}
	p.playing = false
	onEnded, onError := p.onEnded, p.onError
	p.mu.Unlock()

	if err != nil {
		if onError != nil {
			onError(&AudioPlaybackError{Err: err})
		}
		return
	}
	if onEnded != nil {
		onEnded()
	}
}
