package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abhisek/cclprep/internal/audio"
	"github.com/abhisek/cclprep/internal/dialogue"
)

type fakeSource struct {
	segs map[string][]dialogue.Segment
	err  error
}

func (f *fakeSource) ListDialogues(context.Context, dialogue.Filter) ([]dialogue.Dialogue, error) {
	return nil, nil
}

func (f *fakeSource) GetDialogue(_ context.Context, id string) (*dialogue.Dialogue, error) {
	if _, ok := f.segs[id]; !ok {
		return nil, dialogue.ErrNotFound
	}
	return &dialogue.Dialogue{ID: id}, nil
}

func (f *fakeSource) GetDialogueSegments(_ context.Context, id string) ([]dialogue.Segment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]dialogue.Segment(nil), f.segs[id]...), nil
}

// fakePlayer stands in for the reference clip player. end simulates the
// clip reaching its end.
type fakePlayer struct {
	mu       sync.Mutex
	segment  string
	url      string
	playing  bool
	loads    int
	plays    int
	loadErr  error
	playErr  error
	onEnded  func()
	onError  func(error)
	lastURLs []string
}

func (p *fakePlayer) Load(_ context.Context, seg dialogue.Segment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return &audio.AudioLoadError{SegmentID: seg.ID, Err: p.loadErr}
	}
	if !seg.HasAudio() {
		return &audio.AudioLoadError{SegmentID: seg.ID, Err: audio.ErrNoAudio}
	}
	p.playing = false
	p.segment = seg.ID
	p.url = "https://storage.test/" + seg.AudioPath
	p.loads++
	return nil
}

func (p *fakePlayer) LoadURL(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.segment = ""
	p.url = url
	p.lastURLs = append(p.lastURLs, url)
	return nil
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return &audio.AudioPlaybackError{Err: p.playErr}
	}
	if p.url == "" {
		return &audio.AudioPlaybackError{Err: audio.ErrNotLoaded}
	}
	p.playing = true
	p.plays++
	return nil
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) SegmentID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.segment
}

func (p *fakePlayer) OnEnded(fn func()) {
	p.mu.Lock()
	p.onEnded = fn
	p.mu.Unlock()
}

func (p *fakePlayer) OnError(fn func(error)) {
	p.mu.Lock()
	p.onError = fn
	p.mu.Unlock()
}

func (p *fakePlayer) end() {
	p.mu.Lock()
	p.playing = false
	fn := p.onEnded
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (p *fakePlayer) fail(err error) {
	p.mu.Lock()
	p.playing = false
	fn := p.onError
	p.mu.Unlock()
	if fn != nil {
		fn(&audio.AudioPlaybackError{Err: err})
	}
}

type fakeRecorder struct {
	mu        sync.Mutex
	recording bool
	starts    int
	stops     int
	startErr  error
	duration  time.Duration
	data      []byte
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{duration: 3 * time.Second, data: []byte("OggS\x00\x02opus-learner-take")}
}

func (r *fakeRecorder) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return &audio.MicrophoneAccessError{Err: r.startErr}
	}
	if r.recording {
		return audio.ErrAlreadyRecording
	}
	r.recording = true
	r.starts++
	return nil
}

func (r *fakeRecorder) Stop() (*audio.Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil, nil
	}
	r.recording = false
	r.stops++
	return &audio.Blob{
		Data:     append([]byte(nil), r.data...),
		MIMEType: "audio/ogg; codecs=opus",
		Duration: r.duration,
	}, nil
}

func (r *fakeRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

type capturedReport struct {
	err  error
	tags map[string]string
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []capturedReport
}

func (f *fakeReporter) Report(_ context.Context, err error, tags map[string]string) {
	f.mu.Lock()
	f.reports = append(f.reports, capturedReport{err: err, tags: tags})
	f.mu.Unlock()
}

func (f *fakeReporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

// eventLog drains a controller's events until Close.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	done   chan struct{}
}

func drain(c *Controller) *eventLog {
	l := &eventLog{done: make(chan struct{})}
	go func() {
		defer close(l.done)
		for ev := range c.Events() {
			l.mu.Lock()
			l.events = append(l.events, ev)
			l.mu.Unlock()
		}
	}()
	return l
}

func (l *eventLog) ofKind(k EventKind) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

var errUpstream = errors.New("edge function returned 502")
