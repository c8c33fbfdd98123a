package session

import (
	"time"

	"github.com/abhisek/cclprep/internal/audio"
	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/scoring"
)

// SegmentPhase represents where a segment is in the listen, record, submit
// cycle.
type SegmentPhase int

const (
	PhaseIdle             SegmentPhase = iota // Nothing in progress
	PhasePlayingReference                     // Reference clip is playing
	PhaseRecording                            // Microphone is capturing
	PhaseRecorded                             // A recording waits to be submitted
	PhaseSubmitting                           // Submission is with the scorer
	PhaseScored                               // Scorer returned a verdict
)

func (p SegmentPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlayingReference:
		return "playing-reference"
	case PhaseRecording:
		return "recording"
	case PhaseRecorded:
		return "recorded"
	case PhaseSubmitting:
		return "submitting"
	case PhaseScored:
		return "scored"
	}
	return "unknown"
}

// Attempt is the outcome of one submission of a segment.
type Attempt struct {
	RepeatCount int
	Score       *scoring.SegmentScore
	Err         error
	At          time.Time
}

// SegmentState holds everything known about one segment during a session.
// Segments are independent of each other; navigating away keeps the state.
type SegmentState struct {
	Segment dialogue.Segment
	Phase   SegmentPhase

	// Recording is the learner's current rendition. There is at most one;
	// a repeat discards it.
	Recording *audio.Blob

	// RecordingURL is the object URL of Recording, revoked whenever the
	// recording is discarded.
	RecordingURL string

	// RepeatCount counts discard-and-retry cycles on this segment.
	RepeatCount int

	// Score is the verdict on the current recording, nil until scored.
	Score *scoring.SegmentScore

	// Failed is set when the latest submission of the current recording
	// failed. The recording is kept for resubmission.
	Failed    bool
	LastError error

	// Attempts lists every resolved submission in order.
	Attempts []Attempt

	// token identifies the current recording attempt. A scorer reply
	// carrying a stale token is dropped.
	token uint64
}

// Submittable reports whether the segment holds a recording that can be
// sent to the scorer.
func (s *SegmentState) Submittable() bool {
	return s.Phase == PhaseRecorded
}

// SessionState is the in-memory state of one practice session over an
// ordered list of segments.
type SessionState struct {
	ID       string
	Dialogue dialogue.Dialogue
	Segments []*SegmentState

	// Current is the index of the segment on screen. It always stays within
	// [0, len(Segments)-1].
	Current int

	StartTime time.Time

	// Result is the aggregate verdict, set when the session completes.
	Result    *scoring.SessionResult
	Completed bool

	// Degraded is set when the session finished with unscored segments.
	Degraded bool

	urls *audio.ObjectURLs
}

// NewSessionState creates a session positioned on the first segment. urls
// is the registry that owns the object URLs of recordings.
func NewSessionState(id string, d dialogue.Dialogue, segs []dialogue.Segment, urls *audio.ObjectURLs, now time.Time) *SessionState {
	if urls == nil {
		urls = audio.NewObjectURLs()
	}
	states := make([]*SegmentState, len(segs))
	for i, seg := range segs {
		states[i] = &SegmentState{Segment: seg}
	}
	return &SessionState{
		ID:        id,
		Dialogue:  d,
		Segments:  states,
		StartTime: now,
		urls:      urls,
	}
}

// CurrentSegment returns the segment on screen.
func (s *SessionState) CurrentSegment() *SegmentState {
	return s.Segments[s.Current]
}

// Progress returns (Current+1)/N.
func (s *SessionState) Progress() float64 {
	if len(s.Segments) == 0 {
		return 0
	}
	return float64(s.Current+1) / float64(len(s.Segments))
}

// IsLast reports whether the current segment is the final one.
func (s *SessionState) IsLast() bool {
	return s.Current == len(s.Segments)-1
}

// MoveNext advances one segment. It reports false at the last segment.
func (s *SessionState) MoveNext() bool {
	if s.Current >= len(s.Segments)-1 {
		return false
	}
	s.Current++
	return true
}

// MovePrevious goes back one segment. It reports false at the first one.
func (s *SessionState) MovePrevious() bool {
	if s.Current <= 0 {
		return false
	}
	s.Current--
	return true
}

// StartPlayback moves an idle segment to PhasePlayingReference.
func (s *SessionState) StartPlayback(i int) error {
	seg := s.Segments[i]
	if seg.Phase != PhaseIdle && seg.Phase != PhasePlayingReference {
		return transitionError(seg, PhasePlayingReference)
	}
	seg.Phase = PhasePlayingReference
	return nil
}

// StopPlayback returns a playing segment to idle.
func (s *SessionState) StopPlayback(i int) bool {
	seg := s.Segments[i]
	if seg.Phase != PhasePlayingReference {
		return false
	}
	seg.Phase = PhaseIdle
	return true
}

// StartRecording moves a segment that is idle or has just finished its
// reference clip to PhaseRecording.
func (s *SessionState) StartRecording(i int) error {
	seg := s.Segments[i]
	if seg.Phase != PhaseIdle && seg.Phase != PhasePlayingReference {
		return transitionError(seg, PhaseRecording)
	}
	seg.Phase = PhaseRecording
	return nil
}

// AbortRecording drops an in-progress capture and returns to idle.
func (s *SessionState) AbortRecording(i int) bool {
	seg := s.Segments[i]
	if seg.Phase != PhaseRecording {
		return false
	}
	seg.Phase = PhaseIdle
	return true
}

// FinishRecording stores blob as the segment's only recording, registers
// its object URL, and starts a new attempt.
func (s *SessionState) FinishRecording(i int, blob *audio.Blob) error {
	seg := s.Segments[i]
	if seg.Phase != PhaseRecording {
		return transitionError(seg, PhaseRecorded)
	}
	s.discardRecording(seg)
	seg.Recording = blob
	seg.RecordingURL = s.urls.Create(blob)
	seg.Score = nil
	seg.Failed = false
	seg.LastError = nil
	seg.token++
	seg.Phase = PhaseRecorded
	return nil
}

// BeginSubmit marks the segment as submitting and returns the attempt token
// the scorer reply must carry.
func (s *SessionState) BeginSubmit(i int) (uint64, error) {
	seg := s.Segments[i]
	if seg.Phase != PhaseRecorded {
		return 0, transitionError(seg, PhaseSubmitting)
	}
	seg.Phase = PhaseSubmitting
	return seg.token, nil
}

// ResolveScore records a successful verdict. It reports false and changes
// nothing when the token is stale, which happens after a repeat or a new
// recording replaced the submitted one.
func (s *SessionState) ResolveScore(i int, token uint64, score *scoring.SegmentScore, now time.Time) bool {
	seg := s.Segments[i]
	if seg.token != token || seg.Phase != PhaseSubmitting {
		return false
	}
	seg.Score = score
	seg.Failed = false
	seg.LastError = nil
	seg.Phase = PhaseScored
	seg.Attempts = append(seg.Attempts, Attempt{RepeatCount: seg.RepeatCount, Score: score, At: now})
	return true
}

// ResolveFailure records a failed submission and returns the segment to
// PhaseRecorded with the recording intact. Stale tokens are ignored.
func (s *SessionState) ResolveFailure(i int, token uint64, err error, now time.Time) bool {
	seg := s.Segments[i]
	if seg.token != token || seg.Phase != PhaseSubmitting {
		return false
	}
	seg.Failed = true
	seg.LastError = err
	seg.Phase = PhaseRecorded
	seg.Attempts = append(seg.Attempts, Attempt{RepeatCount: seg.RepeatCount, Err: err, At: now})
	return true
}

// Repeat discards the segment's recording and score, revokes the recording
// URL, and bumps the repeat counter. An in-flight submission for the
// discarded recording is orphaned.
func (s *SessionState) Repeat(i int) error {
	seg := s.Segments[i]
	switch seg.Phase {
	case PhaseRecorded, PhaseSubmitting, PhaseScored:
	default:
		return transitionError(seg, PhaseIdle)
	}
	s.discardRecording(seg)
	seg.Score = nil
	seg.Failed = false
	seg.LastError = nil
	seg.RepeatCount++
	seg.token++
	seg.Phase = PhaseIdle
	return nil
}

func (s *SessionState) discardRecording(seg *SegmentState) {
	if seg.RecordingURL != "" {
		s.urls.Revoke(seg.RecordingURL)
	}
	seg.Recording = nil
	seg.RecordingURL = ""
}

// Release revokes every recording URL. The state must not be used after.
func (s *SessionState) Release() {
	for _, seg := range s.Segments {
		s.discardRecording(seg)
	}
}

// ScoredCount returns how many segments hold a verdict.
func (s *SessionState) ScoredCount() int {
	n := 0
	for _, seg := range s.Segments {
		if seg.Phase == PhaseScored {
			n++
		}
	}
	return n
}

// AllScored reports whether every segment holds a verdict.
func (s *SessionState) AllScored() bool {
	return s.ScoredCount() == len(s.Segments)
}

// Submitting returns how many segments wait on the scorer.
func (s *SessionState) Submitting() int {
	n := 0
	for _, seg := range s.Segments {
		if seg.Phase == PhaseSubmitting {
			n++
		}
	}
	return n
}

// AnyFailed reports whether a segment's latest submission failed and it has
// not been scored since.
func (s *SessionState) AnyFailed() bool {
	for _, seg := range s.Segments {
		if seg.Failed {
			return true
		}
	}
	return false
}

// AnswerIDs returns the answer ids of scored segments in segment order.
func (s *SessionState) AnswerIDs() []string {
	var ids []string
	for _, seg := range s.Segments {
		if seg.Phase == PhaseScored && seg.Score != nil && seg.Score.AnswerID != "" {
			ids = append(ids, seg.Score.AnswerID)
		}
	}
	return ids
}

// Elapsed returns the time since the session started.
func (s *SessionState) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}
