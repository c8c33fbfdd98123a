package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTransition is returned when an operation does not apply to
	// the segment's current phase.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrAdvanceBlocked is returned by Next when the current segment must
	// be scored before moving on.
	ErrAdvanceBlocked = errors.New("current segment must be scored before advancing")

	// ErrSessionIncomplete is returned by Finish when unscored segments
	// remain and the options forbid a degraded finish.
	ErrSessionIncomplete = errors.New("session has unscored segments")

	// ErrNoSession is returned by operations that need a started session.
	ErrNoSession = errors.New("no active session")

	// ErrSessionActive is returned by Start while a session is running.
	ErrSessionActive = errors.New("a session is already active")
)

// RecordingTooShortError rejects a recording below the minimum duration.
// The learner has to record again.
type RecordingTooShortError struct {
	Duration time.Duration
	Min      time.Duration
}

func (e *RecordingTooShortError) Error() string {
	return fmt.Sprintf("recording too short: %s (minimum %s)",
		e.Duration.Round(time.Millisecond), e.Min)
}

func transitionError(seg *SegmentState, to SegmentPhase) error {
	return fmt.Errorf("%w: segment %s is %s, cannot move to %s",
		ErrInvalidTransition, seg.Segment.ID, seg.Phase, to)
}
