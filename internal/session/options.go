package session

import (
	"fmt"
	"strings"
	"time"
)

// FailurePolicy decides what the learner sees when scoring fails.
type FailurePolicy string

const (
	// FailureRetry shows a notice and keeps the recording for resubmission.
	FailureRetry FailurePolicy = "retry"

	// FailureSilent shows nothing, reports the error, and keeps the
	// recording.
	FailureSilent FailurePolicy = "silent"

	// FailureBlock behaves like FailureRetry and also blocks forward
	// navigation and Finish until the segment is scored.
	FailureBlock FailurePolicy = "block"
)

// ParseFailurePolicy parses a policy name.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FailureRetry, FailureSilent, FailureBlock:
		return p, nil
	case "":
		return FailureRetry, nil
	}
	return "", fmt.Errorf("unknown scoring failure policy %q (want retry, silent, or block)", s)
}

// DefaultMinRecording is the shortest recording accepted for submission.
const DefaultMinRecording = time.Second

// Options configures a Controller.
type Options struct {
	// StrictAdvance rejects Next while the current segment is unscored and
	// rejects Finish while any segment is unscored.
	StrictAdvance bool

	// AutoAdvance moves to the next segment as soon as a submission is sent.
	// Submitting the last segment finishes the session once every pending
	// submission has resolved.
	AutoAdvance bool

	OnScoringFailure FailurePolicy

	// MinRecording is the shortest accepted recording. Zero means
	// DefaultMinRecording.
	MinRecording time.Duration
}

// StrictOptions waits for each score before letting the learner move on.
func StrictOptions() Options {
	return Options{
		StrictAdvance:    true,
		OnScoringFailure: FailureRetry,
		MinRecording:     DefaultMinRecording,
	}
}

// RelaxedOptions lets the learner move freely while scores resolve in the
// background.
func RelaxedOptions() Options {
	return Options{
		AutoAdvance:      true,
		OnScoringFailure: FailureRetry,
		MinRecording:     DefaultMinRecording,
	}
}

// Mode names the navigation style for the practice log.
func (o Options) Mode() string {
	if o.StrictAdvance {
		return "strict"
	}
	return "relaxed"
}

func (o Options) withDefaults() Options {
	if o.MinRecording <= 0 {
		o.MinRecording = DefaultMinRecording
	}
	if o.OnScoringFailure == "" {
		o.OnScoringFailure = FailureRetry
	}
	return o
}
