package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAudio is wrapped by AudioLoadError when a segment has no
	// reference recording.
	ErrNoAudio = errors.New("segment has no reference audio")

	// ErrNotLoaded is wrapped by AudioPlaybackError when Play is called
	// before Load.
	ErrNotLoaded = errors.New("no audio loaded")

	// ErrStopped is delivered on a device's done channel when playback was
	// paused or replaced before reaching the end.
	ErrStopped = errors.New("playback stopped")

	// ErrAlreadyRecording is returned by Recorder.Start while a capture is
	// active.
	ErrAlreadyRecording = errors.New("recording already in progress")
)

// AudioLoadError means the reference clip for a segment could not be
// fetched.
type AudioLoadError struct {
	SegmentID string
	Err       error
}

func (e *AudioLoadError) Error() string {
	return fmt.Sprintf("load audio for segment %s: %v", e.SegmentID, e.Err)
}

func (e *AudioLoadError) Unwrap() error { return e.Err }

// AudioPlaybackError means a loaded clip failed to play. The player is left
// stopped and Play may be retried.
type AudioPlaybackError struct {
	Err error
}

func (e *AudioPlaybackError) Error() string {
	return fmt.Sprintf("audio playback failed: %v", e.Err)
}

func (e *AudioPlaybackError) Unwrap() error { return e.Err }

// MicrophoneAccessError means the microphone could not be opened, either
// because permission was denied or no capture device is available.
type MicrophoneAccessError struct {
	Err error
}

func (e *MicrophoneAccessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("microphone unavailable: %v", e.Err)
	}
	return "microphone unavailable"
}

func (e *MicrophoneAccessError) Unwrap() error { return e.Err }
