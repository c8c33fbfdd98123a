// Package stt turns recorded speech into text for the LLM scorer.
package stt

import "context"

// TranscriptResult represents a speech-to-text transcription result.
type TranscriptResult struct {
	Text       string  // The transcribed text
	Confidence float64 // Confidence score (0-1)
	IsFinal    bool    // Whether this is a final or interim result
}

// Transcriber converts one complete recording to text.
type Transcriber interface {
	// Transcribe returns the transcript of data, an encoded recording of
	// the given MIME type. language is a short code such as "hi"; empty
	// lets the service detect it.
	Transcribe(ctx context.Context, data []byte, mimeType, language string) (string, error)
}
