// Package stt defines the transcription contract between the pipeline and
// external speech recognizers.
//
// The pipeline treats recognizers as slow, fallible collaborators: a call may
// take seconds and may fail under resource pressure. Failures are recoverable
// at the utterance level; the dispatcher decides when repeated failures need
// operator attention.
package stt

import (
	"context"
	"errors"
	"time"
)

// NoConfidence marks a [Result] whose recognizer did not report a confidence
// score.
const NoConfidence = -1.0

// ErrTranscriptionFailed wraps recognizer-side failures. The pipeline drops
// the affected utterance and continues.
var ErrTranscriptionFailed = errors.New("stt: transcription failed")

// Result is the outcome of transcribing one utterance. Immutable after
// creation; ownership passes to the detection stage and is then discarded.
type Result struct {
	// Text is the recognized text, possibly empty.
	Text string

	// Confidence is the recognizer's overall confidence in [0, 1], or
	// [NoConfidence] when the recognizer does not report one.
	Confidence float64

	// AudioDuration is the length of the utterance that was transcribed.
	AudioDuration time.Duration

	// Elapsed is how long the recognizer took.
	Elapsed time.Duration
}

// Transcriber converts one utterance of normalized mono float samples into
// text. Implementations must accept samples at the pipeline's fixed rate
// (16 kHz) and be safe for sequential reuse; the dispatcher serializes calls.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (Result, error)
	Close() error
}
