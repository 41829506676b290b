// Package audio defines the audio frame type, capture source contract, and
// sample-rate conversion helpers shared by every pipeline stage.
package audio

import "time"

// DefaultSampleRate is the fixed rate the pipeline operates at. Recognizers
// consume 16 kHz mono float samples, so capture sources that cannot open at
// this rate must resample before handing frames downstream.
const DefaultSampleRate = 16000

// DefaultFrameDurationMs is the capture cadence in milliseconds. At 16 kHz
// this yields 480-sample frames.
const DefaultFrameDurationMs = 30

// Frame represents a single fixed-size frame of captured audio flowing
// through the pipeline. Frames are created once per capture callback,
// consumed once by the segmenter, then discarded.
type Frame struct {
	// Samples holds normalized mono samples in the range [-1, 1].
	Samples []float32

	// SampleRate in Hz the samples are expressed at after any resampling.
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Utterance is one contiguous speech region plus its trailing silence tail,
// the unit handed to recognition. Built incrementally by the segmenter while
// speech is active and finalized atomically when the trailing silence budget
// is exhausted.
type Utterance struct {
	// Samples holds normalized mono samples at SampleRate.
	Samples []float32

	// SampleRate in Hz.
	SampleRate int

	// Start marks when the utterance began, relative to stream start.
	Start time.Duration
}

// Duration returns the wall-clock length of the utterance.
func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(u.Samples)) * time.Second / time.Duration(u.SampleRate)
}

// FrameSamples returns the number of samples per frame for the given rate and
// frame duration.
func FrameSamples(sampleRate, frameDurationMs int) int {
	return sampleRate * frameDurationMs / 1000
}

// Duration returns the wall-clock length of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}
