// Package vad defines the frame-level voice activity classification strategy
// used by the segmenter.
//
// Two interchangeable strategies exist: an energy threshold (always
// available, no external model) and a neural frame classifier backed by
// Silero. The strategy is selected once at construction; the segmenter never
// re-detects capabilities per call.
package vad

import "fmt"

// Strategy names a classification strategy.
type Strategy string

const (
	// StrategyEnergy classifies frames by RMS energy against a threshold.
	StrategyEnergy Strategy = "energy"

	// StrategyClassifier classifies frames with the Silero neural model.
	StrategyClassifier Strategy = "classifier"
)

// IsValid reports whether s is a recognised strategy.
func (s Strategy) IsValid() bool {
	return s == StrategyEnergy || s == StrategyClassifier
}

// Classifier decides per frame whether it contains speech.
type Classifier interface {
	// IsSpeech classifies one frame of normalized mono samples.
	IsSpeech(samples []float32, sampleRate int) (bool, error)

	// Reset clears any internal classifier state between utterance streams.
	Reset()

	// Close releases classifier resources.
	Close() error
}

// AggressivenessThreshold maps a 0–3 aggressiveness level to a speech
// probability threshold for classifier-based strategies. Higher
// aggressiveness means more frames are classified as silence.
func AggressivenessThreshold(level int) (float32, error) {
	switch level {
	case 0:
		return 0.3, nil
	case 1:
		return 0.5, nil
	case 2:
		return 0.7, nil
	case 3:
		return 0.85, nil
	}
	return 0, fmt.Errorf("vad: aggressiveness %d out of range [0, 3]", level)
}
