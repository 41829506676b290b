package vad

import "math"

// Compile-time assertion that Energy satisfies Classifier.
var _ Classifier = (*Energy)(nil)

// Energy is the threshold-based fallback classifier: a frame is speech when
// its RMS energy exceeds the threshold. It is stateless and always available.
type Energy struct {
	// Threshold is the RMS level above which a frame counts as speech.
	// Typical speech over a laptop microphone sits around 0.02–0.1.
	Threshold float64
}

// NewEnergy creates an energy classifier with the given threshold.
func NewEnergy(threshold float64) *Energy {
	return &Energy{Threshold: threshold}
}

// IsSpeech reports whether the frame's RMS energy exceeds the threshold.
func (e *Energy) IsSpeech(samples []float32, _ int) (bool, error) {
	return RMS(samples) > e.Threshold, nil
}

// Reset is a no-op; the energy classifier carries no state.
func (e *Energy) Reset() {}

// Close is a no-op.
func (e *Energy) Close() error { return nil }

// RMS computes the root-mean-square energy of normalized samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
