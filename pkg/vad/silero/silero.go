// Package silero implements vad.Classifier with the Silero neural voice
// activity model (ONNX).
//
// Silero consumes fixed 512-sample windows at 16 kHz, which rarely lines up
// with the pipeline's frame size, so the classifier buffers incoming samples
// and advances its speech/silence verdict one model window at a time. Between
// windows the previous verdict holds, keeping the per-frame contract of
// [vad.Classifier] intact.
package silero

import (
	"fmt"
	"sync"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/voxtype/voxtype/pkg/vad"
)

// windowSamples is the model's native window size at 16 kHz.
const windowSamples = 512

// Compile-time assertion that Classifier satisfies vad.Classifier.
var _ vad.Classifier = (*Classifier)(nil)

// Config holds the Silero classifier settings.
type Config struct {
	// ModelPath is the path to the silero_vad.onnx model file.
	ModelPath string

	// SampleRate must match the pipeline rate. Default 16000; the model
	// supports 8000 and 16000 only.
	SampleRate int

	// Aggressiveness (0–3) maps to the model's speech probability threshold
	// via [vad.AggressivenessThreshold]. Default 1.
	Aggressiveness int
}

// Classifier wraps a Silero stream detector behind the frame-level
// vad.Classifier contract. Not safe for concurrent use from multiple
// goroutines; the segmenter owns exactly one.
type Classifier struct {
	detector *speech.Detector

	mu       sync.Mutex
	pending  []float32
	speaking bool
}

// New loads the Silero model and creates a classifier.
func New(cfg Config) (*Classifier, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("silero: model path must not be empty")
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	threshold, err := vad.AggressivenessThreshold(cfg.Aggressiveness)
	if err != nil {
		return nil, err
	}

	detector, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  cfg.ModelPath,
		SampleRate: cfg.SampleRate,
		Threshold:  threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("silero: load model %q: %w", cfg.ModelPath, err)
	}
	return &Classifier{detector: detector}, nil
}

// IsSpeech buffers the frame and runs the model over every complete window it
// now covers. The verdict is sticky: it flips on speech-start/speech-end
// events and otherwise carries over from the previous window.
func (c *Classifier) IsSpeech(samples []float32, _ int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = append(c.pending, samples...)
	for len(c.pending) >= windowSamples {
		window := c.pending[:windowSamples]
		c.pending = c.pending[windowSamples:]

		event, err := c.detector.DetectStreamFrame(window)
		if err != nil {
			// The detector can desync on abrupt stream edits; reset and keep
			// the previous verdict rather than failing the frame.
			c.detector.Reset()
			return c.speaking, fmt.Errorf("silero: detect window: %w", err)
		}
		if event != nil {
			if event.IsStart {
				c.speaking = true
			}
			if event.IsEnd {
				c.speaking = false
			}
		}
	}
	return c.speaking, nil
}

// Reset clears buffered samples and the detector's internal stream state.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = c.pending[:0]
	c.speaking = false
	c.detector.Reset()
}

// Close releases the ONNX session.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detector.Destroy()
}
