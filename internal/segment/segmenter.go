// Package segment turns the continuous frame stream into discrete utterances.
//
// The segmenter tracks a single speaking/silent state machine: speech frames
// (as judged by the configured vad.Classifier) open an utterance and keep it
// alive, and a run of trailing silence frames closes it. Utterances shorter
// than the configured minimum are discarded silently — they are almost always
// coughs, key clicks, or chair squeaks.
package segment

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/voxtype/voxtype/pkg/audio"
	"github.com/voxtype/voxtype/pkg/vad"
)

// Config holds the segmentation parameters.
type Config struct {
	// SampleRate of incoming frames. Default 16000.
	SampleRate int

	// FrameDurationMs is the frame cadence. Default 30.
	FrameDurationMs int

	// SilenceDuration is how much trailing silence ends an utterance.
	// Default 1s.
	SilenceDuration time.Duration

	// MinUtterance is the minimum utterance length worth recognizing.
	// Shorter utterances are dropped. Default 300ms.
	MinUtterance time.Duration
}

func (c *Config) applyDefaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = audio.DefaultSampleRate
	}
	if c.FrameDurationMs <= 0 {
		c.FrameDurationMs = audio.DefaultFrameDurationMs
	}
	if c.SilenceDuration <= 0 {
		c.SilenceDuration = time.Second
	}
	if c.MinUtterance <= 0 {
		c.MinUtterance = 300 * time.Millisecond
	}
}

// Segmenter accumulates frames into utterances. Not safe for concurrent use;
// exactly one segmentation goroutine owns it, so finalization is atomic
// within ProcessFrame.
type Segmenter struct {
	classifier vad.Classifier
	cfg        Config
	log        *slog.Logger

	// silenceFrames is the trailing-silence budget in frames.
	silenceFrames int

	speaking     bool
	silenceCount int
	buf          []float32
	bufStart     time.Duration
}

// New creates a Segmenter using the given classification strategy.
func New(classifier vad.Classifier, cfg Config) (*Segmenter, error) {
	if classifier == nil {
		return nil, fmt.Errorf("segment: classifier must not be nil")
	}
	cfg.applyDefaults()

	silenceFrames := int(cfg.SilenceDuration.Milliseconds()) / cfg.FrameDurationMs
	if silenceFrames < 1 {
		silenceFrames = 1
	}

	return &Segmenter{
		classifier:    classifier,
		cfg:           cfg,
		log:           slog.With("component", "segmenter"),
		silenceFrames: silenceFrames,
	}, nil
}

// ProcessFrame classifies one frame and advances the utterance state machine.
// It returns the frame's speech verdict and, when a trailing-silence run just
// completed an utterance of sufficient length, the finalized utterance.
func (s *Segmenter) ProcessFrame(frame audio.Frame) (bool, *audio.Utterance) {
	isSpeech, err := s.classifier.IsSpeech(frame.Samples, frame.SampleRate)
	if err != nil {
		// Frame-level classifier hiccups never terminate the pipeline; the
		// classifier already reports its best verdict alongside the error.
		s.log.Warn("classifier error, using carried verdict", "error", err)
	}

	if len(s.buf) == 0 {
		s.bufStart = frame.Timestamp
	}
	s.buf = append(s.buf, frame.Samples...)

	switch {
	case isSpeech && !s.speaking:
		s.speaking = true
		s.silenceCount = 0
		s.log.Debug("speech started", "at", frame.Timestamp)

	case isSpeech && s.speaking:
		s.silenceCount = 0

	case !isSpeech && s.speaking:
		s.silenceCount++
		if s.silenceCount >= s.silenceFrames {
			return false, s.finalize()
		}

	default:
		// Background noise while idle. Cap the pre-roll so hours of silence
		// do not grow the buffer without bound; the retained tail still gives
		// the recognizer leading context at speech onset.
		maxIdle := s.silenceFrames * len(frame.Samples)
		if len(s.buf) > maxIdle {
			drop := len(s.buf) - maxIdle
			s.buf = s.buf[drop:]
			s.bufStart += time.Duration(drop) * time.Second / time.Duration(s.cfg.SampleRate)
		}
	}

	return isSpeech, nil
}

// finalize atomically closes the current utterance. Undersized utterances are
// dropped. Always resets the buffer and counters.
func (s *Segmenter) finalize() *audio.Utterance {
	s.speaking = false
	s.silenceCount = 0

	samples := s.buf
	start := s.bufStart
	s.buf = nil

	dur := time.Duration(len(samples)) * time.Second / time.Duration(s.cfg.SampleRate)
	if dur < s.cfg.MinUtterance {
		s.log.Debug("utterance below minimum, dropped",
			"duration", dur,
			"min", s.cfg.MinUtterance,
		)
		return nil
	}

	s.log.Debug("utterance finalized", "duration", dur, "start", start)
	return &audio.Utterance{
		Samples:    samples,
		SampleRate: s.cfg.SampleRate,
		Start:      start,
	}
}

// Reset clears the utterance state machine and the classifier's stream state.
func (s *Segmenter) Reset() {
	s.speaking = false
	s.silenceCount = 0
	s.buf = nil
	s.classifier.Reset()
}

// SilenceFrames reports the trailing-silence budget in frames.
func (s *Segmenter) SilenceFrames() int { return s.silenceFrames }
