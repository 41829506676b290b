package audio

import (
	"context"
	"errors"
)

// ErrDeviceUnavailable indicates that no capture device could be opened at
// any sample rate. It is fatal to pipeline start: segmentation must not begin
// without a working source.
var ErrDeviceUnavailable = errors.New("audio: capture device unavailable")

// Source is a microphone (or microphone-like) stream producing fixed-size
// frames at the pipeline rate. Implementations that cannot open the device at
// the requested rate fall back to the device's native rate and resample, so
// ReadFrame always yields frames at the configured target rate.
type Source interface {
	// Start opens the device and begins capturing. It returns an error
	// wrapping [ErrDeviceUnavailable] if no device can be opened at any rate.
	Start(ctx context.Context) error

	// ReadFrame blocks until the next frame is available. The second return
	// value is false once the source is closed and drained, or when ctx is
	// cancelled.
	ReadFrame(ctx context.Context) (Frame, bool)

	// ActualRate reports the rate the device is actually running at. When it
	// differs from the target rate, frames are resampled before delivery.
	ActualRate() int

	// Close stops capturing and releases the device.
	Close() error
}

// SourceConfig holds the parameters common to all capture sources.
type SourceConfig struct {
	// SampleRate is the target rate frames are delivered at. Default 16000.
	SampleRate int

	// FrameDurationMs is the frame cadence. Default 30.
	FrameDurationMs int

	// Device optionally selects an input device by (substring of) name. Empty
	// means the system default input.
	Device string
}

// ApplyDefaults fills zero-valued fields with the pipeline defaults.
func (c *SourceConfig) ApplyDefaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.FrameDurationMs <= 0 {
		c.FrameDurationMs = DefaultFrameDurationMs
	}
}
