// Package portaudio implements audio.Source on top of PortAudio, capturing
// mono float frames from a system input device.
//
// The device is opened at the pipeline's target rate when possible. If an
// explicitly selected device refuses that rate, the stream is reopened at the
// device's reported default rate and every frame is resampled down to the
// target rate before delivery, so the rest of the pipeline never sees
// anything but fixed-size frames at the configured rate.
package portaudio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/voxtype/voxtype/pkg/audio"
)

// Compile-time assertion that Source satisfies audio.Source.
var _ audio.Source = (*Source)(nil)

// Source captures microphone audio through PortAudio.
type Source struct {
	cfg audio.SourceConfig

	stream     *portaudio.Stream
	readBuf    []float32
	deviceName string
	actualRate int
	resampling bool

	frames chan audio.Frame
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a Source. The device is not opened until Start.
func New(cfg audio.SourceConfig) *Source {
	cfg.ApplyDefaults()
	return &Source{
		cfg:        cfg,
		actualRate: cfg.SampleRate,
		// Enough slack to absorb scheduling jitter without ever dropping
		// frames: ~240ms at the default 30ms cadence.
		frames: make(chan audio.Frame, 8),
		done:   make(chan struct{}),
	}
}

// Start initialises PortAudio, opens the configured input device, and begins
// pushing frames. It returns an error wrapping [audio.ErrDeviceUnavailable]
// when no device can be opened at any rate.
func (s *Source) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("portaudio: context already cancelled: %w", err)
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: initialize: %w", err)
	}

	dev, explicit, err := s.selectDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}
	s.deviceName = dev.Name

	nativeLen := audio.FrameSamples(s.cfg.SampleRate, s.cfg.FrameDurationMs)
	stream, err := s.open(dev, s.cfg.SampleRate, nativeLen)
	if err != nil && explicit {
		// The selected device refused the target rate. Retry at its own
		// default rate and resample on the way out.
		nativeRate := int(dev.DefaultSampleRate)
		slog.Warn("device rejected target sample rate, retrying at native rate",
			"device", dev.Name,
			"target_rate", s.cfg.SampleRate,
			"native_rate", nativeRate,
			"error", err,
		)
		nativeLen = audio.FrameSamples(nativeRate, s.cfg.FrameDurationMs)
		stream, err = s.open(dev, nativeRate, nativeLen)
		if err == nil {
			s.actualRate = nativeRate
			s.resampling = true
		}
	}
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("portaudio: open device %q at %d Hz: %v: %w",
			dev.Name, s.cfg.SampleRate, err, audio.ErrDeviceUnavailable)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("portaudio: start stream on %q: %v: %w",
			dev.Name, err, audio.ErrDeviceUnavailable)
	}
	s.stream = stream

	slog.Info("audio capture started",
		"device", dev.Name,
		"rate", s.actualRate,
		"resampling", s.resampling,
		"frame_ms", s.cfg.FrameDurationMs,
	)

	s.wg.Add(1)
	go s.captureLoop(nativeLen)
	return nil
}

// selectDevice resolves the configured device name to a PortAudio input
// device. The second return value reports whether the device was explicitly
// selected (which enables the native-rate fallback).
func (s *Source) selectDevice() (*portaudio.DeviceInfo, bool, error) {
	if s.cfg.Device == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, false, fmt.Errorf("portaudio: no default input device: %v: %w",
				err, audio.ErrDeviceUnavailable)
		}
		return dev, false, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, true, fmt.Errorf("portaudio: list devices: %v: %w",
			err, audio.ErrDeviceUnavailable)
	}
	want := strings.ToLower(s.cfg.Device)
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), want) {
			return dev, true, nil
		}
	}
	return nil, true, fmt.Errorf("portaudio: input device %q not found: %w",
		s.cfg.Device, audio.ErrDeviceUnavailable)
}

// open opens a blocking-read mono input stream at the given rate.
func (s *Source) open(dev *portaudio.DeviceInfo, rate, frameLen int) (*portaudio.Stream, error) {
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(rate)
	params.FramesPerBuffer = frameLen

	buf := make([]float32, frameLen)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, err
	}
	s.readBuf = buf
	return stream, nil
}

// captureLoop reads native-rate frames from the device, resamples when
// needed, and hands fixed-size target-rate frames to ReadFrame.
func (s *Source) captureLoop(nativeLen int) {
	defer s.wg.Done()
	defer close(s.frames)

	targetLen := audio.FrameSamples(s.cfg.SampleRate, s.cfg.FrameDurationMs)
	frameDur := time.Duration(s.cfg.FrameDurationMs) * time.Millisecond

	for n := 0; ; n++ {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			select {
			case <-s.done:
				// Stop() aborts a pending Read; not an error during shutdown.
			default:
				slog.Error("audio capture read failed", "device", s.deviceName, "error", err)
			}
			return
		}

		samples := make([]float32, nativeLen)
		copy(samples, s.readBuf)
		if s.resampling {
			samples = audio.ResampleTo(samples, s.actualRate, s.cfg.SampleRate, targetLen)
		}

		frame := audio.Frame{
			Samples:    samples,
			SampleRate: s.cfg.SampleRate,
			Timestamp:  time.Duration(n) * frameDur,
		}
		select {
		case s.frames <- frame:
		case <-s.done:
			return
		}
	}
}

// ReadFrame blocks until the next frame is available, the source is closed,
// or ctx is cancelled.
func (s *Source) ReadFrame(ctx context.Context) (audio.Frame, bool) {
	select {
	case frame, ok := <-s.frames:
		return frame, ok
	case <-ctx.Done():
		return audio.Frame{}, false
	}
}

// ActualRate reports the rate the device is actually capturing at.
func (s *Source) ActualRate() int { return s.actualRate }

// Close stops the capture stream and releases PortAudio.
func (s *Source) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.stream != nil {
			err = s.stream.Stop()
			s.wg.Wait()
			if cerr := s.stream.Close(); err == nil {
				err = cerr
			}
			// captureLoop has closed the frame channel; release any frames
			// an abandoned consumer left buffered.
			audio.Drain(s.frames)
		}
		if terr := portaudio.Terminate(); err == nil {
			err = terr
		}
	})
	return err
}
