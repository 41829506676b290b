// Package mock provides an in-memory implementation of [audio.Source] for use
// in unit tests.
//
// The mock is safe for concurrent use. Queue frames with [Source.Push] (or
// pre-load the Frames field), then drive the pipeline exactly as with a real
// device; Close delivers end-of-stream to the consumer.
package mock

import (
	"context"
	"sync"

	"github.com/voxtype/voxtype/pkg/audio"
)

// Compile-time assertion that Source satisfies audio.Source.
var _ audio.Source = (*Source)(nil)

// Source is a scripted capture source. Set the exported fields before use;
// inspect the Call* fields after.
type Source struct {
	mu sync.Mutex

	// Frames are delivered in order by ReadFrame before any pushed frames.
	Frames []audio.Frame

	// StartError is returned by Start. Use audio.ErrDeviceUnavailable (wrapped
	// or bare) to simulate a missing device.
	StartError error

	// EndAfterFrames ends the stream once the pre-set Frames are delivered,
	// instead of blocking for pushed frames. Useful for fixed-script pipeline
	// tests.
	EndAfterFrames bool

	// Rate is returned by ActualRate. Defaults to audio.DefaultSampleRate.
	Rate int

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	ch     chan audio.Frame
	closed bool
}

// Start loads any pre-set Frames into the delivery queue.
func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStart++
	if s.StartError != nil {
		return s.StartError
	}
	s.ensureChannel()
	for _, f := range s.Frames {
		s.ch <- f
	}
	if s.EndAfterFrames && !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// Push queues an additional frame for delivery. Panics if called after Close.
func (s *Source) Push(f audio.Frame) {
	s.mu.Lock()
	s.ensureChannel()
	ch := s.ch
	s.mu.Unlock()
	ch <- f
}

// ReadFrame delivers the next queued frame, blocking until one is pushed, the
// source is closed, or ctx is cancelled.
func (s *Source) ReadFrame(ctx context.Context) (audio.Frame, bool) {
	s.mu.Lock()
	s.ensureChannel()
	ch := s.ch
	s.mu.Unlock()

	select {
	case f, ok := <-ch:
		return f, ok
	case <-ctx.Done():
		return audio.Frame{}, false
	}
}

// ActualRate returns Rate, defaulting to audio.DefaultSampleRate.
func (s *Source) ActualRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Rate > 0 {
		return s.Rate
	}
	return audio.DefaultSampleRate
}

// Close ends the stream; pending frames are still delivered first.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if !s.closed {
		s.ensureChannel()
		s.closed = true
		close(s.ch)
	}
	return nil
}

// ensureChannel lazily allocates the delivery channel. Must be called with
// s.mu held.
func (s *Source) ensureChannel() {
	if s.ch == nil {
		s.ch = make(chan audio.Frame, 1024)
	}
}
