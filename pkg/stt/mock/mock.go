// Package mock provides a scripted implementation of [stt.Transcriber] for
// unit tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voxtype/voxtype/pkg/stt"
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber returns scripted results in order. Set the exported fields
// before use; inspect the Call fields after.
type Transcriber struct {
	mu sync.Mutex

	// Results are returned in order, one per Transcribe call. After the
	// script is exhausted, the zero Result is returned.
	Results []stt.Result

	// Errs are returned in order alongside Results; a nil entry means the
	// corresponding call succeeds.
	Errs []error

	// Delay, when non-zero, makes each call sleep to simulate a slow model.
	Delay time.Duration

	// Calls records the sample counts of every Transcribe call, in order.
	Calls []int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	next int
}

// Transcribe returns the next scripted result.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, _ int) (stt.Result, error) {
	if t.Delay > 0 {
		select {
		case <-time.After(t.Delay):
		case <-ctx.Done():
			return stt.Result{}, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, len(samples))

	i := t.next
	t.next++

	var err error
	if i < len(t.Errs) {
		err = t.Errs[i]
	}
	if err != nil {
		return stt.Result{}, err
	}
	if i < len(t.Results) {
		return t.Results[i], nil
	}
	return stt.Result{Confidence: stt.NoConfidence}, nil
}

// Close records the call.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CallCountClose++
	return nil
}
