package recognize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxtype/voxtype/internal/pipeline"
	"github.com/voxtype/voxtype/internal/resilience"
	"github.com/voxtype/voxtype/internal/session"
	"github.com/voxtype/voxtype/pkg/audio"
	"github.com/voxtype/voxtype/pkg/stt"
	sttmock "github.com/voxtype/voxtype/pkg/stt/mock"
)

func testUtterance(seconds float64) audio.Utterance {
	return audio.Utterance{
		Samples:    make([]float32, int(seconds*16000)),
		SampleRate: 16000,
	}
}

// runDispatcher feeds utterances through a dispatcher and collects results.
func runDispatcher(t *testing.T, d *Dispatcher, utterances []audio.Utterance) []stt.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := pipeline.NewQueue[audio.Utterance](len(utterances) + 1)
	out := pipeline.NewQueue[stt.Result](len(utterances) + 1)
	for _, u := range utterances {
		if err := in.Put(ctx, u); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	in.Close()

	if err := d.Run(ctx, in, out); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var results []stt.Result
	for {
		res, ok := out.Get(ctx)
		if !ok {
			return results
		}
		results = append(results, res)
	}
}

func TestDispatcherForwardsResultsInOrder(t *testing.T) {
	t.Parallel()

	tr := &sttmock.Transcriber{
		Results: []stt.Result{
			{Text: "first", Confidence: 0.9},
			{Text: "second", Confidence: 0.8},
		},
	}
	d := New(tr)

	results := runDispatcher(t, d, []audio.Utterance{testUtterance(1), testUtterance(1)})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Text != "first" || results[1].Text != "second" {
		t.Errorf("order broken: %q, %q", results[0].Text, results[1].Text)
	}
}

func TestDispatcherDropsFailedUtteranceAndContinues(t *testing.T) {
	t.Parallel()

	tr := &sttmock.Transcriber{
		Results: []stt.Result{{}, {Text: "after failure"}},
		Errs:    []error{stt.ErrTranscriptionFailed, nil},
	}
	tracker := session.NewTracker()
	d := New(tr,
		WithBreaker(resilience.NewBreaker(resilience.BreakerConfig{MaxFailures: 5})),
		WithStats(tracker),
	)

	results := runDispatcher(t, d, []audio.Utterance{testUtterance(1), testUtterance(1)})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Text != "after failure" {
		t.Errorf("Text = %q, want %q", results[0].Text, "after failure")
	}
	if err := d.Err(); err != nil {
		t.Errorf("one failure must not degrade the dispatcher: %v", err)
	}
	if got := tracker.Snapshot().FailedUtterances; got != 1 {
		t.Errorf("FailedUtterances = %d, want 1", got)
	}
}

func TestDispatcherSkipsEmptyTranscriptions(t *testing.T) {
	t.Parallel()

	tr := &sttmock.Transcriber{Results: []stt.Result{{Text: ""}}}
	d := New(tr)

	results := runDispatcher(t, d, []audio.Utterance{testUtterance(1)})
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}

func TestDispatcherRepeatedFailuresSurfaceToOperator(t *testing.T) {
	t.Parallel()

	errs := make([]error, 5)
	for i := range errs {
		errs[i] = stt.ErrTranscriptionFailed
	}
	tr := &sttmock.Transcriber{Errs: errs}
	d := New(tr, WithBreaker(resilience.NewBreaker(resilience.BreakerConfig{
		MaxFailures:  3,
		ResetTimeout: time.Hour,
	})))

	utterances := make([]audio.Utterance, 5)
	for i := range utterances {
		utterances[i] = testUtterance(1)
	}
	results := runDispatcher(t, d, utterances)
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
	if err := d.Err(); err == nil {
		t.Error("expected degraded state after repeated failures")
	}
	// Only the first three calls reach the transcriber; the breaker rejects
	// the rest without invoking it.
	if got := len(tr.Calls); got != 3 {
		t.Errorf("transcriber called %d times, want 3", got)
	}

	d.Breaker().Reset()
	if err := d.Err(); !errors.Is(err, nil) {
		t.Errorf("after reset Err = %v, want nil", err)
	}
}
