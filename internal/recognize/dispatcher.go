// Package recognize pulls finalized utterances off the staging queue, invokes
// the external transcriber, and forwards results to the output stage in
// utterance order.
//
// Transcription failure is recoverable: the utterance is dropped, the failure
// is logged and counted, and the pipeline continues. The breaker turns a
// failure streak into an operator-visible degraded state and stops queueing
// work behind a recognizer that is clearly down.
package recognize

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/voxtype/voxtype/internal/observe"
	"github.com/voxtype/voxtype/internal/pipeline"
	"github.com/voxtype/voxtype/internal/resilience"
	"github.com/voxtype/voxtype/internal/session"
	"github.com/voxtype/voxtype/pkg/audio"
	"github.com/voxtype/voxtype/pkg/stt"
)

var _ pipeline.Dispatcher = (*Dispatcher)(nil)

// Dispatcher runs the recognition stage.
type Dispatcher struct {
	transcriber stt.Transcriber
	breaker     *resilience.Breaker
	metrics     *observe.Metrics
	tracker     *session.Tracker
	log         *slog.Logger
}

// Option is a functional option for [New].
type Option func(*Dispatcher)

// WithBreaker replaces the default breaker (useful to tune thresholds or
// share the instance with health checks).
func WithBreaker(b *resilience.Breaker) Option {
	return func(d *Dispatcher) { d.breaker = b }
}

// WithMetrics attaches metric instruments. Without it, nothing is recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithStats attaches the session tracker so rejected and failed utterances
// show up in /statusz.
func WithStats(tr *session.Tracker) Option {
	return func(d *Dispatcher) { d.tracker = tr }
}

// New creates a Dispatcher around the given transcriber.
func New(transcriber stt.Transcriber, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transcriber: transcriber,
		log:         slog.With("component", "recognize"),
	}
	for _, o := range opts {
		o(d)
	}
	if d.breaker == nil {
		d.breaker = resilience.NewBreaker(resilience.BreakerConfig{Name: "transcriber"})
	}
	return d
}

// Breaker exposes the guarding breaker for health checks and manual reset.
func (d *Dispatcher) Breaker() *resilience.Breaker { return d.breaker }

// Run consumes utterances from in until it closes, then closes out. Results
// are forwarded strictly in utterance order; the transcriber is never called
// concurrently.
func (d *Dispatcher) Run(ctx context.Context, in *pipeline.Queue[audio.Utterance], out *pipeline.Queue[stt.Result]) error {
	defer out.Close()

	for {
		utt, ok := in.Get(ctx)
		if !ok {
			return nil
		}

		res, err := d.transcribe(ctx, utt)
		if err != nil {
			if errors.Is(err, resilience.ErrOpen) {
				d.log.Warn("recognizer degraded, utterance rejected",
					"audio_duration", utt.Duration(),
					"consecutive_failures", d.breaker.ConsecutiveFailures(),
				)
				d.record(ctx, "rejected", utt)
				d.recordFailure()
				continue
			}
			// Recoverable: drop this utterance, keep the pipeline alive.
			d.log.Error("transcription failed, utterance dropped",
				"audio_duration", utt.Duration(),
				"error", err,
			)
			d.record(ctx, "failed", utt)
			d.recordFailure()
			continue
		}

		if res.Text == "" {
			d.log.Debug("empty transcription, skipped", "audio_duration", utt.Duration())
			d.record(ctx, "empty", utt)
			continue
		}

		d.log.Debug("utterance transcribed",
			"text_len", len(res.Text),
			"audio_duration", utt.Duration(),
			"elapsed", res.Elapsed,
		)
		d.record(ctx, "transcribed", utt)
		if d.metrics != nil {
			d.metrics.TranscriptionDuration.Record(ctx, res.Elapsed.Seconds())
		}

		if err := out.Put(ctx, res); err != nil {
			return nil
		}
	}
}

// transcribe invokes the transcriber through the breaker.
func (d *Dispatcher) transcribe(ctx context.Context, utt audio.Utterance) (stt.Result, error) {
	var res stt.Result
	err := d.breaker.Execute(func() error {
		start := time.Now()
		var terr error
		res, terr = d.transcriber.Transcribe(ctx, utt.Samples, utt.SampleRate)
		if terr == nil && res.Elapsed == 0 {
			res.Elapsed = time.Since(start)
		}
		return terr
	})
	return res, err
}

// Err reports the operator-visible degraded state for readiness checks.
func (d *Dispatcher) Err() error {
	if st := d.breaker.State(); st == resilience.StateOpen {
		return errors.New("recognizer breaker is open after repeated transcription failures")
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, status string, utt audio.Utterance) {
	if d.metrics != nil {
		d.metrics.RecordUtterance(ctx, status, utt.Duration().Seconds())
	}
}

func (d *Dispatcher) recordFailure() {
	if d.tracker != nil {
		d.tracker.RecordFailure()
	}
}
