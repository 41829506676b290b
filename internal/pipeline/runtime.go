package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/voxtype/voxtype/internal/keyout"
	"github.com/voxtype/voxtype/internal/observe"
	"github.com/voxtype/voxtype/internal/segment"
	"github.com/voxtype/voxtype/internal/session"
	"github.com/voxtype/voxtype/pkg/audio"
	"github.com/voxtype/voxtype/pkg/stt"
)

// Queue capacities. The frame queue only needs enough slack to absorb
// scheduling jitter (a few frames, ~100ms); utterances and results queue up
// behind a slow transcriber without ever blocking capture.
const (
	frameQueueCap  = 8
	uttQueueCap    = 16
	resultQueueCap = 16
)

// Dispatcher is the recognition stage: it consumes the utterance queue and
// closes the result queue when the input drains. internal/recognize provides
// the production implementation.
type Dispatcher interface {
	Run(ctx context.Context, in *Queue[audio.Utterance], out *Queue[stt.Result]) error
}

// RuntimeConfig wires the four pipeline stages together.
type RuntimeConfig struct {
	Source     audio.Source
	Segmenter  *segment.Segmenter
	Dispatcher Dispatcher
	Typer      *keyout.Typer
	Tracker    *session.Tracker
	Metrics    *observe.Metrics
}

// Runtime runs the capture → segmentation → recognition → output pipeline,
// one goroutine per stage connected only by bounded queues. Stopping the
// context pushes close sentinels downstream stage by stage; the microphone
// stream is closed last, after every stage has drained.
type Runtime struct {
	cfg RuntimeConfig
	log *slog.Logger

	frames  *Queue[audio.Frame]
	utts    *Queue[audio.Utterance]
	results *Queue[stt.Result]

	closeOnce sync.Once
}

// NewRuntime assembles a pipeline from already-constructed stages.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if cfg.Source == nil || cfg.Segmenter == nil || cfg.Dispatcher == nil || cfg.Typer == nil {
		return nil, fmt.Errorf("pipeline: source, segmenter, dispatcher and typer are required")
	}
	return &Runtime{
		cfg:     cfg,
		log:     slog.With("component", "pipeline"),
		frames:  NewQueue[audio.Frame](frameQueueCap),
		utts:    NewQueue[audio.Utterance](uttQueueCap),
		results: NewQueue[stt.Result](resultQueueCap),
	}, nil
}

// Run starts capture and blocks until the context is cancelled or the audio
// source ends. All queued audio is drained through recognition and output
// before Run returns.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.cfg.Source.Start(ctx); err != nil {
		return fmt.Errorf("pipeline: start capture: %w", err)
	}
	defer r.closeSource()

	r.log.Info("pipeline running", "capture_rate", r.cfg.Source.ActualRate())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.captureStage(gctx) })
	g.Go(func() error { return r.segmentStage(gctx) })
	g.Go(func() error { return r.dispatchStage(gctx) })
	g.Go(func() error { return r.outputStage(gctx) })

	err := g.Wait()
	r.log.Info("pipeline stopped")
	return err
}

// captureStage forwards microphone frames into the frame queue. It never
// waits on downstream work beyond the queue's own slack.
func (r *Runtime) captureStage(ctx context.Context) error {
	defer r.frames.Close()

	for {
		frame, ok := r.cfg.Source.ReadFrame(ctx)
		if !ok {
			// Source drained or context cancelled; either way the
			// sentinel cascades downstream.
			return nil
		}
		if err := r.frames.Put(ctx, frame); err != nil {
			return nil
		}
	}
}

// segmentStage classifies frames and emits completed utterances.
func (r *Runtime) segmentStage(ctx context.Context) error {
	defer r.utts.Close()

	for {
		frame, ok := r.frames.Get(ctx)
		if !ok {
			return nil
		}

		_, utt := r.cfg.Segmenter.ProcessFrame(frame)
		if utt == nil {
			continue
		}

		r.log.Debug("utterance segmented", "duration", utt.Duration())
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.UtteranceDuration.Record(ctx, utt.Duration().Seconds())
		}
		if err := r.utts.Put(ctx, *utt); err != nil {
			return nil
		}
	}
}

// dispatchStage hands utterances to the recognizer. The dispatcher closes
// the result queue when the utterance queue drains.
func (r *Runtime) dispatchStage(ctx context.Context) error {
	return r.cfg.Dispatcher.Run(ctx, r.utts, r.results)
}

// outputStage types recognition results, one utterance at a time.
func (r *Runtime) outputStage(ctx context.Context) error {
	for {
		res, ok := r.results.Get(ctx)
		if !ok {
			return nil
		}

		if r.cfg.Tracker != nil {
			r.cfg.Tracker.RecordUtterance(res.Text, res.AudioDuration, res.Elapsed)
		}
		if err := r.cfg.Typer.HandleText(ctx, res.Text); err != nil {
			// Output failures must not stop capture or recognition.
			r.log.Warn("output failed for utterance", "error", err)
		}
	}
}

// ResetOutput clears the output stage's terminal error state after the
// operator restored the injector.
func (r *Runtime) ResetOutput() {
	r.cfg.Typer.Reset()
	r.log.Info("output stage reset")
}

// QueueDepths reports the current fill of each staging queue, for status
// reporting.
func (r *Runtime) QueueDepths() (frames, utterances, results int) {
	return r.frames.Len(), r.utts.Len(), r.results.Len()
}

func (r *Runtime) closeSource() {
	r.closeOnce.Do(func() {
		if err := r.cfg.Source.Close(); err != nil {
			r.log.Warn("closing audio source", "error", err)
		}
	})
}
