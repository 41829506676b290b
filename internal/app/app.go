// Package app wires all voxtype subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the dictation pipeline, and Shutdown tears
// everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSource, WithTranscriber, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/voxtype/voxtype/internal/command"
	"github.com/voxtype/voxtype/internal/config"
	"github.com/voxtype/voxtype/internal/health"
	"github.com/voxtype/voxtype/internal/keyout"
	keyoutmock "github.com/voxtype/voxtype/internal/keyout/mock"
	"github.com/voxtype/voxtype/internal/observe"
	"github.com/voxtype/voxtype/internal/pipeline"
	"github.com/voxtype/voxtype/internal/recognize"
	"github.com/voxtype/voxtype/internal/resilience"
	"github.com/voxtype/voxtype/internal/segment"
	"github.com/voxtype/voxtype/internal/session"
	"github.com/voxtype/voxtype/pkg/audio"
	"github.com/voxtype/voxtype/pkg/audio/portaudio"
	"github.com/voxtype/voxtype/pkg/stt"
	"github.com/voxtype/voxtype/pkg/stt/execstt"
	sttmock "github.com/voxtype/voxtype/pkg/stt/mock"
	sttwhisper "github.com/voxtype/voxtype/pkg/stt/whisper"
	"github.com/voxtype/voxtype/pkg/vad"
	"github.com/voxtype/voxtype/pkg/vad/silero"
)

// App owns all subsystem lifetimes and orchestrates the dictation pipeline.
type App struct {
	cfg *config.Config

	// External surfaces — injectable for tests, built from config otherwise.
	source      audio.Source
	classifier  vad.Classifier
	transcriber stt.Transcriber
	injector    keyout.Injector

	// Subsystems — initialised in New, torn down in Shutdown.
	registry   *command.Registry
	watcher    *command.Watcher
	detector   *command.Detector
	segmenter  *segment.Segmenter
	dispatcher *recognize.Dispatcher
	typer      *keyout.Typer
	tracker    *session.Tracker
	metrics    *observe.Metrics
	runtime    *pipeline.Runtime
	httpSrv    *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSource injects an audio source instead of opening a capture device.
func WithSource(s audio.Source) Option {
	return func(a *App) { a.source = s }
}

// WithClassifier injects a speech classifier instead of building one from
// the VAD config.
func WithClassifier(c vad.Classifier) Option {
	return func(a *App) { a.classifier = c }
}

// WithTranscriber injects a transcriber instead of building the configured
// recognizer backend.
func WithTranscriber(t stt.Transcriber) Option {
	return func(a *App) { a.transcriber = t }
}

// WithInjector injects a key injector instead of building the configured
// backend.
func WithInjector(i keyout.Injector) Option {
	return func(a *App) { a.injector = i }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any external surface.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		tracker: session.NewTracker(),
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Command registry + hot reload ─────────────────────────────────
	if err := a.initCommands(); err != nil {
		return nil, fmt.Errorf("app: init commands: %w", err)
	}

	// ── 2. Wake-word detector ────────────────────────────────────────────
	if err := a.initDetector(); err != nil {
		return nil, fmt.Errorf("app: init detector: %w", err)
	}

	// ── 3. Speech classifier + segmenter ─────────────────────────────────
	if err := a.initSegmenter(); err != nil {
		return nil, fmt.Errorf("app: init segmenter: %w", err)
	}

	// ── 4. Recognizer + dispatcher ───────────────────────────────────────
	if err := a.initRecognizer(); err != nil {
		return nil, fmt.Errorf("app: init recognizer: %w", err)
	}

	// ── 5. Output stage ──────────────────────────────────────────────────
	if err := a.initOutput(); err != nil {
		return nil, fmt.Errorf("app: init output: %w", err)
	}

	// ── 6. Capture source ────────────────────────────────────────────────
	a.initSource()

	// ── 7. Pipeline runtime ──────────────────────────────────────────────
	rt, err := pipeline.NewRuntime(pipeline.RuntimeConfig{
		Source:     a.source,
		Segmenter:  a.segmenter,
		Dispatcher: a.dispatcher,
		Typer:      a.typer,
		Tracker:    a.tracker,
		Metrics:    a.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("app: assemble pipeline: %w", err)
	}
	a.runtime = rt

	// ── 8. Introspection HTTP server ─────────────────────────────────────
	a.initHTTP()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initCommands loads the command definitions and starts the file watcher
// when a definitions file with a poll interval is configured.
func (a *App) initCommands() error {
	reg, err := command.LoadFile(a.cfg.Commands.File)
	if err != nil {
		return err
	}
	a.registry = reg

	if a.cfg.Commands.File != "" && a.cfg.Commands.PollInterval() > 0 {
		w, err := command.NewWatcher(a.cfg.Commands.File, reg,
			command.WithInterval(a.cfg.Commands.PollInterval()),
		)
		if err != nil {
			return fmt.Errorf("watch %q: %w", a.cfg.Commands.File, err)
		}
		a.watcher = w
		a.closers = append(a.closers, func() error {
			w.Stop()
			return nil
		})
	}

	slog.Info("command registry ready", "commands", reg.Len(), "file", a.cfg.Commands.File)
	return nil
}

// initDetector builds the wake-word state machine.
func (a *App) initDetector() error {
	det, err := command.NewDetector(a.registry, command.DetectorConfig{
		WakeWord:        a.cfg.Detector.WakeWord,
		Timeout:         a.cfg.Detector.CommandTimeout(),
		MaxCommandWords: a.cfg.Detector.MaxCommandWords,
		IdleReset:       a.cfg.Detector.IdleReset,
	})
	if err != nil {
		return err
	}
	a.detector = det
	return nil
}

// initSegmenter picks the classifier strategy and builds the segmenter.
func (a *App) initSegmenter() error {
	if a.classifier == nil {
		switch a.cfg.VAD.Strategy {
		case vad.StrategyClassifier:
			c, err := silero.New(silero.Config{
				ModelPath:      a.cfg.VAD.ModelPath,
				SampleRate:     a.cfg.Audio.SampleRate,
				Aggressiveness: a.cfg.VAD.Aggressiveness,
			})
			if err != nil {
				return fmt.Errorf("load classifier model: %w", err)
			}
			a.classifier = c
		default:
			a.classifier = vad.NewEnergy(a.cfg.VAD.EnergyThreshold)
		}
	}
	a.closers = append(a.closers, a.classifier.Close)

	seg, err := segment.New(a.classifier, segment.Config{
		SampleRate:      a.cfg.Audio.SampleRate,
		FrameDurationMs: a.cfg.Audio.FrameDurationMs,
		SilenceDuration: a.cfg.VAD.SilenceDuration(),
		MinUtterance:    a.cfg.VAD.MinUtterance(),
	})
	if err != nil {
		return err
	}
	a.segmenter = seg

	slog.Info("segmenter ready",
		"strategy", a.cfg.VAD.Strategy,
		"silence_frames", seg.SilenceFrames(),
	)
	return nil
}

// initRecognizer builds the configured transcriber backend and wraps it in
// the dispatch stage with its circuit breaker.
func (a *App) initRecognizer() error {
	if a.transcriber == nil {
		switch a.cfg.Recognizer.Kind {
		case config.RecognizerWhisper:
			t, err := sttwhisper.New(a.cfg.Recognizer.ModelPath,
				sttwhisper.WithLanguage(a.cfg.Recognizer.Language),
			)
			if err != nil {
				return fmt.Errorf("load whisper model: %w", err)
			}
			a.transcriber = t

		case config.RecognizerExec:
			t, err := execstt.New(execstt.Config{
				Command:  a.cfg.Recognizer.ExecCommand,
				Language: a.cfg.Recognizer.Language,
			})
			if err != nil {
				return fmt.Errorf("external transcriber: %w", err)
			}
			a.transcriber = t

		case config.RecognizerMock:
			a.transcriber = &sttmock.Transcriber{}

		default:
			return fmt.Errorf("unknown recognizer kind %q", a.cfg.Recognizer.Kind)
		}
	}
	a.closers = append(a.closers, a.transcriber.Close)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Name:        "transcriber",
		MaxFailures: a.cfg.Recognizer.FailureThreshold,
	})
	a.dispatcher = recognize.New(a.transcriber,
		recognize.WithBreaker(breaker),
		recognize.WithMetrics(a.metrics),
		recognize.WithStats(a.tracker),
	)

	slog.Info("recognizer ready",
		"kind", a.cfg.Recognizer.Kind,
		"language", a.cfg.Recognizer.Language,
		"failure_threshold", a.cfg.Recognizer.FailureThreshold,
	)
	return nil
}

// initOutput builds the key injector and the typer around it.
func (a *App) initOutput() error {
	if a.injector == nil {
		switch a.cfg.Output.Injector {
		case config.InjectorXdotool:
			x := keyout.NewXdotool(keyout.WithTypeDelay(a.cfg.Output.TypingDelay()))
			if err := x.Available(); err != nil {
				return err
			}
			a.injector = x

		case config.InjectorMock:
			a.injector = keyoutmock.New()

		default:
			return fmt.Errorf("unknown injector kind %q", a.cfg.Output.Injector)
		}
	}

	a.typer = keyout.NewTyper(a.injector, a.detector, a.registry,
		keyout.WithCorrection(a.cfg.Output.EnableCorrection),
		keyout.WithTyperMetrics(a.metrics),
		keyout.WithTyperStats(a.tracker),
	)
	return nil
}

// initSource opens the capture device unless one was injected.
func (a *App) initSource() {
	if a.source != nil {
		return
	}
	a.source = portaudio.New(audio.SourceConfig{
		SampleRate:      a.cfg.Audio.SampleRate,
		FrameDurationMs: a.cfg.Audio.FrameDurationMs,
		Device:          a.cfg.Audio.Device,
	})
}

// initHTTP builds the health/status/metrics server when an address is
// configured.
func (a *App) initHTTP() {
	if a.cfg.HTTP.Addr == "" {
		return
	}

	h := health.New([]health.Checker{
		{Name: "transcriber", Check: func(context.Context) error { return a.dispatcher.Err() }},
		{Name: "injector", Check: func(context.Context) error { return a.typer.Err() }},
	}, health.WithStats(a.tracker))

	mux := http.NewServeMux()
	h.Register(mux)

	a.httpSrv = &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the dictation pipeline and blocks until ctx is cancelled or the
// capture stream ends. The introspection server, when configured, runs for
// the same lifetime.
func (a *App) Run(ctx context.Context) error {
	if a.httpSrv != nil {
		go func() {
			slog.Info("introspection server listening", "addr", a.httpSrv.Addr)
			if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("introspection server failed", "error", err)
			}
		}()
	}

	slog.Info("voxtype running",
		"wake_word", a.cfg.Detector.WakeWord,
		"commands", a.registry.Len(),
	)
	return a.runtime.Run(ctx)
}

// ResetOutput clears the output stage's terminal error state.
func (a *App) ResetOutput() {
	a.runtime.ResetOutput()
}

// Tracker exposes the session statistics.
func (a *App) Tracker() *session.Tracker {
	return a.tracker
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.httpSrv != nil {
			if err := a.httpSrv.Shutdown(ctx); err != nil {
				slog.Warn("introspection server shutdown", "error", err)
			}
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
