package keyout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxtype/voxtype/internal/command"
	"github.com/voxtype/voxtype/internal/observe"
	"github.com/voxtype/voxtype/internal/session"
)

// defaultSettlePerChar is how long the typer waits per just-typed character
// before injecting command keys, so the target application has drained the
// synthetic keystrokes before e.g. Return arrives.
const defaultSettlePerChar = 12 * time.Millisecond

// Typer is the output stage. It normalizes recognized text, runs the
// wake-word detector over it, types dictation through the corrector and
// executes matched commands through the injector. All work is serialized.
//
// An unavailable injector puts the typer into a terminal error state:
// utterances are dropped until [Typer.Reset] is called. Capture and
// recognition upstream are unaffected.
type Typer struct {
	injector  Injector
	detector  *command.Detector
	registry  *command.Registry
	corrector *Corrector
	metrics   *observe.Metrics
	tracker   *session.Tracker
	log       *slog.Logger

	settlePerChar time.Duration
	sleep         func(time.Duration)

	mu         sync.Mutex
	firstChunk bool
	failErr    error
}

// TyperOption configures a [Typer].
type TyperOption func(*Typer)

// WithCorrection toggles diff-based correction of revised recognition text.
// When on, each dictated chunk replaces the previous one: the common prefix
// stays put, the divergent tail is backspaced away and retyped. That only
// makes sense for recognizers that re-emit refined transcriptions of the
// same audio; for independent utterance chunks leave it off and every chunk
// is appended in full.
func WithCorrection(enabled bool) TyperOption {
	return func(t *Typer) {
		t.corrector = NewCorrector(t.injector, enabled)
	}
}

// WithSettlePerChar overrides the per-character settle wait before command
// injection.
func WithSettlePerChar(d time.Duration) TyperOption {
	return func(t *Typer) {
		t.settlePerChar = d
	}
}

// WithTyperMetrics attaches pipeline metrics.
func WithTyperMetrics(m *observe.Metrics) TyperOption {
	return func(t *Typer) {
		t.metrics = m
	}
}

// WithTyperStats attaches the session tracker so typed characters and
// executed commands show up in /statusz.
func WithTyperStats(tr *session.Tracker) TyperOption {
	return func(t *Typer) {
		t.tracker = tr
	}
}

// withSleep injects the settle clock for tests.
func withSleep(fn func(time.Duration)) TyperOption {
	return func(t *Typer) {
		t.sleep = fn
	}
}

// NewTyper wires the output stage together.
func NewTyper(inj Injector, det *command.Detector, reg *command.Registry, opts ...TyperOption) *Typer {
	t := &Typer{
		injector:      inj,
		detector:      det,
		registry:      reg,
		log:           slog.With("component", "typer"),
		settlePerChar: defaultSettlePerChar,
		sleep:         time.Sleep,
		firstChunk:    true,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.corrector == nil {
		t.corrector = NewCorrector(inj, false)
	}
	return t
}

// HandleText processes one utterance's recognized text: dictation before the
// wake word, command execution, then any remaining text as dictation again.
func (t *Typer) HandleText(ctx context.Context, raw string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failErr != nil {
		return t.failErr
	}

	text := NormalizeText(raw)
	if text == "" {
		return nil
	}

	det := t.detector.ProcessText(text)
	if det.KeywordDetected && t.metrics != nil {
		t.metrics.WakeWordDetections.Add(ctx, 1)
	}

	switch {
	case det.KeywordIndex >= 0:
		// Wake word in this utterance: dictate the part before it.
		pre := text[:min(det.KeywordIndex, len(text))]
		if err := t.typeLocked(ctx, pre); err != nil {
			return err
		}
	case det.Command != "":
		// A pending command resolved; the candidate itself is not dictated.
	default:
		// Plain dictation. A command-mode miss lands here too: speech during
		// an open command window is typed, never discarded.
		return t.typeLocked(ctx, text)
	}

	if det.Command != "" {
		if err := t.executeLocked(ctx, det.Command); err != nil {
			return err
		}
	}
	if det.RemainingText != "" {
		return t.typeLocked(ctx, det.RemainingText)
	}
	return nil
}

// typeLocked dictates one chunk through the corrector. With correction off,
// chunks are independent and ones after the first in a session are separated
// by a single space. With correction on, each chunk is treated as a revision
// of the previous one: the corrector deletes the divergent tail and retypes
// only what changed, so no space joining applies.
func (t *Typer) typeLocked(ctx context.Context, chunk string) error {
	if strings.TrimSpace(chunk) == "" {
		return nil
	}
	if !t.corrector.Enabled() {
		if !t.firstChunk && !strings.HasPrefix(chunk, " ") {
			chunk = " " + chunk
		}
		t.corrector.Reset()
	}

	backspaces, typed, err := t.corrector.Apply(chunk)
	if t.metrics != nil {
		t.metrics.CharsTyped.Add(ctx, int64(typed))
		t.metrics.Backspaces.Add(ctx, int64(backspaces))
	}
	if t.tracker != nil {
		t.tracker.RecordTyping(typed, backspaces)
	}
	if err != nil {
		return t.injectionFailedLocked(ctx, fmt.Errorf("keyout: type dictation: %w", err))
	}

	t.firstChunk = false
	t.settleLocked(typed)
	return nil
}

// executeLocked injects a matched command's key actions. The lookup goes
// through FindMatching so spoken variations (synonyms, prefixes) still
// resolve here even though the detector's cascade matches exact names only.
func (t *Typer) executeLocked(ctx context.Context, name string) error {
	resolved, action, ok := t.registry.FindMatching(name)
	if !ok {
		// Registry swapped between detection and execution.
		t.log.Warn("matched command vanished from registry", "command", name)
		t.recordCommand(ctx, name, "missing")
		return nil
	}
	name = resolved
	if !action.Enabled {
		t.log.Debug("command disabled, skipping", "command", name)
		t.recordCommand(ctx, name, "disabled")
		return nil
	}

	for _, symbol := range chordSymbols(action.Keys) {
		if err := t.injector.Press(symbol); err != nil {
			t.recordCommand(ctx, name, "failed")
			return t.injectionFailedLocked(ctx, fmt.Errorf("keyout: execute %q: %w", name, err))
		}
	}

	t.log.Info("command executed", "command", name, "keys", action.Keys)
	t.recordCommand(ctx, name, "ok")
	if t.tracker != nil {
		t.tracker.RecordCommand()
	}

	// The keystroke likely moved the cursor; start a fresh dictation run.
	t.corrector.Reset()
	t.firstChunk = true
	return nil
}

// settleLocked waits proportionally to the number of characters just typed
// so queued synthetic keystrokes land before the next key action.
func (t *Typer) settleLocked(chars int) {
	if chars <= 0 || t.settlePerChar <= 0 {
		return
	}
	t.sleep(time.Duration(chars) * t.settlePerChar)
}

// injectionFailedLocked decides whether an injection error is terminal. A
// lost backend (xdotool gone, display down) latches the failure state; a
// transient error only drops the current chunk.
func (t *Typer) injectionFailedLocked(ctx context.Context, err error) error {
	if t.metrics != nil {
		t.metrics.InjectionErrors.Add(ctx, 1)
	}
	if avErr := t.injector.Available(); avErr != nil {
		t.failErr = avErr
		t.log.Error("key injection backend lost, output stage halted",
			"error", err,
			"availability", avErr,
		)
		return avErr
	}
	t.log.Warn("key injection failed", "error", err)
	return err
}

// Err reports the terminal error state, nil when the stage is healthy.
func (t *Typer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failErr
}

// Reset clears the terminal error state and typing history so output can
// resume after the operator fixed the injector.
func (t *Typer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failErr = nil
	t.firstChunk = true
	t.corrector.Reset()
	t.detector.Reset()
}

func (t *Typer) recordCommand(ctx context.Context, name, status string) {
	if t.metrics != nil {
		t.metrics.RecordCommand(ctx, name, status)
	}
}

// chordSymbols turns a key list into injector press arguments: a single
// symbol stays as-is, leading modifiers collapse into one '+'-joined chord,
// anything else is pressed in sequence.
func chordSymbols(keys []string) []string {
	if len(keys) <= 1 {
		return keys
	}
	lead := keys[:len(keys)-1]
	for _, k := range lead {
		if !IsModifier(k) {
			return keys
		}
	}
	return []string{strings.Join(keys, "+")}
}
