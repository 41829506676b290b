package command

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Mode is the detector's state.
type Mode string

const (
	// ModeNormal is plain dictation: text passes through unless the wake
	// word appears.
	ModeNormal Mode = "normal"

	// ModeCommandActive means the wake word was heard and the detector is
	// waiting for a command, within the timeout window.
	ModeCommandActive Mode = "command_active"
)

// fillerWords are dropped from the front of a command candidate. Recognizers
// love to hear articles and hesitations that were never spoken.
var fillerWords = map[string]struct{}{
	"um": {}, "uh": {}, "eh": {}, "the": {}, "a": {}, "an": {},
}

// Detection is the outcome of scanning one utterance's text.
type Detection struct {
	// KeywordDetected reports whether the wake word (or an earlier
	// activation still in effect) applied to this text.
	KeywordDetected bool

	// Command is the matched registry name, empty when the keyword was
	// acknowledged but no command resolved yet.
	Command string

	// RemainingText holds the tokens after the matched command, to be typed
	// as ordinary dictation.
	RemainingText string

	// KeywordIndex is the byte offset of the wake-word match in the text
	// exactly as passed to ProcessText, or -1 when no wake word matched in
	// this call. The caller types the text before this offset as dictation;
	// the detector only reports the position.
	KeywordIndex int

	// Mode is the detector state after processing.
	Mode Mode
}

// DetectorConfig holds the wake-word detection settings.
type DetectorConfig struct {
	// WakeWord is the activation word. Matched boundary-aware and
	// case-insensitive. Default "tony".
	WakeWord string

	// Timeout is how long command mode stays active without a resolved
	// command. Clamped to [1s, 10s]. Default 3s.
	Timeout time.Duration

	// MaxCommandWords bounds the cascading match window. Clamped to [1, 5].
	// Default 1.
	MaxCommandWords int

	// IdleReset arms a timer on activation that force-resets to normal mode
	// after the timeout even if no further speech arrives. Without it the
	// timeout is only evaluated lazily on the next ProcessText call.
	IdleReset bool
}

// Detector is the two-state wake-word machine. Safe for concurrent use,
// though the output stage is its only caller in practice.
type Detector struct {
	registry *Registry
	cfg      DetectorConfig
	log      *slog.Logger
	wakeRe   *regexp.Regexp

	// now is injectable for timeout tests.
	now func() time.Time

	mu          sync.Mutex
	mode        Mode
	activatedAt time.Time
	idleTimer   *time.Timer
}

// DetectorOption is a functional option for [NewDetector].
type DetectorOption func(*Detector)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) DetectorOption {
	return func(d *Detector) { d.now = now }
}

// NewDetector creates a Detector matching against the given registry.
func NewDetector(registry *Registry, cfg DetectorConfig, opts ...DetectorOption) (*Detector, error) {
	if registry == nil {
		return nil, fmt.Errorf("command: registry must not be nil")
	}

	cfg.WakeWord = strings.ToLower(strings.TrimSpace(cfg.WakeWord))
	if cfg.WakeWord == "" {
		cfg.WakeWord = "tony"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Timeout < time.Second {
		cfg.Timeout = time.Second
	}
	if cfg.Timeout > 10*time.Second {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxCommandWords < 1 {
		cfg.MaxCommandWords = 1
	}
	if cfg.MaxCommandWords > 5 {
		cfg.MaxCommandWords = 5
	}

	wakeRe, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(cfg.WakeWord) + `\b`)
	if err != nil {
		return nil, fmt.Errorf("command: compile wake word pattern: %w", err)
	}

	d := &Detector{
		registry: registry,
		cfg:      cfg,
		log:      slog.With("component", "detector"),
		wakeRe:   wakeRe,
		now:      time.Now,
		mode:     ModeNormal,
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// ProcessText scans one utterance's recognized text. Matching is
// case-insensitive but operates on the string as given, so KeywordIndex is a
// valid byte offset into it even when lowercasing would change byte lengths.
func (d *Detector) ProcessText(text string) Detection {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	// Lazy timeout check: an expired activation resets before anything else.
	if d.mode == ModeCommandActive && now.Sub(d.activatedAt) > d.cfg.Timeout {
		d.log.Debug("command window timed out, returning to normal mode")
		d.resetLocked()
		return Detection{KeywordIndex: -1, Mode: ModeNormal}
	}

	if d.mode == ModeNormal {
		loc := d.wakeRe.FindStringIndex(text)
		if loc == nil {
			// Ordinary dictation.
			return Detection{KeywordIndex: -1, Mode: ModeNormal}
		}

		d.log.Info("wake word detected", "wake_word", d.cfg.WakeWord)
		d.mode = ModeCommandActive
		d.activatedAt = now
		d.armIdleTimerLocked()

		after := stripPunctuation(text[loc[1]:])
		if det, ok := d.extractLocked(after); ok {
			det.KeywordIndex = loc[0]
			return det
		}

		// Keyword acknowledged, command awaited in a later utterance.
		return Detection{
			KeywordDetected: true,
			KeywordIndex:    loc[0],
			Mode:            ModeCommandActive,
		}
	}

	// Command mode: the wake word was consumed earlier, cascade directly.
	if det, ok := d.extractLocked(text); ok {
		det.KeywordIndex = -1
		return det
	}
	return Detection{KeywordIndex: -1, Mode: d.mode}
}

// extractLocked runs the cascading multi-word command match. Candidates are
// matched by exact registry name only; spoken variations (synonyms, prefixes)
// resolve later at execution time, so a stray word like "select" cannot
// silently fire "select all". On a hit the detector resets to normal mode.
// Must be called with d.mu held.
func (d *Detector) extractLocked(text string) (Detection, bool) {
	tokens := strings.Fields(text)

	// Strip leading filler words.
	for len(tokens) > 0 {
		if _, ok := fillerWords[strings.ToLower(tokens[0])]; !ok {
			break
		}
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return Detection{}, false
	}

	// Longest candidate first: the most specific command wins, which
	// resolves "select all now" to "select all" rather than "select".
	maxWords := min(d.cfg.MaxCommandWords, len(tokens))
	for k := maxWords; k >= 1; k-- {
		candidate := strings.ToLower(strings.Join(tokens[:k], " "))
		if _, ok := d.registry.Get(candidate); !ok {
			continue
		}

		remaining := strings.Join(tokens[k:], " ")
		d.log.Info("command matched",
			"command", candidate,
			"words", k,
			"remaining", remaining,
		)
		d.resetLocked()
		return Detection{
			KeywordDetected: true,
			Command:         candidate,
			RemainingText:   remaining,
			Mode:            ModeNormal,
		}, true
	}

	if hints := d.registry.Suggest(strings.Join(tokens[:maxWords], " "), 3); len(hints) > 0 {
		d.log.Debug("no command matched", "candidates", tokens[:maxWords], "did_you_mean", hints)
	}
	return Detection{}, false
}

// armIdleTimerLocked schedules a forced reset so a wake-word-only utterance
// with no follow-up speech cannot leave the detector in command mode forever.
// Must be called with d.mu held.
func (d *Detector) armIdleTimerLocked() {
	if !d.cfg.IdleReset {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.cfg.Timeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.mode == ModeCommandActive {
			d.log.Debug("idle timer expired, returning to normal mode")
			d.resetLocked()
		}
	})
}

// resetLocked returns the detector to normal mode. Must be called with d.mu
// held.
func (d *Detector) resetLocked() {
	d.mode = ModeNormal
	d.activatedAt = time.Time{}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
}

// Reset returns the detector to its initial state.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

// Mode reports the current state.
func (d *Detector) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// RemainingTimeout reports how long the current command window stays open.
// Zero when the detector is in normal mode.
func (d *Detector) RemainingTimeout() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode != ModeCommandActive {
		return 0
	}
	remaining := d.cfg.Timeout - d.now().Sub(d.activatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// stripPunctuation trims leading and trailing punctuation and whitespace so
// "tony, enter" and "tony,enter" behave like "tony enter".
func stripPunctuation(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	})
}
