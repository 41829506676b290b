// Package resilience guards the external recognizer against cascading
// failures.
//
// [Breaker] is a three-state breaker (closed → open → half-open). Repeated
// consecutive transcription failures open it; while open, utterances are
// rejected immediately instead of queueing behind a recognizer that is out of
// memory or wedged. After the reset timeout a single probe call is allowed
// through: success closes the breaker, failure re-opens it. The breaker state
// doubles as the operator-visible "recognizer degraded" signal surfaced
// through the health endpoints.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Execute] while the breaker is open and the
// reset timeout has not yet elapsed.
var ErrOpen = errors.New("resilience: recognizer breaker is open")

// State is the breaker's operating mode.
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls until the reset timeout elapses.
	StateOpen

	// StateHalfOpen allows one probe call to test recovery.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds the tuning knobs for a [Breaker].
type BreakerConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxFailures is the number of consecutive failures before the breaker
	// opens. Default: 3.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before allowing a
	// probe. Default: 30s.
	ResetTimeout time.Duration
}

// Breaker implements the three-state breaker. Safe for concurrent use,
// though the dispatcher is its only caller in practice.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu              sync.Mutex
	state           State
	consecutiveFail int
	lastFailure     time.Time
	probing         bool
}

// NewBreaker creates a [Breaker]. Zero-value config fields get defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker allows it. In the open state it returns
// [ErrOpen] without calling fn; in the half-open state exactly one in-flight
// probe is permitted.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) < b.resetTimeout {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = StateHalfOpen
		slog.Info("recognizer breaker transitioning to half-open", "name", b.name)
		fallthrough

	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	inHalfOpen := b.state == StateHalfOpen
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if inHalfOpen {
		b.probing = false
	}

	if err != nil {
		b.lastFailure = time.Now()
		if inHalfOpen {
			b.state = StateOpen
			b.consecutiveFail = b.maxFailures
			slog.Warn("recognizer breaker re-opened from half-open", "name", b.name)
			return err
		}
		b.consecutiveFail++
		if b.consecutiveFail >= b.maxFailures {
			b.state = StateOpen
			slog.Warn("recognizer breaker opened",
				"name", b.name,
				"consecutive_failures", b.consecutiveFail)
		}
		return err
	}

	b.state = StateClosed
	b.consecutiveFail = 0
	if inHalfOpen {
		slog.Info("recognizer breaker closed after successful probe", "name", b.name)
	}
	return nil
}

// State returns the current [State]. If the breaker is open and the reset
// timeout has elapsed, the returned state is [StateHalfOpen] (the actual
// transition happens on the next [Execute] call).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// ConsecutiveFailures reports the current failure streak.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFail
}

// Reset manually forces the breaker back to [StateClosed], clearing the
// failure streak.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.consecutiveFail = 0
	b.probing = false
	slog.Info("recognizer breaker manually reset", "name", b.name)
}
