package keyout

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Xdotool drives the xdotool command-line utility to inject key events into
// the focused X11 window.
type Xdotool struct {
	typeDelay time.Duration
	log       *slog.Logger

	// run is swapped in tests.
	run func(args ...string) error
}

var _ Injector = (*Xdotool)(nil)

// XdotoolOption configures an [Xdotool] injector.
type XdotoolOption func(*Xdotool)

// WithTypeDelay sets the per-keystroke delay passed to "xdotool type".
func WithTypeDelay(d time.Duration) XdotoolOption {
	return func(x *Xdotool) {
		x.typeDelay = d
	}
}

// NewXdotool returns an injector backed by the xdotool binary.
func NewXdotool(opts ...XdotoolOption) *Xdotool {
	x := &Xdotool{
		typeDelay: 2 * time.Millisecond,
		log:       slog.With("component", "keyout"),
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.run == nil {
		x.run = func(args ...string) error {
			out, err := exec.Command("xdotool", args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("xdotool %s: %v: %s", args[0], err, strings.TrimSpace(string(out)))
			}
			return nil
		}
	}
	return x
}

// Press implements [Injector].
func (x *Xdotool) Press(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("keyout: press with empty key symbol")
	}
	return x.run("key", "--clearmodifiers", symbol)
}

// TypeText implements [Injector].
func (x *Xdotool) TypeText(text string) error {
	if text == "" {
		return nil
	}
	delay := strconv.FormatInt(x.typeDelay.Milliseconds(), 10)
	return x.run("type", "--delay", delay, "--", text)
}

// Available implements [Injector]. It probes the binary once per call so a
// mid-session install or display loss is picked up.
func (x *Xdotool) Available() error {
	if err := x.run("--version"); err != nil {
		return fmt.Errorf("%w: %v", ErrInjectorUnavailable, err)
	}
	return nil
}
