// Package mock provides a scripted [keyout.Injector] for tests and for
// running the pipeline without touching the real desktop.
package mock

import (
	"sync"

	"github.com/voxtype/voxtype/internal/keyout"
)

// Op is one recorded injector call.
type Op struct {
	// Kind is "press" or "type".
	Kind string
	// Arg is the key symbol or the typed text.
	Arg string
}

// Injector records every call and can be scripted to fail.
type Injector struct {
	mu sync.Mutex

	// PressErr, TypeErr and AvailableErr are returned by the matching
	// methods when non-nil.
	PressErr     error
	TypeErr      error
	AvailableErr error

	ops []Op
}

var _ keyout.Injector = (*Injector)(nil)

// New returns an empty recording injector.
func New() *Injector {
	return &Injector{}
}

// Press implements [keyout.Injector].
func (m *Injector) Press(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PressErr != nil {
		return m.PressErr
	}
	m.ops = append(m.ops, Op{Kind: "press", Arg: symbol})
	return nil
}

// TypeText implements [keyout.Injector].
func (m *Injector) TypeText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TypeErr != nil {
		return m.TypeErr
	}
	m.ops = append(m.ops, Op{Kind: "type", Arg: text})
	return nil
}

// Available implements [keyout.Injector].
func (m *Injector) Available() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AvailableErr
}

// Ops returns a copy of the recorded calls.
func (m *Injector) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Op, len(m.ops))
	copy(out, m.ops)
	return out
}

// Typed concatenates everything typed so far, applying recorded BackSpace
// presses the way a text field would.
func (m *Injector) Typed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rune
	for _, op := range m.ops {
		switch {
		case op.Kind == "type":
			out = append(out, []rune(op.Arg)...)
		case op.Kind == "press" && op.Arg == "BackSpace" && len(out) > 0:
			out = out[:len(out)-1]
		}
	}
	return string(out)
}

// Presses returns the key symbols pressed, in order, excluding BackSpace.
func (m *Injector) Presses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, op := range m.ops {
		if op.Kind == "press" && op.Arg != "BackSpace" {
			out = append(out, op.Arg)
		}
	}
	return out
}

// SetErrs scripts the failure modes under the lock.
func (m *Injector) SetErrs(press, typeErr, available error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PressErr = press
	m.TypeErr = typeErr
	m.AvailableErr = available
}
