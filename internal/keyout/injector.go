// Package keyout turns recognized text and commands into synthetic keyboard
// input. An [Injector] abstracts the platform tool that actually emits key
// events; [Corrector] tracks what has been typed so far and patches live
// recognition updates with the minimal backspace-and-retype edit.
package keyout

import "errors"

// ErrInjectorUnavailable is returned when the key injection backend cannot
// run on this system, for example when xdotool is not installed or no X
// display is reachable.
var ErrInjectorUnavailable = errors.New("keyout: injector unavailable")

// Injector emits synthetic keyboard input into the focused window.
//
// Implementations must be safe for use from a single goroutine; the output
// stage serializes all calls.
type Injector interface {
	// Press emits one key action. The symbol is either a single X key
	// symbol ("Return") or a chord of '+'-joined symbols ("Control_L+c").
	Press(symbol string) error

	// TypeText types the literal string, preserving case and punctuation.
	TypeText(text string) error

	// Available reports whether the backend can inject input right now.
	// A nil return means ready; otherwise the error wraps
	// [ErrInjectorUnavailable] with detail.
	Available() error
}

// modifierSymbols are the X key symbols treated as chord modifiers when they
// appear before the final symbol of a command's key list.
var modifierSymbols = map[string]bool{
	"Control_L": true,
	"Control_R": true,
	"Shift_L":   true,
	"Shift_R":   true,
	"Alt_L":     true,
	"Alt_R":     true,
	"Super_L":   true,
	"Super_R":   true,
	"Meta_L":    true,
	"Meta_R":    true,
}

// IsModifier reports whether symbol is a chord modifier like Control_L.
func IsModifier(symbol string) bool {
	return modifierSymbols[symbol]
}
