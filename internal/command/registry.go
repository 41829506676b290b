// Package command implements the wake-word detection state machine and the
// voice command registry it matches against.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// ErrInvalidDefinition marks a command definition that cannot be loaded. The
// offending entry is skipped; the rest of the registry stays usable.
var ErrInvalidDefinition = errors.New("command: invalid command definition")

// Action is the keyboard action bound to a command name. Immutable once
// loaded.
type Action struct {
	// Keys is the ordered key-symbol sequence (canonical X11 names such as
	// "Return", "BackSpace", "Control_L").
	Keys []string

	// Description is shown in logs and the status endpoint.
	Description string

	// Category groups related commands (e.g. "navigation", "editing").
	Category string

	// Enabled commands may be executed; disabled ones still match but are
	// refused at execution time.
	Enabled bool
}

// synonyms maps common spoken variations to canonical command names. The
// table is fixed: it resolves how people actually say a command, not how the
// registry spells it.
var synonyms = map[string]string{
	"return":        "enter",
	"returnkey":     "enter",
	"spacebar":      "space",
	"space key":     "space",
	"backspace key": "backspace",
	"delete key":    "delete",
	"escape key":    "escape",
	"tab key":       "tab",
	"up arrow":      "up",
	"down arrow":    "down",
	"left arrow":    "left",
	"right arrow":   "right",
	"page up":       "pageup",
	"page down":     "pagedown",
	"ctrl c":        "copy",
	"ctrl v":        "paste",
	"ctrl x":        "cut",
	"ctrl s":        "save",
	"ctrl a":        "selectall",
	"control c":     "copy",
	"control v":     "paste",
	"control x":     "cut",
	"control s":     "save",
	"control a":     "selectall",
	"alt f4":        "close",
}

// Registry holds the command name → action mapping. Names are
// case-insensitive and unique; insertion order is preserved because the
// prefix-match tie-break below depends on it. Safe for concurrent use — the
// watcher swaps definitions while the detector reads.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	actions map[string]Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds or replaces a command. Replacing keeps the original position
// in the iteration order. Returns an error wrapping [ErrInvalidDefinition]
// for an empty name or an empty key sequence.
func (r *Registry) Register(name string, a Action) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("empty command name: %w", ErrInvalidDefinition)
	}
	if len(a.Keys) == 0 {
		return fmt.Errorf("command %q has no keys: %w", name, ErrInvalidDefinition)
	}
	for _, k := range a.Keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("command %q has an empty key symbol: %w", name, ErrInvalidDefinition)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[key]; !exists {
		r.names = append(r.names, key)
	}
	r.actions[key] = a
	return nil
}

// Get looks up a command by exact (case-insensitive) name.
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// FindMatching resolves spoken input to a command: exact match first, then
// the fixed synonym table, then a prefix match (registry name is a prefix of
// the spoken text or vice versa). Prefix ties resolve to the first hit in
// insertion order — a deliberately simple, order-dependent policy that must
// not be replaced with edit-distance ranking.
func (r *Registry) FindMatching(spoken string) (string, Action, bool) {
	key := strings.ToLower(strings.TrimSpace(spoken))
	if key == "" {
		return "", Action{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.actions[key]; ok {
		return key, a, true
	}

	if canonical, ok := synonyms[key]; ok {
		if a, ok := r.actions[canonical]; ok {
			return canonical, a, true
		}
	}

	for _, name := range r.names {
		if strings.HasPrefix(name, key) || strings.HasPrefix(key, name) {
			return name, r.actions[name], true
		}
	}

	return "", Action{}, false
}

// Suggest returns up to max registered names ranked by Jaro-Winkler
// similarity to the spoken input. Purely advisory ("did you mean") — it never
// participates in matching.
func (r *Registry) Suggest(spoken string, max int) []string {
	key := strings.ToLower(strings.TrimSpace(spoken))
	if key == "" || max <= 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		name  string
		score float64
	}
	candidates := make([]scored, 0, len(r.names))
	for _, name := range r.names {
		if s := matchr.JaroWinkler(key, name, false); s >= 0.75 {
			candidates = append(candidates, scored{name, s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

// Names returns the registered command names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len reports the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// ReplaceAll atomically swaps the registry contents. Used by the definitions
// watcher so the detector sees either the old set or the new set, never a
// mix.
func (r *Registry) ReplaceAll(src *Registry) {
	src.mu.RLock()
	names := make([]string, len(src.names))
	copy(names, src.names)
	actions := make(map[string]Action, len(src.actions))
	for k, v := range src.actions {
		actions[k] = v
	}
	src.mu.RUnlock()

	r.mu.Lock()
	r.names = names
	r.actions = actions
	r.mu.Unlock()
}
