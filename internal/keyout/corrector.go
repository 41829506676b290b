package keyout

import (
	"fmt"
	"log/slog"
)

// Corrector reconciles what has already been typed with a newer version of
// the same utterance. When live recognition revises earlier words, the
// corrector deletes the divergent suffix with backspaces and retypes only
// the changed part instead of the whole utterance.
type Corrector struct {
	injector Injector
	enabled  bool
	log      *slog.Logger

	previous []rune
}

// NewCorrector returns a corrector writing through inj. When enabled is
// false, Apply types every new text in full and only tracks state.
func NewCorrector(inj Injector, enabled bool) *Corrector {
	return &Corrector{
		injector: inj,
		enabled:  enabled,
		log:      slog.With("component", "corrector"),
	}
}

// Enabled reports whether Apply diffs against the previously applied text.
func (c *Corrector) Enabled() bool { return c.enabled }

// Apply brings the typed output in line with text. It returns the number of
// backspaces emitted and the number of characters typed.
func (c *Corrector) Apply(text string) (backspaces, typed int, err error) {
	next := []rune(text)

	if !c.enabled {
		if err := c.injector.TypeText(text); err != nil {
			return 0, 0, err
		}
		c.previous = next
		return 0, len(next), nil
	}

	common := commonPrefixLen(c.previous, next)
	deleteCount := len(c.previous) - common
	insert := string(next[common:])

	if deleteCount > 0 {
		c.log.Debug("correcting typed text",
			"delete", deleteCount,
			"insert", len(insert),
		)
		for i := 0; i < deleteCount; i++ {
			if err := c.injector.Press("BackSpace"); err != nil {
				return backspaces, 0, fmt.Errorf("keyout: delete during correction: %w", err)
			}
			backspaces++
		}
	}
	if insert != "" {
		if err := c.injector.TypeText(insert); err != nil {
			return backspaces, 0, err
		}
	}

	c.previous = next
	return backspaces, len([]rune(insert)), nil
}

// Typed returns the text the corrector believes is currently on screen.
func (c *Corrector) Typed() string {
	return string(c.previous)
}

// Reset forgets the tracked text, e.g. after the user moved focus or a
// command repositioned the cursor.
func (c *Corrector) Reset() {
	c.previous = nil
}

func commonPrefixLen(a, b []rune) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
