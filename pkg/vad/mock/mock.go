// Package mock provides a scripted implementation of [vad.Classifier] for
// unit tests.
package mock

import (
	"sync"

	"github.com/voxtype/voxtype/pkg/vad"
)

// Compile-time assertion that Classifier satisfies vad.Classifier.
var _ vad.Classifier = (*Classifier)(nil)

// Classifier returns pre-scripted speech verdicts in order. Once the script
// is exhausted it keeps returning the last verdict (or false if empty).
type Classifier struct {
	mu sync.Mutex

	// Verdicts is the scripted sequence of IsSpeech results.
	Verdicts []bool

	// Err, when set, is returned by every IsSpeech call.
	Err error

	// CallCountReset records how many times Reset was called.
	CallCountReset int

	next int
}

// IsSpeech returns the next scripted verdict.
func (c *Classifier) IsSpeech(_ []float32, _ int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return false, c.Err
	}
	if len(c.Verdicts) == 0 {
		return false, nil
	}
	if c.next >= len(c.Verdicts) {
		return c.Verdicts[len(c.Verdicts)-1], nil
	}
	v := c.Verdicts[c.next]
	c.next++
	return v, nil
}

// Reset rewinds the script.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountReset++
	c.next = 0
}

// Close is a no-op.
func (c *Classifier) Close() error { return nil }
