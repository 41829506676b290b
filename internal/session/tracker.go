// Package session keeps running statistics about the current dictation
// session: what was heard, typed and executed since startup. The tracker
// backs the /statusz endpoint.
package session

import (
	"sync"
	"time"
)

// defaultTranscriptHistory is how many recent transcripts the tracker keeps.
const defaultTranscriptHistory = 20

// Transcript is one recognized utterance as seen by the output stage.
type Transcript struct {
	Text     string        `json:"text"`
	Audio    time.Duration `json:"audio_duration"`
	Latency  time.Duration `json:"latency"`
	Received time.Time     `json:"received"`
}

// Stats is a point-in-time snapshot of the session counters.
type Stats struct {
	StartedAt        time.Time     `json:"started_at"`
	Uptime           time.Duration `json:"uptime"`
	Utterances       int64         `json:"utterances"`
	FailedUtterances int64         `json:"failed_utterances"`
	CharsTyped       int64         `json:"chars_typed"`
	Backspaces       int64         `json:"backspaces"`
	Commands         int64         `json:"commands"`
	AudioProcessed   time.Duration `json:"audio_processed"`
	Recent           []Transcript  `json:"recent_transcripts"`
}

// Tracker accumulates session counters. All methods are safe for concurrent
// use.
type Tracker struct {
	mu        sync.Mutex
	startedAt time.Time

	utterances       int64
	failedUtterances int64
	charsTyped       int64
	backspaces       int64
	commands         int64
	audioProcessed   time.Duration

	// recent is a ring of the last transcripts, next is the write cursor.
	recent []Transcript
	next   int
	filled bool

	now func() time.Time
}

// TrackerOption configures a [Tracker].
type TrackerOption func(*Tracker)

// WithHistory sets how many recent transcripts are retained.
func WithHistory(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.recent = make([]Transcript, n)
		}
	}
}

// withNow injects a clock for tests.
func withNow(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker starts a fresh session.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		recent: make([]Transcript, defaultTranscriptHistory),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.startedAt = t.now()
	return t
}

// RecordUtterance notes one successfully transcribed utterance.
func (t *Tracker) RecordUtterance(text string, audio, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.utterances++
	t.audioProcessed += audio
	t.recent[t.next] = Transcript{
		Text:     text,
		Audio:    audio,
		Latency:  latency,
		Received: t.now(),
	}
	t.next++
	if t.next == len(t.recent) {
		t.next = 0
		t.filled = true
	}
}

// RecordFailure notes an utterance that could not be transcribed.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failedUtterances++
}

// RecordTyping notes characters typed and backspaces emitted by the output
// stage.
func (t *Tracker) RecordTyping(chars, backspaces int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.charsTyped += int64(chars)
	t.backspaces += int64(backspaces)
}

// RecordCommand notes one executed voice command.
func (t *Tracker) RecordCommand() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commands++
}

// Snapshot returns the current counters with recent transcripts ordered
// oldest first.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var recent []Transcript
	if t.filled {
		recent = make([]Transcript, 0, len(t.recent))
		recent = append(recent, t.recent[t.next:]...)
		recent = append(recent, t.recent[:t.next]...)
	} else {
		recent = make([]Transcript, t.next)
		copy(recent, t.recent[:t.next])
	}

	now := t.now()
	return Stats{
		StartedAt:        t.startedAt,
		Uptime:           now.Sub(t.startedAt),
		Utterances:       t.utterances,
		FailedUtterances: t.failedUtterances,
		CharsTyped:       t.charsTyped,
		Backspaces:       t.backspaces,
		Commands:         t.commands,
		AudioProcessed:   t.audioProcessed,
		Recent:           recent,
	}
}
