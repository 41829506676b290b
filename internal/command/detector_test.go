package command

import (
	"testing"
	"time"
)

// fakeClock is an adjustable clock for timeout tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time               { return c.t }
func (c *fakeClock) advance(d time.Duration)      { c.t = c.t.Add(d) }

func newTestDetector(t *testing.T, cfg DetectorConfig, names ...string) (*Detector, *fakeClock) {
	t.Helper()
	if len(names) == 0 {
		names = []string{"enter", "space", "copy"}
	}
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	d, err := NewDetector(testRegistry(t, names...), cfg, WithClock(clock.now))
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return d, clock
}

func TestWakeWordWholeWordOnly(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, DetectorConfig{WakeWord: "tony"})

	// "tonight" contains "toni" but not the whole word.
	det := d.ProcessText("tonight is great")
	if det.KeywordDetected {
		t.Error("\"tonight\" must not trigger the wake word")
	}
	if d.Mode() != ModeNormal {
		t.Errorf("Mode = %v, want normal", d.Mode())
	}

	// The wake word counts at any position.
	det = d.ProcessText("call tony later")
	if !det.KeywordDetected {
		t.Fatal("wake word mid-sentence not detected")
	}
	if det.KeywordIndex != len("call ") {
		t.Errorf("KeywordIndex = %d, want %d", det.KeywordIndex, len("call "))
	}
	if det.Command != "" {
		t.Errorf("Command = %q, want none (\"later\" is not registered)", det.Command)
	}
	if d.Mode() != ModeCommandActive {
		t.Errorf("Mode = %v, want command_active", d.Mode())
	}
}

func TestWakeWordWithImmediateCommand(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, DetectorConfig{WakeWord: "tony"})

	det := d.ProcessText("tony enter")
	if !det.KeywordDetected || det.Command != "enter" {
		t.Errorf("ProcessText(\"tony enter\") = %+v, want keyword + command \"enter\"", det)
	}
	if d.Mode() != ModeNormal {
		t.Error("resolved command must reset to normal mode")
	}

	// Case-insensitive, and punctuation after the wake word is stripped.
	d.Reset()
	det = d.ProcessText("TONY, enter")
	if det.Command != "enter" {
		t.Errorf("punctuated activation: Command = %q, want \"enter\"", det.Command)
	}
}

func TestCascadingMatchPrefersLongestCandidate(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, DetectorConfig{WakeWord: "tony", MaxCommandWords: 2},
		"select all", "enter")

	det := d.ProcessText("tony select all now")
	if det.Command != "select all" {
		t.Fatalf("Command = %q, want \"select all\"", det.Command)
	}
	if det.RemainingText != "now" {
		t.Errorf("RemainingText = %q, want \"now\"", det.RemainingText)
	}
}

func TestCascadeFallsBackAndAcknowledgesKeyword(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, DetectorConfig{WakeWord: "tony", MaxCommandWords: 2},
		"select all", "enter")

	// Neither "select nonsense" nor "select" is registered.
	det := d.ProcessText("tony select nonsense")
	if !det.KeywordDetected {
		t.Fatal("keyword should be acknowledged even without a command match")
	}
	if det.Command != "" {
		t.Errorf("Command = %q, want none", det.Command)
	}
	if d.Mode() != ModeCommandActive {
		t.Error("detector should stay in command mode awaiting a later utterance")
	}
}

func TestCascadeMatchesExactNamesOnly(t *testing.T) {
	t.Parallel()

	// "select" is a prefix of a registered name but not a name itself. The
	// cascade must not execute anything for it; prefix and synonym
	// resolution belong to the execution-side lookup.
	d, _ := newTestDetector(t, DetectorConfig{WakeWord: "tony", MaxCommandWords: 2},
		"select all", "selectall", "enter")

	det := d.ProcessText("tony select")
	if det.Command != "" {
		t.Fatalf("Command = %q, want none for an unregistered candidate", det.Command)
	}
	if !det.KeywordDetected || d.Mode() != ModeCommandActive {
		t.Error("keyword should be acknowledged, window left open")
	}
}

func TestKeywordIndexWithMultibyteText(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, DetectorConfig{WakeWord: "tony"})

	// "İ" grows by a byte when lowercased; the reported offset must be valid
	// in the text exactly as passed in.
	text := "İstanbul tony enter"
	det := d.ProcessText(text)
	if det.Command != "enter" {
		t.Fatalf("Command = %q, want \"enter\"", det.Command)
	}
	want := len("İstanbul ")
	if det.KeywordIndex != want {
		t.Errorf("KeywordIndex = %d, want %d", det.KeywordIndex, want)
	}
	if got := text[:det.KeywordIndex]; got != "İstanbul " {
		t.Errorf("text before keyword = %q, want %q", got, "İstanbul ")
	}
}

func TestCommandInLaterUtteranceWithoutWakeWord(t *testing.T) {
	t.Parallel()

	d, clock := newTestDetector(t, DetectorConfig{WakeWord: "tony", Timeout: 3 * time.Second})

	if det := d.ProcessText("tony"); det.Command != "" {
		t.Fatalf("activation utterance resolved command %q", det.Command)
	}

	clock.advance(time.Second)
	det := d.ProcessText("enter")
	if det.Command != "enter" {
		t.Errorf("later utterance: Command = %q, want \"enter\"", det.Command)
	}
	if det.KeywordIndex != -1 {
		t.Errorf("KeywordIndex = %d, want -1 (no wake word in this text)", det.KeywordIndex)
	}
}

func TestTimeoutResetsToNormal(t *testing.T) {
	t.Parallel()

	d, clock := newTestDetector(t, DetectorConfig{WakeWord: "tony", Timeout: 3 * time.Second})

	d.ProcessText("tony")
	if d.Mode() != ModeCommandActive {
		t.Fatal("not activated")
	}

	clock.advance(3100 * time.Millisecond)
	det := d.ProcessText("enter")
	if det.KeywordDetected || det.Command != "" {
		t.Errorf("expired window returned %+v, want no detection", det)
	}
	if d.Mode() != ModeNormal {
		t.Errorf("Mode = %v, want normal after timeout", d.Mode())
	}
}

func TestFillerWordsStrippedBeforeCascade(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, DetectorConfig{WakeWord: "tony", MaxCommandWords: 2})

	det := d.ProcessText("tony um the enter")
	if det.Command != "enter" {
		t.Errorf("Command = %q, want \"enter\" after filler stripping", det.Command)
	}
}

func TestRemainingTimeoutCountsDown(t *testing.T) {
	t.Parallel()

	d, clock := newTestDetector(t, DetectorConfig{WakeWord: "tony", Timeout: 3 * time.Second})

	if got := d.RemainingTimeout(); got != 0 {
		t.Errorf("RemainingTimeout in normal mode = %v, want 0", got)
	}

	d.ProcessText("tony")
	clock.advance(time.Second)
	if got := d.RemainingTimeout(); got != 2*time.Second {
		t.Errorf("RemainingTimeout = %v, want 2s", got)
	}
}

func TestIdleResetTimerForcesNormalMode(t *testing.T) {
	t.Parallel()

	// The idle timer runs on the real clock; use the minimum timeout.
	reg := testRegistry(t, "enter")
	d, err := NewDetector(reg, DetectorConfig{
		WakeWord:  "tony",
		Timeout:   time.Second,
		IdleReset: true,
	})
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	d.ProcessText("tony")
	if d.Mode() != ModeCommandActive {
		t.Fatal("not activated")
	}

	deadline := time.Now().Add(3 * time.Second)
	for d.Mode() != ModeNormal {
		if time.Now().After(deadline) {
			t.Fatal("idle timer never reset the detector")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestTimeoutAndWordCountClamping(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t, "enter")
	d, err := NewDetector(reg, DetectorConfig{
		WakeWord:        "tony",
		Timeout:         30 * time.Second,
		MaxCommandWords: 9,
	})
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	if d.cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout clamped to %v, want 10s", d.cfg.Timeout)
	}
	if d.cfg.MaxCommandWords != 5 {
		t.Errorf("MaxCommandWords clamped to %d, want 5", d.cfg.MaxCommandWords)
	}
}
