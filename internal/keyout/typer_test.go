package keyout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxtype/voxtype/internal/command"
	"github.com/voxtype/voxtype/internal/keyout"
	keyoutmock "github.com/voxtype/voxtype/internal/keyout/mock"
)

func newTestTyper(t *testing.T, maxWords int, opts ...keyout.TyperOption) (*keyout.Typer, *keyoutmock.Injector) {
	t.Helper()

	reg := command.NewRegistry()
	defs := []struct {
		name string
		keys []string
	}{
		{"enter", []string{"Return"}},
		{"copy", []string{"Control_L", "c"}},
		{"select all", []string{"Control_L", "a"}},
		{"reload", []string{"Control_L", "Shift_L", "r"}},
		{"tab twice", []string{"Tab", "Tab"}},
	}
	for _, d := range defs {
		if err := reg.Register(d.name, command.Action{Keys: d.keys, Enabled: true}); err != nil {
			t.Fatal(err)
		}
	}

	det, err := command.NewDetector(reg, command.DetectorConfig{
		WakeWord:        "tony",
		MaxCommandWords: maxWords,
	})
	if err != nil {
		t.Fatal(err)
	}

	inj := keyoutmock.New()
	opts = append([]keyout.TyperOption{keyout.WithSleep(func(time.Duration) {})}, opts...)
	return keyout.NewTyper(inj, det, reg, opts...), inj
}

func TestTyperPlainDictation(t *testing.T) {
	t.Parallel()

	typer, inj := newTestTyper(t, 1)
	ctx := context.Background()

	if err := typer.HandleText(ctx, "hello world"); err != nil {
		t.Fatal(err)
	}
	if err := typer.HandleText(ctx, "second sentence"); err != nil {
		t.Fatal(err)
	}

	if got := inj.Typed(); got != "hello world second sentence" {
		t.Errorf("typed %q", got)
	}
}

func TestTyperDictationThenCommand(t *testing.T) {
	t.Parallel()

	typer, inj := newTestTyper(t, 1)

	if err := typer.HandleText(context.Background(), "hello tony enter"); err != nil {
		t.Fatal(err)
	}

	if got := inj.Typed(); got != "hello " {
		t.Errorf("typed %q, want %q", got, "hello ")
	}
	if got := inj.Presses(); len(got) != 1 || got[0] != "Return" {
		t.Errorf("presses = %v, want [Return]", got)
	}
}

func TestTyperChordAndSequenceCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		presses []string
	}{
		{"modifier chord", "tony copy", []string{"Control_L+c"}},
		{"double modifier chord", "tony reload", []string{"Control_L+Shift_L+r"}},
		{"plain sequence", "tony tab twice", []string{"Tab", "Tab"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			typer, inj := newTestTyper(t, 2)
			if err := typer.HandleText(context.Background(), tc.text); err != nil {
				t.Fatal(err)
			}
			got := inj.Presses()
			if len(got) != len(tc.presses) {
				t.Fatalf("presses = %v, want %v", got, tc.presses)
			}
			for i := range got {
				if got[i] != tc.presses[i] {
					t.Errorf("press %d = %q, want %q", i, got[i], tc.presses[i])
				}
			}
		})
	}
}

func TestTyperCommandThenRemainingText(t *testing.T) {
	t.Parallel()

	typer, inj := newTestTyper(t, 2)

	if err := typer.HandleText(context.Background(), "tony select all please do"); err != nil {
		t.Fatal(err)
	}

	if got := inj.Presses(); len(got) != 1 || got[0] != "Control_L+a" {
		t.Errorf("presses = %v, want [Control_L+a]", got)
	}
	// Remaining text after a command starts a fresh dictation run: no
	// leading space.
	if got := inj.Typed(); got != "please do" {
		t.Errorf("typed %q, want %q", got, "please do")
	}
}

func TestTyperCommandWindowMissIsStillDictated(t *testing.T) {
	t.Parallel()

	typer, inj := newTestTyper(t, 1)
	ctx := context.Background()

	if err := typer.HandleText(ctx, "tony"); err != nil {
		t.Fatal(err)
	}
	// Not a command: the window stays open but the speech is typed, never
	// silently dropped.
	if err := typer.HandleText(ctx, "please write this down"); err != nil {
		t.Fatal(err)
	}
	if err := typer.HandleText(ctx, "enter"); err != nil {
		t.Fatal(err)
	}

	if got := inj.Typed(); got != "please write this down" {
		t.Errorf("typed %q, want %q", got, "please write this down")
	}
	if got := inj.Presses(); len(got) != 1 || got[0] != "Return" {
		t.Errorf("presses = %v, want [Return]", got)
	}
}

func TestTyperPreKeywordTextWithMultibyteRunes(t *testing.T) {
	t.Parallel()

	typer, inj := newTestTyper(t, 1)

	if err := typer.HandleText(context.Background(), "İstanbul tony enter"); err != nil {
		t.Fatal(err)
	}

	if got := inj.Typed(); got != "İstanbul " {
		t.Errorf("typed %q, want %q", got, "İstanbul ")
	}
	if got := inj.Presses(); len(got) != 1 || got[0] != "Return" {
		t.Errorf("presses = %v, want [Return]", got)
	}
}

func TestTyperCorrectionRevisesPreviousChunk(t *testing.T) {
	t.Parallel()

	typer, inj := newTestTyper(t, 1, keyout.WithCorrection(true))
	ctx := context.Background()

	if err := typer.HandleText(ctx, "hello word"); err != nil {
		t.Fatal(err)
	}
	// A refined transcription of the same audio replaces the divergent tail
	// instead of appending a second copy.
	if err := typer.HandleText(ctx, "hello world"); err != nil {
		t.Fatal(err)
	}

	if got := inj.Typed(); got != "hello world" {
		t.Errorf("typed %q, want %q", got, "hello world")
	}
	var backspaces int
	for _, op := range inj.Ops() {
		if op.Kind == "press" && op.Arg == "BackSpace" {
			backspaces++
		}
	}
	if backspaces != 1 {
		t.Errorf("backspaces = %d, want 1 (only the divergent tail is deleted)", backspaces)
	}
}

func TestTyperSettleWaitBeforeCommand(t *testing.T) {
	t.Parallel()

	var waited time.Duration
	typer, _ := newTestTyper(t, 1, keyout.WithSleep(func(d time.Duration) { waited += d }))

	if err := typer.HandleText(context.Background(), "hello there tony enter"); err != nil {
		t.Fatal(err)
	}

	want := time.Duration(len("hello there ")) * keyout.DefaultSettlePerChar
	if waited != want {
		t.Errorf("settle wait = %v, want %v", waited, want)
	}
}

func TestTyperUnavailableInjectorIsTerminal(t *testing.T) {
	t.Parallel()

	typer, inj := newTestTyper(t, 1)
	ctx := context.Background()

	unavailable := errors.New("no display")
	inj.SetErrs(errors.New("press failed"), errors.New("type failed"), unavailable)

	if err := typer.HandleText(ctx, "hello"); !errors.Is(err, unavailable) {
		t.Fatalf("HandleText = %v, want availability error", err)
	}
	if typer.Err() == nil {
		t.Fatal("terminal error not latched")
	}

	// Later utterances are dropped without touching the injector.
	inj.SetErrs(nil, nil, nil)
	if err := typer.HandleText(ctx, "more text"); err == nil {
		t.Fatal("halted typer accepted input")
	}
	if got := inj.Typed(); got != "" {
		t.Errorf("halted typer still typed %q", got)
	}

	typer.Reset()
	if typer.Err() != nil {
		t.Fatal("Reset did not clear the error state")
	}
	if err := typer.HandleText(ctx, "recovered"); err != nil {
		t.Fatal(err)
	}
	if got := inj.Typed(); got != "recovered" {
		t.Errorf("typed %q after reset", got)
	}
}

func TestTyperTransientErrorDropsChunkOnly(t *testing.T) {
	t.Parallel()

	typer, inj := newTestTyper(t, 1)
	ctx := context.Background()

	inj.SetErrs(nil, errors.New("target window vanished"), nil)
	if err := typer.HandleText(ctx, "lost words"); err == nil {
		t.Fatal("expected a transient injection error")
	}
	if typer.Err() != nil {
		t.Fatal("transient error must not latch the terminal state")
	}

	inj.SetErrs(nil, nil, nil)
	if err := typer.HandleText(ctx, "next words"); err != nil {
		t.Fatal(err)
	}
	if got := inj.Typed(); got != "next words" {
		t.Errorf("typed %q", got)
	}
}

func TestTyperDisabledCommandIsSkipped(t *testing.T) {
	t.Parallel()

	reg := command.NewRegistry()
	if err := reg.Register("enter", command.Action{Keys: []string{"Return"}, Enabled: false}); err != nil {
		t.Fatal(err)
	}
	det, err := command.NewDetector(reg, command.DetectorConfig{WakeWord: "tony"})
	if err != nil {
		t.Fatal(err)
	}
	inj := keyoutmock.New()
	typer := keyout.NewTyper(inj, det, reg, keyout.WithSleep(func(time.Duration) {}))

	if err := typer.HandleText(context.Background(), "tony enter"); err != nil {
		t.Fatal(err)
	}
	if got := inj.Presses(); len(got) != 0 {
		t.Errorf("disabled command pressed keys: %v", got)
	}
}
