// Package execstt implements stt.Transcriber by shelling out to an external
// recognizer command.
//
// The utterance is written to a temporary WAV file whose path is appended to
// the configured command line. The command must print a JSON object
// {"text": "...", "confidence": 0.93} on stdout; a missing or zero confidence
// is reported as unknown. This keeps heavyweight recognizers out of the
// process while reusing them unchanged.
package execstt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"

	"github.com/voxtype/voxtype/pkg/stt"
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Config holds the external recognizer settings.
type Config struct {
	// Command is the recognizer command line, parsed with shell word rules.
	// The WAV path is appended as the final argument.
	Command string

	// Language, when non-empty, is passed as "--language <code>".
	Language string
}

// Transcriber invokes an external recognizer process per utterance. Calls are
// serialized; most exec recognizers cannot run concurrently anyway.
type Transcriber struct {
	cmd  []string
	lang string
	mu   sync.Mutex
}

type execResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// New parses the command line and creates a Transcriber.
func New(cfg Config) (*Transcriber, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("execstt: parse command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("execstt: command is empty")
	}
	return &Transcriber{cmd: args, lang: cfg.Language}, nil
}

// Transcribe writes the utterance to a temp WAV, runs the command, and
// decodes its JSON output.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (stt.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()

	file, err := os.CreateTemp("", "voxtype_stt_*.wav")
	if err != nil {
		return stt.Result{}, fmt.Errorf("execstt: temp file: %v: %w", err, stt.ErrTranscriptionFailed)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writeWav(file, samples, sampleRate); err != nil {
		return stt.Result{}, fmt.Errorf("execstt: %v: %w", err, stt.ErrTranscriptionFailed)
	}

	args := append([]string{}, t.cmd[1:]...)
	if t.lang != "" {
		args = append(args, "--language", t.lang)
	}
	args = append(args, file.Name())

	command := exec.CommandContext(ctx, t.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return stt.Result{}, fmt.Errorf("execstt: command %q failed: %v: %s: %w",
			t.cmd[0], err, stderr.String(), stt.ErrTranscriptionFailed)
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return stt.Result{}, fmt.Errorf("execstt: decode response: %v: %w", err, stt.ErrTranscriptionFailed)
	}

	confidence := resp.Confidence
	if confidence <= 0 {
		confidence = stt.NoConfidence
	}

	audioDur := time.Duration(0)
	if sampleRate > 0 {
		audioDur = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}

	return stt.Result{
		Text:          resp.Text,
		Confidence:    confidence,
		AudioDuration: audioDur,
		Elapsed:       time.Since(start),
	}, nil
}

// Close is a no-op; the external process is per-call.
func (t *Transcriber) Close() error { return nil }

// writeWav encodes normalized float samples as 16-bit mono PCM WAV.
func writeWav(file *os.File, samples []float32, sampleRate int) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}

	buffer := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   data,
	}

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
