// Package config provides the configuration schema and loader for the
// voxtype dictation service.
package config

import (
	"time"

	"github.com/voxtype/voxtype/pkg/vad"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// RecognizerKind selects the speech-to-text backend.
type RecognizerKind string

const (
	// RecognizerWhisper runs whisper.cpp in-process.
	RecognizerWhisper RecognizerKind = "whisper"

	// RecognizerExec shells out to an external transcriber command.
	RecognizerExec RecognizerKind = "exec"

	// RecognizerMock is a no-op backend for tests and dry runs.
	RecognizerMock RecognizerKind = "mock"
)

// IsValid reports whether k is a recognised recognizer kind.
func (k RecognizerKind) IsValid() bool {
	switch k {
	case RecognizerWhisper, RecognizerExec, RecognizerMock:
		return true
	}
	return false
}

// InjectorKind selects the key injection backend.
type InjectorKind string

const (
	InjectorXdotool InjectorKind = "xdotool"
	InjectorMock    InjectorKind = "mock"
)

// IsValid reports whether k is a recognised injector kind.
func (k InjectorKind) IsValid() bool {
	return k == InjectorXdotool || k == InjectorMock
}

// Config is the root configuration structure for voxtype.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Audio      AudioConfig      `yaml:"audio"`
	VAD        VADConfig        `yaml:"vad"`
	Detector   DetectorConfig   `yaml:"detector"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Output     OutputConfig     `yaml:"output"`
	Commands   CommandsConfig   `yaml:"commands"`
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// AudioConfig holds microphone capture settings.
type AudioConfig struct {
	// SampleRate is the pipeline sample rate in Hz. Capture resamples to it
	// when the device cannot open at this rate.
	SampleRate int `yaml:"sample_rate"`

	// FrameDurationMs is the capture frame length in milliseconds.
	FrameDurationMs int `yaml:"frame_duration_ms"`

	// Device selects the input device by name substring. Empty means the
	// system default input.
	Device string `yaml:"device"`
}

// VADConfig holds voice-activity segmentation settings.
type VADConfig struct {
	// Strategy picks the speech classifier: "energy" or "classifier".
	Strategy vad.Strategy `yaml:"strategy"`

	// EnergyThreshold is the RMS level above which an energy-strategy frame
	// counts as speech.
	EnergyThreshold float64 `yaml:"energy_threshold"`

	// Aggressiveness tunes the classifier strategy, 0 (permissive) to 3
	// (strict).
	Aggressiveness int `yaml:"aggressiveness"`

	// ModelPath points at the classifier model file. Required for the
	// classifier strategy.
	ModelPath string `yaml:"model_path"`

	// SilenceDurationS is how much trailing silence closes an utterance.
	SilenceDurationS float64 `yaml:"silence_duration_s"`

	// MinUtteranceS drops utterances shorter than this.
	MinUtteranceS float64 `yaml:"min_utterance_s"`
}

// DetectorConfig holds wake-word detection settings.
type DetectorConfig struct {
	// WakeWord is the activation word.
	WakeWord string `yaml:"wake_word"`

	// CommandTimeoutS is how long command mode stays open, in seconds.
	// Clamped to [1, 10].
	CommandTimeoutS float64 `yaml:"command_timeout_s"`

	// MaxCommandWords bounds multi-word command matching. Clamped to [1, 5].
	MaxCommandWords int `yaml:"max_command_words"`

	// IdleReset force-resets command mode after the timeout even without
	// further speech.
	IdleReset bool `yaml:"idle_reset"`
}

// RecognizerConfig holds speech-to-text settings.
type RecognizerConfig struct {
	// Kind selects the backend.
	Kind RecognizerKind `yaml:"kind"`

	// ModelPath points at the whisper model file. Required for the whisper
	// kind.
	ModelPath string `yaml:"model_path"`

	// Language hints the recognition language ("en", "auto", ...).
	Language string `yaml:"language"`

	// ExecCommand is the external transcriber invocation for the exec kind,
	// parsed shell-style.
	ExecCommand string `yaml:"exec_command"`

	// FailureThreshold is how many consecutive transcription failures open
	// the circuit breaker.
	FailureThreshold int `yaml:"failure_threshold"`
}

// OutputConfig holds key injection settings.
type OutputConfig struct {
	// Injector selects the backend.
	Injector InjectorKind `yaml:"injector"`

	// TypingDelayMs is the per-keystroke delay passed to the injector.
	TypingDelayMs int `yaml:"typing_delay_ms"`

	// EnableCorrection treats each recognized chunk as a revision of the
	// previous one: the divergent tail is backspaced away and retyped. Only
	// useful when the recognizer re-emits refined transcriptions of the
	// same audio; independent chunks should leave it off.
	EnableCorrection bool `yaml:"enable_correction"`
}

// CommandsConfig holds the voice-command definitions file settings.
type CommandsConfig struct {
	// File is a YAML file overlaying the built-in command set. Empty means
	// defaults only.
	File string `yaml:"file"`

	// PollIntervalS is how often the file is polled for changes. Zero
	// disables hot reload.
	PollIntervalS float64 `yaml:"poll_interval_s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level LogLevel `yaml:"level"`
}

// HTTPConfig holds the introspection server settings.
type HTTPConfig struct {
	// Addr is the TCP address for health, status and metrics endpoints
	// (e.g., "127.0.0.1:8090"). Empty disables the server.
	Addr string `yaml:"addr"`
}

// SilenceDuration returns the segmentation silence window as a duration.
func (c VADConfig) SilenceDuration() time.Duration {
	return time.Duration(c.SilenceDurationS * float64(time.Second))
}

// MinUtterance returns the minimum utterance length as a duration.
func (c VADConfig) MinUtterance() time.Duration {
	return time.Duration(c.MinUtteranceS * float64(time.Second))
}

// CommandTimeout returns the command window as a duration.
func (c DetectorConfig) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutS * float64(time.Second))
}

// PollInterval returns the hot-reload poll period as a duration.
func (c CommandsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalS * float64(time.Second))
}

// TypingDelay returns the per-keystroke delay as a duration.
func (c OutputConfig) TypingDelay() time.Duration {
	return time.Duration(c.TypingDelayMs) * time.Millisecond
}
