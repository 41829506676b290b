package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/voxtype/voxtype/pkg/audio"
	"github.com/voxtype/voxtype/pkg/vad"
)

// Default returns a configuration with every field at its default value.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values with sensible defaults so a minimal or
// empty file yields a working dictation setup (mock recognizer, no model
// downloads required).
func applyDefaults(cfg *Config) {
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = audio.DefaultSampleRate
	}
	if cfg.Audio.FrameDurationMs == 0 {
		cfg.Audio.FrameDurationMs = audio.DefaultFrameDurationMs
	}

	if cfg.VAD.Strategy == "" {
		cfg.VAD.Strategy = vad.StrategyEnergy
	}
	if cfg.VAD.EnergyThreshold == 0 {
		cfg.VAD.EnergyThreshold = 0.01
	}
	if cfg.VAD.SilenceDurationS == 0 {
		cfg.VAD.SilenceDurationS = 1.0
	}
	if cfg.VAD.MinUtteranceS == 0 {
		cfg.VAD.MinUtteranceS = 0.3
	}

	if cfg.Detector.WakeWord == "" {
		cfg.Detector.WakeWord = "tony"
	}
	if cfg.Detector.CommandTimeoutS == 0 {
		cfg.Detector.CommandTimeoutS = 3.0
	}
	if cfg.Detector.MaxCommandWords == 0 {
		cfg.Detector.MaxCommandWords = 1
	}

	if cfg.Recognizer.Kind == "" {
		cfg.Recognizer.Kind = RecognizerMock
	}
	if cfg.Recognizer.Language == "" {
		cfg.Recognizer.Language = "en"
	}
	if cfg.Recognizer.FailureThreshold == 0 {
		cfg.Recognizer.FailureThreshold = 3
	}

	if cfg.Output.Injector == "" {
		cfg.Output.Injector = InjectorXdotool
	}
	if cfg.Output.TypingDelayMs == 0 {
		cfg.Output.TypingDelayMs = 2
	}

	if cfg.Commands.PollIntervalS == 0 {
		cfg.Commands.PollIntervalS = 5.0
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = LogInfo
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 48000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is out of range [8000, 48000]", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameDurationMs < 10 || cfg.Audio.FrameDurationMs > 100 {
		errs = append(errs, fmt.Errorf("audio.frame_duration_ms %d is out of range [10, 100]", cfg.Audio.FrameDurationMs))
	}

	if !cfg.VAD.Strategy.IsValid() {
		errs = append(errs, fmt.Errorf("vad.strategy %q is invalid; valid values: energy, classifier", cfg.VAD.Strategy))
	}
	if cfg.VAD.Strategy == vad.StrategyClassifier && cfg.VAD.ModelPath == "" {
		errs = append(errs, fmt.Errorf("vad.model_path is required when vad.strategy is classifier"))
	}
	if cfg.VAD.Aggressiveness < 0 || cfg.VAD.Aggressiveness > 3 {
		errs = append(errs, fmt.Errorf("vad.aggressiveness %d is out of range [0, 3]", cfg.VAD.Aggressiveness))
	}
	if cfg.VAD.EnergyThreshold < 0 || cfg.VAD.EnergyThreshold >= 1 {
		errs = append(errs, fmt.Errorf("vad.energy_threshold %.3f is out of range [0, 1)", cfg.VAD.EnergyThreshold))
	}
	if cfg.VAD.SilenceDurationS <= 0 {
		errs = append(errs, fmt.Errorf("vad.silence_duration_s must be positive"))
	}
	if cfg.VAD.MinUtteranceS < 0 {
		errs = append(errs, fmt.Errorf("vad.min_utterance_s must not be negative"))
	}

	if cfg.Detector.CommandTimeoutS < 1 || cfg.Detector.CommandTimeoutS > 10 {
		errs = append(errs, fmt.Errorf("detector.command_timeout_s %.1f is out of range [1, 10]", cfg.Detector.CommandTimeoutS))
	}
	if cfg.Detector.MaxCommandWords < 1 || cfg.Detector.MaxCommandWords > 5 {
		errs = append(errs, fmt.Errorf("detector.max_command_words %d is out of range [1, 5]", cfg.Detector.MaxCommandWords))
	}

	if !cfg.Recognizer.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("recognizer.kind %q is invalid; valid values: whisper, exec, mock", cfg.Recognizer.Kind))
	}
	if cfg.Recognizer.Kind == RecognizerWhisper && cfg.Recognizer.ModelPath == "" {
		errs = append(errs, fmt.Errorf("recognizer.model_path is required when recognizer.kind is whisper"))
	}
	if cfg.Recognizer.Kind == RecognizerExec && cfg.Recognizer.ExecCommand == "" {
		errs = append(errs, fmt.Errorf("recognizer.exec_command is required when recognizer.kind is exec"))
	}
	if cfg.Recognizer.FailureThreshold < 1 {
		errs = append(errs, fmt.Errorf("recognizer.failure_threshold must be at least 1"))
	}

	if !cfg.Output.Injector.IsValid() {
		errs = append(errs, fmt.Errorf("output.injector %q is invalid; valid values: xdotool, mock", cfg.Output.Injector))
	}
	if cfg.Output.TypingDelayMs < 0 || cfg.Output.TypingDelayMs > 100 {
		errs = append(errs, fmt.Errorf("output.typing_delay_ms %d is out of range [0, 100]", cfg.Output.TypingDelayMs))
	}

	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}
