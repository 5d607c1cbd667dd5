package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/voxpaste/internal/segment"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr    = "127.0.0.1:7777"
	DefaultSampleRate    = 16000
	DefaultChunkSize     = 512
	DefaultVADProvider   = "silero"
	DefaultThreshold     = 0.5
	DefaultMinSpeechMs   = 100
	DefaultMinSilenceMs  = 1000
	DefaultSTTProvider   = "whisper-native"
	DefaultStopPhrase    = "stop"
	DefaultStopGraceMs   = 100
	DefaultPasteDelayMs  = 200
	DefaultHistoryLength = 200
)

// ValidProviderNames lists the built-in provider names per kind. Unknown
// names only produce a warning so that out-of-tree factories can register.
var ValidProviderNames = map[string][]string{
	"vad": {"silero", "energy"},
	"stt": {"whisper-native", "whisper", "openai"},
}

// Load reads the YAML file at path and returns a validated [Config] with
// defaults applied.
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

// LoadFromReader decodes YAML from r, applies defaults and validates. An
// empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields of cfg with their defaults.
func ApplyDefaults(cfg *Config) {
	setDefault(&cfg.Server.ListenAddr, DefaultListenAddr)
	setDefault(&cfg.Server.LogLevel, LogInfo)

	setDefault(&cfg.Audio.SampleRate, DefaultSampleRate)
	setDefault(&cfg.Audio.Channels, 1)
	setDefault(&cfg.Audio.ChunkSize, DefaultChunkSize)
	setDefault(&cfg.Audio.Format, "int16")

	setDefault(&cfg.VAD.Provider, DefaultVADProvider)
	setDefault(&cfg.VAD.Threshold, DefaultThreshold)
	setDefault(&cfg.VAD.MinSpeechDurationMs, DefaultMinSpeechMs)
	setDefault(&cfg.VAD.MinSilenceDurationMs, DefaultMinSilenceMs)

	setDefault(&cfg.Transcription.Provider, DefaultSTTProvider)

	setDefault(&cfg.StopPhrase, DefaultStopPhrase)
	setDefault(&cfg.StopGraceMs, DefaultStopGraceMs)

	setDefault(&cfg.Insert.Mode, InsertPaste)
	setDefault(&cfg.Insert.PasteDelayMs, DefaultPasteDelayMs)

	setDefault(&cfg.History.MaxEntries, DefaultHistoryLength)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Validate checks that cfg is coherent. It returns every problem found,
// joined.
func Validate(cfg *Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !cfg.Server.LogLevel.IsValid() {
		add("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel)
	}

	a := cfg.Audio
	if a.SampleRate <= 0 {
		add("audio.sample_rate must be positive, got %d", a.SampleRate)
	}
	if a.Channels <= 0 {
		add("audio.channels must be positive, got %d", a.Channels)
	}
	if a.ChunkSize <= 0 {
		add("audio.chunk_size must be positive, got %d", a.ChunkSize)
	}
	if a.Format != "int16" {
		add("audio.format %q is unsupported; only int16 is available", a.Format)
	}
	if a.OverflowTolerance < 0 {
		add("audio.overflow_tolerance must not be negative, got %d", a.OverflowTolerance)
	}

	v := cfg.VAD
	validateProviderName("vad", v.Provider)
	if v.Threshold < 0 || v.Threshold > 1 {
		add("vad.threshold %g is out of range [0, 1]", v.Threshold)
	}
	if v.Provider == "silero" && v.ModelPath == "" {
		add("vad.model_path is required for the silero provider")
	}
	if a.SampleRate > 0 && a.ChunkSize > 0 {
		if _, err := segment.ChunkCount(v.MinSpeechDurationMs, a.SampleRate, a.ChunkSize); err != nil {
			add("vad.min_speech_duration_ms: %w", err)
		}
		if _, err := segment.ChunkCount(v.MinSilenceDurationMs, a.SampleRate, a.ChunkSize); err != nil {
			add("vad.min_silence_duration_ms: %w", err)
		}
	}

	errs = append(errs, validateEntry("transcription", cfg.Transcription.ProviderEntry)...)
	for i, fb := range cfg.Transcription.Fallbacks {
		prefix := fmt.Sprintf("transcription.fallbacks[%d]", i)
		if fb.Provider == "" {
			add("%s.provider is required", prefix)
			continue
		}
		errs = append(errs, validateEntry(prefix, fb)...)
	}

	if cfg.StopGraceMs < 0 {
		add("stop_grace_ms must not be negative, got %d", cfg.StopGraceMs)
	}

	in := cfg.Insert
	if !in.Mode.IsValid() {
		add("insert.mode %q is invalid; valid values: paste, clipboard, command", in.Mode)
	}
	if in.Mode == InsertCommand && len(in.Command) == 0 {
		add("insert.command is required when insert.mode is command")
	}
	if in.PasteDelayMs < 0 {
		add("insert.paste_delay_ms must not be negative, got %d", in.PasteDelayMs)
	}
	if in.Modifier != "" && in.Modifier != "ctrl" && in.Modifier != "super" {
		add("insert.modifier %q is invalid; valid values: ctrl, super", in.Modifier)
	}

	if cfg.History.MaxEntries < 0 {
		add("history.max_entries must not be negative, got %d", cfg.History.MaxEntries)
	}

	return errors.Join(errs...)
}

func validateEntry(prefix string, e ProviderEntry) []error {
	var errs []error
	validateProviderName("stt", e.Provider)
	if e.TimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("%s.timeout_ms must not be negative, got %d", prefix, e.TimeoutMs))
	}
	switch e.Provider {
	case "whisper-native":
		if e.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required for whisper-native (path to a ggml model file)", prefix))
		}
	case "whisper":
		if e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url is required for the whisper server provider", prefix))
		}
	case "openai":
		if e.APIKey == "" && e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required for openai", prefix))
		}
	}
	return errs
}

// validateProviderName warns when name is not a built-in provider of kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
