// Package config provides the configuration schema, loader, provider registry
// and file watcher for voxpaste.
//
// Configuration is a single YAML file. [Load] decodes it strictly (unknown
// keys are errors), fills in defaults with [ApplyDefaults] and checks it with
// [Validate]. The resulting *Config is passed down explicitly; nothing in the
// program reads configuration from globals.
package config

import "log/slog"

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

// Level converts l to a [slog.Level]. Unknown values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InsertMode selects how recognised text reaches the focused application.
type InsertMode string

const (
	// InsertPaste copies to the clipboard and synthesises a paste keystroke.
	InsertPaste InsertMode = "paste"

	// InsertClipboard only copies to the clipboard.
	InsertClipboard InsertMode = "clipboard"

	// InsertCommand pipes the text to an external program.
	InsertCommand InsertMode = "command"
)

// IsValid reports whether m is a recognised insert mode.
func (m InsertMode) IsValid() bool {
	switch m {
	case InsertPaste, InsertClipboard, InsertCommand:
		return true
	}
	return false
}

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Transcription TranscriptionConfig `yaml:"transcription"`

	// StopPhrase ends the session when it is the whole transcript.
	// Default: "stop".
	StopPhrase string `yaml:"stop_phrase"`

	// StopPhraseIgnorePunctuation matches "Stop." and "stop!" as well.
	StopPhraseIgnorePunctuation bool `yaml:"stop_phrase_ignore_punctuation"`

	// StopGraceMs is how long after hearing the stop phrase the session is
	// stopped. Default: 100.
	StopGraceMs int `yaml:"stop_grace_ms"`

	Insert InsertConfig `yaml:"insert"`

	// Vocabulary lists names and jargon the transcriber tends to misspell.
	// Transcripts are corrected towards these terms before insertion.
	Vocabulary []string `yaml:"vocabulary"`

	Notifications NotificationsConfig `yaml:"notifications"`
	History       HistoryConfig       `yaml:"history"`
}

// ServerConfig holds the control API and logging settings.
type ServerConfig struct {
	// ListenAddr is the control API address. Default: "127.0.0.1:7777".
	// Set to "-" to disable the API.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig is the capture format. It is fixed for the lifetime of a
// session.
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	ChunkSize  int    `yaml:"chunk_size"`
	Format     string `yaml:"format"`

	// OverflowTolerance is the number of consecutive input overflows
	// tolerated before capture fails. 0 tolerates any number.
	OverflowTolerance int `yaml:"overflow_tolerance"`

	// Device selects an input device by name. Empty uses the system default.
	Device string `yaml:"device"`
}

// VADConfig selects and tunes the voice activity detector.
type VADConfig struct {
	// Provider is "silero" or "energy". Default: "silero".
	Provider string `yaml:"provider"`

	// ModelPath is the Silero ONNX model file.
	ModelPath string `yaml:"model_path"`

	// Threshold is the speech probability a chunk must exceed. Default: 0.5.
	Threshold float64 `yaml:"threshold"`

	// MinSpeechDurationMs is how long speech must last to be recorded.
	// Default: 100.
	MinSpeechDurationMs int `yaml:"min_speech_duration_ms"`

	// MinSilenceDurationMs is how much silence ends an utterance.
	// Default: 1000.
	MinSilenceDurationMs int `yaml:"min_silence_duration_ms"`

	// Options holds provider-specific settings (e.g. "ceiling" for energy).
	Options map[string]any `yaml:"options"`
}

// ProviderEntry configures one transcription backend. Provider selects the
// factory in the [Registry].
type ProviderEntry struct {
	// Provider is "whisper-native", "whisper" or "openai".
	Provider string `yaml:"provider"`

	// Model is a model file path (whisper-native) or model name.
	Model string `yaml:"model"`

	// BaseURL is the server address for HTTP backends.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against hosted backends.
	APIKey string `yaml:"api_key"`

	// Language is a BCP-47 hint. Empty lets the backend decide.
	Language string `yaml:"language"`

	// TimeoutMs bounds one request. 0 uses the backend default.
	TimeoutMs int `yaml:"timeout_ms"`

	// Options holds provider-specific settings.
	Options map[string]any `yaml:"options"`
}

// TranscriptionConfig is the primary backend plus ordered fallbacks.
type TranscriptionConfig struct {
	ProviderEntry `yaml:",inline"`

	// Fallbacks are tried in order when the primary fails or its circuit
	// breaker is open.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// InsertConfig configures text delivery.
type InsertConfig struct {
	// Mode is paste, clipboard or command. Default: paste.
	Mode InsertMode `yaml:"mode"`

	// PasteDelayMs is the pause between copying and pasting. Default: 200.
	PasteDelayMs int `yaml:"paste_delay_ms"`

	// Modifier is "ctrl" or "super". Empty picks the platform default.
	Modifier string `yaml:"modifier"`

	// Command is the argv run in command mode; the text arrives on stdin.
	Command []string `yaml:"command"`

	// RestoreClipboard puts back the previous clipboard text after pasting.
	RestoreClipboard bool `yaml:"restore_clipboard"`
}

// NotificationsConfig toggles desktop notifications.
type NotificationsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// HistoryConfig configures the utterance log.
type HistoryConfig struct {
	// PostgresDSN enables the durable store. Empty keeps history in memory.
	PostgresDSN string `yaml:"postgres_dsn"`

	// MaxEntries caps the in-memory log. Default: 200.
	MaxEntries int `yaml:"max_entries"`
}
