package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/voxpaste/internal/config"
	"github.com/MrWong99/voxpaste/internal/segment"
)

const validYAML = `
server:
  listen_addr: "127.0.0.1:9000"
  log_level: debug
audio:
  sample_rate: 16000
  channels: 1
  chunk_size: 512
  overflow_tolerance: 5
vad:
  provider: silero
  model_path: /models/silero_vad.onnx
  threshold: 0.6
  min_speech_duration_ms: 250
transcription:
  provider: whisper-native
  model: /models/ggml-base.en.bin
  language: en
  fallbacks:
    - provider: openai
      model: whisper-1
      api_key: sk-test
stop_phrase: "over and out"
insert:
  mode: command
  command: ["osascript", "-e", "tell application \"System Events\" to keystroke (the clipboard)"]
vocabulary:
  - Kubernetes
  - PostgreSQL
notifications:
  enabled: true
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Audio.OverflowTolerance != 5 {
		t.Errorf("OverflowTolerance = %d, want 5", cfg.Audio.OverflowTolerance)
	}
	if cfg.VAD.Threshold != 0.6 {
		t.Errorf("Threshold = %g, want 0.6", cfg.VAD.Threshold)
	}
	if cfg.VAD.MinSpeechDurationMs != 250 {
		t.Errorf("MinSpeechDurationMs = %d, want 250", cfg.VAD.MinSpeechDurationMs)
	}
	// Untouched fields get defaults.
	if cfg.VAD.MinSilenceDurationMs != config.DefaultMinSilenceMs {
		t.Errorf("MinSilenceDurationMs = %d, want default", cfg.VAD.MinSilenceDurationMs)
	}
	if cfg.Transcription.Provider != "whisper-native" || cfg.Transcription.Language != "en" {
		t.Errorf("Transcription = %+v", cfg.Transcription.ProviderEntry)
	}
	if len(cfg.Transcription.Fallbacks) != 1 || cfg.Transcription.Fallbacks[0].Provider != "openai" {
		t.Errorf("Fallbacks = %+v", cfg.Transcription.Fallbacks)
	}
	if cfg.StopPhrase != "over and out" {
		t.Errorf("StopPhrase = %q", cfg.StopPhrase)
	}
	if cfg.StopGraceMs != config.DefaultStopGraceMs {
		t.Errorf("StopGraceMs = %d, want default", cfg.StopGraceMs)
	}
	if cfg.Insert.Mode != config.InsertCommand || len(cfg.Insert.Command) != 3 {
		t.Errorf("Insert = %+v", cfg.Insert)
	}
	if len(cfg.Vocabulary) != 2 {
		t.Errorf("Vocabulary = %v", cfg.Vocabulary)
	}
	if !cfg.Notifications.Enabled {
		t.Error("Notifications.Enabled = false")
	}
	if cfg.History.MaxEntries != config.DefaultHistoryLength {
		t.Errorf("MaxEntries = %d, want default", cfg.History.MaxEntries)
	}
}

func TestLoadFromReader_EmptyDocumentFailsWithoutModel(t *testing.T) {
	t.Parallel()

	// Defaults pick silero and whisper-native, both of which need model files.
	_, err := config.LoadFromReader(strings.NewReader(""))
	if err == nil {
		t.Fatal("expected error for missing model paths")
	}
	for _, want := range []string{"vad.model_path", "transcription.model"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("stop_phrse: halt\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "stop_phrse") {
		t.Errorf("error %q does not name the unknown field", err)
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.ChunkSize != 512 || cfg.Audio.Channels != 1 || cfg.Audio.Format != "int16" {
		t.Errorf("Audio = %+v", cfg.Audio)
	}
	if cfg.VAD.Threshold != 0.5 || cfg.VAD.MinSpeechDurationMs != 100 || cfg.VAD.MinSilenceDurationMs != 1000 {
		t.Errorf("VAD = %+v", cfg.VAD)
	}
	if cfg.StopPhrase != "stop" || cfg.StopGraceMs != 100 {
		t.Errorf("stop = %q/%d", cfg.StopPhrase, cfg.StopGraceMs)
	}
	if cfg.Insert.Mode != config.InsertPaste || cfg.Insert.PasteDelayMs != 200 {
		t.Errorf("Insert = %+v", cfg.Insert)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *config.Config {
		cfg := config.Default()
		cfg.VAD.Provider = "energy"
		cfg.Transcription.Provider = "whisper"
		cfg.Transcription.BaseURL = "http://localhost:8080"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{
			name:    "bad log level",
			mutate:  func(c *config.Config) { c.Server.LogLevel = "loud" },
			wantErr: "server.log_level",
		},
		{
			name:    "zero sample rate",
			mutate:  func(c *config.Config) { c.Audio.SampleRate = 0 },
			wantErr: "audio.sample_rate",
		},
		{
			name:    "float format",
			mutate:  func(c *config.Config) { c.Audio.Format = "float32" },
			wantErr: "audio.format",
		},
		{
			name:    "negative overflow tolerance",
			mutate:  func(c *config.Config) { c.Audio.OverflowTolerance = -1 },
			wantErr: "audio.overflow_tolerance",
		},
		{
			name:    "threshold above one",
			mutate:  func(c *config.Config) { c.VAD.Threshold = 1.5 },
			wantErr: "vad.threshold",
		},
		{
			// 10ms at 16kHz is less than one 512-sample chunk.
			name:    "speech duration below one chunk",
			mutate:  func(c *config.Config) { c.VAD.MinSpeechDurationMs = 10 },
			wantErr: "vad.min_speech_duration_ms",
		},
		{
			name:    "silero without model",
			mutate:  func(c *config.Config) { c.VAD.Provider = "silero" },
			wantErr: "vad.model_path",
		},
		{
			name:    "whisper server without url",
			mutate:  func(c *config.Config) { c.Transcription.BaseURL = "" },
			wantErr: "transcription.base_url",
		},
		{
			name: "openai without key",
			mutate: func(c *config.Config) {
				c.Transcription.Fallbacks = []config.ProviderEntry{{Provider: "openai"}}
			},
			wantErr: "transcription.fallbacks[0].api_key",
		},
		{
			name: "fallback without provider",
			mutate: func(c *config.Config) {
				c.Transcription.Fallbacks = []config.ProviderEntry{{Model: "x"}}
			},
			wantErr: "transcription.fallbacks[0].provider",
		},
		{
			name:    "negative stop grace",
			mutate:  func(c *config.Config) { c.StopGraceMs = -5 },
			wantErr: "stop_grace_ms",
		},
		{
			name:    "unknown insert mode",
			mutate:  func(c *config.Config) { c.Insert.Mode = "type" },
			wantErr: "insert.mode",
		},
		{
			name:    "command mode without argv",
			mutate:  func(c *config.Config) { c.Insert.Mode = config.InsertCommand },
			wantErr: "insert.command",
		},
		{
			name:    "bad modifier",
			mutate:  func(c *config.Config) { c.Insert.Modifier = "alt" },
			wantErr: "insert.modifier",
		},
		{
			name:    "negative history length",
			mutate:  func(c *config.Config) { c.History.MaxEntries = -1 },
			wantErr: "history.max_entries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_WrapsSegmentationError(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.VAD.Provider = "energy"
	cfg.Transcription.Provider = "whisper"
	cfg.Transcription.BaseURL = "http://localhost:8080"
	cfg.VAD.MinSilenceDurationMs = 1

	err := config.Validate(cfg)
	if !errors.Is(err, segment.ErrInvalidConfig) {
		t.Errorf("errors.Is(err, segment.ErrInvalidConfig) = false; err = %v", err)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Server.LogLevel = "verbose"
	cfg.Insert.Mode = "type"
	cfg.StopGraceMs = -1

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"server.log_level", "insert.mode", "stop_grace_ms"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error is missing %q: %v", want, err)
		}
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "voxpaste.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StopPhrase != "over and out" {
		t.Errorf("StopPhrase = %q", cfg.StopPhrase)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestLogLevel(t *testing.T) {
	t.Parallel()

	if config.LogLevel("trace").IsValid() {
		t.Error(`"trace" should be invalid`)
	}
	if got := config.LogDebug.Level().String(); got != "DEBUG" {
		t.Errorf("LogDebug.Level() = %s", got)
	}
	if got := config.LogLevel("bogus").Level().String(); got != "INFO" {
		t.Errorf("unknown level = %s, want INFO", got)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("Load example: %v", err)
	}
	if cfg.VAD.Provider != "silero" || len(cfg.Transcription.Fallbacks) != 1 {
		t.Errorf("unexpected example config: %+v", cfg)
	}
}
