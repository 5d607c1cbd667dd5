// Command voxpaste listens to the microphone, transcribes what you say and
// pastes it into the focused application. Saying the stop phrase ends the
// session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/voxpaste/internal/app"
	"github.com/MrWong99/voxpaste/internal/config"
	"github.com/MrWong99/voxpaste/pkg/audio"
	"github.com/MrWong99/voxpaste/pkg/audio/portaudio"
	"github.com/MrWong99/voxpaste/pkg/provider/stt"
	"github.com/MrWong99/voxpaste/pkg/provider/stt/openai"
	"github.com/MrWong99/voxpaste/pkg/provider/stt/whisper"
	"github.com/MrWong99/voxpaste/pkg/provider/vad"
	"github.com/MrWong99/voxpaste/pkg/provider/vad/energy"
	"github.com/MrWong99/voxpaste/pkg/provider/vad/silero"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "voxpaste.yaml", "path to the YAML configuration file")
	debug := flag.Bool("debug", false, "log at debug level regardless of the config file")
	autostart := flag.Bool("autostart", false, "start listening as soon as the models are loaded")
	watch := flag.Bool("watch", true, "reload the configuration file when it changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxpaste: config file %q not found; see configs/example.yaml\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxpaste: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Level())
	if *debug {
		level.Set(slog.LevelDebug)
	}
	slog.SetDefault(newLogger(level))

	slog.Info("voxpaste starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"vad", cfg.VAD.Provider,
		"stt", cfg.Transcription.Provider,
		"insert", cfg.Insert.Mode,
	)

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, app.RegistryLoader(cfg, reg),
		app.WithAutostart(*autostart),
		app.WithLevelVar(level),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	if *watch {
		w, err := config.NewWatcher(*configPath, func(old, cur *config.Config) {
			if *debug {
				cur.Server.LogLevel = config.LogDebug
			}
			application.ApplyConfig(old, cur)
		})
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── VAD ───────────────────────────────────────────────────────────────────

	reg.RegisterVAD("silero", func(c config.VADConfig) (vad.Engine, error) {
		var opts []silero.Option
		if pad, ok := optInt(c.Options, "speech_pad_ms"); ok {
			opts = append(opts, silero.WithSpeechPad(pad))
		}
		return silero.New(c.ModelPath, opts...)
	})

	reg.RegisterVAD("energy", func(c config.VADConfig) (vad.Engine, error) {
		var opts []energy.Option
		if ceiling, ok := optFloat(c.Options, "ceiling"); ok {
			opts = append(opts, energy.WithCeiling(ceiling))
		}
		if alpha, ok := optFloat(c.Options, "smoothing"); ok {
			opts = append(opts, energy.WithSmoothing(alpha))
		}
		return energy.New(opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper-native", func(e config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.NativeOption
		if e.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(e.Language))
		}
		return whisper.NewNative(e.Model, opts...)
	})

	reg.RegisterSTT("whisper", func(e config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if e.Model != "" {
			opts = append(opts, whisper.WithModel(e.Model))
		}
		if e.Language != "" {
			opts = append(opts, whisper.WithLanguage(e.Language))
		}
		if e.TimeoutMs > 0 {
			opts = append(opts, whisper.WithHTTPClient(&http.Client{Timeout: time.Duration(e.TimeoutMs) * time.Millisecond}))
		}
		return whisper.New(e.BaseURL, opts...)
	})

	reg.RegisterSTT("openai", func(e config.ProviderEntry) (stt.Provider, error) {
		var opts []openai.Option
		if e.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(e.BaseURL))
		}
		if e.Language != "" {
			opts = append(opts, openai.WithLanguage(e.Language))
		}
		if e.TimeoutMs > 0 {
			opts = append(opts, openai.WithTimeout(time.Duration(e.TimeoutMs)*time.Millisecond))
		}
		if n, ok := optInt(e.Options, "max_retries"); ok {
			opts = append(opts, openai.WithMaxRetries(n))
		}
		return openai.New(e.APIKey, e.Model, opts...)
	})

	// ── Audio ─────────────────────────────────────────────────────────────────

	reg.RegisterAudio(app.AudioProvider, func(c config.AudioConfig) (audio.Source, error) {
		return portaudio.New(
			portaudio.WithDevice(c.Device),
			portaudio.WithOverflowTolerance(c.OverflowTolerance),
		), nil
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optFloat extracts a number from a provider Options map. YAML decodes
// integers as int, so both are accepted.
func optFloat(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// optInt extracts an integer from a provider Options map.
func optInt(opts map[string]any, key string) (int, bool) {
	v, ok := opts[key].(int)
	return v, ok
}
