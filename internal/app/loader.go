package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrWong99/voxpaste/internal/config"
	"github.com/MrWong99/voxpaste/internal/resilience"
	"github.com/MrWong99/voxpaste/pkg/audio"
	"github.com/MrWong99/voxpaste/pkg/provider/stt"
	"github.com/MrWong99/voxpaste/pkg/provider/vad"
)

// AudioProvider is the registry name of the default microphone source.
const AudioProvider = "portaudio"

// Providers are the speech backends and the capture device. Loading them can
// take seconds (model files), so it happens off the main goroutine.
type Providers struct {
	VAD    vad.Engine
	STT    stt.Provider
	Source audio.Source

	// Closers release provider resources on shutdown, in order.
	Closers []func() error
}

// LoadFunc constructs the providers.
type LoadFunc func(ctx context.Context) (*Providers, error)

// LoadResult is delivered once model loading finishes.
type LoadResult struct {
	Providers *Providers
	Err       error
}

// loadAsync runs load on its own goroutine and delivers the result on the
// returned channel, which is buffered so the loader never blocks.
func loadAsync(ctx context.Context, load LoadFunc) <-chan LoadResult {
	ch := make(chan LoadResult, 1)
	go func() {
		start := time.Now()
		p, err := load(ctx)
		if err == nil && p == nil {
			err = errors.New("app: loader returned no providers")
		}
		if err == nil {
			slog.Info("models loaded", "took", time.Since(start).Round(time.Millisecond))
		}
		ch <- LoadResult{Providers: p, Err: err}
	}()
	return ch
}

// RegistryLoader returns a [LoadFunc] that builds every provider named in cfg
// from reg. Transcription fallbacks are chained behind the primary with a
// circuit breaker per backend.
func RegistryLoader(cfg *config.Config, reg *config.Registry) LoadFunc {
	return func(ctx context.Context) (*Providers, error) {
		ps := &Providers{}
		fail := func(err error) (*Providers, error) {
			closeAll(ps.Closers)
			return nil, err
		}

		engine, err := reg.CreateVAD(cfg.VAD)
		if err != nil {
			return fail(fmt.Errorf("app: create vad %q: %w", cfg.VAD.Provider, err))
		}
		ps.VAD = engine
		ps.addCloser(engine)
		slog.Info("provider created", "kind", "vad", "name", cfg.VAD.Provider)

		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		primary, err := reg.CreateSTT(cfg.Transcription.ProviderEntry)
		if err != nil {
			return fail(fmt.Errorf("app: create stt %q: %w", cfg.Transcription.Provider, err))
		}
		ps.addCloser(primary)
		slog.Info("provider created", "kind", "stt", "name", cfg.Transcription.Provider, "model", cfg.Transcription.Model)

		if len(cfg.Transcription.Fallbacks) == 0 {
			ps.STT = primary
		} else {
			fb := resilience.NewSTTFallback(primary, cfg.Transcription.Provider, resilience.FallbackConfig{
				CircuitBreaker: resilience.CircuitBreakerConfig{
					OnStateChange: func(name string, from, to resilience.State) {
						slog.Warn("stt circuit breaker state changed", "provider", name, "from", from, "to", to)
					},
				},
			})
			for i, entry := range cfg.Transcription.Fallbacks {
				p, err := reg.CreateSTT(entry)
				if err != nil {
					return fail(fmt.Errorf("app: create stt fallback %d (%q): %w", i, entry.Provider, err))
				}
				ps.addCloser(p)
				fb.AddFallback(fallbackName(entry, i), p)
				slog.Info("provider created", "kind", "stt-fallback", "name", entry.Provider, "model", entry.Model)
			}
			ps.STT = fb
		}

		src, err := reg.CreateAudio(AudioProvider, cfg.Audio)
		if err != nil {
			return fail(fmt.Errorf("app: create audio source: %w", err))
		}
		ps.Source = src
		ps.addCloser(src)
		return ps, nil
	}
}

// fallbackName keeps breaker names unique when the same backend is listed
// twice (e.g. two whisper servers).
func fallbackName(e config.ProviderEntry, i int) string {
	return fmt.Sprintf("%s#%d", e.Provider, i+1)
}

// addCloser records v for shutdown if it holds resources.
func (p *Providers) addCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		p.Closers = append(p.Closers, c.Close)
	}
}

func closeAll(closers []func() error) {
	for i, c := range closers {
		if err := c(); err != nil {
			slog.Warn("closer error", "index", i, "err", err)
		}
	}
}
