// Package app wires the voxpaste subsystems into a running application.
//
// New builds everything that is cheap to construct: history store, text
// inserter, status fan-out, telemetry and the control API. Run loads the
// speech models in the background, supervises the capture session and
// serves HTTP until its context ends. Shutdown joins the capture loop and
// releases resources in order.
//
// Tests inject doubles through functional options (WithInserter,
// WithHistory, WithTelemetry).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxpaste/internal/config"
	"github.com/MrWong99/voxpaste/internal/health"
	"github.com/MrWong99/voxpaste/internal/history"
	"github.com/MrWong99/voxpaste/internal/history/postgres"
	"github.com/MrWong99/voxpaste/internal/insert"
	"github.com/MrWong99/voxpaste/internal/observe"
	"github.com/MrWong99/voxpaste/internal/session"
	"github.com/MrWong99/voxpaste/internal/status"
	"github.com/MrWong99/voxpaste/pkg/audio"
)

// DisabledListenAddr turns the control API off.
const DisabledListenAddr = "-"

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	load      LoadFunc
	autostart bool
	level     *slog.LevelVar

	// stopGraceMs is read by the supervisor and updated on config reload.
	stopGraceMs atomic.Int64

	status    *status.Broadcaster
	history   history.Store
	inserter  insert.Inserter
	telemetry *observe.Telemetry
	health    *health.Handler
	sessions  *SessionManager
	server    *http.Server

	// closersMu guards closers, which grow when models finish loading.
	closersMu sync.Mutex
	closers   []func() error

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithInserter injects a text inserter instead of building one from config.
func WithInserter(in insert.Inserter) Option {
	return func(a *App) { a.inserter = in }
}

// WithHistory injects a history store instead of building one from config.
func WithHistory(s history.Store) Option {
	return func(a *App) { a.history = s }
}

// WithTelemetry injects telemetry instead of initialising the global
// OpenTelemetry providers.
func WithTelemetry(t *observe.Telemetry) Option {
	return func(a *App) { a.telemetry = t }
}

// WithAutostart starts a session as soon as the models are loaded.
func WithAutostart(on bool) Option {
	return func(a *App) { a.autostart = on }
}

// WithLevelVar lets configuration reloads adjust the log level.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// New creates an App. load is not called until Run.
func New(ctx context.Context, cfg *config.Config, load LoadFunc, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, load: load}
	a.stopGraceMs.Store(int64(cfg.StopGraceMs))
	for _, o := range opts {
		o(a)
	}

	if err := a.initTelemetry(ctx); err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}
	if err := a.initInserter(); err != nil {
		return nil, fmt.Errorf("app: init inserter: %w", err)
	}
	a.initStatus()

	a.sessions = NewSessionManager(SessionManagerConfig{
		Session:    SessionConfig(cfg),
		Observer:   a.status,
		Inserter:   a.inserter,
		InsertMode: string(cfg.Insert.Mode),
		History:    a.history,
		Metrics:    a.telemetry.Metrics,
	})
	if err := SessionConfig(cfg).Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a.health = health.New(health.Checker{Name: "models", Check: a.sessions.Check})
	if p, ok := a.history.(interface{ Ping(context.Context) error }); ok {
		a.health.Add(health.Checker{Name: "history", Check: p.Ping})
	}

	if cfg.Server.ListenAddr != DisabledListenAddr {
		a.server = &http.Server{
			Addr:              cfg.Server.ListenAddr,
			Handler:           a.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return a, nil
}

// SessionConfig derives the per-session parameters from cfg.
func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Format: audio.Format{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
			ChunkSize:  cfg.Audio.ChunkSize,
			Sample:     audio.SampleFormat(cfg.Audio.Format),
		},
		Threshold:         cfg.VAD.Threshold,
		MinSpeechMs:       cfg.VAD.MinSpeechDurationMs,
		MinSilenceMs:      cfg.VAD.MinSilenceDurationMs,
		StopPhrase:        cfg.StopPhrase,
		IgnorePunctuation: cfg.StopPhraseIgnorePunctuation,
		Language:          cfg.Transcription.Language,
		Vocabulary:        cfg.Vocabulary,
	}
}

func (a *App) initTelemetry(ctx context.Context) error {
	if a.telemetry != nil {
		return nil
	}
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		return err
	}
	a.telemetry = tel
	a.addCloser(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tel.Shutdown(ctx)
	})
	return nil
}

func (a *App) initHistory(ctx context.Context) error {
	if a.history != nil {
		return nil
	}
	if dsn := a.cfg.History.PostgresDSN; dsn != "" {
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return err
		}
		a.history = store
		a.addCloser(func() error {
			store.Close()
			return nil
		})
		slog.Info("history store connected", "backend", "postgres")
		return nil
	}
	a.history = history.NewMemoryStore(a.cfg.History.MaxEntries)
	return nil
}

func (a *App) initInserter() error {
	if a.inserter != nil {
		return nil
	}
	in, err := NewInserter(a.cfg.Insert)
	if err != nil {
		return err
	}
	a.inserter = in
	return nil
}

// NewInserter builds the inserter selected by cfg.Mode.
func NewInserter(cfg config.InsertConfig) (insert.Inserter, error) {
	switch cfg.Mode {
	case config.InsertClipboard:
		return &insert.ClipboardOnly{}, nil
	case config.InsertCommand:
		return insert.NewCommand(cfg.Command)
	case config.InsertPaste, "":
		mod := insert.Modifier(cfg.Modifier)
		if mod == "" {
			mod = insert.DefaultModifier()
		}
		keys, err := insert.NewKeyboard(mod)
		if err != nil {
			return nil, err
		}
		return insert.NewPaster(keys,
			insert.WithDelay(time.Duration(cfg.PasteDelayMs)*time.Millisecond),
			insert.WithRestoreClipboard(cfg.RestoreClipboard),
		), nil
	default:
		return nil, fmt.Errorf("unknown insert mode %q", cfg.Mode)
	}
}

func (a *App) initStatus() {
	a.status = status.NewBroadcaster()
	a.status.Attach(status.LogObserver(slog.Default()))
	if a.cfg.Notifications.Enabled {
		a.status.Attach(status.NewNotifier("voxpaste"))
	}
}

func (a *App) addCloser(fn func() error) {
	a.closersMu.Lock()
	a.closers = append(a.closers, fn)
	a.closersMu.Unlock()
}

// Sessions exposes the session manager.
func (a *App) Sessions() *SessionManager { return a.sessions }

// Status exposes the status broadcaster.
func (a *App) Status() *status.Broadcaster { return a.status }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run loads the models, serves the control API and supervises sessions until
// ctx is cancelled. It returns nil on a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.emit(status.PhaseLoading, "")
	results := loadAsync(gctx, a.load)

	g.Go(func() error {
		a.supervise(gctx, results)
		return nil
	})

	if a.server != nil {
		g.Go(func() error {
			slog.Info("control API listening", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	slog.Info("app running")
	return g.Wait()
}

// supervise applies the load result and turns stop phrase requests into a
// delayed Stop.
func (a *App) supervise(ctx context.Context, results <-chan LoadResult) {
	var (
		stopReqs <-chan string
		grace    *time.Timer
		graceC   <-chan time.Time
		pending  string
	)
	defer func() {
		if grace != nil {
			grace.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-results:
			results = nil
			if res.Err != nil {
				a.onLoadFailed(res.Err)
				continue
			}
			for _, c := range res.Providers.Closers {
				a.addCloser(c)
			}
			if err := a.sessions.Ready(res.Providers); err != nil {
				a.onLoadFailed(err)
				continue
			}
			stopReqs = a.sessions.StopRequests()
			a.emit(status.PhaseReady, "")
			if a.autostart {
				if err := a.sessions.Start(ctx); err != nil {
					slog.Error("autostart failed", "err", err)
				}
			}

		case id := <-stopReqs:
			pending = id
			d := time.Duration(a.stopGraceMs.Load()) * time.Millisecond
			if grace == nil {
				grace = time.NewTimer(d)
			} else {
				grace.Reset(d)
			}
			graceC = grace.C
			slog.Info("stop phrase heard", "session_id", id, "grace", d)

		case <-graceC:
			graceC = nil
			// A new session may have been started in the meantime; leave it be.
			if info := a.sessions.Info(); info.Running && info.SessionID == pending {
				if err := a.sessions.Stop(); err != nil {
					slog.Warn("stop after stop phrase failed", "err", err)
				}
			}
			pending = ""
		}
	}
}

func (a *App) onLoadFailed(err error) {
	slog.Error("failed to load models", "err", err)
	a.sessions.Fail(err)
	a.emit(status.PhaseError, err.Error())
}

func (a *App) emit(phase status.Phase, cause string) {
	a.status.OnStatus(status.Event{Phase: phase, Cause: cause, Time: time.Now().UTC()})
}

// ApplyConfig reacts to a reloaded configuration file. The log level and stop
// grace change at once, session parameters from the next start. Everything else needs a
// restart and is only reported.
func (a *App) ApplyConfig(old, cur *config.Config) {
	d := config.Compare(old, cur)
	if d.Empty() {
		return
	}
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(cur.Server.LogLevel.Level())
		slog.Info("log level changed", "level", cur.Server.LogLevel)
	}
	if d.StopGraceChanged {
		a.stopGraceMs.Store(int64(cur.StopGraceMs))
		slog.Info("stop grace changed", "ms", cur.StopGraceMs)
	}
	if d.SessionChanged {
		next := SessionConfig(cur)
		// The capture format is bound to the VAD session; it needs a restart.
		next.Format = a.sessions.Config().Format
		if err := a.sessions.SetConfig(next); err != nil {
			slog.Warn("ignoring session config change", "err", err)
		} else {
			slog.Info("session config updated; applies from the next session")
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "sections", d.RestartRequired)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the running session (joining the capture loop), closes the
// status fan-out and runs the closers in order. If ctx expires first the
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		if err := a.sessions.Close(); err != nil {
			slog.Warn("session shutdown error", "err", err)
		}
		a.emit(status.PhaseStopped, "")
		a.status.Close()

		a.closersMu.Lock()
		closers := a.closers
		a.closersMu.Unlock()
		slog.Info("shutting down", "closers", len(closers))

		for i, closer := range closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
