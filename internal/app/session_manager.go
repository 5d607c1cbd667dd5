package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/voxpaste/internal/history"
	"github.com/MrWong99/voxpaste/internal/insert"
	"github.com/MrWong99/voxpaste/internal/observe"
	"github.com/MrWong99/voxpaste/internal/session"
	"github.com/MrWong99/voxpaste/internal/status"
	"github.com/MrWong99/voxpaste/pkg/provider/vad"
)

// errLoading is reported by the readiness check until models are loaded.
var errLoading = errors.New("models are still loading")

// SessionManagerConfig holds everything a [SessionManager] needs apart from
// the providers, which arrive later via [SessionManager.Ready].
type SessionManagerConfig struct {
	Session    session.Config
	Observer   status.Observer
	Inserter   insert.Inserter
	InsertMode string
	History    history.Store
	Metrics    *observe.Metrics
}

// SessionManager gates the session controller behind model loading. Before
// [SessionManager.Ready] every start request fails with
// [session.ErrNotReady]. It is safe for concurrent use.
type SessionManager struct {
	cfg SessionManagerConfig

	mu      sync.RWMutex
	ctrl    *session.Controller
	vad     vad.SessionHandle
	loadErr error
}

// NewSessionManager returns a manager waiting for its providers.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	return &SessionManager{cfg: cfg}
}

// Ready creates the VAD session and the controller from p. It fails if the
// manager is already ready.
func (sm *SessionManager) Ready(p *Providers) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.ctrl != nil {
		return errors.New("app: session manager already ready")
	}

	sc := sm.cfg.Session
	handle, err := p.VAD.NewSession(vad.Config{
		SampleRate: sc.Format.SampleRate,
		FrameSize:  sc.Format.ChunkSize,
		Threshold:  sc.Threshold,
	})
	if err != nil {
		err = fmt.Errorf("%w: create vad session: %w", session.ErrModel, err)
		sm.loadErr = err
		return err
	}

	ctrl, err := session.New(sc, session.Deps{
		Source:     p.Source,
		VAD:        handle,
		STT:        p.STT,
		Inserter:   sm.cfg.Inserter,
		InsertMode: sm.cfg.InsertMode,
		Observer:   sm.cfg.Observer,
		History:    sm.cfg.History,
		Metrics:    sm.cfg.Metrics,
	})
	if err != nil {
		_ = handle.Close()
		sm.loadErr = err
		return err
	}

	sm.ctrl = ctrl
	sm.vad = handle
	sm.loadErr = nil
	return nil
}

// Fail records a model loading failure for the readiness check.
func (sm *SessionManager) Fail(err error) {
	sm.mu.Lock()
	sm.loadErr = err
	sm.mu.Unlock()
}

// Check is the readiness probe: nil once a controller exists.
func (sm *SessionManager) Check(context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	switch {
	case sm.ctrl != nil:
		return nil
	case sm.loadErr != nil:
		return sm.loadErr
	default:
		return errLoading
	}
}

func (sm *SessionManager) controller() *session.Controller {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.ctrl
}

// Start begins a capture session.
func (sm *SessionManager) Start(ctx context.Context) error {
	ctrl := sm.controller()
	if ctrl == nil {
		return session.ErrNotReady
	}
	return ctrl.Start(ctx)
}

// Stop ends the running session and waits for the capture loop to exit.
// It is a no-op before the models are loaded.
func (sm *SessionManager) Stop() error {
	ctrl := sm.controller()
	if ctrl == nil {
		return nil
	}
	return ctrl.Stop()
}

// Toggle stops a running session or starts a new one. It reports whether a
// session is running afterwards.
func (sm *SessionManager) Toggle(ctx context.Context) (bool, error) {
	ctrl := sm.controller()
	if ctrl == nil {
		return false, session.ErrNotReady
	}
	if ctrl.Running() {
		return false, ctrl.Stop()
	}
	if err := ctrl.Start(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Info describes the current or most recent session.
func (sm *SessionManager) Info() session.Info {
	ctrl := sm.controller()
	if ctrl == nil {
		return session.Info{}
	}
	return ctrl.Info()
}

// StopRequests returns the controller's stop phrase channel, or nil before
// the models are loaded.
func (sm *SessionManager) StopRequests() <-chan string {
	ctrl := sm.controller()
	if ctrl == nil {
		return nil
	}
	return ctrl.StopRequests()
}

// Config returns the session parameters the next start will use.
func (sm *SessionManager) Config() session.Config {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.cfg.Session
}

// SetConfig replaces the session parameters. They apply from the next start.
func (sm *SessionManager) SetConfig(cfg session.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cfg.Session = cfg
	if sm.ctrl != nil {
		return sm.ctrl.SetConfig(cfg)
	}
	return nil
}

// Close stops any running session and releases the VAD session.
func (sm *SessionManager) Close() error {
	sm.mu.Lock()
	ctrl, handle := sm.ctrl, sm.vad
	sm.mu.Unlock()

	if ctrl == nil {
		return nil
	}
	var errs []error
	if err := ctrl.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := handle.Close(); err != nil {
		errs = append(errs, fmt.Errorf("app: close vad session: %w", err))
	}
	slog.Debug("session manager closed")
	return errors.Join(errs...)
}
