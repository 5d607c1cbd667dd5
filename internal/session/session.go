// Package session runs one microphone capture session at a time.
//
// A [Controller] opens the audio device, scores every chunk with the VAD,
// feeds the segmentation engine and, for each finished utterance, writes a
// temporary WAV file, transcribes it and routes the text: the stop phrase is
// reported on [Controller.StopRequests], anything else is corrected against
// the vocabulary and inserted.
//
// The capture loop polls for cancellation at chunk boundaries only. An
// utterance still being recorded when the session stops is discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/voxpaste/internal/history"
	"github.com/MrWong99/voxpaste/internal/insert"
	"github.com/MrWong99/voxpaste/internal/observe"
	"github.com/MrWong99/voxpaste/internal/router"
	"github.com/MrWong99/voxpaste/internal/segment"
	"github.com/MrWong99/voxpaste/internal/status"
	"github.com/MrWong99/voxpaste/internal/transcript"
	"github.com/MrWong99/voxpaste/pkg/audio"
	"github.com/MrWong99/voxpaste/pkg/provider/stt"
	"github.com/MrWong99/voxpaste/pkg/provider/vad"
)

var (
	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("session: already running")

	// ErrNotReady is returned when the speech models have not loaded yet.
	ErrNotReady = errors.New("session: models not loaded")

	// ErrDevice wraps audio device failures.
	ErrDevice = errors.New("session: audio device error")

	// ErrModel wraps VAD and transcription failures.
	ErrModel = errors.New("session: model error")
)

// Deps are the collaborators of a [Controller]. Source, VAD, STT and
// Inserter are required.
type Deps struct {
	Source   audio.Source
	VAD      vad.SessionHandle
	STT      stt.Provider
	Inserter insert.Inserter

	// InsertMode labels insertion metrics. Default: "paste".
	InsertMode string

	// Observer receives status events. Default: [status.Nop].
	Observer status.Observer

	// History logs routed utterances. Optional.
	History history.Store

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Info describes the current or most recent session.
type Info struct {
	SessionID  string    `json:"session_id,omitempty"`
	Running    bool      `json:"running"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	Utterances int64     `json:"utterances"`
}

// Controller owns the session lifecycle. All methods are safe for concurrent
// use; Stop must not be called from the capture loop itself.
type Controller struct {
	deps Deps

	// mu serialises Start and Stop and guards cfg and the fields below.
	mu         sync.Mutex
	cfg        Config
	done       chan struct{}
	cancelLoop context.CancelFunc

	running    atomic.Bool
	cancelled  atomic.Bool
	current    atomic.Pointer[Info]
	utterances atomic.Int64

	stopReq chan string
}

// New returns a Controller. cfg is validated here so that a bad file fails
// at startup rather than on first use.
func New(cfg Config, deps Deps) (*Controller, error) {
	var errs []error
	if deps.Source == nil {
		errs = append(errs, errors.New("session: audio source is required"))
	}
	if deps.VAD == nil {
		errs = append(errs, errors.New("session: VAD is required"))
	}
	if deps.STT == nil {
		errs = append(errs, errors.New("session: transcription provider is required"))
	}
	if deps.Inserter == nil {
		errs = append(errs, errors.New("session: inserter is required"))
	}
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if deps.Observer == nil {
		deps.Observer = status.Nop
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	if deps.InsertMode == "" {
		deps.InsertMode = "paste"
	}
	return &Controller{
		deps:    deps,
		cfg:     cfg,
		stopReq: make(chan string, 1),
	}, nil
}

// StopRequests delivers the session id whenever the stop phrase is heard.
// The controller never stops itself; the receiver decides when to call
// [Controller.Stop]. At most one request is buffered.
func (c *Controller) StopRequests() <-chan string {
	return c.stopReq
}

// Config returns the configuration the next session will use.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig replaces the configuration for subsequent sessions.
func (c *Controller) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return nil
}

// Running reports whether a capture loop is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Info returns a snapshot of the current or most recent session.
func (c *Controller) Info() Info {
	info := Info{Running: c.running.Load(), Utterances: c.utterances.Load()}
	if cur := c.current.Load(); cur != nil {
		info.SessionID = cur.SessionID
		info.StartedAt = cur.StartedAt
	}
	return info
}

// Start opens the audio device and launches the capture loop. The
// configuration is checked before the device is touched. ctx scopes the
// device open; the loop itself runs until [Controller.Stop] or a device
// failure.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return ErrAlreadyRunning
	}
	c.reap()

	cfg := c.cfg
	segCfg, err := cfg.segmentation()
	if err != nil {
		return err
	}
	engine, err := segment.New(segCfg)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	c.deps.VAD.Reset()

	stream, err := c.deps.Source.Open(ctx, cfg.Format)
	if err != nil {
		err = fmt.Errorf("%w: open: %w", ErrDevice, err)
		c.emit(status.PhaseError, "", err.Error())
		return err
	}

	id := uuid.NewString()
	c.current.Store(&Info{SessionID: id, StartedAt: time.Now().UTC()})
	c.utterances.Store(0)
	c.cancelled.Store(false)
	c.running.Store(true)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelLoop = cancel
	c.done = make(chan struct{})

	l := &loop{
		c:      c,
		id:     id,
		cfg:    cfg,
		stream: stream,
		engine: engine,
		router: c.newRouter(cfg),
		fixer:  transcript.NewCorrector(cfg.Vocabulary),
		log:    slog.With("session_id", id),
	}
	c.deps.Metrics.ActiveSessions.Add(ctx, 1)
	slog.Info("session started",
		"session_id", id,
		"sample_rate", cfg.Format.SampleRate,
		"chunk_size", cfg.Format.ChunkSize,
		"min_speech_chunks", segCfg.MinSpeechChunks,
		"min_silence_chunks", segCfg.MinSilenceChunks,
	)
	c.emit(status.PhaseListening, id, "")

	go l.run(loopCtx, c.done)
	return nil
}

// Stop cancels the capture loop and waits until it has exited and the
// device is closed. Stopping an idle controller is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		return nil
	}
	c.cancelled.Store(true)
	c.cancelLoop()
	<-c.done
	c.done = nil
	c.cancelLoop = nil
	return nil
}

// Done returns a channel closed when the current loop exits, or nil when
// no session was started.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// reap releases the bookkeeping of a loop that ended on its own. Called
// with c.mu held.
func (c *Controller) reap() {
	if c.done == nil {
		return
	}
	<-c.done
	c.cancelLoop()
	c.done = nil
	c.cancelLoop = nil
}

func (c *Controller) newRouter(cfg Config) *router.Router {
	var opts []router.Option
	if cfg.IgnorePunctuation {
		opts = append(opts, router.WithIgnorePunctuation())
	}
	return router.New(cfg.StopPhrase, opts...)
}

func (c *Controller) emit(phase status.Phase, id, cause string) {
	c.deps.Observer.OnStatus(status.Event{
		Phase:     phase,
		Cause:     cause,
		SessionID: id,
		Time:      time.Now().UTC(),
	})
}

// requestStop queues a stop request without blocking.
func (c *Controller) requestStop(id string) {
	select {
	case c.stopReq <- id:
	default:
	}
}
