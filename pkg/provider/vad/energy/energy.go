// Package energy provides a model-free [vad.Engine] that scores frames by their
// RMS amplitude. It needs no model file and is useful on machines without the
// ONNX runtime, or as a quick fallback while a neural model is unavailable.
//
// The probability is the frame RMS divided by a ceiling level, clamped to
// [0, 1]. Optional exponential smoothing damps single-frame clicks.
package energy

import (
	"fmt"
	"sync"

	"github.com/MrWong99/voxpaste/pkg/audio"
	"github.com/MrWong99/voxpaste/pkg/provider/vad"
)

const defaultCeiling = 2000.0

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithCeiling sets the RMS level (int16 scale) that maps to probability 1.0.
// Default: 2000.
func WithCeiling(rms float64) Option {
	return func(e *Engine) {
		e.ceiling = rms
	}
}

// WithSmoothing sets the weight given to the previous score, in [0, 1).
// Zero (the default) disables smoothing.
func WithSmoothing(alpha float64) Option {
	return func(e *Engine) {
		e.alpha = alpha
	}
}

// Engine creates energy-gate sessions.
type Engine struct {
	ceiling float64
	alpha   float64
}

var _ vad.Engine = (*Engine)(nil)

// New returns an [Engine] configured with opts.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{ceiling: defaultCeiling}
	for _, o := range opts {
		o(e)
	}
	if e.ceiling <= 0 {
		return nil, fmt.Errorf("energy: ceiling must be positive, got %g", e.ceiling)
	}
	if e.alpha < 0 || e.alpha >= 1 {
		return nil, fmt.Errorf("energy: smoothing must be in [0,1), got %g", e.alpha)
	}
	return e, nil
}

// NewSession implements [vad.Engine].
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &session{ceiling: e.ceiling, alpha: e.alpha}, nil
}

type session struct {
	mu      sync.Mutex
	ceiling float64
	alpha   float64
	last    float64
	closed  bool
}

// ProcessFrame implements [vad.SessionHandle].
func (s *session) ProcessFrame(frame []byte) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, vad.ErrClosed
	}
	p := min(audio.RMS(frame)/s.ceiling, 1)
	if s.alpha > 0 {
		p = s.alpha*s.last + (1-s.alpha)*p
	}
	s.last = p
	return p, nil
}

// Reset implements [vad.SessionHandle].
func (s *session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = 0
}

// Close implements [vad.SessionHandle].
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
