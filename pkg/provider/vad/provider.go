// Package vad defines the Engine interface for Voice Activity Detection backends.
//
// A VAD engine wraps a frame-level speech scorer (e.g., Silero VAD or a plain
// energy gate) and surfaces it as a stateful session. Each session keeps its own
// recurrent state so it must be reset between capture sessions.
//
// VAD is synchronous: ProcessFrame returns a speech probability for the frame it
// was given, which the segmentation engine compares against its threshold. The
// engine owns all debouncing; sessions only score.
//
// Implementations must be safe for concurrent use across different sessions.
// A single SessionHandle should not be shared across goroutines unless the
// implementation explicitly documents thread safety for that type.
package vad

import (
	"errors"
	"fmt"
)

// Config holds the parameters for a VAD session.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the PCM
	// frames passed to ProcessFrame.
	SampleRate int

	// FrameSize is the number of mono int16 samples in each frame passed to
	// ProcessFrame.
	FrameSize int

	// Threshold is the speech threshold used by the caller. Backends with their
	// own internal hysteresis (Silero) use it to calibrate; pure scorers ignore it.
	// Range: [0.0, 1.0]. Typical: 0.5.
	Threshold float64
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("vad: sample rate must be positive, got %d", c.SampleRate))
	}
	if c.FrameSize <= 0 {
		errs = append(errs, fmt.Errorf("vad: frame size must be positive, got %d", c.FrameSize))
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("vad: threshold must be in [0,1], got %g", c.Threshold))
	}
	return errors.Join(errs...)
}

// ErrClosed is returned by ProcessFrame after the session was closed.
var ErrClosed = errors.New("vad: session closed")

// SessionHandle represents an active VAD session for a single audio stream. It is
// an interface so that test code can supply mock implementations without a live
// engine.
type SessionHandle interface {
	// ProcessFrame scores a single audio frame and returns the probability that
	// it contains speech, in [0.0, 1.0]. The frame is raw little-endian int16
	// mono PCM at the configured SampleRate.
	//
	// Called synchronously from the capture loop; it must not block on I/O.
	ProcessFrame(frame []byte) (float64, error)

	// Reset clears all accumulated detection state without closing the session.
	// Called at the start of every capture session.
	Reset()

	// Close releases all resources associated with the session. Calling Close
	// more than once is safe and returns nil.
	Close() error
}

// Engine is the factory for VAD sessions. It is the top-level interface
// implemented by each VAD backend.
type Engine interface {
	// NewSession creates a new VAD session with the given configuration.
	// Loading model weights happens here, so callers should create sessions
	// ahead of time rather than on the capture path.
	NewSession(cfg Config) (SessionHandle, error)
}
