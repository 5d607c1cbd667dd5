// Package silero provides a [vad.Engine] backed by the Silero VAD ONNX model
// through github.com/streamer45/silero-vad-go.
//
// The model consumes audio in fixed windows (512 samples at 16 kHz, 256 at
// 8 kHz). A session scores every complete window of a frame as soon as it
// arrives and carries any remainder over to the next frame.
//
// The underlying detector reports speech segments rather than per-window
// probabilities, so ProcessFrame returns 1.0 while the detector is inside a
// speech segment and 0.0 otherwise. The detector applies its own hysteresis
// (vad.threshold to enter, threshold-0.15 to leave), fixed when the session
// is created.
package silero

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/MrWong99/voxpaste/pkg/audio"
	"github.com/MrWong99/voxpaste/pkg/provider/vad"
)

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithSpeechPad sets the speech padding in milliseconds applied by the detector.
func WithSpeechPad(ms int) Option {
	return func(e *Engine) {
		e.speechPadMs = ms
	}
}

// Engine creates Silero VAD sessions from a model file on disk.
type Engine struct {
	modelPath   string
	speechPadMs int
}

var _ vad.Engine = (*Engine)(nil)

// New returns an [Engine] that loads the ONNX model at modelPath. The file is
// checked for existence here; the model itself is loaded per session.
func New(modelPath string, opts ...Option) (*Engine, error) {
	if modelPath == "" {
		return nil, errors.New("silero: model path must not be empty")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("silero: model: %w", err)
	}
	e := &Engine{modelPath: modelPath}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// windowSize returns the number of samples the model consumes per inference.
func windowSize(sampleRate int) (int, error) {
	switch sampleRate {
	case 16000:
		return 512, nil
	case 8000:
		return 256, nil
	default:
		return 0, fmt.Errorf("silero: unsupported sample rate %d (want 8000 or 16000)", sampleRate)
	}
}

// NewSession loads the model and returns a session ready to score frames.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	window, err := windowSize(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	threshold := cfg.Threshold
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("silero: threshold must be in (0,1), got %g", threshold)
	}
	det, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  e.modelPath,
		SampleRate: cfg.SampleRate,
		Threshold:  float32(threshold),
		// Debouncing belongs to the segmentation engine; end segments as
		// soon as the model drops below its exit threshold.
		MinSilenceDurationMs: 0,
		SpeechPadMs:          e.speechPadMs,
	})
	if err != nil {
		return nil, fmt.Errorf("silero: create detector: %w", err)
	}
	return newSession(det, window, cfg.FrameSize), nil
}

// detector is the part of *speech.Detector a session drives.
type detector interface {
	Detect(pcm []float32) ([]speech.Segment, error)
	Reset() error
	Destroy() error
}

// speechEndMsg is what Detect returns when a segment that began in an earlier
// call ends. The library exports no sentinel for it.
const speechEndMsg = "unexpected speech end"

// session scores frames with one detector. It is safe for concurrent use.
type session struct {
	mu       sync.Mutex
	det      detector
	window   int
	scratch  []float32
	pending  []float32
	speaking bool
	closed   bool
}

func newSession(det detector, window, frameSize int) *session {
	return &session{
		det:    det,
		window: window,
		// Detect never scores the final window of its input, so each window
		// is passed with one sample of zero padding.
		scratch: make([]float32, window+1),
		pending: make([]float32, 0, window+frameSize),
	}
}

// ProcessFrame implements [vad.SessionHandle].
func (s *session) ProcessFrame(frame []byte) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, vad.ErrClosed
	}

	s.pending = append(s.pending, audio.Int16ToFloat32(frame)...)
	off := 0
	for ; len(s.pending)-off >= s.window; off += s.window {
		if err := s.score(s.pending[off : off+s.window]); err != nil {
			s.pending = s.pending[:0]
			return 0, err
		}
	}
	n := copy(s.pending, s.pending[off:])
	s.pending = s.pending[:n]
	return s.probability(), nil
}

// score runs the detector over exactly one window and updates speaking.
func (s *session) score(window []float32) error {
	copy(s.scratch, window)
	segments, err := s.det.Detect(s.scratch)
	if err != nil {
		if err.Error() == speechEndMsg {
			// The segment opened in an earlier window and closed in this one.
			s.speaking = false
			return nil
		}
		return fmt.Errorf("silero: detect: %w", err)
	}
	if len(segments) > 0 {
		s.speaking = segments[len(segments)-1].SpeechEndAt == 0
	}
	return nil
}

func (s *session) probability() float64 {
	if s.speaking {
		return 1
	}
	return 0
}

// Reset implements [vad.SessionHandle].
func (s *session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = s.pending[:0]
	s.speaking = false
	if err := s.det.Reset(); err != nil {
		slog.Warn("silero: reset detector", "err", err)
	}
}

// Close implements [vad.SessionHandle].
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.det.Destroy(); err != nil {
		return fmt.Errorf("silero: destroy detector: %w", err)
	}
	return nil
}
