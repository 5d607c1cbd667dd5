// Package segment turns a stream of scored audio chunks into discrete
// utterances.
//
// The [Engine] is a small state machine driven one chunk at a time. A run of
// at least MinSpeechChunks consecutive chunks above the threshold confirms a
// speech region; a single sub-threshold chunk before that point discards the
// provisional audio as noise. Once confirmed, the region ends after
// MinSilenceChunks consecutive sub-threshold chunks and is handed to the
// caller as an [Utterance], including the trailing silence.
//
// The engine performs no I/O and is not safe for concurrent use; it is owned
// by a single capture loop.
package segment

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when segmentation parameters are unusable.
var ErrInvalidConfig = errors.New("segment: invalid configuration")

// State is the phase of the segmentation state machine.
type State int

const (
	// StateIdle means no speech is being tracked.
	StateIdle State = iota

	// StateProvisional means speech was seen but not yet for long enough.
	StateProvisional

	// StateConfirmed means a speech region is being recorded.
	StateConfirmed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProvisional:
		return "provisional"
	case StateConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config holds the debounce parameters.
type Config struct {
	// Threshold is the speech probability a chunk must exceed to count as speech.
	Threshold float64

	// MinSpeechChunks is the number of consecutive speech chunks that confirm
	// a speech region.
	MinSpeechChunks int

	// MinSilenceChunks is the number of consecutive silent chunks that close a
	// confirmed speech region.
	MinSilenceChunks int
}

// Validate returns [ErrInvalidConfig] (joined with details) when c is unusable.
func (c Config) Validate() error {
	var errs []error
	if c.Threshold < 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("%w: threshold must be in [0,1], got %g", ErrInvalidConfig, c.Threshold))
	}
	if c.MinSpeechChunks < 1 {
		errs = append(errs, fmt.Errorf("%w: min speech chunks must be at least 1, got %d", ErrInvalidConfig, c.MinSpeechChunks))
	}
	if c.MinSilenceChunks < 1 {
		errs = append(errs, fmt.Errorf("%w: min silence chunks must be at least 1, got %d", ErrInvalidConfig, c.MinSilenceChunks))
	}
	return errors.Join(errs...)
}

// ChunkCount converts a duration in milliseconds into a whole number of
// chunks of chunkSize samples at sampleRate, truncating toward zero. A result
// below one chunk is an error: such a debounce could never be satisfied in a
// meaningful way.
func ChunkCount(durationMs, sampleRate, chunkSize int) (int, error) {
	if durationMs <= 0 || sampleRate <= 0 || chunkSize <= 0 {
		return 0, fmt.Errorf("%w: duration %dms, sample rate %d and chunk size %d must be positive",
			ErrInvalidConfig, durationMs, sampleRate, chunkSize)
	}
	n := int(int64(durationMs) * int64(sampleRate) / (1000 * int64(chunkSize)))
	if n < 1 {
		return 0, fmt.Errorf("%w: %dms is shorter than one %d-sample chunk at %d Hz",
			ErrInvalidConfig, durationMs, chunkSize, sampleRate)
	}
	return n, nil
}

// FromDurations builds a [Config] from millisecond debounce windows.
func FromDurations(threshold float64, minSpeechMs, minSilenceMs, sampleRate, chunkSize int) (Config, error) {
	speech, err := ChunkCount(minSpeechMs, sampleRate, chunkSize)
	if err != nil {
		return Config{}, fmt.Errorf("min speech duration: %w", err)
	}
	silence, err := ChunkCount(minSilenceMs, sampleRate, chunkSize)
	if err != nil {
		return Config{}, fmt.Errorf("min silence duration: %w", err)
	}
	cfg := Config{Threshold: threshold, MinSpeechChunks: speech, MinSilenceChunks: silence}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Utterance is one closed speech region: its chunks in capture order. The
// engine never touches an Utterance after returning it.
type Utterance struct {
	Chunks [][]byte
}

// Len returns the number of chunks.
func (u *Utterance) Len() int {
	return len(u.Chunks)
}

// PCM returns the chunks concatenated into one buffer.
func (u *Utterance) PCM() []byte {
	n := 0
	for _, c := range u.Chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range u.Chunks {
		out = append(out, c...)
	}
	return out
}

// Outcome reports what feeding one chunk produced.
type Outcome struct {
	// Confirmed is true for the chunk that promoted the region to confirmed
	// speech.
	Confirmed bool

	// Discarded is the number of provisional chunks dropped as noise.
	Discarded int

	// Utterance is non-nil when the chunk closed a speech region.
	Utterance *Utterance
}

// Ready reports whether the outcome carries a finished utterance.
func (o Outcome) Ready() bool {
	return o.Utterance != nil
}

// Engine is the segmentation state machine.
type Engine struct {
	cfg     Config
	state   State
	buf     [][]byte
	speech  int
	silence int
}

// New returns an idle [Engine].
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state
}

// Buffered returns the number of chunks currently held.
func (e *Engine) Buffered() int {
	return len(e.buf)
}

// Reset drops any buffered audio and returns the engine to [StateIdle].
func (e *Engine) Reset() {
	e.state = StateIdle
	e.buf = nil
	e.speech = 0
	e.silence = 0
}

// Feed advances the state machine with one chunk and its speech probability.
// The chunk is copied; the caller may reuse its slice.
func (e *Engine) Feed(chunk []byte, probability float64) Outcome {
	if probability > e.cfg.Threshold {
		return e.feedSpeech(chunk)
	}
	return e.feedSilence(chunk)
}

func (e *Engine) feedSpeech(chunk []byte) Outcome {
	e.append(chunk)
	if e.state == StateConfirmed {
		e.silence = 0
		return Outcome{}
	}
	e.state = StateProvisional
	e.speech++
	if e.speech < e.cfg.MinSpeechChunks {
		return Outcome{}
	}
	e.state = StateConfirmed
	e.silence = 0
	return Outcome{Confirmed: true}
}

func (e *Engine) feedSilence(chunk []byte) Outcome {
	if e.state != StateConfirmed {
		dropped := len(e.buf)
		e.Reset()
		return Outcome{Discarded: dropped}
	}
	e.append(chunk)
	e.silence++
	if e.silence < e.cfg.MinSilenceChunks {
		return Outcome{}
	}
	u := &Utterance{Chunks: e.buf}
	e.Reset()
	return Outcome{Utterance: u}
}

func (e *Engine) append(chunk []byte) {
	e.buf = append(e.buf, append([]byte(nil), chunk...))
}
