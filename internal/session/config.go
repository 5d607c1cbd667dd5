package session

import (
	"fmt"

	"github.com/MrWong99/voxpaste/internal/segment"
	"github.com/MrWong99/voxpaste/pkg/audio"
)

// Config holds the per-session parameters. A running session keeps the
// Config it was started with; [Controller.SetConfig] applies from the next
// Start.
type Config struct {
	// Format is the capture format requested from the audio source.
	Format audio.Format

	// Threshold is the speech probability a chunk must exceed.
	Threshold float64

	// MinSpeechMs is how long speech must last before it is recorded.
	MinSpeechMs int

	// MinSilenceMs is how much trailing silence closes an utterance.
	MinSilenceMs int

	// StopPhrase ends the session when spoken on its own.
	StopPhrase string

	// IgnorePunctuation makes stop phrase matching ignore punctuation the
	// transcriber adds, e.g. "Stop." matching "stop".
	IgnorePunctuation bool

	// Language is passed to the transcriber. Empty falls back to the
	// provider's configured language (whisper: "en", openai: auto-detect).
	Language string

	// Vocabulary lists terms the transcript is corrected towards before
	// insertion.
	Vocabulary []string

	// TempDir holds the per-utterance WAV files. Empty means the system
	// temp directory.
	TempDir string
}

// DefaultConfig mirrors the configuration file defaults.
func DefaultConfig() Config {
	return Config{
		Format:       audio.DefaultFormat,
		Threshold:    0.5,
		MinSpeechMs:  100,
		MinSilenceMs: 1000,
		StopPhrase:   "stop",
	}
}

// segmentation validates c and derives the debounce chunk counts.
func (c Config) segmentation() (segment.Config, error) {
	if err := c.Format.Validate(); err != nil {
		return segment.Config{}, fmt.Errorf("session: %w: %w", segment.ErrInvalidConfig, err)
	}
	sc, err := segment.FromDurations(c.Threshold, c.MinSpeechMs, c.MinSilenceMs, c.Format.SampleRate, c.Format.ChunkSize)
	if err != nil {
		return segment.Config{}, fmt.Errorf("session: %w", err)
	}
	return sc, nil
}

// Validate reports whether c can start a session.
func (c Config) Validate() error {
	_, err := c.segmentation()
	return err
}

// monoFormat is the format of the PCM the loop scores and transcribes.
func (c Config) monoFormat() audio.Format {
	f := c.Format
	f.Channels = 1
	return f
}
