// Package audio defines the capture-side abstractions used by voxpaste.
//
// The two primary abstractions are:
//
//   - [Source] opens the input device for a fixed [Format] and returns a [Stream].
//   - [Stream] yields fixed-size PCM chunks until it is closed.
//
// Implementations live in adapter packages (e.g., audio/portaudio). The
// interfaces are intentionally narrow so the session controller stays
// decoupled from the capture backend, and tests can substitute audio/mock.
package audio

import (
	"context"
	"errors"
	"fmt"
)

// ErrOverflow is returned (wrapped) by a [Stream] once the device has reported
// more consecutive input overflows than the configured tolerance.
var ErrOverflow = errors.New("audio: input overflowed")

// Stream is an open capture stream.
//
// Read blocks until one chunk of exactly [Format.ChunkBytes] bytes is
// available. The returned slice is owned by the caller and never reused by the
// stream. A transient device overflow is not an error: the chunk is returned
// and capture continues.
//
// Close releases the device. It is safe to call more than once.
type Stream interface {
	Read() ([]byte, error)
	Close() error
}

// Source opens capture streams.
type Source interface {
	// Open starts capturing in format f. Implementations must return an error
	// rather than a stream when the device cannot be opened.
	Open(ctx context.Context, f Format) (Stream, error)
}

// OverflowCounter tracks consecutive overflow reports against a tolerance.
// A Tolerance of zero tolerates any number of overflows.
//
// OverflowCounter is not safe for concurrent use; a stream owns one.
type OverflowCounter struct {
	Tolerance int
	run       int
}

// Observe records whether the last read overflowed. It returns a wrapped
// [ErrOverflow] once the tolerance is exceeded; a clean read resets the run.
func (o *OverflowCounter) Observe(overflowed bool) error {
	if !overflowed {
		o.run = 0
		return nil
	}
	o.run++
	if o.Tolerance > 0 && o.run > o.Tolerance {
		return fmt.Errorf("%w: %d consecutive overflows", ErrOverflow, o.run)
	}
	return nil
}
