// Package mock provides in-memory mock implementations of [audio.Source] and
// [audio.Stream] for use in unit tests.
//
// Both mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose exported
// fields that the test can set to control return values.
//
// Typical usage:
//
//	stream := &mock.Stream{Chunks: [][]byte{speech, speech, silence}}
//	src := &mock.Source{Stream: stream}
//	s, err := src.Open(ctx, audio.DefaultFormat)
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrWong99/voxpaste/pkg/audio"
)

// ErrClosed is returned by [Stream.Read] after the stream was closed.
var ErrClosed = errors.New("mock: stream closed")

// ─── Source ──────────────────────────────────────────────────────────────────

// Source is a mock implementation of [audio.Source].
type Source struct {
	mu sync.Mutex

	// Stream is returned by Open. When nil, a fresh silent [Stream] sized for
	// the requested format is returned on every call.
	Stream *Stream

	// OpenErr, when non-nil, is returned by Open instead of a stream.
	OpenErr error

	// OpenCalls records the format passed to each Open call.
	OpenCalls []audio.Format
}

var _ audio.Source = (*Source)(nil)

// Open implements [audio.Source].
func (s *Source) Open(_ context.Context, f audio.Format) (audio.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OpenCalls = append(s.OpenCalls, f)
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	if s.Stream != nil {
		s.Stream.setChunkBytes(f.ChunkBytes())
		return s.Stream, nil
	}
	return &Stream{ChunkBytes: f.ChunkBytes(), Interval: time.Millisecond}, nil
}

// OpenCallCount returns the number of Open calls.
func (s *Source) OpenCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.OpenCalls)
}

// ─── Stream ──────────────────────────────────────────────────────────────────

// Stream is a mock implementation of [audio.Stream]. It returns Chunks in
// order; once they are exhausted it returns ReadErr if set, otherwise silent
// chunks of ChunkBytes bytes forever.
type Stream struct {
	mu sync.Mutex

	// Chunks are returned in order by Read.
	Chunks [][]byte

	// ChunkBytes is the size of the silent chunks returned after Chunks are
	// exhausted. Open fills it in from the requested format when zero.
	ChunkBytes int

	// ReadErr, when non-nil, is returned by every Read after Chunks are exhausted.
	ReadErr error

	// Interval is slept before every Read to pace the capture loop.
	Interval time.Duration

	// CloseErr is returned by Close.
	CloseErr error

	// ReadCount records how many times Read was called.
	ReadCount int

	// CloseCount records how many times Close was called.
	CloseCount int

	next   int
	closed bool
}

var _ audio.Stream = (*Stream)(nil)

// Read implements [audio.Stream].
func (s *Stream) Read() ([]byte, error) {
	s.mu.Lock()
	interval := s.Interval
	s.mu.Unlock()
	if interval > 0 {
		time.Sleep(interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadCount++
	if s.closed {
		return nil, ErrClosed
	}
	if s.next < len(s.Chunks) {
		c := s.Chunks[s.next]
		s.next++
		return append([]byte(nil), c...), nil
	}
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return make([]byte, s.ChunkBytes), nil
}

// Close implements [audio.Stream].
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCount++
	s.closed = true
	return s.CloseErr
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Remaining returns the number of scripted chunks not yet read.
func (s *Stream) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Chunks) - s.next
}

// Reads returns the number of Read calls so far.
func (s *Stream) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ReadCount
}

func (s *Stream) setChunkBytes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ChunkBytes == 0 {
		s.ChunkBytes = n
	}
	s.closed = false
}
