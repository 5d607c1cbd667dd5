// Package portaudio provides an [audio.Source] backed by the PortAudio
// library. It captures from the default input device, or from a device chosen
// by name, in blocking-read mode.
//
// PortAudio is initialised when a stream is opened and terminated when it is
// closed, so no process-wide setup is required by callers.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/MrWong99/voxpaste/pkg/audio"
)

// Option is a functional option for configuring a [Source].
type Option func(*Source)

// WithDevice selects the input device whose name contains name
// (case-insensitive). Empty means the system default input.
func WithDevice(name string) Option {
	return func(s *Source) {
		s.device = name
	}
}

// WithOverflowTolerance sets how many consecutive input overflows are
// tolerated before Read fails with [audio.ErrOverflow]. Zero (the default)
// tolerates any number.
func WithOverflowTolerance(n int) Option {
	return func(s *Source) {
		s.tolerance = n
	}
}

// Source opens PortAudio input streams. It implements [audio.Source].
type Source struct {
	device    string
	tolerance int
}

var _ audio.Source = (*Source)(nil)

// New returns a [Source] configured with opts.
func New(opts ...Option) *Source {
	s := &Source{}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open initialises PortAudio, opens an int16 input stream in format f and
// starts it. On any failure PortAudio is terminated again before returning.
func (s *Source) Open(ctx context.Context, f audio.Format) (audio.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	buf := make([]int16, f.ChunkSize*f.Channels)
	stream, err := s.openStream(f, buf)
	if err != nil {
		_ = pa.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = pa.Terminate()
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}

	slog.Debug("portaudio: stream started",
		"device", s.device,
		"sample_rate", f.SampleRate,
		"channels", f.Channels,
		"chunk_size", f.ChunkSize,
	)
	return &inputStream{
		stream:   stream,
		buf:      buf,
		overflow: audio.OverflowCounter{Tolerance: s.tolerance},
	}, nil
}

func (s *Source) openStream(f audio.Format, buf []int16) (*pa.Stream, error) {
	if s.device == "" {
		stream, err := pa.OpenDefaultStream(f.Channels, 0, float64(f.SampleRate), f.ChunkSize, buf)
		if err != nil {
			return nil, fmt.Errorf("portaudio: open default input: %w", err)
		}
		return stream, nil
	}

	dev, err := findInputDevice(s.device)
	if err != nil {
		return nil, err
	}
	params := pa.LowLatencyParameters(dev, nil)
	params.Input.Channels = f.Channels
	params.SampleRate = float64(f.SampleRate)
	params.FramesPerBuffer = f.ChunkSize
	stream, err := pa.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open input %q: %w", dev.Name, err)
	}
	return stream, nil
}

func findInputDevice(name string) (*pa.DeviceInfo, error) {
	devices, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}
	want := strings.ToLower(name)
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("portaudio: no input device matching %q", name)
}

// inputStream is an open PortAudio capture stream.
type inputStream struct {
	stream   *pa.Stream
	buf      []int16
	overflow audio.OverflowCounter

	closeOnce sync.Once
	closeErr  error
}

// Read blocks for one chunk and returns a copy of it as little-endian bytes.
func (s *inputStream) Read() ([]byte, error) {
	err := s.stream.Read()
	overflowed := errors.Is(err, pa.InputOverflowed)
	if err != nil && !overflowed {
		return nil, fmt.Errorf("portaudio: read: %w", err)
	}
	if overflowed {
		slog.Debug("portaudio: input overflowed")
	}
	if err := s.overflow.Observe(overflowed); err != nil {
		return nil, err
	}
	return audio.Int16Bytes(s.buf), nil
}

// Close stops and closes the stream and terminates PortAudio.
func (s *inputStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(
			s.stream.Stop(),
			s.stream.Close(),
			pa.Terminate(),
		)
	})
	return s.closeErr
}
