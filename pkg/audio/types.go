package audio

import (
	"errors"
	"fmt"
	"time"
)

// SampleFormat names the on-the-wire encoding of a single PCM sample.
type SampleFormat string

// SampleInt16 is signed 16-bit little-endian PCM, the only format the capture
// pipeline produces.
const SampleInt16 SampleFormat = "int16"

// Format describes the fixed PCM layout shared by the capture device, the VAD
// and the transcription step. A session never renegotiates its format.
type Format struct {
	// SampleRate in Hz (e.g., 16000 for speech models).
	SampleRate int

	// Channels: 1 for mono. Speech models expect mono input.
	Channels int

	// ChunkSize is the number of samples per channel in one chunk.
	ChunkSize int

	// Sample is the sample encoding. Only [SampleInt16] is supported.
	Sample SampleFormat
}

// DefaultFormat is 16 kHz mono int16 in 512-sample chunks (32 ms).
var DefaultFormat = Format{
	SampleRate: 16000,
	Channels:   1,
	ChunkSize:  512,
	Sample:     SampleInt16,
}

// SampleWidth returns the size of one sample in bytes.
func (f Format) SampleWidth() int {
	return 2
}

// ChunkBytes returns the exact byte length of one chunk.
func (f Format) ChunkBytes() int {
	return f.ChunkSize * f.Channels * f.SampleWidth()
}

// ChunkDuration returns the wall-clock duration one chunk represents.
func (f Format) ChunkDuration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.ChunkSize) * time.Second / time.Duration(f.SampleRate)
}

// Duration returns the playback duration of n bytes of PCM in this format.
func (f Format) Duration(n int) time.Duration {
	frame := f.Channels * f.SampleWidth()
	if frame <= 0 || f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(n/frame) * time.Second / time.Duration(f.SampleRate)
}

// Validate reports every problem with f.
func (f Format) Validate() error {
	var errs []error
	if f.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio: sample rate must be positive, got %d", f.SampleRate))
	}
	if f.Channels <= 0 {
		errs = append(errs, fmt.Errorf("audio: channels must be positive, got %d", f.Channels))
	}
	if f.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("audio: chunk size must be positive, got %d", f.ChunkSize))
	}
	if f.Sample != SampleInt16 {
		errs = append(errs, fmt.Errorf("audio: unsupported sample format %q", f.Sample))
	}
	return errors.Join(errs...)
}
