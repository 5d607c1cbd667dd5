package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavPCMFormat is the WAVE_FORMAT_PCM tag.
const wavPCMFormat = 1

// EncodeWAV writes pcm (little-endian int16, interleaved) as a 16-bit WAV
// container to w.
func EncodeWAV(w io.WriteSeeker, pcm []byte, sampleRate, channels int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, channels, wavPCMFormat)
	samples := Int16Samples(pcm)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: finalise wav: %w", err)
	}
	return nil
}

// WriteTempWAV writes pcm in format f to a new temporary WAV file inside dir
// (the system temp directory when dir is empty). The returned cleanup func
// removes the file and is safe to call more than once; callers should defer
// it immediately so the file never outlives the utterance.
func WriteTempWAV(dir string, pcm []byte, f Format) (path string, cleanup func(), err error) {
	file, err := os.CreateTemp(dir, "voxpaste-*.wav")
	if err != nil {
		return "", func() {}, fmt.Errorf("audio: create temp wav: %w", err)
	}
	path = file.Name()
	cleanup = func() { _ = os.Remove(path) }

	encErr := EncodeWAV(file, pcm, f.SampleRate, f.Channels)
	closeErr := file.Close()
	if err := errors.Join(encErr, closeErr); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return path, cleanup, nil
}

// ReadWAVMono decodes a 16-bit PCM WAV file and returns its samples downmixed
// to mono float32 in [-1.0, 1.0) together with the sample rate.
func ReadWAVMono(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("audio: %s is not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: decode wav: %w", err)
	}
	if dec.BitDepth != 16 {
		return nil, 0, fmt.Errorf("audio: unsupported wav bit depth %d", dec.BitDepth)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum int
		for c := range channels {
			sum += buf.Data[i*channels+c]
		}
		out[i] = float32(sum/channels) / 32768.0
	}
	return out, int(dec.SampleRate), nil
}
