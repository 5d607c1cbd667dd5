package stt

import "time"

// Request describes one utterance to transcribe.
type Request struct {
	// AudioPath is the path of a mono 16-bit PCM WAV file.
	AudioPath string

	// SampleRate is the sample rate of the WAV file in Hz.
	SampleRate int

	// Language is the BCP-47 language hint (e.g., "en"). Empty lets the
	// provider use its default or auto-detect.
	Language string

	// Duration is the audio length of the utterance.
	Duration time.Duration
}

// Transcript is the recognised text of one utterance.
type Transcript struct {
	// Text is the raw recognised text, as returned by the engine.
	Text string

	// Language is the language the engine reports, when known.
	Language string

	// Provider names the backend that produced the transcript.
	Provider string

	// Latency is how long the backend took.
	Latency time.Duration
}
