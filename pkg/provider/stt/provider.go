// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a batch transcription engine (a local whisper.cpp
// model, a whisper-server instance, or a hosted API) behind a single call: the
// caller hands over one finished utterance as a WAV file on disk and gets the
// recognised text back. There is no incremental decoding; utterances are
// segmented upstream by the VAD and segmentation engine.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Provider transcribes complete utterances.
type Provider interface {
	// Transcribe recognises the speech in the WAV file named by req.AudioPath.
	// The file is owned by the caller and may be deleted as soon as Transcribe
	// returns, so implementations must not retain the path.
	//
	// An empty Transcript.Text with a nil error means no speech was recognised.
	Transcribe(ctx context.Context, req Request) (Transcript, error)
}
