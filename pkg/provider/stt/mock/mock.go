// Package mock provides a test double for the stt.Provider interface.
//
// Provider records every Transcribe call together with the bytes of the audio
// file as they were at call time, so tests can assert on the submitted WAV
// content after the caller has already deleted the file.
//
// Example:
//
//	p := &mock.Provider{Texts: []string{"hello world", "stop"}}
//	tr, err := p.Transcribe(ctx, stt.Request{AudioPath: path})
package mock

import (
	"context"
	"os"
	"sync"

	"github.com/MrWong99/voxpaste/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Req is the request passed to Transcribe.
	Req stt.Request

	// Audio is the content of Req.AudioPath at call time, or nil if the file
	// could not be read.
	Audio []byte
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Texts are returned in order, one per call. Once exhausted, Text is used.
	Texts []string

	// Text is returned when Texts is exhausted.
	Text string

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	// Block, when non-nil, makes Transcribe wait until it is closed or ctx ends.
	Block chan struct{}

	// Calls records every call to Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns the next scripted text.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	data, _ := os.ReadFile(req.AudioPath)

	p.mu.Lock()
	p.Calls = append(p.Calls, TranscribeCall{Req: req, Audio: data})
	block := p.Block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return stt.Transcript{}, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return stt.Transcript{}, p.Err
	}
	text := p.Text
	if len(p.Texts) > 0 {
		text = p.Texts[0]
		p.Texts = p.Texts[1:]
	}
	return stt.Transcript{Text: text, Provider: "mock"}, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// LastCall returns the most recent call, or false if none was made.
func (p *Provider) LastCall() (TranscribeCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Calls) == 0 {
		return TranscribeCall{}, false
	}
	return p.Calls[len(p.Calls)-1], true
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
