package resilience

import (
	"context"

	"github.com/MrWong99/voxpaste/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with failover across several
// transcription backends.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another backend, tried after those already added.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// States returns the breaker state of every backend.
func (f *STTFallback) States() map[string]State {
	return f.group.States()
}

// Transcribe sends req to the first healthy backend that succeeds. The
// returned transcript names the backend that served it when the backend
// left Provider empty.
func (f *STTFallback) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	tr, name, err := Execute(ctx, f.group, func(ctx context.Context, p stt.Provider) (stt.Transcript, error) {
		return p.Transcribe(ctx, req)
	})
	if err != nil {
		return stt.Transcript{}, err
	}
	if tr.Provider == "" {
		tr.Provider = name
	}
	return tr, nil
}
