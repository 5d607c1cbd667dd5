package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/voxpaste/pkg/audio"
	"github.com/MrWong99/voxpaste/pkg/provider/stt"
	"github.com/MrWong99/voxpaste/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned when a config names a provider that
// has no registered factory.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory types, one per pluggable kind.
type (
	VADFactory   func(VADConfig) (vad.Engine, error)
	STTFactory   func(ProviderEntry) (stt.Provider, error)
	AudioFactory func(AudioConfig) (audio.Source, error)
)

// Registry maps provider names to factories. A zero Registry is not usable;
// construct with [NewRegistry]. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	vad   map[string]VADFactory
	stt   map[string]STTFactory
	audio map[string]AudioFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		vad:   make(map[string]VADFactory),
		stt:   make(map[string]STTFactory),
		audio: make(map[string]AudioFactory),
	}
}

// RegisterVAD registers a VAD engine factory under name.
func (r *Registry) RegisterVAD(name string, f VADFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = f
}

// RegisterSTT registers a transcription provider factory under name.
func (r *Registry) RegisterSTT(name string, f STTFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = f
}

// RegisterAudio registers an audio source factory under name.
func (r *Registry) RegisterAudio(name string, f AudioFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = f
}

// CreateVAD builds the VAD engine named by cfg.Provider.
func (r *Registry) CreateVAD(cfg VADConfig) (vad.Engine, error) {
	r.mu.RLock()
	f, ok := r.vad[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, cfg.Provider)
	}
	return f(cfg)
}

// CreateSTT builds the transcription provider named by e.Provider.
func (r *Registry) CreateSTT(e ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	f, ok := r.stt[e.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, e.Provider)
	}
	return f(e)
}

// CreateAudio builds the audio source registered under name.
func (r *Registry) CreateAudio(name string, cfg AudioConfig) (audio.Source, error) {
	r.mu.RLock()
	f, ok := r.audio[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, name)
	}
	return f(cfg)
}
