package main

import (
	"errors"
	"testing"

	"github.com/MrWong99/voxpaste/internal/config"
)

func TestOptHelpers(t *testing.T) {
	t.Parallel()

	opts := map[string]any{"ceiling": 1500, "smoothing": 0.3, "speech_pad_ms": 30, "name": "x"}

	if v, ok := optFloat(opts, "ceiling"); !ok || v != 1500 {
		t.Errorf("optFloat(ceiling) = %v, %v", v, ok)
	}
	if v, ok := optFloat(opts, "smoothing"); !ok || v != 0.3 {
		t.Errorf("optFloat(smoothing) = %v, %v", v, ok)
	}
	if _, ok := optFloat(opts, "name"); ok {
		t.Error("optFloat accepted a string")
	}
	if v, ok := optInt(opts, "speech_pad_ms"); !ok || v != 30 {
		t.Errorf("optInt = %v, %v", v, ok)
	}
	if _, ok := optInt(nil, "missing"); ok {
		t.Error("optInt on nil map reported ok")
	}
}

func TestRegisterBuiltinProviders(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	if _, err := reg.CreateVAD(config.VADConfig{Provider: "energy", Options: map[string]any{"ceiling": 1000}}); err != nil {
		t.Errorf("energy: %v", err)
	}
	if _, err := reg.CreateSTT(config.ProviderEntry{Provider: "whisper", BaseURL: "http://127.0.0.1:8080"}); err != nil {
		t.Errorf("whisper: %v", err)
	}
	if _, err := reg.CreateVAD(config.VADConfig{Provider: "silero", ModelPath: "/nonexistent/silero.onnx"}); err == nil {
		t.Error("silero with a missing model should fail")
	}
	if _, err := reg.CreateSTT(config.ProviderEntry{Provider: "deepgram"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("deepgram err = %v, want ErrProviderNotRegistered", err)
	}
}
