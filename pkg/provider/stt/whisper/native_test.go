package whisper_test

import (
	"context"
	"os"
	"testing"

	"github.com/MrWong99/voxpaste/pkg/audio"
	"github.com/MrWong99/voxpaste/pkg/provider/stt"
	"github.com/MrWong99/voxpaste/pkg/provider/stt/whisper"
)

// testModelPath returns the path to a whisper model for integration tests.
// It reads from the WHISPER_MODEL_PATH environment variable. If unset the
// test is skipped.
func testModelPath(t *testing.T) string {
	t.Helper()
	p := os.Getenv("WHISPER_MODEL_PATH")
	if p == "" {
		t.Skip("WHISPER_MODEL_PATH not set; skipping native whisper test")
	}
	return p
}

func TestNewNative_EmptyPath_ReturnsError(t *testing.T) {
	_, err := whisper.NewNative("")
	if err == nil {
		t.Fatal("expected error for empty model path, got nil")
	}
}

func TestNewNative_InvalidPath_ReturnsError(t *testing.T) {
	_, err := whisper.NewNative("/nonexistent/path/to/model.bin")
	if err == nil {
		t.Fatal("expected error for invalid model path, got nil")
	}
}

func TestNativeTranscribe_Silence(t *testing.T) {
	modelPath := testModelPath(t)
	p, err := whisper.NewNative(modelPath, whisper.WithNativeLanguage("en"))
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer p.Close()

	path, cleanup, err := audio.WriteTempWAV(t.TempDir(), make([]byte, 32000), audio.DefaultFormat)
	if err != nil {
		t.Fatalf("WriteTempWAV: %v", err)
	}
	defer cleanup()

	if _, err := p.Transcribe(context.Background(), stt.Request{AudioPath: path, SampleRate: 16000}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}

func TestNativeTranscribe_WrongSampleRate(t *testing.T) {
	modelPath := testModelPath(t)
	p, err := whisper.NewNative(modelPath)
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer p.Close()

	f := audio.DefaultFormat
	f.SampleRate = 8000
	path, cleanup, err := audio.WriteTempWAV(t.TempDir(), make([]byte, 1600), f)
	if err != nil {
		t.Fatalf("WriteTempWAV: %v", err)
	}
	defer cleanup()

	if _, err := p.Transcribe(context.Background(), stt.Request{AudioPath: path}); err == nil {
		t.Fatal("expected error for 8 kHz input")
	}
}
