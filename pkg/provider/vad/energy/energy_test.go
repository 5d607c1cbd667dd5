package energy_test

import (
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/voxpaste/pkg/audio"
	"github.com/MrWong99/voxpaste/pkg/provider/vad"
	"github.com/MrWong99/voxpaste/pkg/provider/vad/energy"
)

var cfg = vad.Config{SampleRate: 16000, FrameSize: 4, Threshold: 0.5}

func frame(amp int16) []byte {
	return audio.Int16Bytes([]int16{amp, -amp, amp, -amp})
}

func TestSession_Scores(t *testing.T) {
	t.Parallel()

	eng, err := energy.New(energy.WithCeiling(1000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sess, err := eng.NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer sess.Close()

	tests := []struct {
		amp  int16
		want float64
	}{
		{amp: 0, want: 0},
		{amp: 500, want: 0.5},
		{amp: 1000, want: 1},
		{amp: 8000, want: 1},
	}
	for _, tt := range tests {
		got, err := sess.ProcessFrame(frame(tt.amp))
		if err != nil {
			t.Fatalf("ProcessFrame: %v", err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("amp %d: got %v, want %v", tt.amp, got, tt.want)
		}
	}
}

func TestSession_SmoothingAndReset(t *testing.T) {
	t.Parallel()

	eng, err := energy.New(energy.WithCeiling(1000), energy.WithSmoothing(0.5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sess, _ := eng.NewSession(cfg)

	got, _ := sess.ProcessFrame(frame(1000))
	if got != 0.5 {
		t.Errorf("first smoothed score = %v, want 0.5", got)
	}
	got, _ = sess.ProcessFrame(frame(1000))
	if got != 0.75 {
		t.Errorf("second smoothed score = %v, want 0.75", got)
	}
	sess.Reset()
	got, _ = sess.ProcessFrame(frame(1000))
	if got != 0.5 {
		t.Errorf("score after reset = %v, want 0.5", got)
	}
}

func TestSession_Closed(t *testing.T) {
	t.Parallel()

	eng, _ := energy.New()
	sess, _ := eng.NewSession(cfg)
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := sess.ProcessFrame(frame(1)); !errors.Is(err, vad.ErrClosed) {
		t.Errorf("want ErrClosed, got %v", err)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	if _, err := energy.New(energy.WithCeiling(0)); err == nil {
		t.Error("expected error for zero ceiling")
	}
	if _, err := energy.New(energy.WithSmoothing(1)); err == nil {
		t.Error("expected error for smoothing of 1")
	}
	eng, _ := energy.New()
	if _, err := eng.NewSession(vad.Config{}); err == nil {
		t.Error("expected error for empty config")
	}
}
