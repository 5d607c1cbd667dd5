package audio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/voxpaste/pkg/audio"
)

func TestFormat_Derived(t *testing.T) {
	t.Parallel()
	f := audio.DefaultFormat
	if got := f.ChunkBytes(); got != 1024 {
		t.Errorf("ChunkBytes() = %d, want 1024", got)
	}
	if got := f.ChunkDuration(); got != 32*time.Millisecond {
		t.Errorf("ChunkDuration() = %v, want 32ms", got)
	}
	if got := f.Duration(32000); got != time.Second {
		t.Errorf("Duration(32000) = %v, want 1s", got)
	}
	stereo := f
	stereo.Channels = 2
	if got := stereo.ChunkBytes(); got != 2048 {
		t.Errorf("stereo ChunkBytes() = %d, want 2048", got)
	}
}

func TestFormat_Validate(t *testing.T) {
	t.Parallel()
	if err := audio.DefaultFormat.Validate(); err != nil {
		t.Fatalf("default format invalid: %v", err)
	}
	bad := audio.Format{SampleRate: 0, Channels: 1, ChunkSize: 512, Sample: "float32"}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero rate and float32 samples")
	}
}

func TestOverflowCounter(t *testing.T) {
	t.Parallel()

	t.Run("unlimited", func(t *testing.T) {
		t.Parallel()
		var c audio.OverflowCounter
		for range 100 {
			if err := c.Observe(true); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	})

	t.Run("tolerance exceeded", func(t *testing.T) {
		t.Parallel()
		c := audio.OverflowCounter{Tolerance: 2}
		for range 2 {
			if err := c.Observe(true); err != nil {
				t.Fatalf("unexpected error within tolerance: %v", err)
			}
		}
		if err := c.Observe(true); !errors.Is(err, audio.ErrOverflow) {
			t.Fatalf("want ErrOverflow, got %v", err)
		}
	})

	t.Run("clean read resets run", func(t *testing.T) {
		t.Parallel()
		c := audio.OverflowCounter{Tolerance: 1}
		_ = c.Observe(true)
		_ = c.Observe(false)
		if err := c.Observe(true); err != nil {
			t.Fatalf("run should have been reset: %v", err)
		}
	})
}
