package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/voxpaste/internal/config"
)

const watchYAML = `
server:
  log_level: %s
vad:
  provider: energy
transcription:
  provider: whisper
  base_url: http://localhost:8080
stop_phrase: %s
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func watchConfig(level, phrase string) string {
	return fmt.Sprintf(watchYAML, level, phrase)
}

// touch bumps the mtime so the poller notices a rewrite within the same
// filesystem timestamp granularity.
func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	writeFile(t, path, watchConfig("info", "stop"))

	w, err := config.NewWatcher(path, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", got)
	}
}

func TestWatcher_InvalidInitialFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	writeFile(t, path, "vad: [")

	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	writeFile(t, path, watchConfig("info", "stop"))

	var (
		mu      sync.Mutex
		changes [][2]*config.Config
	)
	called := make(chan struct{}, 1)
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		mu.Lock()
		changes = append(changes, [2]*config.Config{old, new})
		mu.Unlock()
		select {
		case called <- struct{}{}:
		default:
		}
	}, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	writeFile(t, path, watchConfig("debug", "halt"))
	touch(t, path, time.Second)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange not called")
	}

	mu.Lock()
	defer mu.Unlock()
	old, cur := changes[0][0], changes[0][1]
	if old.StopPhrase != "stop" || cur.StopPhrase != "halt" {
		t.Errorf("stop phrase %q -> %q", old.StopPhrase, cur.StopPhrase)
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Errorf("Current().LogLevel = %q, want debug", w.Current().Server.LogLevel)
	}
}

func TestWatcher_SkipsInvalidUpdate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	writeFile(t, path, watchConfig("info", "stop"))

	called := make(chan struct{}, 1)
	w, err := config.NewWatcher(path, func(_, _ *config.Config) {
		called <- struct{}{}
	}, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	writeFile(t, path, watchConfig("shouting", "stop"))
	touch(t, path, time.Second)

	select {
	case <-called:
		t.Fatal("onChange called for invalid config")
	case <-time.After(200 * time.Millisecond):
	}
	if w.Current().Server.LogLevel != config.LogInfo {
		t.Errorf("Current() changed to %q", w.Current().Server.LogLevel)
	}
}

func TestWatcher_IgnoresTouchWithoutContentChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	writeFile(t, path, watchConfig("info", "stop"))

	called := make(chan struct{}, 1)
	w, err := config.NewWatcher(path, func(_, _ *config.Config) {
		called <- struct{}{}
	}, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	touch(t, path, time.Second)

	select {
	case <-called:
		t.Fatal("onChange called although content is unchanged")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	writeFile(t, path, watchConfig("info", "stop"))

	w, err := config.NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
