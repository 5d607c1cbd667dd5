// Package insert delivers transcribed text to the user's focused application.
//
// Three strategies are provided:
//
//   - [Paster] copies the text to the clipboard and synthesises a paste
//     keystroke (Ctrl+V or Super/Cmd+V).
//   - [ClipboardOnly] copies the text and leaves pasting to the user.
//   - [Command] runs an external program with the text on stdin, for setups
//     that need a platform script (e.g., osascript to target one application).
//
// Insertion is a side effect outside the session's control; callers log and
// swallow its errors.
package insert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

// Inserter delivers text downstream.
type Inserter interface {
	Insert(ctx context.Context, text string) error
}

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// ErrClipboardUnsupported is returned when no clipboard backend is available
// (e.g., no xclip/xsel/wl-clipboard on Linux).
var ErrClipboardUnsupported = errors.New("insert: system clipboard not available")

// SystemClipboard is the [Clipboard] backed by github.com/atotto/clipboard.
type SystemClipboard struct{}

var _ Clipboard = SystemClipboard{}

// ReadAll implements [Clipboard].
func (SystemClipboard) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", ErrClipboardUnsupported
	}
	return clipboard.ReadAll()
}

// WriteAll implements [Clipboard].
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}

// ClipboardOnly copies text to the clipboard without pasting.
type ClipboardOnly struct {
	Clipboard Clipboard
}

var _ Inserter = (*ClipboardOnly)(nil)

// Insert implements [Inserter].
func (c *ClipboardOnly) Insert(_ context.Context, text string) error {
	clip := c.Clipboard
	if clip == nil {
		clip = SystemClipboard{}
	}
	if err := clip.WriteAll(text); err != nil {
		return fmt.Errorf("insert: copy to clipboard: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
