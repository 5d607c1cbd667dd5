package insert

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/micmonay/keybd_event"
)

// Modifier is the key held while pressing V.
type Modifier string

const (
	ModifierCtrl  Modifier = "ctrl"
	ModifierSuper Modifier = "super"
)

// DefaultModifier is Super (Cmd) on macOS and Ctrl elsewhere.
func DefaultModifier() Modifier {
	if runtime.GOOS == "darwin" {
		return ModifierSuper
	}
	return ModifierCtrl
}

// Keystroker synthesises a paste keystroke.
type Keystroker interface {
	Paste() error
}

// keyboard sends modifier+V through the OS input layer.
type keyboard struct {
	kb keybd_event.KeyBonding
}

// linuxSettleDelay is how long uinput needs before the virtual keyboard is
// recognised by the desktop session.
const linuxSettleDelay = 2 * time.Second

// NewKeyboard creates a virtual keyboard that presses modifier+V.
func NewKeyboard(mod Modifier) (Keystroker, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("insert: create virtual keyboard: %w", err)
	}
	if runtime.GOOS == "linux" {
		time.Sleep(linuxSettleDelay)
	}
	switch mod {
	case ModifierSuper:
		kb.HasSuper(true)
	case ModifierCtrl, "":
		kb.HasCTRL(true)
	default:
		return nil, fmt.Errorf("insert: unknown modifier %q", mod)
	}
	kb.SetKeys(keybd_event.VK_V)
	return &keyboard{kb: kb}, nil
}

// Paste implements [Keystroker].
func (k *keyboard) Paste() error {
	if err := k.kb.Launching(); err != nil {
		return fmt.Errorf("insert: send paste keystroke: %w", err)
	}
	return nil
}

// PasterOption is a functional option for configuring a [Paster].
type PasterOption func(*Paster)

// WithDelay sets the pause between copying and pasting, giving the clipboard
// owner time to publish the new content. Default: 200 ms.
func WithDelay(d time.Duration) PasterOption {
	return func(p *Paster) {
		p.delay = d
	}
}

// WithRestoreClipboard puts the previous clipboard content back after the
// paste keystroke.
func WithRestoreClipboard(restore bool) PasterOption {
	return func(p *Paster) {
		p.restore = restore
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) PasterOption {
	return func(p *Paster) {
		p.clip = c
	}
}

// Paster inserts text by copy-and-paste into the focused window.
type Paster struct {
	clip    Clipboard
	keys    Keystroker
	delay   time.Duration
	restore bool
}

var _ Inserter = (*Paster)(nil)

const defaultPasteDelay = 200 * time.Millisecond

// NewPaster returns a Paster that pastes with keys.
func NewPaster(keys Keystroker, opts ...PasterOption) *Paster {
	p := &Paster{
		clip:  SystemClipboard{},
		keys:  keys,
		delay: defaultPasteDelay,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Insert copies text, waits, sends the paste keystroke and optionally
// restores the previous clipboard content.
func (p *Paster) Insert(ctx context.Context, text string) error {
	var previous string
	if p.restore {
		prev, err := p.clip.ReadAll()
		if err != nil {
			slog.Debug("insert: read clipboard for restore", "err", err)
		}
		previous = prev
	}

	if err := p.clip.WriteAll(text); err != nil {
		return fmt.Errorf("insert: copy to clipboard: %w", err)
	}
	if err := sleep(ctx, p.delay); err != nil {
		return err
	}
	if err := p.keys.Paste(); err != nil {
		return err
	}

	if p.restore {
		// The target application reads the clipboard asynchronously.
		if err := sleep(ctx, p.delay); err != nil {
			return err
		}
		if err := p.clip.WriteAll(previous); err != nil {
			return fmt.Errorf("insert: restore clipboard: %w", err)
		}
	}
	return nil
}
