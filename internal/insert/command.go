package insert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Command runs an external program for every insertion, writing the text to
// its stdin. On macOS, for example,
//
//	["osascript", "-e", "tell application \"Cursor\" to activate", "-e", ...]
//
// reproduces a targeted paste into one application.
type Command struct {
	argv []string
}

var _ Inserter = (*Command)(nil)

// NewCommand returns a Command for argv. argv[0] must be non-empty.
func NewCommand(argv []string) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("insert: command must not be empty")
	}
	return &Command{argv: append([]string(nil), argv...)}, nil
}

// Insert implements [Inserter].
func (c *Command) Insert(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("insert: run %s: %w: %s", c.argv[0], err, msg)
		}
		return fmt.Errorf("insert: run %s: %w", c.argv[0], err)
	}
	return nil
}
