// Package mock provides a test double for insert.Inserter.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxpaste/internal/insert"
)

// Inserter records every inserted text.
type Inserter struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by every Insert call. The text is still
	// recorded.
	Err error

	// Texts records the text of every Insert call in order.
	Texts []string
}

var _ insert.Inserter = (*Inserter)(nil)

// Insert records text and returns Err.
func (m *Inserter) Insert(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
	return m.Err
}

// Inserted returns a copy of the recorded texts. Thread-safe.
func (m *Inserter) Inserted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Texts...)
}
