// Package history keeps a log of recognised utterances and what was done with
// them. It backs the GET /history endpoint and lets users recover text that
// was pasted into the wrong window.
//
// Two implementations are provided: [MemoryStore], a bounded in-process ring,
// and history/postgres for a durable log with full-text search.
package history

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Entry is one routed utterance.
type Entry struct {
	// SessionID identifies the capture session.
	SessionID string `json:"session_id"`

	// Text is the text after vocabulary correction (what was inserted).
	Text string `json:"text"`

	// RawText is the transcript exactly as the STT provider returned it.
	RawText string `json:"raw_text"`

	// Action is the routing decision: "insert", "stop" or "ignore".
	Action string `json:"action"`

	// Provider names the STT backend that produced the transcript.
	Provider string `json:"provider,omitempty"`

	// Timestamp is when the utterance was routed.
	Timestamp time.Time `json:"timestamp"`

	// Duration is the audio length of the utterance.
	Duration time.Duration `json:"duration_ns"`
}

// SearchOpts narrows [Store.Search] results.
type SearchOpts struct {
	// SessionID restricts results to one session. Empty means all.
	SessionID string

	// After and Before bound Timestamp (exclusive). Zero means unbounded.
	After  time.Time
	Before time.Time

	// Limit caps the number of results. Zero means no cap.
	Limit int
}

// Store persists entries.
type Store interface {
	// Append adds e to the log.
	Append(ctx context.Context, e Entry) error

	// Recent returns up to limit most recent entries, oldest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Search returns entries whose text contains query, oldest first.
	Search(ctx context.Context, query string, opts SearchOpts) ([]Entry, error)
}

// MemoryStore is a bounded in-memory [Store]. The oldest entries are evicted
// once the capacity is reached. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

var _ Store = (*MemoryStore)(nil)

// DefaultCapacity is used when NewMemoryStore is given a non-positive size.
const DefaultCapacity = 200

// NewMemoryStore returns a MemoryStore that keeps at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{max: capacity}
}

// Append implements [Store].
func (m *MemoryStore) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == m.max {
		copy(m.entries, m.entries[1:])
		m.entries = m.entries[:len(m.entries)-1]
	}
	m.entries = append(m.entries, e)
	return nil
}

// Recent implements [Store].
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := 0
	if limit > 0 && limit < len(m.entries) {
		start = len(m.entries) - limit
	}
	return append([]Entry{}, m.entries[start:]...), nil
}

// Search implements [Store] with a case-insensitive substring match.
func (m *MemoryStore) Search(_ context.Context, query string, opts SearchOpts) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	out := []Entry{}
	for _, e := range m.entries {
		if opts.SessionID != "" && e.SessionID != opts.SessionID {
			continue
		}
		if !opts.After.IsZero() && !e.Timestamp.After(opts.After) {
			continue
		}
		if !opts.Before.IsZero() && !e.Timestamp.Before(opts.Before) {
			continue
		}
		if !strings.Contains(strings.ToLower(e.Text), q) {
			continue
		}
		out = append(out, e)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}
