// Package status carries session lifecycle events from the capture loop to
// whoever is watching: logs, desktop notifications, WebSocket clients.
//
// Delivery is best effort. [Broadcaster.OnStatus] never blocks; when a
// subscriber falls behind, events addressed to it are dropped.
package status

import (
	"log/slog"
	"sync"
	"time"
)

// Phase is the externally visible state of the application.
type Phase string

const (
	PhaseLoading      Phase = "loading"
	PhaseReady        Phase = "ready"
	PhaseListening    Phase = "listening"
	PhaseRecording    Phase = "recording"
	PhaseTranscribing Phase = "transcribing"
	PhaseStopped      Phase = "stopped"
	PhaseError        Phase = "error"
)

// Event is one status change.
type Event struct {
	Phase     Phase     `json:"phase"`
	Cause     string    `json:"cause,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Time      time.Time `json:"time"`
}

// Observer receives status events. Implementations must return quickly; they
// are called from the capture loop.
type Observer interface {
	OnStatus(Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(Event)

// OnStatus calls f(ev).
func (f ObserverFunc) OnStatus(ev Event) { f(ev) }

// Nop discards every event.
var Nop Observer = ObserverFunc(func(Event) {})

// LogObserver logs every event at Info (Warn for errors).
func LogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return ObserverFunc(func(ev Event) {
		attrs := []any{"phase", ev.Phase}
		if ev.SessionID != "" {
			attrs = append(attrs, "session_id", ev.SessionID)
		}
		if ev.Phase == PhaseError {
			logger.Warn("status", append(attrs, "cause", ev.Cause)...)
			return
		}
		logger.Info("status", attrs...)
	})
}

// defaultBuffer is the per-subscriber queue depth.
const defaultBuffer = 32

// Broadcaster fans events out to registered observers and channel
// subscribers. Each observer runs on its own goroutine behind a bounded queue,
// so a slow notifier cannot stall the capture loop or other observers.
//
// The zero value is not usable; construct with [NewBroadcaster].
type Broadcaster struct {
	mu     sync.RWMutex
	last   Event
	subs   map[*subscription]struct{}
	closed bool
	buffer int
	wg     sync.WaitGroup
}

type subscription struct {
	ch chan Event
}

var _ Observer = (*Broadcaster)(nil)

// NewBroadcaster returns a Broadcaster whose current phase is [PhaseLoading].
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		last:   Event{Phase: PhaseLoading, Time: time.Now()},
		subs:   make(map[*subscription]struct{}),
		buffer: defaultBuffer,
	}
}

// OnStatus records ev as the latest event and queues it for every subscriber.
// A zero Time is filled in. It never blocks.
func (b *Broadcaster) OnStatus(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = ev
	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			slog.Debug("status: subscriber queue full, dropping event", "phase", ev.Phase)
		}
	}
}

// Last returns the most recent event.
func (b *Broadcaster) Last() Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// Subscribe returns a channel of future events and a cancel func that
// unregisters it and closes the channel. The current event is delivered
// first so late joiners see the present phase.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	s := &subscription{ch: make(chan Event, b.buffer)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	s.ch <- b.last
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[s]; ok {
				delete(b.subs, s)
				close(s.ch)
			}
		})
	}
}

// Attach runs obs on its own goroutine for every future event until the
// broadcaster is closed.
func (b *Broadcaster) Attach(obs Observer) {
	ch, _ := b.Subscribe()
	// Skip the replayed current event; observers only see changes.
	<-ch
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for ev := range ch {
			obs.OnStatus(ev)
		}
	}()
}

// Close unregisters all subscribers, closes their channels and waits for
// attached observers to drain.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		for s := range b.subs {
			close(s.ch)
			delete(b.subs, s)
		}
	}
	b.mu.Unlock()
	b.wg.Wait()
}
