package status

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// NotifyFunc sends one desktop notification.
type NotifyFunc func(title, message string) error

// beeepNotify shows a native desktop notification.
func beeepNotify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Notifier turns selected phases into desktop notifications, standing in for
// a menu-bar status indicator.
type Notifier struct {
	title  string
	phases map[Phase]string
	send   NotifyFunc
}

var _ Observer = (*Notifier)(nil)

// NotifierOption is a functional option for configuring a [Notifier].
type NotifierOption func(*Notifier)

// WithNotifyFunc replaces the notification backend (used by tests).
func WithNotifyFunc(f NotifyFunc) NotifierOption {
	return func(n *Notifier) {
		n.send = f
	}
}

// WithPhases limits notifications to the given phases.
func WithPhases(phases ...Phase) NotifierOption {
	return func(n *Notifier) {
		keep := make(map[Phase]string, len(phases))
		for _, p := range phases {
			if msg, ok := defaultMessages[p]; ok {
				keep[p] = msg
			}
		}
		n.phases = keep
	}
}

var defaultMessages = map[Phase]string{
	PhaseReady:     "Models loaded",
	PhaseListening: "Listening",
	PhaseRecording: "Recording",
	PhaseStopped:   "Stopped",
	PhaseError:     "Error",
}

// NewNotifier returns a Notifier for the ready, listening, stopped and error
// phases. Recording and transcribing fire on every utterance and are left out
// unless requested via [WithPhases].
func NewNotifier(title string, opts ...NotifierOption) *Notifier {
	n := &Notifier{title: title, send: beeepNotify}
	WithPhases(PhaseReady, PhaseListening, PhaseStopped, PhaseError)(n)
	for _, o := range opts {
		o(n)
	}
	return n
}

// OnStatus implements [Observer]. Failures are logged at debug level; a
// missing notification daemon is not worth a warning per event.
func (n *Notifier) OnStatus(ev Event) {
	msg, ok := n.phases[ev.Phase]
	if !ok {
		return
	}
	if ev.Cause != "" {
		msg += ": " + ev.Cause
	}
	if err := n.send(n.title, msg); err != nil {
		slog.Debug("status: desktop notification failed", "err", err)
	}
}
