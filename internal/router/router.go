// Package router decides what happens to a transcribed utterance: stop the
// session, insert the text, or nothing at all.
//
// Comparison against the stop phrase ignores surrounding whitespace and case.
// The text handed on for insertion is always the original transcript, never
// the folded form.
package router

import (
	"strings"
	"unicode"
)

// Action is the routing decision for one utterance.
type Action int

const (
	// ActionIgnore means the transcript was empty; keep listening.
	ActionIgnore Action = iota

	// ActionStop means the transcript matched the stop phrase.
	ActionStop

	// ActionInsert means the transcript should be inserted downstream.
	ActionInsert
)

// String returns the lower-case action name used in logs and metrics.
func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionStop:
		return "stop"
	case ActionInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Decision is the result of [Router.Route].
type Decision struct {
	Action Action

	// Text is the original, unmodified transcript. Empty for ActionIgnore.
	Text string
}

// Option is a functional option for configuring a [Router].
type Option func(*Router)

// WithIgnorePunctuation makes the stop phrase comparison also ignore leading
// and trailing punctuation, so that "Stop." matches "stop". Off by default.
func WithIgnorePunctuation() Option {
	return func(r *Router) {
		r.stripPunct = true
	}
}

// Router matches transcripts against a stop phrase. It is immutable after
// construction and safe for concurrent use.
type Router struct {
	stopPhrase string
	stripPunct bool
}

// New returns a [Router] for stopPhrase. An empty stop phrase never matches.
func New(stopPhrase string, opts ...Option) *Router {
	r := &Router{}
	for _, o := range opts {
		o(r)
	}
	r.stopPhrase = r.normalize(stopPhrase)
	return r
}

// StopPhrase returns the normalised stop phrase.
func (r *Router) StopPhrase() string {
	return r.stopPhrase
}

// Route classifies text.
func (r *Router) Route(text string) Decision {
	norm := r.normalize(text)
	switch {
	case norm == "":
		return Decision{Action: ActionIgnore}
	case r.stopPhrase != "" && norm == r.stopPhrase:
		return Decision{Action: ActionStop, Text: text}
	default:
		return Decision{Action: ActionInsert, Text: text}
	}
}

func (r *Router) normalize(s string) string {
	s = strings.TrimSpace(s)
	if r.stripPunct {
		s = strings.TrimFunc(s, func(c rune) bool {
			return unicode.IsPunct(c) || unicode.IsSpace(c)
		})
	}
	return strings.ToLower(s)
}
