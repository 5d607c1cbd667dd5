// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to verify that sessions are created with the expected Config.
// Use Session to inject speech probabilities and inspect how often frames were
// submitted for scoring.
//
// Example:
//
//	sess := &mock.Session{
//	    ScoreFunc: func(frame []byte) (float64, error) {
//	        if frame[0] != 0 {
//	            return 0.9, nil
//	        }
//	        return 0.1, nil
//	    },
//	}
//	eng := &mock.Engine{Session: sess}
//	handle, _ := eng.NewSession(cfg)
package mock

import (
	"sync"

	"github.com/MrWong99/voxpaste/pkg/provider/vad"
)

// NewSessionCall records a single invocation of Engine.NewSession.
type NewSessionCall struct {
	// Cfg is the Config passed to NewSession.
	Cfg vad.Config
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by NewSession. If nil, NewSession
	// returns a new default Session.
	Session vad.SessionHandle

	// NewSessionErr, if non-nil, is returned as the error from NewSession.
	NewSessionErr error

	// NewSessionCalls records every call to NewSession in order.
	NewSessionCalls []NewSessionCall
}

// NewSession records the call and returns Session, NewSessionErr.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewSessionCalls = append(e.NewSessionCalls, NewSessionCall{Cfg: cfg})
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	if e.Session != nil {
		return e.Session, nil
	}
	return &Session{}, nil
}

// Ensure Engine implements vad.Engine at compile time.
var _ vad.Engine = (*Engine)(nil)

// Session is a mock implementation of vad.SessionHandle.
//
// ProcessFrame consults, in order: ScoreFunc when set, then ProcessFrameErr,
// then Probability.
type Session struct {
	mu sync.Mutex

	// ScoreFunc, when non-nil, computes the result of every ProcessFrame call.
	ScoreFunc func(frame []byte) (float64, error)

	// Probability is returned by ProcessFrame when ScoreFunc is nil.
	Probability float64

	// ProcessFrameErr, if non-nil, is returned by ProcessFrame when ScoreFunc is nil.
	ProcessFrameErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// ProcessFrameCallCount is the number of times ProcessFrame was called.
	ProcessFrameCallCount int

	// LastFrame is a copy of the most recent frame passed to ProcessFrame.
	LastFrame []byte

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// ProcessFrame records the call and returns the scripted score.
func (s *Session) ProcessFrame(frame []byte) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProcessFrameCallCount++
	s.LastFrame = append(s.LastFrame[:0], frame...)
	if s.ScoreFunc != nil {
		return s.ScoreFunc(frame)
	}
	if s.ProcessFrameErr != nil {
		return 0, s.ProcessFrameErr
	}
	return s.Probability, nil
}

// Reset records the call by incrementing ResetCallCount.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCallCount++
}

// Close records the call and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Resets returns ResetCallCount. Thread-safe.
func (s *Session) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResetCallCount
}

// Frames returns ProcessFrameCallCount. Thread-safe.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ProcessFrameCallCount
}

// Ensure Session implements vad.SessionHandle at compile time.
var _ vad.SessionHandle = (*Session)(nil)
