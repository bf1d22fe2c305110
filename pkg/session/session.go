package session

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/tokentap/pkg/stream"
)

// Result is the final outcome of a session.
type Result struct {
	SessionID string
	State     State
	Metrics   stream.Metrics

	// Text is every appended token, in order.
	Text string

	// Err is the failure surfaced to the listener. It is nil for completed
	// and aborted sessions.
	Err error

	// Cause explains any non-completed outcome: Err for errored sessions,
	// ErrAborted for aborted ones.
	Cause error
}

// MetricsUpdate returns the final metrics in listener form.
func (r Result) MetricsUpdate() MetricsUpdate {
	return newMetricsUpdate(r.Metrics)
}

// Session is one streaming request. It is created by Controller.Start and
// driven by its own goroutine.
type Session struct {
	id      string
	query   string
	options Options

	cancel context.CancelCauseFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	metrics *stream.Metrics
	text    strings.Builder
	result  Result
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Options returns the generation parameters the session was started with.
func (s *Session) Options() Options {
	return s.options
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Metrics returns a snapshot of the current metrics.
func (s *Session) Metrics() stream.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics.Snapshot()
}

// Text returns the response text received so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Cancel signals the session to abort. It never blocks and may be called
// any number of times, including after the session finished.
func (s *Session) Cancel() {
	s.cancel(ErrAborted)
}

// Done is closed once the session reached a terminal state and released
// its stream.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is done and returns its result.
func (s *Session) Wait() Result {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
