package testutils

import (
	"strings"
	"sync"

	"github.com/papercomputeco/tokentap/pkg/session"
)

// RecordingListener records every session notification. It is safe for
// concurrent use; read it through the accessor methods.
type RecordingListener struct {
	// OnStatus, when set, is called after a status change is recorded.
	OnStatus func(session.State)

	mu       sync.Mutex
	statuses []session.State
	tokens   []string
	updates  []session.MetricsUpdate
	errors   []string
}

var _ session.Listener = (*RecordingListener)(nil)

func (l *RecordingListener) OnStatusChange(state session.State) {
	l.mu.Lock()
	l.statuses = append(l.statuses, state)
	hook := l.OnStatus
	l.mu.Unlock()

	if hook != nil {
		hook(state)
	}
}

func (l *RecordingListener) OnTokenAppended(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = append(l.tokens, text)
}

func (l *RecordingListener) OnMetricsUpdate(update session.MetricsUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, update)
}

func (l *RecordingListener) OnError(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, message)
}

// Statuses returns the recorded state transitions.
func (l *RecordingListener) Statuses() []session.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]session.State(nil), l.statuses...)
}

// Tokens returns the appended tokens.
func (l *RecordingListener) Tokens() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.tokens...)
}

// Text returns the appended tokens joined together.
func (l *RecordingListener) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.tokens, "")
}

// Updates returns the metrics updates.
func (l *RecordingListener) Updates() []session.MetricsUpdate {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]session.MetricsUpdate(nil), l.updates...)
}

// Errors returns the reported error messages.
func (l *RecordingListener) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

// Reset forgets everything recorded so far.
func (l *RecordingListener) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = nil
	l.tokens = nil
	l.updates = nil
	l.errors = nil
}
