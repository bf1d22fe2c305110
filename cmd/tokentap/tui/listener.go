package tuicmder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	bubbletea "github.com/charmbracelet/bubbletea"

	"github.com/papercomputeco/tokentap/pkg/session"
)

// errSuperseded is returned when a newer start or clear already ran.
var errSuperseded = errors.New("superseded by a newer request")

// Messages delivered to the model. gen identifies the request generation so
// notifications from a stopped session can be discarded.
type (
	statusMsg struct {
		gen   uint64
		state session.State
	}

	tokenMsg struct {
		gen  uint64
		text string
	}

	metricsMsg struct {
		gen    uint64
		update session.MetricsUpdate
	}

	errorMsg struct {
		gen     uint64
		message string
	}

	// startedMsg reports the outcome of a start or clear request.
	startedMsg struct {
		gen uint64
		err error
	}

	hideStatusMsg struct {
		gen uint64
	}
)

// programListener forwards session notifications into the bubbletea event
// loop, tagged with the generation that was current when they fired.
type programListener struct {
	send func(bubbletea.Msg)
	gen  atomic.Uint64
}

var _ session.Listener = (*programListener)(nil)

func newProgramListener(send func(bubbletea.Msg)) *programListener {
	return &programListener{send: send}
}

func (l *programListener) OnStatusChange(state session.State) {
	l.send(statusMsg{gen: l.gen.Load(), state: state})
}

func (l *programListener) OnTokenAppended(text string) {
	l.send(tokenMsg{gen: l.gen.Load(), text: text})
}

func (l *programListener) OnMetricsUpdate(update session.MetricsUpdate) {
	l.send(metricsMsg{gen: l.gen.Load(), update: update})
}

func (l *programListener) OnError(message string) {
	l.send(errorMsg{gen: l.gen.Load(), message: message})
}

// controller is the part of *session.Controller the UI drives.
type controller interface {
	Start(ctx context.Context, query string, opts session.Options) (*session.Session, error)
	Cancel()
	Stop()
	Reset()
}

// runner performs the blocking controller calls off the event loop. Calls
// are serialized and a request older than the last one applied is dropped.
type runner struct {
	ctx      context.Context
	ctrl     controller
	listener *programListener

	mu sync.Mutex
}

func newRunner(ctx context.Context, ctrl controller, listener *programListener) *runner {
	return &runner{ctx: ctx, ctrl: ctrl, listener: listener}
}

// startCmd stops any running session and starts query under gen.
func (r *runner) startCmd(gen uint64, query string, opts session.Options) bubbletea.Cmd {
	return func() bubbletea.Msg {
		r.mu.Lock()
		defer r.mu.Unlock()

		if gen < r.listener.gen.Load() {
			return startedMsg{gen: gen, err: errSuperseded}
		}

		r.ctrl.Stop()
		r.listener.gen.Store(gen)
		_, err := r.ctrl.Start(r.ctx, query, opts)
		return startedMsg{gen: gen, err: err}
	}
}

// resetCmd stops any running session and returns the controller to idle.
func (r *runner) resetCmd(gen uint64) bubbletea.Cmd {
	return func() bubbletea.Msg {
		r.mu.Lock()
		defer r.mu.Unlock()

		if gen < r.listener.gen.Load() {
			return startedMsg{gen: gen, err: errSuperseded}
		}

		r.listener.gen.Store(gen)
		r.ctrl.Reset()
		return startedMsg{gen: gen}
	}
}

// cancel aborts the active session without waiting.
func (r *runner) cancel() {
	r.ctrl.Cancel()
}
