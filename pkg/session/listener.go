package session

import (
	"time"

	"github.com/papercomputeco/tokentap/pkg/stream"
)

// Listener receives session notifications. All calls for one session come
// from that session's goroutine, in order. Implementations may call Cancel
// but must not call Start, Stop or Reset, which wait for that goroutine.
type Listener interface {
	OnStatusChange(state State)
	OnTokenAppended(text string)
	OnMetricsUpdate(update MetricsUpdate)
	OnError(message string)
}

// MetricsUpdate is a point-in-time view of the session metrics. Nil fields
// are not known yet.
type MetricsUpdate struct {
	TTFT            *time.Duration
	TokenCount      int
	Duration        *time.Duration
	TokensPerSecond *float64
}

func newMetricsUpdate(m stream.Metrics) MetricsUpdate {
	u := MetricsUpdate{
		TTFT:       m.FirstTokenElapsed,
		TokenCount: m.TokenCount,
		Duration:   m.TotalDuration,
	}
	if tps, ok := m.TokensPerSecond(); ok {
		u.TokensPerSecond = &tps
	}
	return u
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	StatusChange  func(State)
	TokenAppended func(string)
	MetricsUpdate func(MetricsUpdate)
	Error         func(string)
}

var _ Listener = ListenerFuncs{}

func (f ListenerFuncs) OnStatusChange(state State) {
	if f.StatusChange != nil {
		f.StatusChange(state)
	}
}

func (f ListenerFuncs) OnTokenAppended(text string) {
	if f.TokenAppended != nil {
		f.TokenAppended(text)
	}
}

func (f ListenerFuncs) OnMetricsUpdate(update MetricsUpdate) {
	if f.MetricsUpdate != nil {
		f.MetricsUpdate(update)
	}
}

func (f ListenerFuncs) OnError(message string) {
	if f.Error != nil {
		f.Error(message)
	}
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) OnStatusChange(State) {}
func (NopListener) OnTokenAppended(string) {}
func (NopListener) OnMetricsUpdate(MetricsUpdate) {}
func (NopListener) OnError(string) {}
