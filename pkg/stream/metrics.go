package stream

import "time"

// Metrics holds the latency and throughput measurements of one streaming
// request. It is created when the request starts, mutated by the
// Interpreter as events arrive, and finalized once when the stream ends.
type Metrics struct {
	// StartTime is when the request was issued.
	StartTime time.Time

	// FirstTokenElapsed is the time-to-first-token. Nil until the first
	// non-empty token content arrives, then never changed.
	FirstTokenElapsed *time.Duration

	// TokenCount is the number of non-empty token events appended.
	TokenCount int

	// TotalDuration is set by Finalize. Nil while the stream is running.
	TotalDuration *time.Duration
}

// NewMetrics returns Metrics for a request started at start.
func NewMetrics(start time.Time) *Metrics {
	return &Metrics{StartTime: start}
}

// Finalize records TotalDuration as now - StartTime. Only the first call has
// an effect, so every way a stream can end shares one finalize path.
func (m *Metrics) Finalize(now time.Time) {
	if m.TotalDuration != nil {
		return
	}
	d := max(now.Sub(m.StartTime), 0)
	m.TotalDuration = &d
}

// Finalized reports whether Finalize has been called.
func (m *Metrics) Finalized() bool {
	return m.TotalDuration != nil
}

// TokensPerSecond returns TokenCount / TotalDuration. ok is false when the
// metrics are not finalized or the duration is zero, so callers never see
// NaN or Inf.
func (m *Metrics) TokensPerSecond() (tps float64, ok bool) {
	if m.TotalDuration == nil || *m.TotalDuration <= 0 {
		return 0, false
	}
	return float64(m.TokenCount) / m.TotalDuration.Seconds(), true
}

// Snapshot returns a deep copy safe to hand to another goroutine.
func (m *Metrics) Snapshot() Metrics {
	cp := Metrics{
		StartTime:  m.StartTime,
		TokenCount: m.TokenCount,
	}
	if m.FirstTokenElapsed != nil {
		d := *m.FirstTokenElapsed
		cp.FirstTokenElapsed = &d
	}
	if m.TotalDuration != nil {
		d := *m.TotalDuration
		cp.TotalDuration = &d
	}
	return cp
}

// recordFirstToken sets FirstTokenElapsed if it is not set yet.
func (m *Metrics) recordFirstToken(now time.Time) {
	if m.FirstTokenElapsed != nil {
		return
	}
	d := max(now.Sub(m.StartTime), 0)
	m.FirstTokenElapsed = &d
}
