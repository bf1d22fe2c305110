package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/tokentap/pkg/stream"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionFinished is emitted once a streaming session reaches a
	// terminal state.
	EventTypeSessionFinished = "tokentap.session.finished"
)

// SessionFinishedEvent is a transport-neutral event payload for a finished
// streaming session. The query text itself is never included.
type SessionFinishedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Session       SessionMeta    `json:"session"`
	Outcome       string         `json:"outcome"`
	Metrics       SessionMetrics `json:"metrics"`
	Error         string         `json:"error,omitempty"`
}

// SessionMeta identifies the session.
type SessionMeta struct {
	ID         string `json:"id"`
	Endpoint   string `json:"endpoint"`
	QueryChars int    `json:"query_chars"`
}

// SessionMetrics are the final measurements of the session.
type SessionMetrics struct {
	TTFTMs          *int64   `json:"ttft_ms,omitempty"`
	TokenCount      int      `json:"token_count"`
	DurationMs      int64    `json:"duration_ms"`
	TokensPerSecond *float64 `json:"tokens_per_second,omitempty"`
}

// NewSessionFinishedEvent builds a v1 event from the session's identity and
// final metrics.
func NewSessionFinishedEvent(session SessionMeta, outcome string, m stream.Metrics, errMsg string, now time.Time) *SessionFinishedEvent {
	metrics := SessionMetrics{TokenCount: m.TokenCount}
	if m.FirstTokenElapsed != nil {
		ms := m.FirstTokenElapsed.Milliseconds()
		metrics.TTFTMs = &ms
	}
	if m.TotalDuration != nil {
		metrics.DurationMs = m.TotalDuration.Milliseconds()
	}
	if tps, ok := m.TokensPerSecond(); ok {
		metrics.TokensPerSecond = &tps
	}

	return &SessionFinishedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSessionFinished,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		Session:       session,
		Outcome:       outcome,
		Metrics:       metrics,
		Error:         errMsg,
	}
}
