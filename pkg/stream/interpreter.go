// Package stream interprets decoded SSE events from a tokentap endpoint into
// semantic actions (append a token, finalize, report an error, ignore) and
// keeps the per-request latency and throughput metrics up to date.
//
// The interpreter never renders anything: it returns an Action for the
// session controller to apply.
package stream

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/papercomputeco/tokentap/pkg/sse"
	"github.com/papercomputeco/tokentap/pkg/utils"
)

// Event types recognized on the wire.
const (
	EventMessage = sse.DefaultEventType
	EventEnd     = "end"
	EventError   = "error"
)

// Payload types carried in the JSON data of a "message" event.
const (
	PayloadToken = "token"
	PayloadEnd   = "end"
)

// DefaultErrorMessage is reported when an "error" event carries no data.
const DefaultErrorMessage = "Stream error"

// TokenPayload is the JSON body of a "message" event, e.g.
// {"type":"token","content":"Hi"} or {"type":"end"}.
type TokenPayload struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Interpreter maps events to actions.
type Interpreter struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewInterpreter creates an Interpreter that logs skipped events to logger
// and reads the time from now (time.Now when nil).
func NewInterpreter(logger *slog.Logger, now func() time.Time) *Interpreter {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Interpreter{logger: logger, now: now}
}

// Interpret maps ev to an Action, updating m for token events.
// Rules are evaluated in order: "error", "end", "message", anything else.
// A malformed message payload yields ActionIgnore and never ends the stream.
func (i *Interpreter) Interpret(ev *sse.Event, m *Metrics) Action {
	if ev == nil {
		return Ignore()
	}

	switch ev.Type {
	case EventError:
		msg := ev.Data
		if msg == "" {
			msg = DefaultErrorMessage
		}
		return ReportError(msg)

	case EventEnd:
		return Finalize()

	case EventMessage:
		return i.interpretMessage(ev, m)

	default:
		i.logger.Debug("ignoring event",
			"event_type", ev.Type,
			"event_id", ev.ID,
		)
		return Ignore()
	}
}

func (i *Interpreter) interpretMessage(ev *sse.Event, m *Metrics) Action {
	var payload TokenPayload
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		i.logger.Warn("failed to parse SSE event",
			"error", err,
			"data", utils.Truncate(ev.Data, 120),
		)
		return Ignore()
	}

	switch payload.Type {
	case PayloadToken:
		if payload.Content == "" {
			return Ignore()
		}
		m.recordFirstToken(i.now())
		m.TokenCount++
		return AppendToken(payload.Content)

	case PayloadEnd:
		return Finalize()

	default:
		i.logger.Debug("ignoring message payload",
			"payload_type", payload.Type,
		)
		return Ignore()
	}
}
