// Package session drives tokentap streaming sessions: it opens the request,
// feeds the response through the SSE decoder and the event interpreter, keeps
// the session state machine and notifies a Listener.
//
//	Idle -> Connecting -> Streaming -> Completed
//	Connecting/Streaming -> Aborted (Cancel, Stop, caller context)
//	Connecting/Streaming -> Errored (transport failure, server error event)
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/papercomputeco/tokentap/pkg/eventstream"
	"github.com/papercomputeco/tokentap/pkg/eventstream/nop"
	"github.com/papercomputeco/tokentap/pkg/sse"
	"github.com/papercomputeco/tokentap/pkg/stream"
	"github.com/papercomputeco/tokentap/pkg/tracer"
	"github.com/papercomputeco/tokentap/pkg/transport"
)

const (
	defaultReadBufferSize = 4096
	publishTimeout        = 5 * time.Second
)

// Config configures a Controller.
type Config struct {
	// Transport opens the stream. Required.
	Transport transport.Transport

	// Endpoint is reported on spans and session events.
	Endpoint string

	// Listener receives notifications. Defaults to NopListener.
	Listener Listener

	// Publisher receives a SessionFinishedEvent for every finished session.
	// Defaults to the nop publisher.
	Publisher eventstream.Publisher

	// RawSink, when set, receives a copy of every byte read from the stream.
	RawSink io.Writer

	// ReadBufferSize is the size of each body read. Defaults to 4096.
	ReadBufferSize int

	// Now is the clock used for metrics. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Controller owns the single active session slot.
type Controller struct {
	transport transport.Transport
	endpoint  string
	listener  Listener
	publisher eventstream.Publisher
	rawSink   io.Writer
	bufSize   int
	now       func() time.Time
	logger    *slog.Logger

	interpreter *stream.Interpreter

	// startMu serializes Start, Stop and Reset.
	startMu sync.Mutex
	current atomic.Pointer[Session]
}

// NewController creates a Controller.
func NewController(c Config) (*Controller, error) {
	if c.Transport == nil {
		return nil, errors.New("session controller requires a transport")
	}

	ctrl := &Controller{
		transport: c.Transport,
		endpoint:  c.Endpoint,
		listener:  c.Listener,
		publisher: c.Publisher,
		rawSink:   c.RawSink,
		bufSize:   c.ReadBufferSize,
		now:       c.Now,
		logger:    c.Logger,
	}
	if ctrl.listener == nil {
		ctrl.listener = NopListener{}
	}
	if ctrl.publisher == nil {
		ctrl.publisher = nop.NewPublisher()
	}
	if ctrl.bufSize <= 0 {
		ctrl.bufSize = defaultReadBufferSize
	}
	if ctrl.now == nil {
		ctrl.now = time.Now
	}
	if ctrl.logger == nil {
		ctrl.logger = slog.New(slog.DiscardHandler)
	}
	ctrl.interpreter = stream.NewInterpreter(ctrl.logger, ctrl.now)

	return ctrl, nil
}

// Start validates the query and options, tears down any active session and
// starts a new one. The session runs until the stream ends, ctx is
// cancelled or Cancel/Stop is called.
func (c *Controller) Start(ctx context.Context, query string, opts Options) (*Session, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.teardown()

	sessCtx, cancel := context.WithCancelCause(ctx)
	s := &Session{
		id:      uuid.NewString(),
		query:   query,
		options: opts,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   StateConnecting,
		metrics: stream.NewMetrics(c.now()),
	}
	c.current.Store(s)

	go c.run(sessCtx, s)

	return s, nil
}

// Cancel signals the active session, if any, to abort. It does not wait and
// is safe to call from Listener callbacks.
func (c *Controller) Cancel() {
	if s := c.current.Load(); s != nil {
		s.Cancel()
	}
}

// Stop cancels the active session and waits until its stream is released.
// Calling it with no active session is a no-op.
func (c *Controller) Stop() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	c.teardown()
}

// Reset stops any active session and returns the controller to Idle.
func (c *Controller) Reset() {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.teardown()
	if c.current.Swap(nil) != nil {
		c.listener.OnStatusChange(StateIdle)
	}
}

// State returns the state of the current session, or StateIdle.
func (c *Controller) State() State {
	if s := c.current.Load(); s != nil {
		return s.State()
	}
	return StateIdle
}

// Session returns the current session, or nil when Idle.
func (c *Controller) Session() *Session {
	return c.current.Load()
}

// Active reports whether a session is connecting or streaming.
func (c *Controller) Active() bool {
	return c.State().Active()
}

// teardown cancels the current session and waits for its goroutine.
// Callers hold startMu.
func (c *Controller) teardown() {
	s := c.current.Load()
	if s == nil {
		return
	}
	s.Cancel()
	<-s.done
}

// run is the session goroutine. It owns the decoder, the metrics writes and
// every listener notification for s.
func (c *Controller) run(ctx context.Context, s *Session) {
	defer close(s.done)

	logger := c.logger.With("session_id", s.id)

	ctx, span := tracer.StartSpan(ctx, "tokentap.session", trace.WithAttributes(
		tracer.StringAttr("session.id", s.id),
		tracer.StringAttr("stream.endpoint", c.endpoint),
		tracer.IntAttr("query.chars", utf8.RuneCountInString(s.query)),
		tracer.Float64Attr("generation.temperature", s.options.Temperature),
		tracer.IntAttr("generation.max_tokens", s.options.MaxTokens),
	))
	defer span.End()

	logger.Debug("session starting",
		"endpoint", c.endpoint,
		"temperature", s.options.Temperature,
		"max_tokens", s.options.MaxTokens,
	)
	c.listener.OnStatusChange(StateConnecting)

	state, err := c.stream(ctx, s, logger)

	c.finish(ctx, s, state, err, logger)

	span.SetAttributes(
		tracer.StringAttr("session.outcome", state.String()),
		tracer.IntAttr("stream.tokens", s.Metrics().TokenCount),
	)
	if state == StateErrored {
		tracer.RecordError(span, err)
	} else {
		tracer.SetOK(span)
	}
}

// stream opens the request and consumes the body until a terminal outcome.
// The body is closed before it returns.
func (c *Controller) stream(ctx context.Context, s *Session, logger *slog.Logger) (State, error) {
	body, err := c.transport.Open(ctx, &transport.Request{
		Query:       s.query,
		Temperature: s.options.Temperature,
		MaxTokens:   s.options.MaxTokens,
	})
	if err != nil {
		if aborted(ctx) {
			return StateAborted, ErrAborted
		}
		return StateErrored, &ConnectionError{Err: err}
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.Debug("closing stream body", "error", err)
		}
	}()

	decoder := sse.NewDecoder()
	buf := make([]byte, c.bufSize)
	streaming := false

	for {
		if aborted(ctx) {
			return StateAborted, ErrAborted
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if !streaming {
				streaming = true
				s.setState(StateStreaming)
				c.listener.OnStatusChange(StateStreaming)
			}
			c.mirror(buf[:n], logger)

			for _, ev := range decoder.Feed(buf[:n]) {
				if aborted(ctx) {
					return StateAborted, ErrAborted
				}
				if done, state, err := c.apply(s, ev); done {
					return state, err
				}
			}
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			if pending := decoder.Pending(); strings.TrimSpace(pending) != "" {
				logger.Warn("stream ended with an unterminated event",
					"bytes", len(pending),
				)
			}
			return StateCompleted, nil
		}
		if aborted(ctx) {
			return StateAborted, ErrAborted
		}
		return StateErrored, &ConnectionError{Err: readErr}
	}
}

// apply interprets one event and applies the resulting action. done is true
// when the action ends the session.
func (c *Controller) apply(s *Session, ev *sse.Event) (done bool, state State, err error) {
	s.mu.Lock()
	action := c.interpreter.Interpret(ev, s.metrics)
	var update MetricsUpdate
	if action.Kind == stream.ActionAppendToken {
		s.text.WriteString(action.Content)
		update = newMetricsUpdate(s.metrics.Snapshot())
	}
	s.mu.Unlock()

	switch action.Kind {
	case stream.ActionAppendToken:
		c.listener.OnTokenAppended(action.Content)
		c.listener.OnMetricsUpdate(update)
	case stream.ActionFinalize:
		return true, StateCompleted, nil
	case stream.ActionReportError:
		return true, StateErrored, &ServerError{Message: action.Message}
	case stream.ActionIgnore:
	}

	return false, StateIdle, nil
}

// finish finalizes metrics, records the result, notifies the listener and
// publishes the session event.
func (c *Controller) finish(ctx context.Context, s *Session, state State, err error, logger *slog.Logger) {
	result := Result{
		SessionID: s.id,
		State:     state,
	}
	switch state {
	case StateErrored:
		result.Err = err
		result.Cause = err
	case StateAborted:
		result.Cause = ErrAborted
	}

	s.mu.Lock()
	s.metrics.Finalize(c.now())
	s.state = state
	result.Metrics = s.metrics.Snapshot()
	result.Text = s.text.String()
	s.result = result
	s.mu.Unlock()

	switch state {
	case StateCompleted:
		c.listener.OnMetricsUpdate(newMetricsUpdate(result.Metrics))
	case StateErrored:
		c.listener.OnError(err.Error())
	}
	c.listener.OnStatusChange(state)

	attrs := []any{
		"state", state.String(),
		"tokens", result.Metrics.TokenCount,
	}
	if result.Metrics.TotalDuration != nil {
		attrs = append(attrs, "duration", *result.Metrics.TotalDuration)
	}
	if tps, ok := result.Metrics.TokensPerSecond(); ok {
		attrs = append(attrs, "tokens_per_second", tps)
	}
	if state == StateErrored {
		logger.Warn("session failed", append(attrs, "error", err)...)
	} else {
		logger.Info("session finished", attrs...)
	}

	c.publish(ctx, s, result, logger)
}

func (c *Controller) publish(ctx context.Context, s *Session, result Result, logger *slog.Logger) {
	var errMsg string
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	event := eventstream.NewSessionFinishedEvent(eventstream.SessionMeta{
		ID:         s.id,
		Endpoint:   c.endpoint,
		QueryChars: utf8.RuneCountInString(s.query),
	}, result.State.String(), result.Metrics, errMsg, c.now())

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := c.publisher.PublishSession(pubCtx, event); err != nil {
		logger.Warn("failed to publish session event",
			"event_id", event.EventID,
			"error", err,
		)
	}
}

func (c *Controller) mirror(p []byte, logger *slog.Logger) {
	if c.rawSink == nil {
		return
	}
	if _, err := c.rawSink.Write(p); err != nil {
		logger.Debug("raw sink write failed", "error", err)
	}
}

// aborted reports whether the session context was cancelled by the caller.
// A deadline is not an abort; it surfaces as a transport error.
func aborted(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
