// Package worker provides an asynchronous worker pool that delivers session
// events through a wrapped eventstream.Publisher.
//
// The pool decouples delivery from the session goroutine so a slow or
// unreachable broker never delays a session's teardown.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/tokentap/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
)

// ErrQueueFull is returned when an event is dropped because the queue is full.
var ErrQueueFull = errors.New("session event queue full, event dropped")

// ErrClosed is returned when publishing to a closed pool.
var ErrClosed = errors.New("session event pool closed")

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher delivers events. Required.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool publishes session events asynchronously via a worker pool.
type Pool struct {
	publisher eventstream.Publisher
	queue     chan *eventstream.SessionFinishedEvent
	wg        sync.WaitGroup
	logger    *slog.Logger

	// mu guards closed against concurrent sends on a closing queue.
	mu     sync.RWMutex
	closed bool
}

var _ eventstream.Publisher = (*Pool)(nil)

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		publisher: c.Publisher,
		queue:     make(chan *eventstream.SessionFinishedEvent, c.QueueSize),
		logger:    logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// PublishSession submits event for delivery and returns without waiting.
// It returns ErrQueueFull when the event had to be dropped.
func (p *Pool) PublishSession(_ context.Context, event *eventstream.SessionFinishedEvent) error {
	if event == nil {
		return eventstream.ErrNilSessionEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- event:
		p.logger.Debug("session event queued",
			"event_id", event.EventID,
			"session_id", event.Session.ID,
		)
		return nil
	default:
		p.logger.Error("session event not queued, queue full, event dropped",
			"event_id", event.EventID,
			"session_id", event.Session.ID,
		)
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for queued events to drain and then
// closes the wrapped publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.publisher.Close()
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		p.deliver(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) deliver(event *eventstream.SessionFinishedEvent) {
	if err := p.publisher.PublishSession(context.Background(), event); err != nil {
		p.logger.Warn("async session event delivery failed",
			"event_id", event.EventID,
			"session_id", event.Session.ID,
			"error", err,
		)
		return
	}

	p.logger.Debug("session event delivered",
		"event_id", event.EventID,
		"session_id", event.Session.ID,
		"outcome", event.Outcome,
	)
}
