// Package client assembles a session.Controller and its collaborators from a
// resolved tokentap Config.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/papercomputeco/tokentap/pkg/config"
	"github.com/papercomputeco/tokentap/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/tokentap/pkg/eventstream/utils"
	"github.com/papercomputeco/tokentap/pkg/session"
	"github.com/papercomputeco/tokentap/pkg/tracer"
	"github.com/papercomputeco/tokentap/pkg/transport"
)

// Options configures New.
type Options struct {
	Config *config.Config

	// Listener receives session notifications.
	Listener session.Listener

	// RawSink mirrors the raw stream bytes when set.
	RawSink io.Writer

	// TraceWriter receives stdout span output.
	TraceWriter io.Writer

	Logger *slog.Logger
}

// Client owns a Controller together with the transport, publisher and
// tracer provider it was built with.
type Client struct {
	Controller *session.Controller

	publisher       eventstream.Publisher
	shutdownTracing func(context.Context) error
	sessionDefaults session.Options
}

// New builds a Client. Close must be called to flush spans and session
// events.
func New(ctx context.Context, o Options) (*Client, error) {
	cfg := o.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	t, err := transport.NewHTTP(transport.Config{
		Endpoint:           cfg.Client.Endpoint,
		Timeout:            time.Duration(cfg.Client.TimeoutSeconds) * time.Second,
		RateLimit:          cfg.Transport.RateLimit,
		RateBurst:          int(cfg.Transport.RateBurst),
		BreakerMaxFailures: uint32(cfg.Transport.BreakerMaxFailures), //nolint:gosec // configured failure counts are small
		BreakerTimeout:     time.Duration(cfg.Transport.BreakerTimeoutSeconds) * time.Second,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating transport: %w", err)
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	shutdown, err := tracer.Setup(ctx, tracer.Config{
		Enabled:  cfg.Tracing.Enabled,
		Exporter: cfg.Tracing.Exporter,
		Writer:   o.TraceWriter,
	})
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	ctrl, err := session.NewController(session.Config{
		Transport: t,
		Endpoint:  t.Endpoint(),
		Listener:  o.Listener,
		Publisher: publisher,
		RawSink:   o.RawSink,
		Logger:    logger,
	})
	if err != nil {
		_ = publisher.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	return &Client{
		Controller:      ctrl,
		publisher:       publisher,
		shutdownTracing: shutdown,
		sessionDefaults: cfg.SessionOptions(),
	}, nil
}

// DefaultOptions returns the generation options from the config the client
// was built with.
func (c *Client) DefaultOptions() session.Options {
	return c.sessionDefaults
}

// Close stops any active session, then flushes the publisher and tracer.
func (c *Client) Close(ctx context.Context) error {
	c.Controller.Stop()

	return errors.Join(
		c.publisher.Close(),
		c.shutdownTracing(ctx),
	)
}
