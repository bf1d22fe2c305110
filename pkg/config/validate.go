package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/papercomputeco/tokentap/pkg/session"
	"github.com/papercomputeco/tokentap/pkg/tracer"
)

// Session event providers.
const (
	EventsProviderNop   = "nop"
	EventsProviderKafka = "kafka"
)

// Validate checks that cfg describes a usable client.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Client.Endpoint)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("client.endpoint: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("client.endpoint %q must be an http or https URL", c.Client.Endpoint))
	}

	if err := c.SessionOptions().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("generation: %w", err))
	}

	if c.Transport.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("transport.rate_limit %v must not be negative", c.Transport.RateLimit))
	}

	switch c.Events.Provider {
	case EventsProviderNop, "":
	case EventsProviderKafka:
		if len(c.Events.Brokers) == 0 {
			errs = append(errs, errors.New("events.brokers is required for the kafka provider"))
		}
		if c.Events.Topic == "" {
			errs = append(errs, errors.New("events.topic is required for the kafka provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events.provider %q (available: %s, %s)",
			c.Events.Provider, EventsProviderNop, EventsProviderKafka))
	}

	switch c.Tracing.Exporter {
	case tracer.ExporterStdout, tracer.ExporterNoop, "":
	default:
		errs = append(errs, fmt.Errorf("unknown tracing.exporter %q (available: %s, %s)",
			c.Tracing.Exporter, tracer.ExporterStdout, tracer.ExporterNoop))
	}

	return errors.Join(errs...)
}

// SessionOptions returns the configured generation parameters.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Temperature: c.Generation.Temperature,
		MaxTokens:   int(c.Generation.MaxTokens), //nolint:gosec // bounded by Validate
	}
}
