// Package transport opens the streaming HTTP request behind a tokentap
// session. It owns the wire format of the request and the resilience around
// opening it (rate limiting and circuit breaking); reading and decoding the
// returned body is the caller's job.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNoBody is returned when the endpoint answers without a readable body.
var ErrNoBody = errors.New("response carried no readable body")

// Request is the JSON body POSTed to the streaming endpoint.
type Request struct {
	Query       string  `json:"query"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Transport opens a cancellable stream for a request. The returned body must
// be closed by the caller; cancelling ctx aborts any pending Read on it.
type Transport interface {
	Open(ctx context.Context, req *Request) (io.ReadCloser, error)
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code int

	// Body is a bounded prefix of the response body, for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("stream error: status %d", e.Code)
	}
	return fmt.Sprintf("stream error: status %d: %s", e.Code, e.Body)
}
