package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	// maxErrorBody bounds how much of a non-2xx body is kept in StatusError.
	maxErrorBody = 4096

	defaultTimeout            = 5 * time.Minute
	defaultBreakerMaxFailures = 5
	defaultBreakerTimeout     = 30 * time.Second

	contentTypeEventStream = "text/event-stream"
)

// Config configures the HTTP transport.
type Config struct {
	// Endpoint is the absolute http(s) URL of the streaming endpoint.
	Endpoint string

	// Timeout bounds the whole request including reading the stream.
	// Defaults to 5 minutes; LLM responses can be slow.
	Timeout time.Duration

	// RateLimit is the maximum number of opens per second. Zero disables
	// limiting.
	RateLimit float64

	// RateBurst is the limiter burst size. Defaults to 1.
	RateBurst int

	// BreakerMaxFailures is the number of consecutive failed opens before
	// the breaker trips. Defaults to 5.
	BreakerMaxFailures uint32

	// BreakerTimeout is how long the breaker stays open. Defaults to 30s.
	BreakerTimeout time.Duration

	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client

	Logger *slog.Logger
}

// HTTP is a Transport that POSTs JSON and expects an SSE response.
type HTTP struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[io.ReadCloser]
	logger   *slog.Logger
}

var _ Transport = (*HTTP)(nil)

// NewHTTP validates c and builds an HTTP transport.
func NewHTTP(c Config) (*HTTP, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must be an http or https URL", c.Endpoint)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client := c.Client
	if client == nil {
		timeout := c.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if c.RateLimit > 0 {
		burst := max(c.RateBurst, 1)
		limiter = rate.NewLimiter(rate.Limit(c.RateLimit), burst)
	}

	maxFailures := c.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	breakerTimeout := c.BreakerTimeout
	if breakerTimeout == 0 {
		breakerTimeout = defaultBreakerTimeout
	}

	breaker := gobreaker.NewCircuitBreaker[io.ReadCloser](gobreaker.Settings{
		Name:        "stream:" + u.Host,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: isBreakerSuccess,
	})

	return &HTTP{
		endpoint: u.String(),
		client:   client,
		limiter:  limiter,
		breaker:  breaker,
		logger:   logger,
	}, nil
}

// Endpoint returns the configured endpoint URL.
func (t *HTTP) Endpoint() string {
	return t.endpoint
}

// Open POSTs req and returns the response body once the endpoint has
// answered 2xx with a body. The body stays bound to ctx.
func (t *HTTP) Open(ctx context.Context, req *Request) (io.ReadCloser, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	body, err := t.breaker.Execute(func() (io.ReadCloser, error) {
		return t.open(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("endpoint unavailable: %w", err)
		}
		return nil, err
	}

	return body, nil
}

func (t *HTTP) open(ctx context.Context, req *Request) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", contentTypeEventStream)

	t.logger.Debug("opening stream",
		"endpoint", t.endpoint,
		"temperature", req.Temperature,
		"max_tokens", req.MaxTokens,
	)

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, &StatusError{
			Code: httpResp.StatusCode,
			Body: strings.TrimSpace(string(respBody)),
		}
	}

	if httpResp.Body == nil || httpResp.Body == http.NoBody {
		if httpResp.Body != nil {
			httpResp.Body.Close()
		}
		return nil, ErrNoBody
	}

	if ct := httpResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, contentTypeEventStream) {
		t.logger.Debug("endpoint did not declare an event stream",
			"content_type", ct,
		)
	}

	return httpResp.Body, nil
}

// isBreakerSuccess decides which open failures count against the endpoint:
// caller cancellations and 4xx answers do not.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code < 500
	}
	return false
}
