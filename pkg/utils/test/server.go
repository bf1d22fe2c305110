// Package testutils provides shared fixtures for tokentap tests: a scripted
// SSE endpoint, a chunk-by-chunk transport and a recording session listener.
package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// ReceivedRequest captures what the SSE server saw.
type ReceivedRequest struct {
	Method      string
	ContentType string
	Accept      string
	Body        map[string]any
}

// SSEServer is an httptest server that answers every request by writing
// Chunks one at a time, flushing after each.
type SSEServer struct {
	*httptest.Server

	// Status overrides the response status (200 by default).
	Status int

	// Chunks are written verbatim in order.
	Chunks []string

	// Hold keeps the response open after the last chunk until the client
	// goes away or Release is called.
	Hold bool

	mu       sync.Mutex
	requests []ReceivedRequest
	release  chan struct{}
	once     sync.Once
}

// NewSSEServer starts a server streaming chunks.
func NewSSEServer(chunks ...string) *SSEServer {
	s := &SSEServer{
		Chunks:  chunks,
		release: make(chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Requests returns a copy of every request received so far.
func (s *SSEServer) Requests() []ReceivedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ReceivedRequest(nil), s.requests...)
}

// Release unblocks held responses.
func (s *SSEServer) Release() {
	s.once.Do(func() { close(s.release) })
}

// Close releases held responses and shuts the server down.
func (s *SSEServer) Close() {
	s.Release()
	s.Server.Close()
}

func (s *SSEServer) handle(w http.ResponseWriter, r *http.Request) {
	rec := ReceivedRequest{
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
		Accept:      r.Header.Get("Accept"),
	}
	_ = json.NewDecoder(r.Body).Decode(&rec.Body)

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()

	if s.Status != 0 && s.Status != http.StatusOK {
		w.WriteHeader(s.Status)
		fmt.Fprint(w, "upstream exploded")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	for _, chunk := range s.Chunks {
		fmt.Fprint(w, chunk)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if s.Hold {
		select {
		case <-r.Context().Done():
		case <-s.release:
		}
	}
}
