// Package sse provides a minimal, purpose-built incremental SSE (Server-Sent
// Events) decoder for tokentap sessions. Raw chunks read from a streaming
// HTTP body are fed to a Decoder as they arrive, with no assumption about
// where chunk boundaries fall, and complete events come back out in the
// order their delimiters appear in the byte stream.
//
// This package intentionally does NOT interpret event payloads (see
// pkg/stream) and does NOT provide SSE writer or server capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DefaultEventType is the event type used when a frame carries no "event:"
// field.
const DefaultEventType = "message"

// Event represents a single decoded SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the trimmed value of the "event:" field, DefaultEventType
	// when absent.
	Type string

	// Data is the trimmed value of the "data:" field. When a frame carries
	// several data lines the last one wins: tokentap endpoints only emit
	// single-line JSON payloads, so multi-line joining is not implemented.
	Data string

	// ID is the trimmed value of the "id:" field, if present.
	ID string
}
