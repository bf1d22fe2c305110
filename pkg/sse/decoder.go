package sse

import (
	"bytes"
	"strings"
)

// delimiter separates events in the stream.
var delimiter = []byte("\n\n")

const (
	fieldEvent = "event:"
	fieldData  = "data:"
	fieldID    = "id:"
)

// Decoder incrementally splits a chunked byte stream into Events.
//
// ┌──────────────┐    ┌────────────────┐    ┌─────────┐
// │ chunk []byte │──▶ │ Decoder.Feed() │──▶ │ []Event │
// └──────────────┘    └────────────────┘    └─────────┘
//                             │
//                             ▼
//                   ┌──────────────────┐
//                   │ carry-over buffer│ (at most one unterminated event)
//                   └──────────────────┘
//
// A Decoder is not safe for concurrent use; it is owned by the single
// goroutine reading the stream.
type Decoder struct {
	buf []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the carry-over buffer and returns every event whose
// terminating blank line is now present, in stream order. The trailing
// unterminated fragment (possibly empty) stays buffered for the next call.
//
// The buffer is kept as bytes until a fragment is complete, so chunk
// boundaries that split the "\n\n" delimiter or a multi-byte UTF-8 rune
// never corrupt an event.
func (d *Decoder) Feed(chunk []byte) []*Event {
	d.buf = append(d.buf, chunk...)

	var events []*Event
	for {
		idx := bytes.Index(d.buf, delimiter)
		if idx < 0 {
			break
		}

		fragment := string(d.buf[:idx])
		d.buf = d.buf[idx+len(delimiter):]

		if ev := parseFragment(fragment); ev != nil {
			events = append(events, ev)
		}
	}

	// Compact so a long stream does not pin the whole history in the
	// backing array.
	if len(d.buf) == 0 {
		d.buf = nil
	} else if cap(d.buf) > 2*len(d.buf)+len(chunk) {
		d.buf = append([]byte(nil), d.buf...)
	}

	return events
}

// Pending returns the buffered, not yet terminated remainder of the stream.
func (d *Decoder) Pending() string {
	return string(d.buf)
}

// Reset discards any buffered remainder.
func (d *Decoder) Reset() {
	d.buf = nil
}

// parseFragment turns one delimiter-free frame into an Event. Returns nil for
// frames that are empty or whitespace only.
func parseFragment(fragment string) *Event {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	ev := &Event{Type: DefaultEventType}

	for line := range strings.SplitSeq(fragment, "\n") {
		switch {
		case strings.HasPrefix(line, fieldEvent):
			ev.Type = strings.TrimSpace(line[len(fieldEvent):])
		case strings.HasPrefix(line, fieldData):
			ev.Data = strings.TrimSpace(line[len(fieldData):])
		case strings.HasPrefix(line, fieldID):
			ev.ID = strings.TrimSpace(line[len(fieldID):])
		default:
			// Comments (":"), "retry:" and unknown fields are ignored.
		}
	}

	return ev
}
