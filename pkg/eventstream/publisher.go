// Package eventstream publishes transport-neutral session events so other
// systems can observe tokentap traffic without reading its logs.
package eventstream

import "context"

// Publisher publishes session events to an event stream backend.
type Publisher interface {
	PublishSession(ctx context.Context, event *SessionFinishedEvent) error
	Close() error
}
