// Package eventstreamutils builds session event publishers from config.
package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/tokentap/pkg/eventstream"
	"github.com/papercomputeco/tokentap/pkg/eventstream/kafka"
	"github.com/papercomputeco/tokentap/pkg/eventstream/nop"
	"github.com/papercomputeco/tokentap/pkg/eventstream/worker"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *slog.Logger
}

// NewPublisher returns the publisher for o.ProviderType. Broker-backed
// publishers are wrapped in a worker.Pool so delivery happens off the
// session goroutine.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
			Logger:  o.Logger,
		})
		if err != nil {
			return nil, err
		}
		pool, err := worker.NewPool(&worker.Config{Publisher: p, Logger: o.Logger})
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		return pool, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}
