package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/tokentap/pkg/eventstream"
	"github.com/papercomputeco/tokentap/pkg/eventstream/kafka"
	"github.com/papercomputeco/tokentap/pkg/stream"
)

type fakeWriter struct {
	msgs     []kafkago.Message
	err      error
	closed   bool
	deadline bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	_, w.deadline = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer *fakeWriter
		pub    *kafka.Publisher
		event  *eventstream.SessionFinishedEvent
	)

	BeforeEach(func() {
		writer = &fakeWriter{}
		pub = kafka.NewPublisherWithWriter(writer, kafka.Config{Topic: "tokentap.sessions"})

		now := time.Unix(1735689600, 0).UTC()
		m := stream.NewMetrics(now.Add(-time.Second))
		m.TokenCount = 4
		m.Finalize(now)
		event = eventstream.NewSessionFinishedEvent(eventstream.SessionMeta{
			ID:         "session-1",
			Endpoint:   "http://localhost:8000/stream",
			QueryChars: 5,
		}, "completed", m.Snapshot(), "", now)
	})

	Describe("NewPublisher", func() {
		It("requires brokers", func() {
			_, err := kafka.NewPublisher(kafka.Config{Topic: "t"})
			Expect(err).To(MatchError(kafka.ErrNoBrokers))
		})

		It("requires a topic", func() {
			_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
			Expect(err).To(MatchError(kafka.ErrNoTopic))
		})

		It("builds a publisher without dialing", func() {
			p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "t"})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Close()).To(Succeed())
		})
	})

	It("returns ErrNilSessionEvent for nil events", func() {
		Expect(pub.PublishSession(context.Background(), nil)).To(MatchError(eventstream.ErrNilSessionEvent))
		Expect(writer.msgs).To(BeEmpty())
	})

	It("writes the event as JSON keyed by session ID", func() {
		Expect(pub.PublishSession(context.Background(), event)).To(Succeed())
		Expect(writer.msgs).To(HaveLen(1))
		Expect(writer.deadline).To(BeTrue())

		msg := writer.msgs[0]
		Expect(string(msg.Key)).To(Equal("session-1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{
			Key:   "event_type",
			Value: []byte(eventstream.EventTypeSessionFinished),
		}))

		var got eventstream.SessionFinishedEvent
		Expect(json.Unmarshal(msg.Value, &got)).To(Succeed())
		Expect(got.EventID).To(Equal(event.EventID))
		Expect(got.Outcome).To(Equal("completed"))
		Expect(got.Metrics.TokenCount).To(Equal(4))
	})

	It("wraps writer failures", func() {
		writer.err = errors.New("broker down")
		err := pub.PublishSession(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("writing session event")))
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
