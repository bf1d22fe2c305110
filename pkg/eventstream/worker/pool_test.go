package worker_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tokentap/pkg/eventstream"
	"github.com/papercomputeco/tokentap/pkg/eventstream/worker"
	"github.com/papercomputeco/tokentap/pkg/logger"
)

// fakePublisher records delivered events. When gate is set every delivery
// waits for a value from it.
type fakePublisher struct {
	mu     sync.Mutex
	events []*eventstream.SessionFinishedEvent
	closed bool
	err    error
	gate   chan struct{}
}

func (f *fakePublisher) PublishSession(_ context.Context, event *eventstream.SessionFinishedEvent) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePublisher) Delivered() []*eventstream.SessionFinishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*eventstream.SessionFinishedEvent(nil), f.events...)
}

func (f *fakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newEvent(id string) *eventstream.SessionFinishedEvent {
	return &eventstream.SessionFinishedEvent{
		EventID: "evt-" + id,
		Session: eventstream.SessionMeta{ID: id},
		Outcome: "completed",
	}
}

var _ = Describe("Worker Pool", func() {
	var (
		ctx  context.Context
		fake *fakePublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakePublisher{}
	})

	It("requires a publisher", func() {
		_, err := worker.NewPool(&worker.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("delivers every queued event before Close returns", func() {
		wp, err := worker.NewPool(&worker.Config{Publisher: fake, NumWorkers: 3, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		for _, id := range []string{"a", "b", "c", "d"} {
			Expect(wp.PublishSession(ctx, newEvent(id))).To(Succeed())
		}
		Expect(wp.Close()).To(Succeed())

		ids := []string{}
		for _, e := range fake.Delivered() {
			ids = append(ids, e.Session.ID)
		}
		Expect(ids).To(ConsistOf("a", "b", "c", "d"))
		Expect(fake.Closed()).To(BeTrue())
	})

	It("returns without waiting for delivery", func() {
		fake.gate = make(chan struct{})
		wp, err := worker.NewPool(&worker.Config{Publisher: fake, NumWorkers: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.PublishSession(ctx, newEvent("slow"))).To(Succeed())
		Expect(fake.Delivered()).To(BeEmpty())

		close(fake.gate)
		Expect(wp.Close()).To(Succeed())
		Expect(fake.Delivered()).To(HaveLen(1))
	})

	It("drops events when the queue is full", func() {
		fake.gate = make(chan struct{})
		wp, err := worker.NewPool(&worker.Config{Publisher: fake, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		// The worker holds the first event at the gate; the second fills the queue.
		Expect(wp.PublishSession(ctx, newEvent("1"))).To(Succeed())
		Eventually(func() error {
			return wp.PublishSession(ctx, newEvent("2"))
		}).Should(Succeed())
		Expect(wp.PublishSession(ctx, newEvent("3"))).To(MatchError(worker.ErrQueueFull))

		close(fake.gate)
		Expect(wp.Close()).To(Succeed())
	})

	It("keeps delivering after a publish failure", func() {
		fake.err = errors.New("broker down")
		wp, err := worker.NewPool(&worker.Config{Publisher: fake, NumWorkers: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.PublishSession(ctx, newEvent("a"))).To(Succeed())
		Expect(wp.PublishSession(ctx, newEvent("b"))).To(Succeed())
		Expect(wp.Close()).To(Succeed())
		Expect(fake.Delivered()).To(HaveLen(2))
	})

	It("rejects nil events and events after Close", func() {
		wp, err := worker.NewPool(&worker.Config{Publisher: fake})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.PublishSession(ctx, nil)).To(MatchError(eventstream.ErrNilSessionEvent))

		Expect(wp.Close()).To(Succeed())
		Expect(wp.Close()).To(Succeed())
		Expect(wp.PublishSession(ctx, newEvent("late"))).To(MatchError(worker.ErrClosed))
	})
})
