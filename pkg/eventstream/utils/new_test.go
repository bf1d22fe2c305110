package eventstreamutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tokentap/pkg/eventstream/kafka"
	"github.com/papercomputeco/tokentap/pkg/eventstream/nop"
	eventstreamutils "github.com/papercomputeco/tokentap/pkg/eventstream/utils"
	"github.com/papercomputeco/tokentap/pkg/eventstream/worker"
)

var _ = Describe("NewPublisher", func() {
	It("returns the nop publisher for an empty provider", func() {
		p, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("returns the nop publisher for nop", func() {
		p, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{ProviderType: "nop"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a pooled kafka publisher", func() {
		p, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: "kafka",
			Brokers:      []string{"localhost:9092"},
			Topic:        "tokentap.sessions",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&worker.Pool{}))
		Expect(p.Close()).To(Succeed())
	})

	It("surfaces kafka configuration errors", func() {
		_, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: "kafka",
			Topic:        "tokentap.sessions",
		})
		Expect(err).To(MatchError(kafka.ErrNoBrokers))
	})

	It("rejects unknown providers", func() {
		_, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{ProviderType: "nats"})
		Expect(err).To(MatchError(ContainSubstring("unsupported events provider: nats")))
	})
})
