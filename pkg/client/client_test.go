package client_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tokentap/pkg/client"
	"github.com/papercomputeco/tokentap/pkg/config"
	"github.com/papercomputeco/tokentap/pkg/logger"
	"github.com/papercomputeco/tokentap/pkg/session"
	testutils "github.com/papercomputeco/tokentap/pkg/utils/test"
)

const (
	tokenChunk = "event: message\ndata: {\"type\":\"token\",\"content\":\"Hi\"}\n\n"
	stream     = tokenChunk + "event: end\ndata: \n\n"
)

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		server *testutils.SSEServer
		cfg    *config.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = testutils.NewSSEServer(stream)
		cfg = config.NewDefaultConfig()
		cfg.Client.Endpoint = server.URL
	})

	AfterEach(func() {
		server.Close()
	})

	It("streams a session end to end with the configured options", func() {
		cfg.Generation.Temperature = 0
		cfg.Generation.MaxTokens = 64
		listener := &testutils.RecordingListener{}

		c, err := client.New(ctx, client.Options{Config: cfg, Listener: listener, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(c.Close(ctx)).To(Succeed()) }()

		Expect(c.DefaultOptions()).To(Equal(session.Options{Temperature: 0, MaxTokens: 64}))

		s, err := c.Controller.Start(ctx, "hi", c.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		result := s.Wait()

		Expect(result.State).To(Equal(session.StateCompleted))
		Expect(listener.Text()).To(Equal("Hi"))

		reqs := server.Requests()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0].Body).To(HaveKeyWithValue("temperature", BeNumerically("==", 0)))
		Expect(reqs[0].Body).To(HaveKeyWithValue("max_tokens", BeNumerically("==", 64)))
	})

	It("mirrors raw bytes when a sink is given", func() {
		var raw bytes.Buffer
		c, err := client.New(ctx, client.Options{Config: cfg, RawSink: &raw})
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = c.Close(ctx) }()

		s, err := c.Controller.Start(ctx, "hi", c.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		s.Wait()

		Expect(raw.String()).To(Equal(stream))
	})

	It("writes spans to the trace writer when tracing is enabled", func() {
		var spans bytes.Buffer
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = "stdout"

		c, err := client.New(ctx, client.Options{Config: cfg, TraceWriter: &spans})
		Expect(err).NotTo(HaveOccurred())

		s, err := c.Controller.Start(ctx, "hi", c.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		s.Wait()

		Expect(c.Close(ctx)).To(Succeed())
		Expect(spans.String()).To(ContainSubstring("tokentap.session"))
	})

	It("stops an active session on Close", func() {
		server.Chunks = []string{tokenChunk}
		server.Hold = true
		c, err := client.New(ctx, client.Options{Config: cfg})
		Expect(err).NotTo(HaveOccurred())

		s, err := c.Controller.Start(ctx, "hi", c.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Eventually(s.State).Should(Equal(session.StateStreaming))

		Expect(c.Close(ctx)).To(Succeed())
		Expect(s.State()).To(Equal(session.StateAborted))
	})

	It("uses the default config when none is given", func() {
		c, err := client.New(ctx, client.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.DefaultOptions()).To(Equal(session.DefaultOptions()))
		Expect(c.Close(ctx)).To(Succeed())
	})

	It("rejects an invalid endpoint", func() {
		cfg.Client.Endpoint = "ftp://example.com"
		_, err := client.New(ctx, client.Options{Config: cfg})
		Expect(err).To(MatchError(ContainSubstring("creating transport")))
	})

	It("rejects an unknown events provider", func() {
		cfg.Events.Provider = "nats"
		_, err := client.New(ctx, client.Options{Config: cfg})
		Expect(err).To(MatchError(ContainSubstring("unsupported events provider")))
	})
})
