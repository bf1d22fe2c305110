package tuicmder

import (
	"context"
	"time"

	bubbletea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tokentap/pkg/cliui"
	"github.com/papercomputeco/tokentap/pkg/config"
	"github.com/papercomputeco/tokentap/pkg/logger"
	"github.com/papercomputeco/tokentap/pkg/session"
	testutils "github.com/papercomputeco/tokentap/pkg/utils/test"
)

func token(content string) string {
	return "event: message\ndata: {\"type\":\"token\",\"content\":\"" + content + "\"}\n\n"
}

const end = "event: end\ndata: \n\n"

var (
	enterKey = bubbletea.KeyMsg{Type: bubbletea.KeyEnter}
	clearKey = bubbletea.KeyMsg{Type: bubbletea.KeyCtrlL}
)

func altKey(r rune) bubbletea.KeyMsg {
	return bubbletea.KeyMsg{Type: bubbletea.KeyRunes, Runes: []rune{r}, Alt: true}
}

var _ = Describe("TUI model", func() {
	var (
		tr   *testutils.ChunkTransport
		ctrl *session.Controller
		msgs chan bubbletea.Msg
		m    model
	)

	update := func(msg bubbletea.Msg) bubbletea.Cmd {
		next, cmd := m.Update(msg)
		m = next.(model)
		return cmd
	}

	// pump feeds listener messages into the model until done holds.
	pump := func(done func() bool) {
		GinkgoHelper()
		deadline := time.After(2 * time.Second)
		for !done() {
			select {
			case msg := <-msgs:
				update(msg)
			case <-deadline:
				Fail("timed out waiting for the model")
			}
		}
	}

	// ask submits query and runs the resulting start command.
	ask := func(query string) {
		GinkgoHelper()
		m.input.SetValue(query)
		cmd := update(enterKey)
		Expect(cmd).NotTo(BeNil())
		update(cmd())
	}

	BeforeEach(func() {
		tr = &testutils.ChunkTransport{Chunks: []string{token("Hello"), token(" world"), end}}
		msgs = make(chan bubbletea.Msg, 256)
		listener := newProgramListener(func(msg bubbletea.Msg) { msgs <- msg })

		var err error
		ctrl, err = session.NewController(session.Config{Transport: tr, Listener: listener, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		m = newModel(newRunner(context.Background(), ctrl, listener), "http://localhost:8000/stream", session.DefaultOptions())
		update(bubbletea.WindowSizeMsg{Width: 80, Height: 24})
	})

	AfterEach(func() {
		ctrl.Stop()
	})

	It("reports an empty question without connecting", func() {
		m.input.SetValue("   ")
		cmd := update(enterKey)

		Expect(cmd).To(BeNil())
		Expect(m.errMessage).To(Equal("please enter a question"))
		Expect(m.state).To(Equal(session.StateIdle))
		Expect(tr.Opened()).To(BeEmpty())
	})

	It("streams an answer and its metrics", func() {
		ask("why is the sky blue?")
		pump(func() bool { return m.state == session.StateCompleted })

		Expect(m.answer).To(Equal("Hello world"))
		Expect(m.metrics.Tokens).To(Equal("2"))
		Expect(m.metrics.Duration).NotTo(Equal(cliui.Placeholder))
		Expect(m.statusLine()).To(ContainSubstring("Stream completed"))
		Expect(m.View()).To(ContainSubstring("Hello world"))

		opened := tr.Opened()
		Expect(opened).To(HaveLen(1))
		Expect(opened[0].Query).To(Equal("why is the sky blue?"))
	})

	It("hides the terminal status after the linger tick", func() {
		ask("hi")
		pump(func() bool { return m.state == session.StateCompleted })
		Expect(m.statusVisible).To(BeTrue())

		update(hideStatusMsg{gen: m.gen})
		Expect(m.statusVisible).To(BeFalse())
		Expect(m.statusLine()).To(BeEmpty())
	})

	It("stops a streaming answer on enter and keeps the partial text", func() {
		tr.Chunks = []string{token("partial")}
		tr.Hold = true

		ask("hi")
		pump(func() bool { return m.answer == "partial" })
		Expect(m.state.Active()).To(BeTrue())

		Expect(update(enterKey)).To(BeNil())
		pump(func() bool { return m.state == session.StateAborted })

		Expect(m.answer).To(Equal("partial"))
		Expect(m.statusLine()).To(ContainSubstring("Stream stopped"))
	})

	It("shows server errors", func() {
		tr.Chunks = []string{"event: error\ndata: model overloaded\n\n"}

		ask("hi")
		pump(func() bool { return m.state == session.StateErrored })

		Expect(m.errMessage).To(Equal("model overloaded"))
		Expect(m.statusLine()).To(ContainSubstring("model overloaded"))
	})

	It("drops notifications from an older generation", func() {
		ask("hi")
		pump(func() bool { return m.state == session.StateCompleted })

		update(tokenMsg{gen: m.gen - 1, text: "stale"})
		update(statusMsg{gen: m.gen - 1, state: session.StateStreaming})
		update(errorMsg{gen: m.gen - 1, message: "stale"})

		Expect(m.answer).To(Equal("Hello world"))
		Expect(m.state).To(Equal(session.StateCompleted))
		Expect(m.errMessage).To(BeEmpty())
	})

	It("starts a new question over an old answer", func() {
		ask("first")
		pump(func() bool { return m.state == session.StateCompleted })

		tr.Chunks = []string{token("again"), end}
		ask("second")
		pump(func() bool { return m.state == session.StateCompleted })

		Expect(m.answer).To(Equal("again"))
		Expect(m.metrics.Tokens).To(Equal("1"))
	})

	It("clears the answer and metrics", func() {
		ask("hi")
		pump(func() bool { return m.state == session.StateCompleted })

		cmd := update(clearKey)
		Expect(m.answer).To(BeEmpty())
		Expect(m.metrics).To(Equal(cliui.EmptyMetrics()))
		Expect(m.state).To(Equal(session.StateIdle))

		update(cmd())
		pump(func() bool { return ctrl.State() == session.StateIdle && len(msgs) == 0 })
		Expect(m.state).To(Equal(session.StateIdle))
		Expect(m.answer).To(BeEmpty())
	})

	It("adjusts generation options within bounds", func() {
		update(altKey('='))
		Expect(m.opts.Temperature).To(BeNumerically("~", 0.8, 1e-9))

		for range 10 {
			update(altKey('='))
		}
		Expect(m.opts.Temperature).To(Equal(session.MaxTemperature))

		update(altKey('['))
		Expect(m.opts.MaxTokens).To(Equal(2048 - 256))

		for range 20 {
			update(altKey(']'))
		}
		Expect(m.opts.MaxTokens).To(Equal(session.MaxMaxTokens))
	})

	It("sends the adjusted options with the next question", func() {
		update(altKey('-'))
		update(altKey('['))
		ask("hi")
		pump(func() bool { return m.state == session.StateCompleted })

		opened := tr.Opened()
		Expect(opened[0].Temperature).To(BeNumerically("~", 0.6, 1e-9))
		Expect(opened[0].MaxTokens).To(Equal(2048 - 256))
	})

	It("applies reloaded generation options", func() {
		cfg := config.NewDefaultConfig()
		cfg.Generation.Temperature = 0
		cfg.Generation.MaxTokens = 64

		update(configReloadedMsg{cfg: cfg})
		Expect(m.opts).To(Equal(session.Options{Temperature: 0, MaxTokens: 64}))
		Expect(m.notice).To(Equal("config reloaded; endpoint changes apply on restart"))

		cfg.Client.Endpoint = "http://localhost:8000/stream"
		update(configReloadedMsg{cfg: cfg})
		Expect(m.notice).To(Equal("config reloaded"))
	})

	It("quits and cancels the active session", func() {
		tr.Chunks = []string{token("a")}
		tr.Hold = true
		ask("hi")
		pump(func() bool { return m.answer == "a" })

		cmd := update(bubbletea.KeyMsg{Type: bubbletea.KeyCtrlC})
		Expect(cmd()).To(Equal(bubbletea.Quit()))
		pump(func() bool { return m.state == session.StateAborted })
	})
})

var _ = Describe("runner", func() {
	It("drops a start that a newer request superseded", func() {
		tr := &testutils.ChunkTransport{Chunks: []string{end}}
		listener := newProgramListener(func(bubbletea.Msg) {})
		ctrl, err := session.NewController(session.Config{Transport: tr, Listener: listener})
		Expect(err).NotTo(HaveOccurred())
		defer ctrl.Stop()

		r := newRunner(context.Background(), ctrl, listener)
		Expect(r.resetCmd(2)()).To(Equal(startedMsg{gen: 2}))

		msg := r.startCmd(1, "late", session.DefaultOptions())()
		Expect(msg).To(Equal(startedMsg{gen: 1, err: errSuperseded}))
		Expect(tr.Opened()).To(BeEmpty())
	})
})

var _ = Describe("option stepping", func() {
	DescribeTable("stepTemperature",
		func(t, delta, want float64) {
			Expect(stepTemperature(t, delta)).To(BeNumerically("~", want, 1e-9))
		},
		Entry("steps up", 0.7, 0.1, 0.8),
		Entry("steps down", 0.7, -0.1, 0.6),
		Entry("clamps at one", 1.0, 0.1, 1.0),
		Entry("clamps at zero", 0.0, -0.1, 0.0),
		Entry("rounds drift", 0.30000000000000004, 0.1, 0.4),
	)

	DescribeTable("stepMaxTokens",
		func(n, delta, want int) {
			Expect(stepMaxTokens(n, delta)).To(Equal(want))
		},
		Entry("steps up", 2048, 256, 2304),
		Entry("steps down", 2048, -256, 1792),
		Entry("clamps at the maximum", 4000, 256, 4096),
		Entry("clamps at the minimum", 100, -256, 1),
		Entry("steps up from the minimum to a round value", 1, 256, 256),
	)
})
