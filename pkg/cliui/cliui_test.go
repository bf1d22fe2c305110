package cliui_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tokentap/pkg/cliui"
	"github.com/papercomputeco/tokentap/pkg/session"
)

var _ = Describe("cliui", func() {
	Describe("Mark", func() {
		It("distinguishes success from failure", func() {
			Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
			Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
		})
	})

	Describe("StateMark", func() {
		It("marks terminal states only", func() {
			Expect(cliui.StateMark(session.StateCompleted)).To(Equal(cliui.SuccessMark))
			Expect(cliui.StateMark(session.StateErrored)).To(Equal(cliui.FailMark))
			Expect(cliui.StateMark(session.StateAborted)).To(Equal(cliui.StopMark))
			Expect(cliui.StateMark(session.StateStreaming)).To(BeEmpty())
		})
	})

	Describe("FormatDuration", func() {
		It("uses milliseconds below a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses seconds above a second", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("FormatMetrics", func() {
		It("uses placeholders for unknown values", func() {
			m := cliui.FormatMetrics(session.MetricsUpdate{TokenCount: 3})
			Expect(m).To(Equal(cliui.Metrics{
				TTFT:            "-",
				Tokens:          "3",
				Duration:        "-",
				TokensPerSecond: "-",
			}))
		})

		It("formats final metrics", func() {
			ttft := 312 * time.Millisecond
			total := 2100 * time.Millisecond
			tps := 20.0

			m := cliui.FormatMetrics(session.MetricsUpdate{
				TTFT:            &ttft,
				TokenCount:      42,
				Duration:        &total,
				TokensPerSecond: &tps,
			})
			Expect(m.TTFT).To(Equal("0.312s"))
			Expect(m.Tokens).To(Equal("42"))
			Expect(m.Duration).To(Equal("2.10s"))
			Expect(m.TokensPerSecond).To(Equal("20.0"))
			Expect(m.Line()).To(ContainSubstring("0.312s"))
		})

		It("has an all-placeholder empty rendering", func() {
			Expect(cliui.EmptyMetrics().Tokens).To(Equal(cliui.Placeholder))
		})
	})

	Describe("RenderMarkdown", func() {
		It("renders markdown content", func() {
			out, err := cliui.RenderMarkdown("# Title\n\nSome **bold** text.", 40)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Title"))
			Expect(out).To(ContainSubstring("bold"))
		})
	})
})
