// Package cliui provides reusable terminal UI helpers (status marks, metric
// formatting, markdown rendering) for tokentap CLI commands.
package cliui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/tokentap/pkg/session"
)

// Placeholder is shown for metrics that are not known yet.
const Placeholder = "-"

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StopMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("■")

	KeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// StateMark returns the mark for a terminal session state, or "" otherwise.
func StateMark(s session.State) string {
	switch s {
	case session.StateCompleted:
		return SuccessMark
	case session.StateErrored:
		return FailMark
	case session.StateAborted:
		return StopMark
	default:
		return ""
	}
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// Metrics is a display-ready rendering of a MetricsUpdate. Unknown values
// hold Placeholder.
type Metrics struct {
	TTFT            string
	Tokens          string
	Duration        string
	TokensPerSecond string
}

// FormatMetrics renders u with second resolution: TTFT to the millisecond,
// duration to the centisecond and throughput to one decimal.
func FormatMetrics(u session.MetricsUpdate) Metrics {
	m := Metrics{
		TTFT:            Placeholder,
		Tokens:          strconv.Itoa(u.TokenCount),
		Duration:        Placeholder,
		TokensPerSecond: Placeholder,
	}
	if u.TTFT != nil {
		m.TTFT = fmt.Sprintf("%.3fs", u.TTFT.Seconds())
	}
	if u.Duration != nil {
		m.Duration = fmt.Sprintf("%.2fs", u.Duration.Seconds())
	}
	if u.TokensPerSecond != nil {
		m.TokensPerSecond = fmt.Sprintf("%.1f", *u.TokensPerSecond)
	}
	return m
}

// EmptyMetrics is the rendering shown before any session ran.
func EmptyMetrics() Metrics {
	return Metrics{
		TTFT:            Placeholder,
		Tokens:          Placeholder,
		Duration:        Placeholder,
		TokensPerSecond: Placeholder,
	}
}

// Line renders the metrics on one styled line.
func (m Metrics) Line() string {
	parts := []string{
		KeyStyle.Render("TTFT ") + ValueStyle.Render(m.TTFT),
		KeyStyle.Render("Tokens ") + ValueStyle.Render(m.Tokens),
		KeyStyle.Render("Duration ") + ValueStyle.Render(m.Duration),
		KeyStyle.Render("Tokens/s ") + ValueStyle.Render(m.TokensPerSecond),
	}
	return strings.Join(parts, DimStyle.Render("  ·  "))
}

// RenderMarkdown renders markdown content for terminal display using glamour.
// width <= 0 wraps at 80 columns.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
