package tuicmder

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/tokentap/pkg/cliui"
	"github.com/papercomputeco/tokentap/pkg/config"
	"github.com/papercomputeco/tokentap/pkg/session"
)

const (
	// statusLinger is how long a terminal status stays on screen.
	statusLinger = 2 * time.Second

	temperatureStep = 0.1
	maxTokensStep   = 256

	// chromeHeight is the number of lines around the answer viewport.
	chromeHeight = 9
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
)

type keyMap struct {
	Submit   key.Binding
	Clear    key.Binding
	TempUp   key.Binding
	TempDown key.Binding
	MaxUp    key.Binding
	MaxDown  key.Binding
	Scroll   key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Clear, k.TempUp, k.TempDown, k.MaxUp, k.MaxDown, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.Clear, k.Scroll}, {k.TempUp, k.TempDown, k.MaxUp, k.MaxDown, k.Quit}}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask/stop")),
		Clear:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		TempUp:   key.NewBinding(key.WithKeys("alt+="), key.WithHelp("alt+=", "temp+")),
		TempDown: key.NewBinding(key.WithKeys("alt+-"), key.WithHelp("alt+-", "temp-")),
		MaxUp:    key.NewBinding(key.WithKeys("alt+]"), key.WithHelp("alt+]", "tokens+")),
		MaxDown:  key.NewBinding(key.WithKeys("alt+["), key.WithHelp("alt+[", "tokens-")),
		Scroll:   key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// configReloadedMsg carries a configuration re-read from disk.
type configReloadedMsg struct {
	cfg *config.Config
}

type model struct {
	runner   *runner
	endpoint string
	opts     session.Options

	// gen is bumped on every start and clear. Session messages tagged with
	// an older generation are dropped.
	gen uint64

	state         session.State
	statusVisible bool
	answer        string
	metrics       cliui.Metrics
	errMessage    string
	notice        string

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap

	width  int
	height int
	ready  bool
}

func newModel(r *runner, endpoint string, opts session.Options) model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question..."
	ti.Prompt = "> "
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle

	return model{
		runner:   r,
		endpoint: endpoint,
		opts:     opts,
		metrics:  cliui.EmptyMetrics(),
		input:    ti,
		spinner:  s,
		help:     help.New(),
		keys:     defaultKeyMap(),
	}
}

func (m model) Init() bubbletea.Cmd {
	return bubbletea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m model) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case bubbletea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m.handleStatus(msg.state)

	case tokenMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.answer += msg.text
		m.refreshAnswer()
		return m, nil

	case metricsMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.metrics = cliui.FormatMetrics(msg.update)
		return m, nil

	case errorMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.errMessage = msg.message
		return m, nil

	case startedMsg:
		if msg.gen != m.gen || msg.err == nil || errors.Is(msg.err, errSuperseded) {
			return m, nil
		}
		m.state = session.StateIdle
		m.statusVisible = false
		m.errMessage = msg.err.Error()
		return m, nil

	case hideStatusMsg:
		if msg.gen == m.gen && m.state.Terminal() {
			m.statusVisible = false
		}
		return m, nil

	case configReloadedMsg:
		m.opts = msg.cfg.SessionOptions()
		m.notice = "config reloaded"
		if msg.cfg.Client.Endpoint != m.endpoint {
			m.notice = "config reloaded; endpoint changes apply on restart"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.runner.cancel()
		return m, bubbletea.Quit

	case key.Matches(msg, m.keys.Submit):
		if m.state.Active() {
			m.runner.cancel()
			return m, nil
		}
		return m.submit()

	case key.Matches(msg, m.keys.Clear):
		m.gen++
		m.state = session.StateIdle
		m.statusVisible = false
		m.answer = ""
		m.metrics = cliui.EmptyMetrics()
		m.errMessage = ""
		m.notice = ""
		m.input.Reset()
		m.refreshAnswer()
		return m, m.runner.resetCmd(m.gen)

	case key.Matches(msg, m.keys.TempUp):
		m.opts.Temperature = stepTemperature(m.opts.Temperature, temperatureStep)
		return m, nil

	case key.Matches(msg, m.keys.TempDown):
		m.opts.Temperature = stepTemperature(m.opts.Temperature, -temperatureStep)
		return m, nil

	case key.Matches(msg, m.keys.MaxUp):
		m.opts.MaxTokens = stepMaxTokens(m.opts.MaxTokens, maxTokensStep)
		return m, nil

	case key.Matches(msg, m.keys.MaxDown):
		m.opts.MaxTokens = stepMaxTokens(m.opts.MaxTokens, -maxTokensStep)
		return m, nil

	case key.Matches(msg, m.keys.Scroll):
		var cmd bubbletea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a session for the current input. An empty question is
// reported without contacting the endpoint.
func (m model) submit() (bubbletea.Model, bubbletea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.errMessage = session.ErrEmptyQuery.Error()
		m.notice = ""
		return m, nil
	}

	m.gen++
	m.state = session.StateConnecting
	m.statusVisible = true
	m.answer = ""
	m.metrics = cliui.EmptyMetrics()
	m.errMessage = ""
	m.notice = ""
	m.refreshAnswer()

	return m, m.runner.startCmd(m.gen, query, m.opts)
}

func (m model) handleStatus(state session.State) (bubbletea.Model, bubbletea.Cmd) {
	m.state = state
	if state == session.StateIdle {
		m.statusVisible = false
		return m, nil
	}

	m.statusVisible = true
	if !state.Terminal() {
		return m, nil
	}

	gen := m.gen
	return m, bubbletea.Tick(statusLinger, func(time.Time) bubbletea.Msg {
		return hideStatusMsg{gen: gen}
	})
}

func (m *model) layout() {
	m.input.Width = max(m.width-4, 10)
	m.help.Width = m.width

	height := max(m.height-chromeHeight, 3)
	if !m.ready {
		m.viewport = viewport.New(m.width, height)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = height
	}
	m.refreshAnswer()
}

func (m *model) refreshAnswer() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(ansi.Wordwrap(m.answer, max(m.width, 1), ""))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m model) View() string {
	var b strings.Builder

	header := titleStyle.Render("tokentap") + " " + mutedStyle.Render(m.endpoint)
	b.WriteString(m.truncate(header) + "\n")
	b.WriteString(m.truncate(m.settingsLine()) + "\n")
	b.WriteString(m.input.View() + "\n")
	b.WriteString(m.truncate(m.statusLine()) + "\n")
	b.WriteString(m.truncate(m.metrics.Line()) + "\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(m.width, 1))) + "\n")

	if m.ready {
		b.WriteString(m.viewport.View() + "\n")
	} else {
		b.WriteString(m.answer + "\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m model) settingsLine() string {
	return fmt.Sprintf("%s %s  %s %s",
		cliui.KeyStyle.Render("Temperature"),
		sectionStyle.Render(fmt.Sprintf("%.1f", m.opts.Temperature)),
		cliui.KeyStyle.Render("Max tokens"),
		sectionStyle.Render(fmt.Sprintf("%d", m.opts.MaxTokens)),
	)
}

func (m model) statusLine() string {
	switch {
	case m.errMessage != "" && (m.state.Terminal() || m.state == session.StateIdle):
		line := cliui.ErrorStyle.Render(m.errMessage)
		if m.statusVisible {
			line = cliui.StateMark(m.state) + " " + m.state.Status() + "  " + line
		}
		return line
	case m.state.Active():
		return m.spinner.View() + " " + m.state.Status()
	case m.statusVisible:
		return cliui.StateMark(m.state) + " " + m.state.Status()
	case m.notice != "":
		return noticeStyle.Render(m.notice)
	default:
		return ""
	}
}

// truncate clips a styled line to the window width.
func (m model) truncate(s string) string {
	if m.width <= 0 {
		return s
	}
	return ansi.Truncate(s, m.width, "…")
}

func stepTemperature(t, delta float64) float64 {
	t = math.Round((t+delta)*10) / 10
	return min(max(t, session.MinTemperature), session.MaxTemperature)
}

func stepMaxTokens(n, delta int) int {
	if delta > 0 && n == session.MinMaxTokens {
		n = 0
	}
	return min(max(n+delta, session.MinMaxTokens), session.MaxMaxTokens)
}
